// Copyright © 2024 Chatwire. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package push

import (
	"context"
	"time"

	"github.com/openimsdk/tools/log"

	"github.com/chatwire/chatwire-server/pkg/common/prommetrics"
	"github.com/chatwire/chatwire-server/pkg/common/pushevent"
)

// retryDelay is the schedule for one attempt: base·2^(attempt−1) + 7·attempt,
// capped. With the 30s default base the delays run 37, 74, 141, 268, 515s.
func retryDelay(attempt int, base, limit time.Duration) time.Duration {
	delay := base*(1<<(attempt-1)) + 7*time.Duration(attempt)*time.Second
	if delay > limit {
		return limit
	}
	return delay
}

// retrySend reschedules a failed event: bump the attempt, push to the retry
// queue with the computed delay, or to the DLQ once attempts are exhausted.
// The DLQ copy carries the event exactly as it last failed.
func (c *Consumer) retrySend(ctx context.Context, event *pushevent.Event) {
	attempt := event.RetryCount + 1
	if attempt > c.conf.Push.MaxRetries {
		body, err := event.Encode()
		if err != nil {
			log.ZError(ctx, "encode for dlq failed", err, "event", event.Event)
			return
		}
		if err := c.queues.DLQ.Send(ctx, body, 0); err != nil {
			log.ZError(ctx, "dlq send failed, event lost", err, "event", event.Event, "messageID", event.MessageID)
			return
		}
		prommetrics.QueueDeadLetterCounter.Inc()
		log.ZWarn(ctx, "event dead-lettered", nil, "event", event.Event, "messageID", event.MessageID, "attempts", event.RetryCount)
		return
	}

	event.RetryCount = attempt
	event.Retry = &pushevent.RetryMeta{Attempt: attempt}
	body, err := event.Encode()
	if err != nil {
		log.ZError(ctx, "encode for retry failed", err, "event", event.Event)
		return
	}
	delay := retryDelay(attempt, c.conf.Push.RetryBase, c.conf.Push.RetryDelayCap)
	if err := c.queues.Retry.Send(ctx, body, delay); err != nil {
		log.ZError(ctx, "retry send failed, event lost", err, "event", event.Event, "messageID", event.MessageID)
		return
	}
	prommetrics.QueueRetryCounter.Inc()
	log.ZDebug(ctx, "event scheduled for retry", "event", event.Event, "attempt", attempt, "delay", delay)
}
