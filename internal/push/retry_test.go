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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatwire/chatwire-server/pkg/common/config"
	"github.com/chatwire/chatwire-server/pkg/common/constant"
	"github.com/chatwire/chatwire-server/pkg/common/pushevent"
	"github.com/chatwire/chatwire-server/pkg/queue"
)

func retryTestConsumer(queues queue.Queues) *Consumer {
	conf := &config.Config{}
	conf.Push.MaxRetries = 5
	conf.Push.RetryBase = 30 * time.Second
	conf.Push.RetryDelayCap = time.Hour
	return NewConsumer(conf, nil, nil, queues, nil, nil)
}

func TestRetryDelaySchedule(t *testing.T) {
	base := 30 * time.Second
	limit := time.Hour
	want := []time.Duration{
		37 * time.Second,
		74 * time.Second,
		141 * time.Second,
		268 * time.Second,
		515 * time.Second,
	}
	for attempt := 1; attempt <= 5; attempt++ {
		assert.Equal(t, want[attempt-1], retryDelay(attempt, base, limit), "attempt %d", attempt)
	}
	// The schedule is strictly monotonic up to the cap.
	for attempt := 2; attempt <= 5; attempt++ {
		assert.Greater(t, retryDelay(attempt, base, limit), retryDelay(attempt-1, base, limit))
	}
	// A pathological base still caps at the limit.
	assert.Equal(t, limit, retryDelay(10, time.Hour, limit))
}

func TestRetrySendSchedulesWithDelay(t *testing.T) {
	ctx := context.Background()
	queues := queue.Queues{
		Retry: queue.NewMemoryQueue(time.Minute, 0),
		DLQ:   queue.NewMemoryQueue(time.Minute, 0),
	}
	c := retryTestConsumer(queues)

	event := &pushevent.Event{Event: constant.EventNewMessage, MessageID: "m1", RetryCount: 0}
	c.retrySend(ctx, event)

	// The retry copy is delayed; immediately invisible.
	msgs, err := queues.Retry.Receive(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Equal(t, 1, event.RetryCount)
	require.NotNil(t, event.Retry)
	assert.Equal(t, 1, event.Retry.Attempt)
}

func TestRetrySendExhaustedGoesToDLQ(t *testing.T) {
	ctx := context.Background()
	queues := queue.Queues{
		Retry: queue.NewMemoryQueue(time.Minute, 0),
		DLQ:   queue.NewMemoryQueue(time.Minute, 0),
	}
	c := retryTestConsumer(queues)

	event := &pushevent.Event{Event: constant.EventNewMessage, MessageID: "m1", RetryCount: 5}
	c.retrySend(ctx, event)

	msgs, err := queues.DLQ.Receive(ctx, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	dead, err := pushevent.Decode(msgs[0].Body)
	require.NoError(t, err)
	// The DLQ copy is the event as it last failed, untouched.
	assert.Equal(t, 5, dead.RetryCount)
	assert.Equal(t, "m1", dead.MessageID)

	retries, err := queues.Retry.Receive(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, retries)
}
