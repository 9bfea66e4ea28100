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

package pubsub

import (
	"context"
	"sync"
	"time"

	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/log"
	"github.com/redis/go-redis/v9"

	"github.com/chatwire/chatwire-server/pkg/common/prommetrics"
)

// listenBackoff is the reconnect schedule after a listener failure; past the
// end every retry waits listenBackoffCap.
var listenBackoff = []time.Duration{
	5 * time.Second,
	10 * time.Second,
	15 * time.Second,
	20 * time.Second,
	25 * time.Second,
}

const listenBackoffCap = time.Minute

func NewRedisBus(rdb redis.UniversalClient) Bus {
	return &redisBus{
		rdb:      rdb,
		sub:      rdb.Subscribe(context.Background()),
		channels: make(map[string]struct{}),
	}
}

type redisBus struct {
	rdb redis.UniversalClient

	lock     sync.Mutex
	sub      *redis.PubSub
	channels map[string]struct{}
}

func (b *redisBus) Publish(ctx context.Context, channel string, event *Event) (int64, error) {
	data, err := event.Encode()
	if err != nil {
		return 0, err
	}
	n, err := b.rdb.Publish(ctx, channel, data).Result()
	if err != nil {
		prommetrics.BusPublishFailedCounter.Inc()
		return 0, errs.WrapMsg(err, "publish to bus failed", "channel", channel)
	}
	return n, nil
}

func (b *redisBus) Subscribe(ctx context.Context, channels ...string) error {
	if len(channels) == 0 {
		return nil
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	if err := b.sub.Subscribe(ctx, channels...); err != nil {
		return errs.Wrap(err)
	}
	for _, ch := range channels {
		b.channels[ch] = struct{}{}
	}
	return nil
}

func (b *redisBus) Unsubscribe(ctx context.Context, channels ...string) error {
	if len(channels) == 0 {
		return nil
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	if err := b.sub.Unsubscribe(ctx, channels...); err != nil {
		return errs.Wrap(err)
	}
	for _, ch := range channels {
		delete(b.channels, ch)
	}
	return nil
}

func (b *redisBus) Channels() []string {
	b.lock.Lock()
	defer b.lock.Unlock()
	channels := make([]string, 0, len(b.channels))
	for ch := range b.channels {
		channels = append(channels, ch)
	}
	return channels
}

func (b *redisBus) Listen(ctx context.Context, handler Handler) {
	failures := 0
	for {
		if ctx.Err() != nil {
			return
		}
		msg, err := b.sub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			delay := listenBackoffCap
			if failures < len(listenBackoff) {
				delay = listenBackoff[failures]
			}
			failures++
			log.ZWarn(ctx, "bus listener detached, reconnecting", err, "failures", failures, "delay", delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}
		failures = 0
		event, err := DecodeEvent([]byte(msg.Payload))
		if err != nil {
			log.ZWarn(ctx, "drop undecodable bus payload", err, "channel", msg.Channel)
			continue
		}
		handler(ctx, msg.Channel, event)
	}
}

func (b *redisBus) Close() error {
	return b.sub.Close()
}
