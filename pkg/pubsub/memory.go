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
)

type memoryMsg struct {
	channel string
	event   *Event
}

// NewMemoryBus is a single-process Bus used by tests and by single-instance
// deployments that do not need cross-instance fan-out.
func NewMemoryBus() Bus {
	return &memoryBus{
		channels: make(map[string]struct{}),
		queue:    make(chan memoryMsg, 256),
	}
}

type memoryBus struct {
	lock     sync.Mutex
	channels map[string]struct{}
	queue    chan memoryMsg
	closed   bool
}

func (b *memoryBus) Publish(ctx context.Context, channel string, event *Event) (int64, error) {
	b.lock.Lock()
	_, subscribed := b.channels[channel]
	closed := b.closed
	b.lock.Unlock()
	if closed || !subscribed {
		return 0, nil
	}
	select {
	case b.queue <- memoryMsg{channel: channel, event: event}:
		return 1, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (b *memoryBus) Subscribe(ctx context.Context, channels ...string) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	for _, ch := range channels {
		b.channels[ch] = struct{}{}
	}
	return nil
}

func (b *memoryBus) Unsubscribe(ctx context.Context, channels ...string) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	for _, ch := range channels {
		delete(b.channels, ch)
	}
	return nil
}

func (b *memoryBus) Channels() []string {
	b.lock.Lock()
	defer b.lock.Unlock()
	channels := make([]string, 0, len(b.channels))
	for ch := range b.channels {
		channels = append(channels, ch)
	}
	return channels
}

func (b *memoryBus) Listen(ctx context.Context, handler Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-b.queue:
			if !ok {
				return
			}
			handler(ctx, msg.channel, msg.event)
		}
	}
}

func (b *memoryBus) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	return nil
}
