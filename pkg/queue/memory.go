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

package queue

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/openimsdk/tools/errs"

	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
)

// NewMemoryQueue mimics the SQS contract in-process: per-message delay,
// visibility timeout with redelivery, receipt-based deletion and long
// polling up to wait when empty. Used by tests (wait 0 keeps Receive
// non-blocking) and local development.
func NewMemoryQueue(visibility, wait time.Duration) Queue {
	return &memoryQueue{
		visibility: visibility,
		wait:       wait,
		entries:    make(map[string]*memoryEntry),
		notify:     make(chan struct{}, 1),
	}
}

type memoryEntry struct {
	body      []byte
	visibleAt time.Time
	inflight  bool
	deadline  time.Time
	seq       int64
}

type memoryQueue struct {
	visibility time.Duration
	wait       time.Duration
	notify     chan struct{}

	lock    sync.Mutex
	entries map[string]*memoryEntry
	nextSeq int64
}

func (q *memoryQueue) Send(ctx context.Context, body []byte, delay time.Duration) error {
	if len(body) > MaxPayloadSize {
		return servererrs.ErrPayloadTooLarge.WrapMsg("queue payload too large", "size", len(body))
	}
	q.lock.Lock()
	defer q.lock.Unlock()
	q.nextSeq++
	receipt := strconv.FormatInt(q.nextSeq, 10)
	q.entries[receipt] = &memoryEntry{
		body:      body,
		visibleAt: time.Now().Add(delay),
		seq:       q.nextSeq,
	}
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

func (q *memoryQueue) Receive(ctx context.Context, max int) ([]Message, error) {
	if max <= 0 || max > ReceiveBatchMax {
		max = ReceiveBatchMax
	}
	deadline := time.Now().Add(q.wait)
	for {
		msgs := q.take(max)
		if len(msgs) > 0 || q.wait <= 0 || !time.Now().Before(deadline) {
			return msgs, nil
		}
		// Delayed entries and visibility redeliveries become visible
		// without a Send, so wake on a short tick as well.
		tick := 50 * time.Millisecond
		if remaining := time.Until(deadline); remaining < tick {
			tick = remaining
		}
		select {
		case <-ctx.Done():
			return nil, errs.Wrap(ctx.Err())
		case <-q.notify:
		case <-time.After(tick):
		}
	}
}

func (q *memoryQueue) take(max int) []Message {
	q.lock.Lock()
	defer q.lock.Unlock()
	now := time.Now()
	msgs := make([]Message, 0, max)
	for receipt, e := range q.entries {
		if len(msgs) >= max {
			break
		}
		if e.inflight && now.Before(e.deadline) {
			continue
		}
		if now.Before(e.visibleAt) {
			continue
		}
		e.inflight = true
		e.deadline = now.Add(q.visibility)
		msgs = append(msgs, Message{Body: e.body, Receipt: receipt})
	}
	return msgs
}

func (q *memoryQueue) Delete(ctx context.Context, receipt string) error {
	q.lock.Lock()
	defer q.lock.Unlock()
	delete(q.entries, receipt)
	return nil
}

// Len reports the number of undeleted entries; test helper.
func (q *memoryQueue) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return len(q.entries)
}
