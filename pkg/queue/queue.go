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

// Package queue is the at-least-once delivery substrate of the notification
// pipeline. A Queue hands out messages under a visibility timeout; messages
// not deleted before it expires are redelivered.
package queue

import (
	"context"
	"time"
)

// MaxPayloadSize bounds a single message body. Larger payloads are rejected
// before enqueue.
const MaxPayloadSize = 256 * 1024

// ReceiveBatchMax is the most messages one Receive call returns.
const ReceiveBatchMax = 10

// Message is one received queue entry. Receipt identifies this delivery for
// Delete; it is only valid until the visibility timeout expires.
type Message struct {
	Body    []byte
	Receipt string
}

// Queue is a single named queue. The notification pipeline wires three of
// them: main, retry and the dead letter queue.
type Queue interface {
	// Send enqueues body, optionally deferred by delay (0 means
	// immediately visible).
	Send(ctx context.Context, body []byte, delay time.Duration) error
	// Receive long-polls for up to max messages. It returns an empty
	// slice on timeout, an error only on substrate failure.
	Receive(ctx context.Context, max int) ([]Message, error)
	// Delete acknowledges one delivery.
	Delete(ctx context.Context, receipt string) error
}

// Queues bundles the three pipeline queues.
type Queues struct {
	Main  Queue
	Retry Queue
	DLQ   Queue
}
