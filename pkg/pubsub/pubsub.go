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

// Package pubsub is the cross-instance event bus. Delivery is fire-and-forget
// between live subscribers; instances that are detached while reconnecting
// miss events and clients reconcile on their next read or reconnect.
package pubsub

import "context"

// Handler receives every event arriving on a subscribed channel.
type Handler func(ctx context.Context, channel string, event *Event)

// Bus abstracts the messaging substrate so redis pub/sub and the in-memory
// test bus are interchangeable.
type Bus interface {
	// Publish broadcasts the event to all current subscribers of channel
	// and returns the receiver count when the substrate reports one.
	Publish(ctx context.Context, channel string, event *Event) (int64, error)
	Subscribe(ctx context.Context, channels ...string) error
	Unsubscribe(ctx context.Context, channels ...string) error
	// Channels returns the channels this instance is currently
	// subscribed to.
	Channels() []string
	// Listen runs the receive loop, invoking handler per event, until ctx
	// is canceled. Transient substrate failures detach the listener and
	// reconnect with backoff; events during detachment are lost.
	Listen(ctx context.Context, handler Handler)
	Close() error
}
