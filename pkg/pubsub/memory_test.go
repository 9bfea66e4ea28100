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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatwire/chatwire-server/pkg/common/constant"
)

func TestMemoryBusDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewMemoryBus()
	require.NoError(t, bus.Subscribe(ctx, constant.ConversationChannel("c1")))

	received := make(chan *Event, 1)
	go bus.Listen(ctx, func(ctx context.Context, channel string, event *Event) {
		received <- event
	})

	n, err := bus.Publish(ctx, constant.ConversationChannel("c1"), &Event{
		Event:          constant.EventNewMessage,
		ConversationID: "c1",
		SenderID:       "+84900000001",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	select {
	case event := <-received:
		assert.Equal(t, constant.EventNewMessage, event.Event)
		assert.Equal(t, "+84900000001", event.Origin())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestMemoryBusUnsubscribed(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus()

	n, err := bus.Publish(ctx, constant.ConversationChannel("c2"), &Event{Event: constant.EventTyping})
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestMemoryBusChannels(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus()
	require.NoError(t, bus.Subscribe(ctx, "conversation:a", "conversation:b"))
	require.NoError(t, bus.Unsubscribe(ctx, "conversation:a"))
	assert.Equal(t, []string{"conversation:b"}, bus.Channels())
}

func TestEventRoundTrip(t *testing.T) {
	src := &Event{
		Event:          constant.EventMessageRead,
		ConversationID: "c3",
		MessageID:      "m1",
		UserID:         "+84900000002",
		Timestamp:      NowTimestamp(),
	}
	data, err := src.Encode()
	require.NoError(t, err)

	event, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, src.ConversationID, event.ConversationID)
	assert.True(t, event.Known())
	assert.Equal(t, "+84900000002", event.Origin())
}

func TestEventUnknownVariant(t *testing.T) {
	event, err := DecodeEvent([]byte(`{"event":"mystery"}`))
	require.NoError(t, err)
	assert.False(t, event.Known())
}
