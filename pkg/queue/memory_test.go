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
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueueSendReceiveDelete(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(time.Minute, 0)

	require.NoError(t, q.Send(ctx, []byte(`{"event":"new_message"}`), 0))

	msgs, err := q.Receive(ctx, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, []byte(`{"event":"new_message"}`), msgs[0].Body)

	// In flight: a second receive before the visibility timeout sees
	// nothing.
	again, err := q.Receive(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, q.Delete(ctx, msgs[0].Receipt))
	assert.Equal(t, 0, q.(*memoryQueue).Len())
}

func TestMemoryQueueDelay(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(time.Minute, 0)

	require.NoError(t, q.Send(ctx, []byte("later"), 50*time.Millisecond))

	msgs, err := q.Receive(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	time.Sleep(60 * time.Millisecond)
	msgs, err = q.Receive(ctx, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, []byte("later"), msgs[0].Body)
}

func TestMemoryQueueVisibilityRedelivery(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(30 * time.Millisecond, 0)

	require.NoError(t, q.Send(ctx, []byte("retry me"), 0))

	first, err := q.Receive(ctx, 10)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Not deleted before the visibility deadline, so it comes back.
	time.Sleep(40 * time.Millisecond)
	second, err := q.Receive(ctx, 10)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.True(t, bytes.Equal(first[0].Body, second[0].Body))
}

func TestMemoryQueuePayloadBound(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(time.Minute, 0)

	err := q.Send(ctx, make([]byte, MaxPayloadSize+1), 0)
	require.Error(t, err)
}

func TestMemoryQueueLongPoll(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(time.Minute, 2*time.Second)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = q.Send(ctx, []byte("late"), 0)
	}()

	start := time.Now()
	msgs, err := q.Receive(ctx, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	// Receive waited for the send instead of returning empty immediately,
	// and woke up well before the full wait elapsed.
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestMemoryQueueLongPollExpires(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(time.Minute, 80*time.Millisecond)

	start := time.Now()
	msgs, err := q.Receive(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}
