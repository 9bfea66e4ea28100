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

package msg

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatwire/chatwire-server/pkg/common/config"
	"github.com/chatwire/chatwire-server/pkg/common/constant"
	"github.com/chatwire/chatwire-server/pkg/common/pushevent"
	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
	"github.com/chatwire/chatwire-server/pkg/common/storage/cache"
	"github.com/chatwire/chatwire-server/pkg/common/storage/controller"
	"github.com/chatwire/chatwire-server/pkg/common/storage/model"
	"github.com/chatwire/chatwire-server/pkg/pubsub"
	"github.com/chatwire/chatwire-server/pkg/queue"
)

type fakeDB struct {
	controller.ChatDatabase
	conv *model.Conversation

	lock     sync.Mutex
	appended []*model.Message
}

func (f *fakeDB) TakeConversation(_ context.Context, conversationID string) (*model.Conversation, error) {
	if f.conv == nil || f.conv.ConversationID != conversationID {
		return nil, servererrs.ErrRecordNotFound.WrapMsg("no such conversation")
	}
	return f.conv, nil
}

func (f *fakeDB) AppendMessage(_ context.Context, _ *model.Conversation, msg *model.Message) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.appended = append(f.appended, msg)
	return nil
}

type fakePresence struct {
	cache.ConnRegistry
	online map[string]int64
}

func (f *fakePresence) ConnectionCount(_ context.Context, userID string) (int64, error) {
	return f.online[userID], nil
}

type failBus struct{ pubsub.Bus }

func (failBus) Publish(context.Context, string, *pubsub.Event) (int64, error) {
	return 0, servererrs.ErrServiceUnavailable.WrapMsg("bus down")
}

type recordBroadcaster struct {
	lock   sync.Mutex
	events []*pubsub.Event
}

func (r *recordBroadcaster) BroadcastToConversation(_ context.Context, _ string, event *pubsub.Event, _ string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.events = append(r.events, event)
}

func (r *recordBroadcaster) count() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.events)
}

func testConversation() *model.Conversation {
	return &model.Conversation{
		ConversationID: "c1",
		Type:           constant.ConversationTypeGroup,
		Participants:   []string{"+84901111111", "+84902222222", "+84903333333"},
		Name:           "team",
	}
}

func newTestService(db controller.ChatDatabase, bus pubsub.Bus, presence cache.ConnRegistry, main queue.Queue, local LocalBroadcaster, inline InlineNotifier) *Service {
	return NewService(&config.Config{}, db, bus, presence, queue.Queues{Main: main}, local, inline)
}

func TestSendMessagePersistsAndEnqueuesOffline(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{conv: testConversation()}
	// Second participant online everywhere, third fully offline.
	presence := &fakePresence{online: map[string]int64{"+84902222222": 1}}
	main := queue.NewMemoryQueue(time.Minute, 0)
	s := newTestService(db, pubsub.NewMemoryBus(), presence, main, nil, nil)

	message, err := s.SendMessage(ctx, &SendReq{
		ConversationID: "c1",
		SenderID:       "+84901111111",
		Content:        "hello there",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, message.MessageID)
	assert.Equal(t, constant.MessageTypeText, message.MessageType)
	assert.Equal(t, []string{"+84901111111"}, message.ReadBy)
	require.Len(t, db.appended, 1)

	var got *pushevent.Event
	require.Eventually(t, func() bool {
		msgs, err := main.Receive(ctx, 10)
		if err != nil || len(msgs) == 0 {
			return false
		}
		got, err = pushevent.Decode(msgs[0].Body)
		return err == nil
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, constant.EventNewMessage, got.Event)
	assert.Equal(t, message.MessageID, got.MessageID)
	assert.Equal(t, "team", got.GroupName)
	assert.Equal(t, []string{"+84903333333"}, got.Participants)
}

func TestSendMessageAllRecipientsOnline(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{conv: testConversation()}
	presence := &fakePresence{online: map[string]int64{"+84902222222": 1, "+84903333333": 2}}
	main := queue.NewMemoryQueue(time.Minute, 0)
	s := newTestService(db, pubsub.NewMemoryBus(), presence, main, nil, nil)

	_, err := s.SendMessage(ctx, &SendReq{ConversationID: "c1", SenderID: "+84901111111", Content: "hi"})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	msgs, err := main.Receive(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSendMessageValidation(t *testing.T) {
	s := newTestService(&fakeDB{conv: testConversation()}, pubsub.NewMemoryBus(), &fakePresence{}, queue.NewMemoryQueue(time.Minute, 0), nil, nil)
	ctx := context.Background()

	_, err := s.SendMessage(ctx, &SendReq{ConversationID: "c1", SenderID: "+84901111111", MessageType: "sticker", Content: "x"})
	assert.True(t, servererrs.ErrArgs.Is(err))

	_, err = s.SendMessage(ctx, &SendReq{ConversationID: "c1", SenderID: "+84901111111", Content: ""})
	assert.True(t, servererrs.ErrArgs.Is(err))

	_, err = s.SendMessage(ctx, &SendReq{ConversationID: "c1", SenderID: "+84901111111", MessageType: constant.MessageTypeImage})
	assert.True(t, servererrs.ErrArgs.Is(err))

	_, err = s.SendMessage(ctx, &SendReq{ConversationID: "c1", SenderID: "+84909999999", Content: "not a member"})
	assert.True(t, servererrs.ErrNoPermission.Is(err))
}

func TestSendMessageBusDownFallsBackLocal(t *testing.T) {
	db := &fakeDB{conv: testConversation()}
	local := &recordBroadcaster{}
	s := newTestService(db, failBus{}, &fakePresence{online: map[string]int64{"+84902222222": 1, "+84903333333": 1}}, queue.NewMemoryQueue(time.Minute, 0), local, nil)

	_, err := s.SendMessage(context.Background(), &SendReq{ConversationID: "c1", SenderID: "+84901111111", Content: "degraded"})
	require.NoError(t, err)
	assert.Equal(t, 1, local.count())
	assert.Equal(t, constant.EventNewMessage, local.events[0].Event)
}

type failQueue struct{ queue.Queue }

func (failQueue) Send(context.Context, []byte, time.Duration) error {
	return servererrs.ErrServiceUnavailable.WrapMsg("queue down")
}

func TestSendMessageQueueDownProcessesInline(t *testing.T) {
	db := &fakeDB{conv: testConversation()}
	var inlineBodies [][]byte
	var lock sync.Mutex
	inline := func(_ context.Context, body []byte) {
		lock.Lock()
		defer lock.Unlock()
		inlineBodies = append(inlineBodies, body)
	}
	s := newTestService(db, pubsub.NewMemoryBus(), &fakePresence{}, failQueue{}, nil, inline)

	_, err := s.SendMessage(context.Background(), &SendReq{ConversationID: "c1", SenderID: "+84901111111", Content: "inline"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		lock.Lock()
		defer lock.Unlock()
		return len(inlineBodies) == 1
	}, time.Second, 10*time.Millisecond)
	event, err := pushevent.Decode(inlineBodies[0])
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"+84902222222", "+84903333333"}, event.Participants)
}
