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

	"github.com/chatwire/chatwire-server/internal/push/offlinepush/options"
	"github.com/chatwire/chatwire-server/pkg/common/config"
	"github.com/chatwire/chatwire-server/pkg/common/constant"
	"github.com/chatwire/chatwire-server/pkg/common/pushevent"
	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
	"github.com/chatwire/chatwire-server/pkg/common/storage/controller"
	"github.com/chatwire/chatwire-server/pkg/common/storage/model"
	"github.com/chatwire/chatwire-server/pkg/queue"
)

type fakeChatDB struct {
	controller.ChatDatabase
	conv  *model.Conversation
	users map[string]*model.User
}

func (f *fakeChatDB) TakeConversation(_ context.Context, conversationID string) (*model.Conversation, error) {
	if f.conv == nil || f.conv.ConversationID != conversationID {
		return nil, servererrs.ErrRecordNotFound.WrapMsg("no such conversation")
	}
	return f.conv, nil
}

func (f *fakeChatDB) TakeUser(_ context.Context, userID string) (*model.User, error) {
	if u, ok := f.users[userID]; ok {
		return u, nil
	}
	return nil, servererrs.ErrRecordNotFound.WrapMsg("no such user")
}

type fakePushDB struct {
	controller.PushDatabase
	notifications map[string]*model.Notification
	prefs         map[string]*model.NotificationPref
	tokens        map[string][]*model.DeviceToken
	deleted       []string
}

func newFakePushDB() *fakePushDB {
	return &fakePushDB{
		notifications: make(map[string]*model.Notification),
		prefs:         make(map[string]*model.NotificationPref),
		tokens:        make(map[string][]*model.DeviceToken),
	}
}

func (f *fakePushDB) RecordNotification(_ context.Context, n *model.Notification) (bool, error) {
	if _, ok := f.notifications[n.NotificationID]; ok {
		return false, nil
	}
	f.notifications[n.NotificationID] = n
	return true, nil
}

func (f *fakePushDB) TakePrefs(_ context.Context, userID string) (*model.NotificationPref, error) {
	if p, ok := f.prefs[userID]; ok {
		return p, nil
	}
	return &model.NotificationPref{
		UserID:                     userID,
		PushEnabled:                true,
		MessageNotifications:       true,
		GroupNotifications:         true,
		FriendRequestNotifications: true,
		SystemNotifications:        true,
	}, nil
}

func (f *fakePushDB) FindDeviceTokens(_ context.Context, userID string) ([]*model.DeviceToken, error) {
	return f.tokens[userID], nil
}

func (f *fakePushDB) DeleteDeviceToken(_ context.Context, userID, token string) error {
	f.deleted = append(f.deleted, token)
	return nil
}

type fakePusher struct {
	pushed  [][]string
	invalid []string
	fail    bool
}

func (f *fakePusher) Push(_ context.Context, tokens []string, _, _ string, _ *options.Opts) (*options.Result, error) {
	if f.fail {
		return nil, servererrs.ErrServiceUnavailable.WrapMsg("fcm down")
	}
	f.pushed = append(f.pushed, tokens)
	return &options.Result{Success: len(tokens) - len(f.invalid), Failed: len(f.invalid), InvalidTokens: f.invalid}, nil
}

func handlerTestConsumer(chatDB *fakeChatDB, pushDB *fakePushDB, pusher *fakePusher) *Consumer {
	conf := &config.Config{}
	conf.Push.MaxRetries = 5
	conf.Push.RetryBase = 30 * time.Second
	conf.Push.RetryDelayCap = time.Hour
	queues := queue.Queues{
		Main:  queue.NewMemoryQueue(time.Minute, 0),
		Retry: queue.NewMemoryQueue(time.Minute, 0),
		DLQ:   queue.NewMemoryQueue(time.Minute, 0),
	}
	return NewConsumer(conf, chatDB, pushDB, queues, pusher, nil)
}

func newMessageEvent() *pushevent.Event {
	return &pushevent.Event{
		Event:          constant.EventNewMessage,
		ConversationID: "c1",
		MessageID:      "m1",
		SenderID:       "+84901111111",
		Content:        "hello",
		MessageType:    constant.MessageTypeText,
		Timestamp:      pushevent.NowTimestamp(),
		Participants:   []string{"+84902222222"},
	}
}

func TestNewMessageRecordsAndPushes(t *testing.T) {
	chatDB := &fakeChatDB{
		conv: &model.Conversation{ConversationID: "c1", Participants: []string{"+84901111111", "+84902222222"}},
		users: map[string]*model.User{
			"+84901111111": {UserID: "+84901111111", Name: "An"},
			"+84902222222": {UserID: "+84902222222", IsOnline: false},
		},
	}
	pushDB := newFakePushDB()
	pushDB.tokens["+84902222222"] = []*model.DeviceToken{
		{UserID: "+84902222222", Token: "tok-1", DeviceType: constant.DeviceTypeAndroid},
	}
	pusher := &fakePusher{}
	c := handlerTestConsumer(chatDB, pushDB, pusher)

	require.NoError(t, c.handleNewMessage(context.Background(), newMessageEvent()))
	require.Len(t, pushDB.notifications, 1)
	for _, n := range pushDB.notifications {
		assert.Equal(t, constant.NotificationNewMessage, n.Type)
		assert.Equal(t, "An", n.Title)
		assert.Equal(t, "hello", n.Body)
	}
	require.Len(t, pusher.pushed, 1)
	assert.Equal(t, []string{"tok-1"}, pusher.pushed[0])
}

func TestNewMessageRedeliveryDedups(t *testing.T) {
	chatDB := &fakeChatDB{
		conv:  &model.Conversation{ConversationID: "c1", Participants: []string{"+84901111111", "+84902222222"}},
		users: map[string]*model.User{},
	}
	pushDB := newFakePushDB()
	c := handlerTestConsumer(chatDB, pushDB, &fakePusher{})

	event := newMessageEvent()
	require.NoError(t, c.handleNewMessage(context.Background(), event))
	require.NoError(t, c.handleNewMessage(context.Background(), event))
	assert.Len(t, pushDB.notifications, 1, "same event records once")
}

func TestNewMessageSkipsOnlineRecipient(t *testing.T) {
	chatDB := &fakeChatDB{
		conv: &model.Conversation{ConversationID: "c1", Participants: []string{"+84901111111", "+84902222222"}},
		users: map[string]*model.User{
			"+84902222222": {UserID: "+84902222222", IsOnline: true},
		},
	}
	pushDB := newFakePushDB()
	pushDB.tokens["+84902222222"] = []*model.DeviceToken{
		{UserID: "+84902222222", Token: "tok-1", DeviceType: constant.DeviceTypeAndroid},
	}
	pusher := &fakePusher{}
	c := handlerTestConsumer(chatDB, pushDB, pusher)

	require.NoError(t, c.handleNewMessage(context.Background(), newMessageEvent()))
	// Notification row is still written; only the device push is skipped.
	assert.Len(t, pushDB.notifications, 1)
	assert.Empty(t, pusher.pushed)
}

func TestNewMessagePrefsGate(t *testing.T) {
	muted := time.Now().Add(time.Hour)
	cases := []struct {
		name  string
		prefs *model.NotificationPref
	}{
		{"push disabled", &model.NotificationPref{PushEnabled: false, MessageNotifications: true}},
		{"muted", &model.NotificationPref{PushEnabled: true, MessageNotifications: true, MuteUntil: &muted}},
		{"type disabled", &model.NotificationPref{PushEnabled: true, MessageNotifications: false}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chatDB := &fakeChatDB{
				conv:  &model.Conversation{ConversationID: "c1", Participants: []string{"+84901111111", "+84902222222"}},
				users: map[string]*model.User{},
			}
			pushDB := newFakePushDB()
			pushDB.prefs["+84902222222"] = tc.prefs
			pushDB.tokens["+84902222222"] = []*model.DeviceToken{
				{UserID: "+84902222222", Token: "tok-1", DeviceType: constant.DeviceTypeAndroid},
			}
			pusher := &fakePusher{}
			c := handlerTestConsumer(chatDB, pushDB, pusher)

			require.NoError(t, c.handleNewMessage(context.Background(), newMessageEvent()))
			assert.Empty(t, pusher.pushed)
		})
	}
}

func TestInvalidTokensAreReaped(t *testing.T) {
	chatDB := &fakeChatDB{
		conv:  &model.Conversation{ConversationID: "c1", Participants: []string{"+84901111111", "+84902222222"}},
		users: map[string]*model.User{},
	}
	pushDB := newFakePushDB()
	pushDB.tokens["+84902222222"] = []*model.DeviceToken{
		{UserID: "+84902222222", Token: "tok-dead", DeviceType: constant.DeviceTypeIOS},
		{UserID: "+84902222222", Token: "tok-live", DeviceType: constant.DeviceTypeIOS},
	}
	pusher := &fakePusher{invalid: []string{"tok-dead"}}
	c := handlerTestConsumer(chatDB, pushDB, pusher)

	require.NoError(t, c.handleNewMessage(context.Background(), newMessageEvent()))
	assert.Equal(t, []string{"tok-dead"}, pushDB.deleted)
}

func TestPusherFailureIsTransient(t *testing.T) {
	chatDB := &fakeChatDB{
		conv:  &model.Conversation{ConversationID: "c1", Participants: []string{"+84901111111", "+84902222222"}},
		users: map[string]*model.User{},
	}
	pushDB := newFakePushDB()
	pushDB.tokens["+84902222222"] = []*model.DeviceToken{
		{UserID: "+84902222222", Token: "tok-1", DeviceType: constant.DeviceTypeAndroid},
	}
	c := handlerTestConsumer(chatDB, pushDB, &fakePusher{fail: true})

	err := c.handleNewMessage(context.Background(), newMessageEvent())
	require.Error(t, err)
	assert.True(t, servererrs.ErrTransient.Is(err))
	assert.False(t, servererrs.ErrPermanent.Is(err))
}

func TestUnknownConversationIsPermanent(t *testing.T) {
	c := handlerTestConsumer(&fakeChatDB{users: map[string]*model.User{}}, newFakePushDB(), &fakePusher{})
	err := c.handleNewMessage(context.Background(), newMessageEvent())
	require.Error(t, err)
	assert.True(t, servererrs.ErrPermanent.Is(err))
}

func TestGroupInvitationBody(t *testing.T) {
	chatDB := &fakeChatDB{users: map[string]*model.User{"+84901111111": {UserID: "+84901111111", Name: "An"}}}
	pushDB := newFakePushDB()
	c := handlerTestConsumer(chatDB, pushDB, &fakePusher{})

	event := &pushevent.Event{
		Event:        constant.EventGroupInvitation,
		SenderID:     "+84901111111",
		GroupName:    "weekend plans",
		Timestamp:    pushevent.NowTimestamp(),
		Participants: []string{"+84902222222"},
	}
	require.NoError(t, c.handleGroupInvitation(context.Background(), event))
	require.Len(t, pushDB.notifications, 1)
	for _, n := range pushDB.notifications {
		assert.Equal(t, "An", n.Title)
		assert.Equal(t, "invited you to join weekend plans", n.Body)
		assert.Equal(t, constant.NotificationGroupInvitation, n.Type)
	}
}
