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

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatwire/chatwire-server/internal/conversation"
	"github.com/chatwire/chatwire-server/internal/msg"
	"github.com/chatwire/chatwire-server/pkg/apistruct"
	"github.com/chatwire/chatwire-server/pkg/common/authverify"
	"github.com/chatwire/chatwire-server/pkg/common/config"
	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
	"github.com/chatwire/chatwire-server/pkg/common/storage/cache"
	"github.com/chatwire/chatwire-server/pkg/common/storage/controller"
	"github.com/chatwire/chatwire-server/pkg/common/storage/model"
	"github.com/chatwire/chatwire-server/pkg/pubsub"
	"github.com/chatwire/chatwire-server/pkg/queue"
)

const (
	alice = "+84901111111"
	bob   = "+84902222222"
	carol = "+84903333333"
	admin = "+84900000099"
)

type apiChatDB struct {
	controller.ChatDatabase

	lock     sync.Mutex
	conv     *model.Conversation
	direct   map[string]*model.Conversation // keyed participant hash
	messages []*model.Message
	stats    map[string]*model.UserStats // keyed userID
	status   map[string]string
}

func (f *apiChatDB) GetOrCreateDirect(_ context.Context, conv *model.Conversation) (*model.Conversation, bool, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if existing, ok := f.direct[conv.ParticipantHash]; ok {
		return existing, false, nil
	}
	if f.direct == nil {
		f.direct = make(map[string]*model.Conversation)
	}
	f.direct[conv.ParticipantHash] = conv
	return conv, true, nil
}

func (f *apiChatDB) TakeConversation(_ context.Context, conversationID string) (*model.Conversation, error) {
	if f.conv == nil || f.conv.ConversationID != conversationID {
		return nil, servererrs.ErrRecordNotFound.WrapMsg("no such conversation")
	}
	return f.conv, nil
}

func (f *apiChatDB) TakeUserStats(_ context.Context, _, userID string) (*model.UserStats, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if st, ok := f.stats[userID]; ok {
		return st, nil
	}
	return nil, servererrs.ErrRecordNotFound.WrapMsg("no stats")
}

func (f *apiChatDB) AppendMessage(_ context.Context, _ *model.Conversation, message *model.Message) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

func (f *apiChatDB) MarkMessageRead(_ context.Context, _, messageID, userID string) (bool, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	for _, m := range f.messages {
		if m.MessageID != messageID {
			continue
		}
		if m.IsReadBy(userID) {
			return false, nil
		}
		m.ReadBy = append(m.ReadBy, userID)
		return true, nil
	}
	return false, servererrs.ErrRecordNotFound.WrapMsg("no such message")
}

func (f *apiChatDB) SetUserStatus(_ context.Context, userID, status string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.status == nil {
		f.status = make(map[string]string)
	}
	f.status[userID] = status
	return nil
}

func (f *apiChatDB) ConversationIDsOfUser(context.Context, string) ([]string, error) {
	return []string{f.conv.ConversationID}, nil
}

func (f *apiChatDB) ParticipantPairs(context.Context) (map[string][]string, error) {
	return map[string][]string{f.conv.ConversationID: f.conv.Participants}, nil
}

func (f *apiChatDB) UnreadDrift(_ context.Context, _, userID string) (int64, int64, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	var stored int64
	if st, ok := f.stats[userID]; ok {
		stored = st.UnreadCount
	}
	return stored, stored, nil
}

type apiPushDB struct {
	controller.PushDatabase

	lock          sync.Mutex
	notifications []*model.Notification
	prefs         map[string]*model.NotificationPref
	tokens        map[string]string
}

func (f *apiPushDB) FindNotifications(_ context.Context, userID string, _ int) ([]*model.Notification, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	var out []*model.Notification
	for _, n := range f.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *apiPushDB) MarkNotificationsRead(_ context.Context, userID string, ids []string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	for _, n := range f.notifications {
		for _, id := range ids {
			if n.UserID == userID && n.NotificationID == id {
				n.IsRead = true
			}
		}
	}
	return nil
}

func (f *apiPushDB) TakePrefs(_ context.Context, userID string) (*model.NotificationPref, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
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

func (f *apiPushDB) SetPrefs(_ context.Context, prefs *model.NotificationPref) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.prefs == nil {
		f.prefs = make(map[string]*model.NotificationPref)
	}
	f.prefs[prefs.UserID] = prefs
	return nil
}

func (f *apiPushDB) UpsertDeviceToken(_ context.Context, token *model.DeviceToken) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.tokens == nil {
		f.tokens = make(map[string]string)
	}
	f.tokens[token.Token] = token.UserID
	return nil
}

func (f *apiPushDB) DeleteDeviceToken(_ context.Context, _, token string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	delete(f.tokens, token)
	return nil
}

type offlineRegistry struct{ cache.ConnRegistry }

func (offlineRegistry) ConnectionCount(context.Context, string) (int64, error) { return 0, nil }

func newTestServer(t *testing.T) (*gin.Engine, *apiChatDB, *apiPushDB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conf := &config.Config{
		Environment: config.EnvDev,
		Auth:        config.Auth{Secret: "test", Expire: time.Hour, AdminUserIDs: []string{admin}, ProxyAuthSecret: "proxy-secret"},
	}
	chatDB := &apiChatDB{
		conv: &model.Conversation{
			ConversationID: "conv1",
			Type:           "group",
			Name:           "team",
			Participants:   []string{alice, bob},
			Admins:         []string{alice},
			CreatedAt:      time.Now().UTC(),
		},
		stats: map[string]*model.UserStats{
			alice: {ConversationID: "conv1", UserID: alice, UnreadCount: 3},
		},
	}
	pushDB := &apiPushDB{}
	queues := queue.Queues{
		Main:  queue.NewMemoryQueue(time.Minute, 0),
		Retry: queue.NewMemoryQueue(time.Minute, 0),
		DLQ:   queue.NewMemoryQueue(time.Minute, 0),
	}
	bus := pubsub.NewMemoryBus()
	verifier := authverify.NewTokenVerifier(conf.Environment, &conf.Auth)
	msgSvc := msg.NewService(conf, chatDB, bus, offlineRegistry{}, queues, nil, nil)
	convSvc := conversation.NewService(conf, chatDB, bus, queues, nil, nil)
	server := NewServer(conf, verifier, convSvc, msgSvc, pushDB)
	return server.Engine(), chatDB, pushDB
}

func doRequest(engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHealthIsUnauthenticated(t *testing.T) {
	engine, _, _ := newTestServer(t)
	rec := doRequest(engine, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp apistruct.HealthResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestAuthRequired(t *testing.T) {
	engine, _, _ := newTestServer(t)

	rec := doRequest(engine, http.MethodGet, "/api/v1/whoami", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "detail")

	rec = doRequest(engine, http.MethodGet, "/api/v1/whoami", "not-a-phone", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWhoami(t *testing.T) {
	engine, _, _ := newTestServer(t)
	rec := doRequest(engine, http.MethodGet, "/api/v1/whoami", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp apistruct.WhoamiResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, alice, resp.UserID)
	assert.False(t, resp.IsAdmin)
}

func TestGetConversation(t *testing.T) {
	engine, _, _ := newTestServer(t)

	rec := doRequest(engine, http.MethodGet, "/api/v1/conversations/conv1", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp apistruct.ConversationResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "conv1", resp.ConversationID)
	assert.EqualValues(t, 3, resp.UnreadCount)

	// Non-participants get 403, unknown ids 404.
	rec = doRequest(engine, http.MethodGet, "/api/v1/conversations/conv1", carol, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = doRequest(engine, http.MethodGet, "/api/v1/conversations/nope", alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendMessageAndRead(t *testing.T) {
	engine, chatDB, _ := newTestServer(t)

	rec := doRequest(engine, http.MethodPost, "/api/v1/conversations/conv1/messages", alice,
		apistruct.SendMessageReq{Content: "hello"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var sent apistruct.SendMessageResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sent))
	assert.Equal(t, "sent", sent.Status)
	require.NotEmpty(t, sent.MessageID)

	rec = doRequest(engine, http.MethodPost, "/api/v1/conversations/conv1/messages/"+sent.MessageID+"/read", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	chatDB.lock.Lock()
	defer chatDB.lock.Unlock()
	require.Len(t, chatDB.messages, 1)
	assert.True(t, chatDB.messages[0].IsReadBy(bob))
}

func TestSendMessageValidation(t *testing.T) {
	engine, _, _ := newTestServer(t)

	rec := doRequest(engine, http.MethodPost, "/api/v1/conversations/conv1/messages", alice,
		apistruct.SendMessageReq{Content: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(engine, http.MethodPost, "/api/v1/conversations/conv1/messages", carol,
		apistruct.SendMessageReq{Content: "hi"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateConversationAdminOnly(t *testing.T) {
	engine, _, _ := newTestServer(t)
	name := "renamed"

	rec := doRequest(engine, http.MethodPut, "/api/v1/conversations/conv1", bob,
		apistruct.UpdateConversationReq{Name: &name})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSetUserStatus(t *testing.T) {
	engine, chatDB, _ := newTestServer(t)

	rec := doRequest(engine, http.MethodPost, "/api/v1/user/status", alice,
		apistruct.StatusReq{Status: "away"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "away", chatDB.status[alice])

	rec = doRequest(engine, http.MethodPost, "/api/v1/user/status", alice,
		apistruct.StatusReq{Status: "sleeping"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMaintenanceAdminGate(t *testing.T) {
	engine, _, _ := newTestServer(t)

	rec := doRequest(engine, http.MethodPost, "/api/v1/maintenance/repair_all_unread_counts", alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The internal proxy secret is an alternative to an admin identity.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/maintenance/find_inconsistencies", nil)
	req.Header.Set("Authorization", "Bearer "+alice)
	req.Header.Set("X-Proxy-Authorization", "proxy-secret")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeviceTokenLifecycle(t *testing.T) {
	engine, _, pushDB := newTestServer(t)

	rec := doRequest(engine, http.MethodPost, "/api/v1/device_tokens", alice,
		apistruct.DeviceTokenReq{Token: "tok-1", DeviceType: "android"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, alice, pushDB.tokens["tok-1"])

	rec = doRequest(engine, http.MethodDelete, "/api/v1/device_tokens/tok-1", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, pushDB.tokens, "tok-1")

	rec = doRequest(engine, http.MethodPost, "/api/v1/device_tokens", alice,
		apistruct.DeviceTokenReq{Token: "tok-2", DeviceType: "toaster"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotificationPrefsRoundTrip(t *testing.T) {
	engine, _, _ := newTestServer(t)

	// Missing prefs read as everything enabled.
	rec := doRequest(engine, http.MethodGet, "/api/v1/notifications/preferences", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var prefs apistruct.NotificationPrefsReq
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prefs))
	assert.True(t, prefs.PushEnabled)

	prefs.MessageNotifications = false
	rec = doRequest(engine, http.MethodPut, "/api/v1/notifications/preferences", alice, prefs)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(engine, http.MethodGet, "/api/v1/notifications/preferences", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prefs))
	assert.False(t, prefs.MessageNotifications)
}

func TestNotificationsListAndMarkRead(t *testing.T) {
	engine, _, pushDB := newTestServer(t)
	pushDB.notifications = []*model.Notification{
		{NotificationID: "n1", UserID: alice, Type: "NEW_MESSAGE", Title: "Bob", Body: "hi"},
		{NotificationID: "n2", UserID: bob, Type: "NEW_MESSAGE", Title: "Alice", Body: "yo"},
	}

	rec := doRequest(engine, http.MethodGet, "/api/v1/notifications", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "n1")
	assert.NotContains(t, rec.Body.String(), "n2")

	rec = doRequest(engine, http.MethodPost, "/api/v1/notifications/mark_read", alice,
		apistruct.MarkNotificationsReadReq{NotificationIDs: []string{"n1"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, pushDB.notifications[0].IsRead)
}

func TestCreateDirectConversationRepeatSameAnswer(t *testing.T) {
	engine, _, _ := newTestServer(t)

	body := apistruct.CreateConversationReq{Type: "direct", Participants: []string{bob}}
	rec := doRequest(engine, http.MethodPost, "/api/v1/conversations", alice, body)
	require.Equal(t, http.StatusOK, rec.Code)
	var first apistruct.ConversationResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	require.NotEmpty(t, first.ConversationID)

	// The exact same body answers identically: same status, same id.
	rec = doRequest(engine, http.MethodPost, "/api/v1/conversations", alice, body)
	require.Equal(t, http.StatusOK, rec.Code)
	var second apistruct.ConversationResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first.ConversationID, second.ConversationID)
}

func TestMarkUnknownMessageReadNotFound(t *testing.T) {
	engine, _, _ := newTestServer(t)

	rec := doRequest(engine, http.MethodPost, "/api/v1/conversations/conv1/messages/nope/read", bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
