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

package controller

import (
	"context"
	"testing"

	"github.com/openimsdk/tools/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatwire/chatwire-server/pkg/apistruct"
	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
	"github.com/chatwire/chatwire-server/pkg/common/storage/database"
	"github.com/chatwire/chatwire-server/pkg/common/storage/model"
)

type fakeMessageRepo struct {
	database.Message
	messages map[string]*model.Message // keyed messageID
}

func (f *fakeMessageRepo) AddReadBy(_ context.Context, _, messageID, userID string) (bool, error) {
	msg, ok := f.messages[messageID]
	if !ok || msg.IsReadBy(userID) {
		return false, nil
	}
	msg.ReadBy = append(msg.ReadBy, userID)
	return true, nil
}

func (f *fakeMessageRepo) Take(_ context.Context, _, messageID string) (*model.Message, error) {
	msg, ok := f.messages[messageID]
	if !ok {
		return nil, servererrs.ErrRecordNotFound.WrapMsg("no such message")
	}
	return msg, nil
}

type fakeStatsRepo struct {
	database.UserStats
	unreadIDs   []string
	decremented int
}

func (f *fakeStatsRepo) DecrUnread(context.Context, string, string) error {
	f.decremented++
	return nil
}

func (f *fakeStatsRepo) UnreadConversationIDs(context.Context, string) ([]string, error) {
	return f.unreadIDs, nil
}

func (f *fakeStatsRepo) FindByConversations(_ context.Context, conversationIDs []string, userID string) ([]*model.UserStats, error) {
	stats := make([]*model.UserStats, 0, len(conversationIDs))
	for _, id := range conversationIDs {
		stats = append(stats, &model.UserStats{ConversationID: id, UserID: userID, UnreadCount: 1})
	}
	return stats, nil
}

type fakeConvRepo struct {
	database.Conversation
	convs      []*model.Conversation
	gotOnlyIDs []string
	pageCalls  int
}

func (f *fakeConvRepo) Page(_ context.Context, _, _ string, onlyIDs []string, _ pagination.Pagination) (int64, []*model.Conversation, error) {
	f.pageCalls++
	f.gotOnlyIDs = onlyIDs
	if onlyIDs == nil {
		return int64(len(f.convs)), f.convs, nil
	}
	keep := make(map[string]struct{}, len(onlyIDs))
	for _, id := range onlyIDs {
		keep[id] = struct{}{}
	}
	var page []*model.Conversation
	for _, conv := range f.convs {
		if _, ok := keep[conv.ConversationID]; ok {
			page = append(page, conv)
		}
	}
	return int64(len(page)), page, nil
}

type fakeTx struct{}

func (fakeTx) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func TestMarkMessageReadDistinguishesMissing(t *testing.T) {
	ctx := context.Background()
	messages := &fakeMessageRepo{messages: map[string]*model.Message{
		"m1": {MessageID: "m1", ConversationID: "c1", SenderID: "+84901111111"},
	}}
	stats := &fakeStatsRepo{}
	db := NewChatDatabase(&fakeConvRepo{}, messages, stats, nil, fakeTx{})

	added, err := db.MarkMessageRead(ctx, "c1", "m1", "+84902222222")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, 1, stats.decremented)

	// Rereading is a no-op, not an error, and decrements nothing.
	added, err = db.MarkMessageRead(ctx, "c1", "m1", "+84902222222")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 1, stats.decremented)

	// A message that does not exist is not-found, not a silent no-op.
	_, err = db.MarkMessageRead(ctx, "c1", "nope", "+84902222222")
	require.Error(t, err)
	assert.True(t, servererrs.IsNotFound(err))
}

func TestPageConversationsUnreadOnly(t *testing.T) {
	ctx := context.Background()
	convs := &fakeConvRepo{convs: []*model.Conversation{
		{ConversationID: "c1"},
		{ConversationID: "c2"},
	}}
	stats := &fakeStatsRepo{unreadIDs: []string{"c2"}}
	db := NewChatDatabase(convs, &fakeMessageRepo{}, stats, nil, fakeTx{})

	page := &apistruct.Pagination{PageNumber: 1, ShowNumber: 50}
	total, got, statsMap, err := db.PageConversations(ctx, "+84901111111", "", true, page)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, "c2", got[0].ConversationID)
	assert.Equal(t, []string{"c2"}, convs.gotOnlyIDs)
	assert.Contains(t, statsMap, "c2")
}

func TestPageConversationsUnreadOnlyEmpty(t *testing.T) {
	ctx := context.Background()
	convs := &fakeConvRepo{convs: []*model.Conversation{{ConversationID: "c1"}}}
	db := NewChatDatabase(convs, &fakeMessageRepo{}, &fakeStatsRepo{}, nil, fakeTx{})

	page := &apistruct.Pagination{PageNumber: 1, ShowNumber: 50}
	total, got, _, err := db.PageConversations(ctx, "+84901111111", "", true, page)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, got)
	assert.Zero(t, convs.pageCalls)
}
