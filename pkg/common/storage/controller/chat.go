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

	"github.com/openimsdk/tools/db/pagination"
	"github.com/openimsdk/tools/db/tx"
	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/log"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/chatwire/chatwire-server/pkg/common/constant"
	"github.com/chatwire/chatwire-server/pkg/common/prommetrics"
	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
	"github.com/chatwire/chatwire-server/pkg/common/storage/database"
	"github.com/chatwire/chatwire-server/pkg/common/storage/model"
)

func isDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(errs.Unwrap(err))
}

// ChatDatabase composes the chat collections into the multi-document
// operations the services need. Writes that span collections either run in a
// transaction (conversation creation) or are ordered so a crash between steps
// leaves only repairable drift (the message path).
type ChatDatabase interface {
	// CreateConversation inserts the conversation, its optional initial
	// message and a zeroed stats row per participant as one transaction.
	CreateConversation(ctx context.Context, conversation *model.Conversation, initial *model.Message) error
	// GetOrCreateDirect returns the existing direct conversation for the
	// participant pair or creates it. created reports which happened.
	GetOrCreateDirect(ctx context.Context, conversation *model.Conversation) (conv *model.Conversation, created bool, err error)
	TakeConversation(ctx context.Context, conversationID string) (*model.Conversation, error)
	// PageConversations pages the user's conversations joined with their
	// unread counters. unreadOnly narrows both the page and the total to
	// conversations with a positive counter.
	PageConversations(ctx context.Context, userID, convType string, unreadOnly bool, pagination pagination.Pagination) (int64, []*model.Conversation, map[string]*model.UserStats, error)
	UpdateConversationInfo(ctx context.Context, conversationID string, args map[string]any) error
	AddParticipants(ctx context.Context, conversationID string, userIDs []string) error

	// AppendMessage persists the message, refreshes the conversation
	// preview and bumps unread counters for everyone but the sender.
	// Preview and counter failures are logged and swallowed: the message
	// is durable once the insert succeeds, the rest is repairable.
	AppendMessage(ctx context.Context, conversation *model.Conversation, msg *model.Message) error
	TakeMessage(ctx context.Context, conversationID, messageID string) (*model.Message, error)
	PageMessages(ctx context.Context, conversationID string, pagination pagination.Pagination) (int64, []*model.Message, error)
	// MarkMessageRead stamps userID into the message's read_by and, only
	// when the stamp was actually new, decrements the unread counter.
	MarkMessageRead(ctx context.Context, conversationID, messageID, userID string) (added bool, err error)
	// MarkConversationRead stamps userID into every unread message and
	// resets the unread counter to zero.
	MarkConversationRead(ctx context.Context, conversationID, userID string) (updated int64, err error)
	SetReaction(ctx context.Context, conversationID, messageID, userID, emoji string) (map[string]string, error)

	TakeUserStats(ctx context.Context, conversationID, userID string) (*model.UserStats, error)
	// RecomputeUnread recounts unread messages from read_by and overwrites
	// the stats row, returning the authoritative count.
	RecomputeUnread(ctx context.Context, conversationID, userID string) (int64, error)
	// UnreadDrift compares the stored counter against the actual count
	// without repairing anything.
	UnreadDrift(ctx context.Context, conversationID, userID string) (stored, actual int64, err error)
	ConversationIDsOfUser(ctx context.Context, userID string) ([]string, error)
	ParticipantPairs(ctx context.Context) (map[string][]string, error)

	TakeUser(ctx context.Context, userID string) (*model.User, error)
	FindUsers(ctx context.Context, userIDs []string) ([]*model.User, error)
	UpsertUser(ctx context.Context, user *model.User) error
	SetUserOnline(ctx context.Context, userID string, online bool) error
	SetUserStatus(ctx context.Context, userID, status string) error
}

func NewChatDatabase(
	conversationDB database.Conversation,
	messageDB database.Message,
	statsDB database.UserStats,
	userDB database.User,
	tx tx.Tx,
) ChatDatabase {
	return &chatDatabase{
		conversationDB: conversationDB,
		messageDB:      messageDB,
		statsDB:        statsDB,
		userDB:         userDB,
		tx:             tx,
	}
}

type chatDatabase struct {
	conversationDB database.Conversation
	messageDB      database.Message
	statsDB        database.UserStats
	userDB         database.User
	tx             tx.Tx
}

func (c *chatDatabase) CreateConversation(ctx context.Context, conversation *model.Conversation, initial *model.Message) error {
	return c.tx.Transaction(ctx, func(ctx context.Context) error {
		if err := c.conversationDB.Create(ctx, conversation); err != nil {
			return err
		}
		stats := make([]*model.UserStats, 0, len(conversation.Participants))
		for _, userID := range conversation.Participants {
			var unread int64
			if initial != nil && userID != initial.SenderID {
				unread = 1
			}
			stats = append(stats, &model.UserStats{
				ConversationID: conversation.ConversationID,
				UserID:         userID,
				UnreadCount:    unread,
			})
		}
		if err := c.statsDB.Init(ctx, stats); err != nil {
			return err
		}
		if initial == nil {
			return nil
		}
		if err := c.messageDB.Create(ctx, initial); err != nil {
			return err
		}
		return c.conversationDB.UpdatePreview(ctx, conversation.ConversationID, previewArgs(initial))
	})
}

func (c *chatDatabase) GetOrCreateDirect(ctx context.Context, conversation *model.Conversation) (*model.Conversation, bool, error) {
	hash := model.DirectParticipantHash(conversation.Participants)
	if conv, err := c.conversationDB.TakeDirectByHash(ctx, hash); err == nil {
		return conv, false, nil
	} else if !servererrs.IsNotFound(err) {
		return nil, false, err
	}
	conversation.ParticipantHash = hash
	err := c.CreateConversation(ctx, conversation, nil)
	if err == nil {
		return conversation, true, nil
	}
	if !isDuplicateKey(err) {
		return nil, false, err
	}
	// Lost the race to a concurrent creator; the unique index on the
	// participant hash guarantees the winner is the one to return.
	conv, err := c.conversationDB.TakeDirectByHash(ctx, hash)
	if err != nil {
		return nil, false, err
	}
	return conv, false, nil
}

func (c *chatDatabase) TakeConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	return c.conversationDB.Take(ctx, conversationID)
}

func (c *chatDatabase) PageConversations(ctx context.Context, userID, convType string, unreadOnly bool, pagination pagination.Pagination) (int64, []*model.Conversation, map[string]*model.UserStats, error) {
	var onlyIDs []string
	if unreadOnly {
		ids, err := c.statsDB.UnreadConversationIDs(ctx, userID)
		if err != nil {
			return 0, nil, nil, err
		}
		if len(ids) == 0 {
			return 0, nil, map[string]*model.UserStats{}, nil
		}
		onlyIDs = ids
	}
	total, convs, err := c.conversationDB.Page(ctx, userID, convType, onlyIDs, pagination)
	if err != nil {
		return 0, nil, nil, err
	}
	ids := make([]string, 0, len(convs))
	for _, conv := range convs {
		ids = append(ids, conv.ConversationID)
	}
	stats, err := c.statsDB.FindByConversations(ctx, ids, userID)
	if err != nil {
		return 0, nil, nil, err
	}
	statsMap := make(map[string]*model.UserStats, len(stats))
	for _, st := range stats {
		statsMap[st.ConversationID] = st
	}
	return total, convs, statsMap, nil
}

func (c *chatDatabase) UpdateConversationInfo(ctx context.Context, conversationID string, args map[string]any) error {
	return c.conversationDB.UpdateInfo(ctx, conversationID, args)
}

func (c *chatDatabase) AddParticipants(ctx context.Context, conversationID string, userIDs []string) error {
	if err := c.conversationDB.AddParticipant(ctx, conversationID, userIDs); err != nil {
		return err
	}
	stats := make([]*model.UserStats, 0, len(userIDs))
	for _, userID := range userIDs {
		stats = append(stats, &model.UserStats{ConversationID: conversationID, UserID: userID})
	}
	return c.statsDB.Init(ctx, stats)
}

func (c *chatDatabase) AppendMessage(ctx context.Context, conversation *model.Conversation, msg *model.Message) error {
	if err := c.messageDB.Create(ctx, msg); err != nil {
		prommetrics.MsgInsertFailedCounter.Inc()
		return err
	}
	prommetrics.MsgInsertSuccessCounter.Inc()
	if err := c.conversationDB.UpdatePreview(ctx, msg.ConversationID, previewArgs(msg)); err != nil {
		log.ZWarn(ctx, "update conversation preview failed", err, "conversationID", msg.ConversationID, "messageID", msg.MessageID)
	}
	recipients := make([]string, 0, len(conversation.Participants))
	for _, userID := range conversation.Participants {
		if userID != msg.SenderID {
			recipients = append(recipients, userID)
		}
	}
	if err := c.statsDB.IncrUnread(ctx, msg.ConversationID, recipients); err != nil {
		log.ZWarn(ctx, "bump unread counters failed", err, "conversationID", msg.ConversationID, "messageID", msg.MessageID)
	}
	return nil
}

func (c *chatDatabase) TakeMessage(ctx context.Context, conversationID, messageID string) (*model.Message, error) {
	return c.messageDB.Take(ctx, conversationID, messageID)
}

func (c *chatDatabase) PageMessages(ctx context.Context, conversationID string, pagination pagination.Pagination) (int64, []*model.Message, error) {
	return c.messageDB.Page(ctx, conversationID, pagination)
}

func (c *chatDatabase) MarkMessageRead(ctx context.Context, conversationID, messageID, userID string) (bool, error) {
	added, err := c.messageDB.AddReadBy(ctx, conversationID, messageID, userID)
	if err != nil {
		return false, err
	}
	if !added {
		// An unmatched update is either an already-read message or one
		// that does not exist; only the former is a no-op.
		if _, err := c.messageDB.Take(ctx, conversationID, messageID); err != nil {
			return false, err
		}
		return false, nil
	}
	if err := c.statsDB.DecrUnread(ctx, conversationID, userID); err != nil {
		log.ZWarn(ctx, "decrement unread failed", err, "conversationID", conversationID, "userID", userID)
	}
	return true, nil
}

func (c *chatDatabase) MarkConversationRead(ctx context.Context, conversationID, userID string) (int64, error) {
	updated, err := c.messageDB.AddReadByAll(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}
	if err := c.statsDB.ResetUnread(ctx, conversationID, userID, ""); err != nil {
		return updated, err
	}
	return updated, nil
}

func (c *chatDatabase) SetReaction(ctx context.Context, conversationID, messageID, userID, emoji string) (map[string]string, error) {
	return c.messageDB.SetReaction(ctx, conversationID, messageID, userID, emoji)
}

func (c *chatDatabase) TakeUserStats(ctx context.Context, conversationID, userID string) (*model.UserStats, error) {
	return c.statsDB.Take(ctx, conversationID, userID)
}

func (c *chatDatabase) RecomputeUnread(ctx context.Context, conversationID, userID string) (int64, error) {
	count, err := c.messageDB.CountUnread(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}
	if err := c.statsDB.SetUnread(ctx, conversationID, userID, count); err != nil {
		return 0, err
	}
	return count, nil
}

func (c *chatDatabase) UnreadDrift(ctx context.Context, conversationID, userID string) (stored, actual int64, err error) {
	actual, err = c.messageDB.CountUnread(ctx, conversationID, userID)
	if err != nil {
		return 0, 0, err
	}
	stats, err := c.statsDB.Take(ctx, conversationID, userID)
	if err != nil {
		if servererrs.IsNotFound(err) {
			return 0, actual, nil
		}
		return 0, 0, err
	}
	return stats.UnreadCount, actual, nil
}

func (c *chatDatabase) ConversationIDsOfUser(ctx context.Context, userID string) ([]string, error) {
	return c.conversationDB.FindIDsByParticipant(ctx, userID)
}

func (c *chatDatabase) ParticipantPairs(ctx context.Context) (map[string][]string, error) {
	return c.conversationDB.ParticipantPairs(ctx)
}

func (c *chatDatabase) TakeUser(ctx context.Context, userID string) (*model.User, error) {
	return c.userDB.Take(ctx, userID)
}

func (c *chatDatabase) FindUsers(ctx context.Context, userIDs []string) ([]*model.User, error) {
	return c.userDB.Find(ctx, userIDs)
}

func (c *chatDatabase) UpsertUser(ctx context.Context, user *model.User) error {
	return c.userDB.Upsert(ctx, user)
}

func (c *chatDatabase) SetUserOnline(ctx context.Context, userID string, online bool) error {
	return c.userDB.SetOnline(ctx, userID, online)
}

func (c *chatDatabase) SetUserStatus(ctx context.Context, userID, status string) error {
	return c.userDB.SetStatus(ctx, userID, status)
}

func previewArgs(msg *model.Message) map[string]any {
	return map[string]any{
		"last_message_time":      msg.Timestamp,
		"last_message_preview":   constant.MessagePreview(msg.Content, msg.MessageType),
		"last_message_type":      msg.MessageType,
		"last_message_sender_id": msg.SenderID,
	}
}
