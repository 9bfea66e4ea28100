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

package database

import (
	"context"

	"github.com/openimsdk/tools/db/pagination"

	"github.com/chatwire/chatwire-server/pkg/common/storage/model"
)

type Conversation interface {
	Create(ctx context.Context, conversation *model.Conversation) error
	Take(ctx context.Context, conversationID string) (*model.Conversation, error)
	// TakeDirectByHash looks a direct conversation up by its sorted
	// participant pair; ErrRecordNotFound when absent.
	TakeDirectByHash(ctx context.Context, participantHash string) (*model.Conversation, error)
	// Page lists conversations containing userID ordered by
	// last_message_time desc. convType filters by type when non-empty;
	// onlyIDs restricts the listing to the given ids when non-nil.
	Page(ctx context.Context, userID, convType string, onlyIDs []string, pagination pagination.Pagination) (int64, []*model.Conversation, error)
	UpdateInfo(ctx context.Context, conversationID string, args map[string]any) error
	AddParticipant(ctx context.Context, conversationID string, userIDs []string) error
	// UpdatePreview is last-write-wins on the lastMessage* fields.
	UpdatePreview(ctx context.Context, conversationID string, args map[string]any) error
	// FindIDsByParticipant lists the ids of every conversation containing
	// userID; drives gateway channel subscriptions.
	FindIDsByParticipant(ctx context.Context, userID string) ([]string, error)
	ParticipantPairs(ctx context.Context) (map[string][]string, error) // conversationID -> participants, for repair
}

type UserStats interface {
	Init(ctx context.Context, stats []*model.UserStats) error
	Take(ctx context.Context, conversationID, userID string) (*model.UserStats, error)
	FindByConversations(ctx context.Context, conversationIDs []string, userID string) ([]*model.UserStats, error)
	// IncrUnread bumps unread_count by one for each given user, creating
	// absent rows. Clamped below at zero before the increment.
	IncrUnread(ctx context.Context, conversationID string, userIDs []string) error
	// DecrUnread decrements unread_count, clamped at zero.
	DecrUnread(ctx context.Context, conversationID, userID string) error
	ResetUnread(ctx context.Context, conversationID, userID string, lastReadMessageID string) error
	SetUnread(ctx context.Context, conversationID, userID string, count int64) error
	// UnreadConversationIDs lists the conversations in which userID has a
	// positive unread counter.
	UnreadConversationIDs(ctx context.Context, userID string) ([]string, error)
}
