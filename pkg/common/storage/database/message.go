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

type Message interface {
	// Create is keyed by message_id; inserting the same id twice is a
	// no-op so consumer retries cannot duplicate a message.
	Create(ctx context.Context, msg *model.Message) error
	Take(ctx context.Context, conversationID, messageID string) (*model.Message, error)
	// Page lists messages of a conversation ordered by timestamp desc.
	Page(ctx context.Context, conversationID string, pagination pagination.Pagination) (int64, []*model.Message, error)
	// AddReadBy adds userID to read_by and reports whether it was actually
	// added (false when already present). The bit drives unread decrement.
	AddReadBy(ctx context.Context, conversationID, messageID, userID string) (added bool, err error)
	// AddReadByAll stamps userID into read_by of every message lacking it
	// and returns the number of messages updated.
	AddReadByAll(ctx context.Context, conversationID, userID string) (int64, error)
	// SetReaction sets reactions[userID]=emoji, or removes the entry when
	// emoji is empty. Returns the resulting reactions map.
	SetReaction(ctx context.Context, conversationID, messageID, userID, emoji string) (map[string]string, error)
	// CountUnread counts messages in the conversation whose read_by lacks
	// userID. Used by recompute.
	CountUnread(ctx context.Context, conversationID, userID string) (int64, error)
}
