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

package model

import (
	"sort"
	"strings"
	"time"
)

// Conversation is a direct (2-party) or group thread.
//
// Invariants: admins ⊆ participants, |admins| ≥ 1 for groups; for direct
// conversations ParticipantHash is the sorted participant pair and carries a
// unique index, so no two direct conversations share the same pair.
type Conversation struct {
	ConversationID      string         `bson:"conversation_id"`
	Type                string         `bson:"type"`
	Participants        []string       `bson:"participants"`
	ParticipantHash     string         `bson:"participant_hash,omitempty"` // direct only
	Name                string         `bson:"name,omitempty"`
	Admins              []string       `bson:"admins,omitempty"`
	AvatarURL           string         `bson:"avatar_url,omitempty"`
	Description         string         `bson:"description,omitempty"`
	CreatedAt           time.Time      `bson:"created_at"`
	LastMessageTime     time.Time      `bson:"last_message_time"`
	LastMessagePreview  string         `bson:"last_message_preview,omitempty"`
	LastMessageType     string         `bson:"last_message_type,omitempty"`
	LastMessageSenderID string         `bson:"last_message_sender_id,omitempty"`
	MutedBy             []string       `bson:"muted_by,omitempty"`
	Metadata            map[string]any `bson:"metadata,omitempty"`
}

func (c *Conversation) IsParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

func (c *Conversation) IsAdmin(userID string) bool {
	for _, a := range c.Admins {
		if a == userID {
			return true
		}
	}
	return false
}

// DirectParticipantHash returns the uniqueness key of a direct conversation:
// the two participant ids sorted and joined.
func DirectParticipantHash(participants []string) string {
	ids := make([]string, len(participants))
	copy(ids, participants)
	sort.Strings(ids)
	return strings.Join(ids, ":")
}

// UserStats is the per-(conversation, user) unread bookkeeping row.
// unread_count mirrors the number of messages whose readBy lacks the user;
// transient drift is tolerated and repaired by recompute.
type UserStats struct {
	ConversationID    string `bson:"conversation_id"`
	UserID            string `bson:"user_id"`
	UnreadCount       int64  `bson:"unread_count"`
	LastReadMessageID string `bson:"last_read_message_id,omitempty"`
}
