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

	"github.com/chatwire/chatwire-server/pkg/common/constant"
	"github.com/chatwire/chatwire-server/pkg/pubsub"
)

// MarkMessageRead stamps one message read for userID. Marking the same
// message twice is a no-op, including the counter decrement.
func (s *Service) MarkMessageRead(ctx context.Context, conversationID, messageID, userID string) error {
	if _, err := s.takeAsParticipant(ctx, conversationID, userID); err != nil {
		return err
	}
	added, err := s.db.MarkMessageRead(ctx, conversationID, messageID, userID)
	if err != nil {
		return err
	}
	if !added {
		return nil
	}
	s.publishOrLocal(ctx, conversationID, &pubsub.Event{
		Event:          constant.EventMessageRead,
		ConversationID: conversationID,
		MessageID:      messageID,
		UserID:         userID,
		Timestamp:      pubsub.NowTimestamp(),
	})
	return nil
}

// MarkConversationRead stamps every unread message in the conversation and
// zeroes the unread counter, returning how many messages were stamped.
func (s *Service) MarkConversationRead(ctx context.Context, conversationID, userID string) (int64, error) {
	if _, err := s.takeAsParticipant(ctx, conversationID, userID); err != nil {
		return 0, err
	}
	updated, err := s.db.MarkConversationRead(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		s.publishOrLocal(ctx, conversationID, &pubsub.Event{
			Event:          constant.EventConversationRead,
			ConversationID: conversationID,
			UserID:         userID,
			Count:          updated,
			Timestamp:      pubsub.NowTimestamp(),
		})
	}
	return updated, nil
}
