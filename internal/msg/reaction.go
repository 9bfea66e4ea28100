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

// SetReaction sets userID's reaction on a message, or removes it when emoji
// is empty. One reaction per user per message; setting replaces. The full
// reaction map after the change is returned and broadcast.
func (s *Service) SetReaction(ctx context.Context, conversationID, messageID, userID, emoji string) (map[string]string, error) {
	if _, err := s.takeAsParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	reactions, err := s.db.SetReaction(ctx, conversationID, messageID, userID, emoji)
	if err != nil {
		return nil, err
	}
	s.publishOrLocal(ctx, conversationID, &pubsub.Event{
		Event:          constant.EventMessageReaction,
		ConversationID: conversationID,
		MessageID:      messageID,
		UserID:         userID,
		Reactions:      reactions,
		Timestamp:      pubsub.NowTimestamp(),
	})
	return reactions, nil
}
