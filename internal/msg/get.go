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

	"github.com/chatwire/chatwire-server/pkg/apistruct"
	"github.com/chatwire/chatwire-server/pkg/common/constant"
	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
	"github.com/chatwire/chatwire-server/pkg/common/storage/model"
)

// GetMessages pages a conversation's history, newest first.
func (s *Service) GetMessages(ctx context.Context, conversationID, userID string, pagination apistruct.Pagination) (int64, []*model.Message, error) {
	if _, err := s.takeAsParticipant(ctx, conversationID, userID); err != nil {
		return 0, nil, err
	}
	pagination.Normalize(1, constant.MessagePageSizeMax)
	return s.db.PageMessages(ctx, conversationID, &pagination)
}

// GetMessage loads one message, authorized against the conversation.
func (s *Service) GetMessage(ctx context.Context, conversationID, messageID, userID string) (*model.Message, error) {
	if _, err := s.takeAsParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	message, err := s.db.TakeMessage(ctx, conversationID, messageID)
	if err != nil {
		if servererrs.IsNotFound(err) {
			return nil, servererrs.ErrRecordNotFound.WrapMsg("message not found", "messageID", messageID)
		}
		return nil, err
	}
	return message, nil
}

// UnreadCount returns the authoritative unread counter of one member.
func (s *Service) UnreadCount(ctx context.Context, conversationID, userID string) (int64, error) {
	if _, err := s.takeAsParticipant(ctx, conversationID, userID); err != nil {
		return 0, err
	}
	stats, err := s.db.TakeUserStats(ctx, conversationID, userID)
	if err != nil {
		if servererrs.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return stats.UnreadCount, nil
}
