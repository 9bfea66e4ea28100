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

	"github.com/openimsdk/tools/log"

	"github.com/chatwire/chatwire-server/pkg/common/constant"
	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
	"github.com/chatwire/chatwire-server/pkg/pubsub"
)

// SetUserStatus stores the caller's presence status and announces it on
// every conversation they belong to.
func (s *Service) SetUserStatus(ctx context.Context, userID, status string) error {
	if !constant.ValidUserStatus(status) {
		return servererrs.ErrArgs.WrapMsg("invalid status", "status", status)
	}
	if err := s.db.SetUserStatus(ctx, userID, status); err != nil {
		return err
	}
	conversationIDs, err := s.db.ConversationIDsOfUser(ctx, userID)
	if err != nil {
		log.ZWarn(ctx, "status stored but fan-out skipped", err, "userID", userID)
		return nil
	}
	for _, conversationID := range conversationIDs {
		s.publishOrLocal(ctx, conversationID, &pubsub.Event{
			Event:          constant.EventUserStatusChange,
			ConversationID: conversationID,
			UserID:         userID,
			Status:         status,
		})
	}
	return nil
}
