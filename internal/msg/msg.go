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

// Package msg implements the message write path: validate, persist, fan out
// over the bus and hand offline recipients to the notification queue.
package msg

import (
	"context"

	"github.com/openimsdk/tools/log"

	"github.com/chatwire/chatwire-server/pkg/common/config"
	"github.com/chatwire/chatwire-server/pkg/common/constant"
	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
	"github.com/chatwire/chatwire-server/pkg/common/storage/cache"
	"github.com/chatwire/chatwire-server/pkg/common/storage/controller"
	"github.com/chatwire/chatwire-server/pkg/common/storage/model"
	"github.com/chatwire/chatwire-server/pkg/pubsub"
	"github.com/chatwire/chatwire-server/pkg/queue"
)

// LocalBroadcaster delivers an event to this instance's sockets only. The
// gateway implements it; the write path uses it when the bus is down so the
// sender's own instance still sees the message.
type LocalBroadcaster interface {
	BroadcastToConversation(ctx context.Context, conversationID string, event *pubsub.Event, skipUserID string)
}

// InlineNotifier processes one queue body in-process. It is the degraded
// path when the queue substrate rejects an enqueue.
type InlineNotifier func(ctx context.Context, body []byte)

type Service struct {
	conf     *config.Config
	db       controller.ChatDatabase
	bus      pubsub.Bus
	registry cache.ConnRegistry
	queues   queue.Queues
	local    LocalBroadcaster
	inline   InlineNotifier
}

func NewService(
	conf *config.Config,
	db controller.ChatDatabase,
	bus pubsub.Bus,
	registry cache.ConnRegistry,
	queues queue.Queues,
	local LocalBroadcaster,
	inline InlineNotifier,
) *Service {
	return &Service{
		conf:     conf,
		db:       db,
		bus:      bus,
		registry: registry,
		queues:   queues,
		local:    local,
		inline:   inline,
	}
}

// publishOrLocal pushes the event on the conversation channel; if the bus is
// unreachable the event still reaches this instance's sockets.
func (s *Service) publishOrLocal(ctx context.Context, conversationID string, event *pubsub.Event) {
	if _, err := s.bus.Publish(ctx, constant.ConversationChannel(conversationID), event); err != nil {
		log.ZWarn(ctx, "bus publish failed, delivering locally", err,
			"conversationID", conversationID, "event", event.Event)
		if s.local != nil {
			s.local.BroadcastToConversation(ctx, conversationID, event, event.Origin())
		}
	}
}

// takeAsParticipant loads the conversation and authorizes userID against its
// membership.
func (s *Service) takeAsParticipant(ctx context.Context, conversationID, userID string) (*model.Conversation, error) {
	conversation, err := s.db.TakeConversation(ctx, conversationID)
	if err != nil {
		if servererrs.IsNotFound(err) {
			return nil, servererrs.ErrRecordNotFound.WrapMsg("conversation not found", "conversationID", conversationID)
		}
		return nil, err
	}
	if !conversation.IsParticipant(userID) {
		return nil, servererrs.ErrNoPermission.WrapMsg("not a participant", "conversationID", conversationID, "userID", userID)
	}
	return conversation, nil
}
