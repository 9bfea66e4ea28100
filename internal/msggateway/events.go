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

package msggateway

import (
	"context"

	"github.com/openimsdk/tools/log"
	"github.com/openimsdk/tools/utils/datautil"

	"github.com/chatwire/chatwire-server/pkg/common/constant"
	"github.com/chatwire/chatwire-server/pkg/pubsub"
)

// onBusEvent fans one bus event out to the local sockets it concerns.
// The origin user never receives their own event back.
func (ws *WsServer) onBusEvent(ctx context.Context, channel string, event *pubsub.Event) {
	if !event.Known() {
		log.ZWarn(ctx, "dropping unknown bus event", nil, "channel", channel, "event", event.Event)
		return
	}
	if event.Event == constant.EventUserStatusChange {
		ws.dispatchStatusChange(ctx, event)
		return
	}
	participants := event.Participants
	if len(participants) == 0 {
		var err error
		participants, err = ws.participantsOf(ctx, event.ConversationID)
		if err != nil {
			log.ZWarn(ctx, "participant lookup failed, dropping event", err,
				"conversationID", event.ConversationID, "event", event.Event)
			return
		}
	}
	ws.deliverToUsers(ctx, participants, event, event.Origin())
}

// dispatchStatusChange forwards a presence change to every local user who
// shares at least one conversation with the subject, once per user.
func (ws *WsServer) dispatchStatusChange(ctx context.Context, event *pubsub.Event) {
	subject := event.Origin()
	notified := make(map[string]struct{})
	for _, conversationID := range ws.subscription.ServedConversations() {
		participants, err := ws.participantsOf(ctx, conversationID)
		if err != nil {
			log.ZWarn(ctx, "participant lookup failed", err, "conversationID", conversationID)
			continue
		}
		if !datautil.Contain(subject, participants...) {
			continue
		}
		for _, userID := range ws.subscription.UsersOfConversation(conversationID) {
			if userID == subject {
				continue
			}
			if _, done := notified[userID]; done {
				continue
			}
			notified[userID] = struct{}{}
			ws.writeToUser(ctx, userID, event)
		}
	}
}

// BroadcastToConversation delivers only to this instance's sockets. The
// write path falls back to it when the bus is unreachable, so a degraded
// instance still serves its own users.
func (ws *WsServer) BroadcastToConversation(ctx context.Context, conversationID string, event *pubsub.Event, skipUserID string) {
	participants, err := ws.participantsOf(ctx, conversationID)
	if err != nil {
		log.ZWarn(ctx, "participant lookup failed, local broadcast dropped", err, "conversationID", conversationID)
		return
	}
	ws.deliverToUsers(ctx, participants, event, skipUserID)
}

func (ws *WsServer) deliverToUsers(ctx context.Context, userIDs []string, event *pubsub.Event, skipUserID string) {
	for _, userID := range userIDs {
		if userID == skipUserID {
			continue
		}
		ws.writeToUser(ctx, userID, event)
	}
}

func (ws *WsServer) writeToUser(ctx context.Context, userID string, event *pubsub.Event) {
	clients, ok := ws.clients.GetAll(userID)
	if !ok {
		return
	}
	for _, client := range clients {
		if err := client.WriteEvent(event); err != nil {
			log.ZWarn(ctx, "write to socket failed", err, "userID", userID, "connID", client.ConnID, "event", event.Event)
		}
	}
}

func (ws *WsServer) participantsOf(ctx context.Context, conversationID string) ([]string, error) {
	return ws.participants.Get(ctx, conversationID, func(ctx context.Context) ([]string, error) {
		conversation, err := ws.chatDB.TakeConversation(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		return conversation.Participants, nil
	})
}

// HandleClientFrame routes one decoded inbound frame. Heartbeats are already
// answered by the reader; everything else is validated, applied and
// republished on the conversation channel.
func (ws *WsServer) HandleClientFrame(ctx context.Context, client *Client, event *pubsub.Event) {
	switch event.Event {
	case constant.EventTyping:
		ws.handleTyping(ctx, client, event)
	case constant.EventMessageRead:
		ws.handleMessageRead(ctx, client, event)
	case constant.EventStatusChange:
		ws.handleStatusChange(ctx, client, event)
	default:
		log.ZDebug(ctx, "ignoring client frame", "event", event.Event, "userID", client.UserID)
	}
}

func (ws *WsServer) handleTyping(ctx context.Context, client *Client, event *pubsub.Event) {
	if err := ws.validate.Var(event.ConversationID, "required"); err != nil {
		log.ZDebug(ctx, "typing frame without conversationId", "userID", client.UserID)
		return
	}
	if !ws.isParticipant(ctx, event.ConversationID, client.UserID) {
		return
	}
	out := &pubsub.Event{
		Event:          constant.EventTyping,
		ConversationID: event.ConversationID,
		UserID:         client.UserID,
		Timestamp:      pubsub.NowTimestamp(),
	}
	ws.publishOrLocal(ctx, event.ConversationID, out)
}

func (ws *WsServer) handleMessageRead(ctx context.Context, client *Client, event *pubsub.Event) {
	if event.ConversationID == "" || event.MessageID == "" {
		log.ZDebug(ctx, "message_read frame missing ids", "userID", client.UserID)
		return
	}
	added, err := ws.chatDB.MarkMessageRead(ctx, event.ConversationID, event.MessageID, client.UserID)
	if err != nil {
		log.ZWarn(ctx, "mark message read failed", err,
			"conversationID", event.ConversationID, "messageID", event.MessageID, "userID", client.UserID)
		return
	}
	if !added {
		return
	}
	out := &pubsub.Event{
		Event:          constant.EventMessageRead,
		ConversationID: event.ConversationID,
		MessageID:      event.MessageID,
		UserID:         client.UserID,
		Timestamp:      pubsub.NowTimestamp(),
	}
	ws.publishOrLocal(ctx, event.ConversationID, out)
}

func (ws *WsServer) handleStatusChange(ctx context.Context, client *Client, event *pubsub.Event) {
	if !constant.ValidUserStatus(event.Status) {
		log.ZDebug(ctx, "status_change with invalid status", "userID", client.UserID, "status", event.Status)
		return
	}
	if err := ws.chatDB.SetUserStatus(ctx, client.UserID, event.Status); err != nil {
		log.ZWarn(ctx, "set user status failed", err, "userID", client.UserID, "status", event.Status)
		return
	}
	ws.publishStatusChange(ctx, client.UserID, event.Status)
}

// publishStatusChange fans a presence change out over every conversation the
// subject belongs to; remote instances filter to users who share one.
func (ws *WsServer) publishStatusChange(ctx context.Context, userID, status string) {
	conversationIDs, err := ws.chatDB.ConversationIDsOfUser(ctx, userID)
	if err != nil {
		log.ZWarn(ctx, "load user conversations failed", err, "userID", userID)
		return
	}
	timestamp := pubsub.NowTimestamp()
	for _, conversationID := range conversationIDs {
		// The bus hands the event to its consumer asynchronously, so
		// every conversation gets its own copy.
		ws.publishOrLocal(ctx, conversationID, &pubsub.Event{
			Event:          constant.EventUserStatusChange,
			ConversationID: conversationID,
			UserID:         userID,
			Status:         status,
			Timestamp:      timestamp,
		})
	}
}

func (ws *WsServer) publishOrLocal(ctx context.Context, conversationID string, event *pubsub.Event) {
	if _, err := ws.bus.Publish(ctx, constant.ConversationChannel(conversationID), event); err != nil {
		log.ZWarn(ctx, "bus publish failed, delivering locally", err,
			"conversationID", conversationID, "event", event.Event)
		ws.BroadcastToConversation(ctx, conversationID, event, event.Origin())
	}
}

func (ws *WsServer) isParticipant(ctx context.Context, conversationID, userID string) bool {
	participants, err := ws.participantsOf(ctx, conversationID)
	if err != nil {
		log.ZWarn(ctx, "participant lookup failed", err, "conversationID", conversationID)
		return false
	}
	return datautil.Contain(userID, participants...)
}
