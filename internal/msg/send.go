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
	"time"

	"github.com/google/uuid"
	"github.com/openimsdk/tools/log"
	"github.com/openimsdk/tools/mcontext"

	"github.com/chatwire/chatwire-server/pkg/common/constant"
	"github.com/chatwire/chatwire-server/pkg/common/pushevent"
	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
	"github.com/chatwire/chatwire-server/pkg/common/storage/model"
	"github.com/chatwire/chatwire-server/pkg/pubsub"
)

// SendReq is one message submission. FileInfo is required for non-text
// types, Content for text.
type SendReq struct {
	ConversationID string
	SenderID       string
	Content        string
	MessageType    string
	FileInfo       *model.FileInfo
}

func (s *Service) validateSend(req *SendReq) error {
	if req.MessageType == "" {
		req.MessageType = constant.MessageTypeText
	}
	if !constant.ValidMessageType(req.MessageType) {
		return servererrs.ErrArgs.WrapMsg("invalid message type", "messageType", req.MessageType)
	}
	if req.MessageType == constant.MessageTypeText {
		if req.Content == "" {
			return servererrs.ErrArgs.WrapMsg("text message requires content")
		}
		return nil
	}
	if req.FileInfo == nil || req.FileInfo.URL == "" {
		return servererrs.ErrArgs.WrapMsg("media message requires fileInfo.url", "messageType", req.MessageType)
	}
	return nil
}

// SendMessage persists and fans out one message. The message is the source
// of truth: once AppendMessage returns, the send succeeds no matter what
// the bus or the queue do afterwards.
func (s *Service) SendMessage(ctx context.Context, req *SendReq) (*model.Message, error) {
	if err := s.validateSend(req); err != nil {
		return nil, err
	}
	conversation, err := s.takeAsParticipant(ctx, req.ConversationID, req.SenderID)
	if err != nil {
		return nil, err
	}

	message := &model.Message{
		MessageID:      uuid.NewString(),
		ConversationID: req.ConversationID,
		SenderID:       req.SenderID,
		Content:        req.Content,
		MessageType:    req.MessageType,
		Timestamp:      time.Now().UTC(),
		ReadBy:         []string{req.SenderID},
		FileInfo:       req.FileInfo,
	}
	if err := s.db.AppendMessage(ctx, conversation, message); err != nil {
		return nil, err
	}

	event := &pubsub.Event{
		Event:          constant.EventNewMessage,
		ConversationID: message.ConversationID,
		MessageID:      message.MessageID,
		SenderID:       message.SenderID,
		Content:        message.Content,
		MessageType:    message.MessageType,
		Timestamp:      message.Timestamp.Format(time.RFC3339Nano),
		Participants:   conversation.Participants,
	}
	s.publishOrLocal(ctx, message.ConversationID, event)

	// Offline handoff runs detached: the HTTP response never waits on the
	// registry or the queue.
	go s.enqueueOffline(mcontext.NewCtx(mcontext.GetOperationID(ctx)), conversation, message)

	return message, nil
}

// enqueueOffline finds the recipients with no connection anywhere and hands
// them to the notification pipeline in one queue message.
func (s *Service) enqueueOffline(ctx context.Context, conversation *model.Conversation, message *model.Message) {
	offline := make([]string, 0, len(conversation.Participants))
	for _, userID := range conversation.Participants {
		if userID == message.SenderID {
			continue
		}
		count, err := s.registry.ConnectionCount(ctx, userID)
		if err != nil {
			// Presence unknown: enqueue anyway, the consumer re-checks.
			log.ZWarn(ctx, "presence check failed, treating as offline", err, "userID", userID)
			offline = append(offline, userID)
			continue
		}
		if count == 0 {
			offline = append(offline, userID)
		}
	}
	if len(offline) == 0 {
		return
	}

	event := &pushevent.Event{
		Event:          constant.EventNewMessage,
		ConversationID: message.ConversationID,
		MessageID:      message.MessageID,
		SenderID:       message.SenderID,
		Content:        message.Content,
		MessageType:    message.MessageType,
		Timestamp:      message.Timestamp.Format(time.RFC3339Nano),
		Participants:   offline,
		GroupName:      conversation.Name,
	}
	body, err := event.Encode()
	if err != nil {
		log.ZError(ctx, "encode push event failed", err, "messageID", message.MessageID)
		return
	}
	if err := s.queues.Main.Send(ctx, body, 0); err != nil {
		log.ZWarn(ctx, "enqueue failed, processing notification inline", err, "messageID", message.MessageID)
		if s.inline != nil {
			s.inline(ctx, body)
		}
		return
	}
	log.ZDebug(ctx, "offline recipients enqueued", "messageID", message.MessageID, "recipients", len(offline))
}
