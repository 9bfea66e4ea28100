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

// Package conversation implements conversation lifecycle: creation with the
// direct-pair get-or-create contract, metadata updates, membership and the
// conversation list.
package conversation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/openimsdk/tools/log"
	"github.com/openimsdk/tools/utils/datautil"

	"github.com/chatwire/chatwire-server/internal/msg"
	"github.com/chatwire/chatwire-server/pkg/apistruct"
	"github.com/chatwire/chatwire-server/pkg/common/config"
	"github.com/chatwire/chatwire-server/pkg/common/constant"
	"github.com/chatwire/chatwire-server/pkg/common/pushevent"
	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
	"github.com/chatwire/chatwire-server/pkg/common/storage/controller"
	"github.com/chatwire/chatwire-server/pkg/common/storage/model"
	"github.com/chatwire/chatwire-server/pkg/pubsub"
	"github.com/chatwire/chatwire-server/pkg/queue"
)

type Service struct {
	conf   *config.Config
	db     controller.ChatDatabase
	bus    pubsub.Bus
	queues queue.Queues
	local  msg.LocalBroadcaster
	inline msg.InlineNotifier
}

func NewService(
	conf *config.Config,
	db controller.ChatDatabase,
	bus pubsub.Bus,
	queues queue.Queues,
	local msg.LocalBroadcaster,
	inline msg.InlineNotifier,
) *Service {
	return &Service{conf: conf, db: db, bus: bus, queues: queues, local: local, inline: inline}
}

// CreateReq is the conversation creation request after binding.
type CreateReq struct {
	CreatorID      string
	Type           string
	Name           string
	Participants   []string
	InitialMessage string
	Metadata       map[string]any
}

// Create builds a conversation. Direct creation is get-or-create on the
// sorted participant pair; created reports which happened.
func (s *Service) Create(ctx context.Context, req *CreateReq) (*model.Conversation, bool, error) {
	participants := datautil.Distinct(req.Participants)
	if !datautil.Contain(req.CreatorID, participants...) {
		participants = append(participants, req.CreatorID)
	}

	switch req.Type {
	case constant.ConversationTypeDirect:
		if len(participants) != 2 {
			return nil, false, servererrs.ErrArgs.WrapMsg("direct conversation requires exactly two participants")
		}
	case constant.ConversationTypeGroup:
		if req.Name == "" {
			return nil, false, servererrs.ErrArgs.WrapMsg("group conversation requires a name")
		}
		if len(participants) < 2 {
			return nil, false, servererrs.ErrArgs.WrapMsg("group conversation requires at least two participants")
		}
	default:
		return nil, false, servererrs.ErrArgs.WrapMsg("invalid conversation type", "type", req.Type)
	}

	now := time.Now().UTC()
	conversation := &model.Conversation{
		ConversationID:  uuid.NewString(),
		Type:            req.Type,
		Participants:    participants,
		Name:            req.Name,
		CreatedAt:       now,
		LastMessageTime: now,
		Metadata:        req.Metadata,
	}
	if req.Type == constant.ConversationTypeDirect {
		conversation.ParticipantHash = model.DirectParticipantHash(participants)
	} else {
		conversation.Admins = []string{req.CreatorID}
	}

	var initial *model.Message
	if req.InitialMessage != "" {
		initial = &model.Message{
			MessageID:      uuid.NewString(),
			ConversationID: conversation.ConversationID,
			SenderID:       req.CreatorID,
			Content:        req.InitialMessage,
			MessageType:    constant.MessageTypeText,
			Timestamp:      now,
			ReadBy:         []string{req.CreatorID},
		}
	}

	if req.Type == constant.ConversationTypeDirect {
		existing, created, err := s.db.GetOrCreateDirect(ctx, conversation)
		if err != nil {
			return nil, false, err
		}
		if !created {
			return existing, false, nil
		}
		// The transactional create path handles the initial message; for
		// get-or-create the message follows separately.
		if initial != nil {
			if err := s.db.AppendMessage(ctx, existing, initial); err != nil {
				log.ZWarn(ctx, "initial message append failed", err, "conversationID", existing.ConversationID)
			}
		}
		s.notifyCreated(ctx, existing, initial, req.CreatorID)
		return existing, true, nil
	}

	if err := s.db.CreateConversation(ctx, conversation, initial); err != nil {
		return nil, false, err
	}
	s.notifyCreated(ctx, conversation, initial, req.CreatorID)
	return conversation, true, nil
}

// notifyCreated hands the creation event to the notification pipeline for
// everyone but the creator; the consumer re-checks presence and prefs.
func (s *Service) notifyCreated(ctx context.Context, conversation *model.Conversation, initial *model.Message, creator string) {
	eventName := constant.EventDirectConvCreated
	if conversation.Type == constant.ConversationTypeGroup {
		eventName = constant.EventGroupConvCreated
	}
	recipients := make([]string, 0, len(conversation.Participants))
	for _, userID := range conversation.Participants {
		if userID != creator {
			recipients = append(recipients, userID)
		}
	}
	if len(recipients) == 0 {
		return
	}
	event := &pushevent.Event{
		Event:          eventName,
		ConversationID: conversation.ConversationID,
		SenderID:       creator,
		Timestamp:      pushevent.NowTimestamp(),
		Participants:   recipients,
		GroupName:      conversation.Name,
	}
	if initial != nil {
		event.MessageID = initial.MessageID
		event.Content = initial.Content
		event.MessageType = initial.MessageType
	}
	body, err := event.Encode()
	if err != nil {
		log.ZError(ctx, "encode creation event failed", err, "conversationID", conversation.ConversationID)
		return
	}
	if err := s.queues.Main.Send(ctx, body, 0); err != nil {
		log.ZWarn(ctx, "enqueue creation event failed, processing inline", err, "conversationID", conversation.ConversationID)
		if s.inline != nil {
			s.inline(ctx, body)
		}
	}
}

// Get returns the conversation with the caller's unread counter, 403 for
// non-participants.
func (s *Service) Get(ctx context.Context, conversationID, userID string) (*model.Conversation, *model.UserStats, error) {
	conversation, err := s.db.TakeConversation(ctx, conversationID)
	if err != nil {
		if servererrs.IsNotFound(err) {
			return nil, nil, servererrs.ErrRecordNotFound.WrapMsg("conversation not found", "conversationID", conversationID)
		}
		return nil, nil, err
	}
	if !conversation.IsParticipant(userID) {
		return nil, nil, servererrs.ErrNoPermission.WrapMsg("not a participant", "conversationID", conversationID, "userID", userID)
	}
	stats, err := s.db.TakeUserStats(ctx, conversationID, userID)
	if err != nil {
		if !servererrs.IsNotFound(err) {
			return nil, nil, err
		}
		stats = &model.UserStats{ConversationID: conversationID, UserID: userID}
	}
	return conversation, stats, nil
}

// List pages the caller's conversations newest-activity first, each item
// joined with the caller's unread counter. unreadOnly narrows both the page
// and the total to conversations with unread messages.
func (s *Service) List(ctx context.Context, userID, convType string, unreadOnly bool, pagination apistruct.Pagination) (int64, []*model.Conversation, map[string]*model.UserStats, error) {
	if convType != "" && convType != constant.ConversationTypeDirect && convType != constant.ConversationTypeGroup {
		return 0, nil, nil, servererrs.ErrArgs.WrapMsg("invalid conversation type filter", "type", convType)
	}
	pagination.Normalize(constant.ConversationPageSizeMin, constant.ConversationPageSizeMax)
	return s.db.PageConversations(ctx, userID, convType, unreadOnly, &pagination)
}

// UpdateReq carries the admin-editable group fields; nil means unchanged.
type UpdateReq struct {
	Name        *string
	Description *string
	AvatarURL   *string
}

// Update edits group metadata. Group-only, admin-only.
func (s *Service) Update(ctx context.Context, conversationID, userID string, req *UpdateReq) error {
	conversation, err := s.db.TakeConversation(ctx, conversationID)
	if err != nil {
		if servererrs.IsNotFound(err) {
			return servererrs.ErrRecordNotFound.WrapMsg("conversation not found", "conversationID", conversationID)
		}
		return err
	}
	if conversation.Type != constant.ConversationTypeGroup {
		return servererrs.ErrNoPermission.WrapMsg("direct conversations are immutable")
	}
	if !conversation.IsAdmin(userID) {
		return servererrs.ErrNoPermission.WrapMsg("admin only", "conversationID", conversationID, "userID", userID)
	}
	args := make(map[string]any)
	if req.Name != nil {
		if *req.Name == "" {
			return servererrs.ErrArgs.WrapMsg("group name cannot be empty")
		}
		args["name"] = *req.Name
	}
	if req.Description != nil {
		args["description"] = *req.Description
	}
	if req.AvatarURL != nil {
		args["avatar_url"] = *req.AvatarURL
	}
	if len(args) == 0 {
		return nil
	}
	return s.db.UpdateConversationInfo(ctx, conversationID, args)
}

// AddMembers adds users to a group. Group-only, admin-only; existing members
// are skipped; each new member gets a zeroed stats row.
func (s *Service) AddMembers(ctx context.Context, conversationID, userID string, memberIDs []string) error {
	conversation, err := s.db.TakeConversation(ctx, conversationID)
	if err != nil {
		if servererrs.IsNotFound(err) {
			return servererrs.ErrRecordNotFound.WrapMsg("conversation not found", "conversationID", conversationID)
		}
		return err
	}
	if conversation.Type != constant.ConversationTypeGroup {
		return servererrs.ErrNoPermission.WrapMsg("cannot add members to a direct conversation")
	}
	if !conversation.IsAdmin(userID) {
		return servererrs.ErrNoPermission.WrapMsg("admin only", "conversationID", conversationID, "userID", userID)
	}
	added := datautil.SliceSub(datautil.Distinct(memberIDs), conversation.Participants)
	if len(added) == 0 {
		return nil
	}
	return s.db.AddParticipants(ctx, conversationID, added)
}

// Typing republishes a typing indicator on the conversation channel.
// Fire-and-forget: failures degrade to local delivery.
func (s *Service) Typing(ctx context.Context, conversationID, userID string) error {
	conversation, err := s.db.TakeConversation(ctx, conversationID)
	if err != nil {
		if servererrs.IsNotFound(err) {
			return servererrs.ErrRecordNotFound.WrapMsg("conversation not found", "conversationID", conversationID)
		}
		return err
	}
	if !conversation.IsParticipant(userID) {
		return servererrs.ErrNoPermission.WrapMsg("not a participant", "conversationID", conversationID, "userID", userID)
	}
	event := &pubsub.Event{
		Event:          constant.EventTyping,
		ConversationID: conversationID,
		UserID:         userID,
		Timestamp:      pubsub.NowTimestamp(),
	}
	if _, err := s.bus.Publish(ctx, constant.ConversationChannel(conversationID), event); err != nil {
		log.ZWarn(ctx, "bus publish failed, delivering locally", err, "conversationID", conversationID)
		if s.local != nil {
			s.local.BroadcastToConversation(ctx, conversationID, event, userID)
		}
	}
	return nil
}
