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

package api

import (
	"github.com/chatwire/chatwire-server/pkg/apistruct"
	"github.com/chatwire/chatwire-server/pkg/common/storage/model"
)

func toConversationResp(conversation *model.Conversation, stats *model.UserStats) *apistruct.ConversationResp {
	resp := &apistruct.ConversationResp{
		ConversationID:      conversation.ConversationID,
		Type:                conversation.Type,
		Participants:        conversation.Participants,
		Name:                conversation.Name,
		Admins:              conversation.Admins,
		AvatarURL:           conversation.AvatarURL,
		Description:         conversation.Description,
		CreatedAt:           conversation.CreatedAt,
		LastMessageTime:     conversation.LastMessageTime,
		LastMessagePreview:  conversation.LastMessagePreview,
		LastMessageType:     conversation.LastMessageType,
		LastMessageSenderID: conversation.LastMessageSenderID,
		Metadata:            conversation.Metadata,
	}
	if stats != nil {
		resp.UnreadCount = stats.UnreadCount
	}
	return resp
}

func toMessageResp(message *model.Message) *apistruct.MessageResp {
	resp := &apistruct.MessageResp{
		MessageID:      message.MessageID,
		ConversationID: message.ConversationID,
		SenderID:       message.SenderID,
		Content:        message.Content,
		MessageType:    message.MessageType,
		Timestamp:      message.Timestamp,
		ReadBy:         message.ReadBy,
		Reactions:      message.Reactions,
	}
	if message.FileInfo != nil {
		resp.FileInfo = &apistruct.FileInfoReq{
			URL:      message.FileInfo.URL,
			Name:     message.FileInfo.Name,
			Size:     message.FileInfo.Size,
			MimeType: message.FileInfo.MimeType,
		}
	}
	return resp
}

func toNotificationResp(notification *model.Notification) *apistruct.NotificationResp {
	return &apistruct.NotificationResp{
		NotificationID: notification.NotificationID,
		Type:           notification.Type,
		Title:          notification.Title,
		Body:           notification.Body,
		Data:           notification.Data,
		IsRead:         notification.IsRead,
		CreatedAt:      notification.CreatedAt,
	}
}
