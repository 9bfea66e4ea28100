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

// Package apistruct holds the HTTP request and response shapes. Binding tags
// follow gin's validator integration; field names mirror the wire contract.
package apistruct

import "time"

type CreateConversationReq struct {
	Type           string         `json:"type" binding:"required,oneof=direct group"`
	Name           string         `json:"name"`
	Participants   []string       `json:"participants" binding:"required,min=1"`
	InitialMessage string         `json:"initial_message"`
	Metadata       map[string]any `json:"metadata"`
}

type UpdateConversationReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	AvatarURL   *string `json:"avatar_url"`
}

type AddMembersReq struct {
	Members []string `json:"members" binding:"required,min=1"`
}

type FileInfoReq struct {
	URL      string `json:"url" binding:"required"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

type SendMessageReq struct {
	Content     string       `json:"content"`
	MessageType string       `json:"messageType"`
	FileInfo    *FileInfoReq `json:"fileInfo"`
}

type SendMessageResp struct {
	MessageID string    `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}

type ReactionReq struct {
	// Reaction null removes the caller's reaction.
	Reaction *string `json:"reaction"`
}

type StatusReq struct {
	Status string `json:"status" binding:"required"`
}

type DeviceTokenReq struct {
	Token      string `json:"token" binding:"required"`
	DeviceType string `json:"deviceType" binding:"required,oneof=ios android web"`
}

type NotificationPrefsReq struct {
	PushEnabled                bool       `json:"pushEnabled"`
	MessageNotifications       bool       `json:"messageNotifications"`
	GroupNotifications         bool       `json:"groupNotifications"`
	FriendRequestNotifications bool       `json:"friendRequestNotifications"`
	SystemNotifications        bool       `json:"systemNotifications"`
	MuteUntil                  *time.Time `json:"muteUntil"`
}

type MarkNotificationsReadReq struct {
	NotificationIDs []string `json:"notificationIds" binding:"required,min=1"`
}

type ConversationResp struct {
	ConversationID      string         `json:"conversationId"`
	Type                string         `json:"type"`
	Participants        []string       `json:"participants"`
	Name                string         `json:"name,omitempty"`
	Admins              []string       `json:"admins,omitempty"`
	AvatarURL           string         `json:"avatarUrl,omitempty"`
	Description         string         `json:"description,omitempty"`
	CreatedAt           time.Time      `json:"createdAt"`
	LastMessageTime     time.Time      `json:"lastMessageTime"`
	LastMessagePreview  string         `json:"lastMessagePreview,omitempty"`
	LastMessageType     string         `json:"lastMessageType,omitempty"`
	LastMessageSenderID string         `json:"lastMessageSenderId,omitempty"`
	Metadata            map[string]any `json:"metadata,omitempty"`
	UnreadCount         int64          `json:"unreadCount"`
}

type ConversationListResp struct {
	Total         int64               `json:"total"`
	Conversations []*ConversationResp `json:"conversations"`
}

type MessageResp struct {
	MessageID      string            `json:"messageId"`
	ConversationID string            `json:"conversationId"`
	SenderID       string            `json:"senderId"`
	Content        string            `json:"content"`
	MessageType    string            `json:"messageType"`
	Timestamp      time.Time         `json:"timestamp"`
	ReadBy         []string          `json:"readBy"`
	Reactions      map[string]string `json:"reactions,omitempty"`
	FileInfo       *FileInfoReq      `json:"fileInfo,omitempty"`
}

type MessageListResp struct {
	Total    int64          `json:"total"`
	Messages []*MessageResp `json:"messages"`
}

type MarkAllReadResp struct {
	MessagesRead int64 `json:"messagesRead"`
}

type NotificationResp struct {
	NotificationID string            `json:"notificationId"`
	Type           string            `json:"type"`
	Title          string            `json:"title"`
	Body           string            `json:"body"`
	Data           map[string]string `json:"data,omitempty"`
	IsRead         bool              `json:"isRead"`
	CreatedAt      time.Time         `json:"createdAt"`
}

type WhoamiResp struct {
	UserID  string `json:"userId"`
	IsAdmin bool   `json:"isAdmin"`
}

type HealthResp struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
