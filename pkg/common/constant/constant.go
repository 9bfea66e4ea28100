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

// Package constant holds the domain enums shared across the api instance and
// the push consumer.
package constant

const (
	ConversationTypeDirect = "direct"
	ConversationTypeGroup  = "group"
)

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeVideo = "video"
	MessageTypeAudio = "audio"
	MessageTypeFile  = "file"
)

// ValidMessageType reports whether t is one of the wire message types.
func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeVideo, MessageTypeAudio, MessageTypeFile:
		return true
	}
	return false
}

const (
	StatusAvailable = "available"
	StatusAway      = "away"
	StatusBusy      = "busy"
	StatusInvisible = "invisible"
	StatusOffline   = "offline"
)

func ValidUserStatus(s string) bool {
	switch s {
	case StatusAvailable, StatusAway, StatusBusy, StatusInvisible, StatusOffline:
		return true
	}
	return false
}

const (
	DeviceTypeIOS     = "ios"
	DeviceTypeAndroid = "android"
	DeviceTypeWeb     = "web"
)

// Event names. The same tags appear on bus frames, websocket frames and queue
// bodies; consumers drop unknown variants.
const (
	EventNewMessage       = "new_message"
	EventTyping           = "typing"
	EventMessageRead      = "message_read"
	EventConversationRead = "conversation_read"
	EventMessageReaction  = "message_reaction"
	EventUserStatusChange = "user_status_change"
	EventHeartbeat        = "heartbeat"
	EventHeartbeatAck     = "heartbeat_ack"
	EventStatusChange     = "status_change"

	EventGroupInvitation      = "group_invitation"
	EventFriendRequest        = "friend_request"
	EventDirectConvCreated    = "direct_conversation_created"
	EventGroupConvCreated     = "group_conversation_created"
)

// Notification record types.
const (
	NotificationNewMessage      = "NEW_MESSAGE"
	NotificationGroupInvitation = "GROUP_INVITATION"
	NotificationFriendRequest   = "FRIEND_REQUEST"
	NotificationConvCreated     = "CONVERSATION_CREATED"
)

// ConversationChannel is the canonical bus channel for a conversation.
func ConversationChannel(conversationID string) string {
	return "conversation:" + conversationID
}

// PreviewMaxLen is the truncation boundary of lastMessagePreview; longer
// previews get an ellipsis appended.
const PreviewMaxLen = 50

// MessagePreview derives the conversation preview from a message body,
// truncating at PreviewMaxLen runes.
func MessagePreview(content, messageType string) string {
	if messageType != MessageTypeText && content == "" {
		return "[" + messageType + "]"
	}
	runes := []rune(content)
	if len(runes) <= PreviewMaxLen {
		return content
	}
	return string(runes[:PreviewMaxLen]) + "..."
}

const (
	// ConversationPageSizeMin/Max bound the conversations list page size.
	ConversationPageSizeMin = 50
	ConversationPageSizeMax = 200
	// MessagePageSizeMax bounds the messages list page size.
	MessagePageSizeMax = 100
)
