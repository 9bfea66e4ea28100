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

package model

import "time"

// Notification is the durable record written by the push consumer. The id is
// deterministic per (queue event, recipient), so redelivery of the same event
// inserts at most one row.
type Notification struct {
	NotificationID string            `bson:"notification_id"`
	UserID         string            `bson:"user_id"`
	Type           string            `bson:"type"`
	Title          string            `bson:"title"`
	Body           string            `bson:"body"`
	Data           map[string]string `bson:"data,omitempty"`
	IsRead         bool              `bson:"is_read"`
	CreatedAt      time.Time         `bson:"created_at"`
}

// NotificationPref gates offline pushes per user. A missing document means
// everything enabled.
type NotificationPref struct {
	UserID                     string     `bson:"user_id"`
	PushEnabled                bool       `bson:"push_enabled"`
	MessageNotifications       bool       `bson:"message_notifications"`
	GroupNotifications         bool       `bson:"group_notifications"`
	FriendRequestNotifications bool       `bson:"friend_request_notifications"`
	SystemNotifications        bool       `bson:"system_notifications"`
	MuteUntil                  *time.Time `bson:"mute_until,omitempty"`
}

// DeviceToken is unique on (user_id, token).
type DeviceToken struct {
	UserID      string    `bson:"user_id"`
	Token       string    `bson:"token"`
	DeviceType  string    `bson:"device_type"`
	LastUpdated time.Time `bson:"last_updated"`
}
