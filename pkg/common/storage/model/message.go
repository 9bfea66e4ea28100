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

// Message belongs to one conversation. ReadBy always contains the sender
// immediately after creation and only ever grows.
type Message struct {
	MessageID      string            `bson:"message_id"`
	ConversationID string            `bson:"conversation_id"`
	SenderID       string            `bson:"sender_id"`
	Content        string            `bson:"content"`
	MessageType    string            `bson:"message_type"`
	Timestamp      time.Time         `bson:"timestamp"`
	ReadBy         []string          `bson:"read_by"`
	Reactions      map[string]string `bson:"reactions,omitempty"`
	FileInfo       *FileInfo         `bson:"file_info,omitempty"`
}

// FileInfo is present iff the message type is one of image/video/audio/file.
type FileInfo struct {
	URL      string `bson:"url"`
	Name     string `bson:"name,omitempty"`
	Size     int64  `bson:"size,omitempty"`
	MimeType string `bson:"mime_type,omitempty"`
}

func (m *Message) IsReadBy(userID string) bool {
	for _, u := range m.ReadBy {
		if u == userID {
			return true
		}
	}
	return false
}
