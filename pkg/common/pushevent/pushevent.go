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

// Package pushevent defines the queue message schema shared by the write
// path (producer) and the notification consumer. It lives outside both so
// neither imports the other.
package pushevent

import (
	"encoding/json"
	"time"

	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/utils/encrypt"

	"github.com/chatwire/chatwire-server/pkg/common/constant"
)

// RetryMeta is the optional `_retry` envelope stamped by the retry sender.
type RetryMeta struct {
	Attempt int `json:"attempt"`
}

// Event is one notification-pipeline message. Fields beyond Event and
// Timestamp are variant-specific and stay empty otherwise.
type Event struct {
	Event          string     `json:"event"`
	ConversationID string     `json:"conversationId,omitempty"`
	MessageID      string     `json:"messageId,omitempty"`
	SenderID       string     `json:"senderId,omitempty"`
	Content        string     `json:"content,omitempty"`
	MessageType    string     `json:"messageType,omitempty"`
	Timestamp      string     `json:"timestamp"`
	Participants   []string   `json:"participants,omitempty"`
	GroupName      string     `json:"groupName,omitempty"`
	RetryCount     int        `json:"retryCount,omitempty"`
	Retry          *RetryMeta `json:"_retry,omitempty"`
}

// Known reports whether the consumer has a handler for the variant.
func (e *Event) Known() bool {
	switch e.Event {
	case constant.EventNewMessage, constant.EventGroupInvitation, constant.EventFriendRequest,
		constant.EventDirectConvCreated, constant.EventGroupConvCreated:
		return true
	}
	return false
}

func (e *Event) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return data, nil
}

func Decode(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errs.Wrap(err)
	}
	return &e, nil
}

// NotificationID derives the stable id of the notification row written for
// recipient. Redelivered events derive the same id and dedup on the unique
// index.
func (e *Event) NotificationID(recipient string) string {
	key := e.Event + ":" + e.ConversationID + ":" + e.MessageID + ":" + recipient
	if e.MessageID == "" {
		key = e.Event + ":" + e.ConversationID + ":" + e.SenderID + ":" + e.Timestamp + ":" + recipient
	}
	return encrypt.Md5(key)
}

// NowTimestamp formats the event timestamp the way every producer does.
func NowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
