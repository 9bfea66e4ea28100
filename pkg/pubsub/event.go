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

package pubsub

import (
	"encoding/json"
	"time"

	"github.com/openimsdk/tools/errs"

	"github.com/chatwire/chatwire-server/pkg/common/constant"
)

// Event is the wire shape shared by the bus and the WebSocket frames. The
// Event field tags the variant; unused fields stay empty. Unknown variants
// are logged and dropped by subscribers.
type Event struct {
	Event          string            `json:"event"`
	ConversationID string            `json:"conversationId,omitempty"`
	MessageID      string            `json:"messageId,omitempty"`
	SenderID       string            `json:"senderId,omitempty"`
	UserID         string            `json:"userId,omitempty"`
	Content        string            `json:"content,omitempty"`
	MessageType    string            `json:"messageType,omitempty"`
	Timestamp      string            `json:"timestamp,omitempty"`
	Participants   []string          `json:"participants,omitempty"`
	Status         string            `json:"status,omitempty"`
	Reactions      map[string]string `json:"reactions,omitempty"`
	Count          int64             `json:"count,omitempty"`
}

// Origin is the user the event came from; delivery skips their own sockets.
func (e *Event) Origin() string {
	if e.SenderID != "" {
		return e.SenderID
	}
	return e.UserID
}

// Known reports whether the variant is one the gateway dispatches on.
func (e *Event) Known() bool {
	switch e.Event {
	case constant.EventNewMessage, constant.EventTyping, constant.EventMessageRead,
		constant.EventConversationRead, constant.EventMessageReaction,
		constant.EventUserStatusChange:
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

func DecodeEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errs.Wrap(err)
	}
	return &e, nil
}

// NowTimestamp formats the bus timestamp; clients order frames by it.
func NowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
