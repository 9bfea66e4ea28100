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

package push

import (
	"context"
	"time"

	"github.com/openimsdk/tools/log"

	"github.com/chatwire/chatwire-server/internal/push/offlinepush/options"
	"github.com/chatwire/chatwire-server/pkg/common/constant"
	"github.com/chatwire/chatwire-server/pkg/common/prommetrics"
	"github.com/chatwire/chatwire-server/pkg/common/pushevent"
	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
	"github.com/chatwire/chatwire-server/pkg/common/storage/model"
)

func (c *Consumer) handleNewMessage(ctx context.Context, event *pushevent.Event) error {
	if event.ConversationID == "" || event.MessageID == "" || event.SenderID == "" {
		return servererrs.ErrPermanent.WrapMsg("new_message missing required fields")
	}
	conversation, err := c.chatDB.TakeConversation(ctx, event.ConversationID)
	if err != nil {
		if servererrs.IsNotFound(err) {
			return servererrs.ErrPermanent.WrapMsg("conversation gone", "conversationID", event.ConversationID)
		}
		return err
	}
	recipients := event.Participants
	if len(recipients) == 0 {
		for _, userID := range conversation.Participants {
			if userID != event.SenderID {
				recipients = append(recipients, userID)
			}
		}
	}
	title := c.senderName(ctx, event.SenderID)
	body := constant.MessagePreview(event.Content, event.MessageType)
	return c.deliver(ctx, event, recipients, constant.NotificationNewMessage, title, body)
}

func (c *Consumer) handleGroupInvitation(ctx context.Context, event *pushevent.Event) error {
	if event.SenderID == "" || len(event.Participants) == 0 {
		return servererrs.ErrPermanent.WrapMsg("group_invitation missing required fields")
	}
	title := c.senderName(ctx, event.SenderID)
	body := "invited you to join " + event.GroupName
	return c.deliver(ctx, event, event.Participants, constant.NotificationGroupInvitation, title, body)
}

func (c *Consumer) handleFriendRequest(ctx context.Context, event *pushevent.Event) error {
	if event.SenderID == "" || len(event.Participants) == 0 {
		return servererrs.ErrPermanent.WrapMsg("friend_request missing required fields")
	}
	title := c.senderName(ctx, event.SenderID)
	return c.deliver(ctx, event, event.Participants, constant.NotificationFriendRequest, title, "sent you a friend request")
}

func (c *Consumer) handleConversationCreated(ctx context.Context, event *pushevent.Event) error {
	if event.ConversationID == "" || event.SenderID == "" || len(event.Participants) == 0 {
		return servererrs.ErrPermanent.WrapMsg("conversation_created missing required fields")
	}
	title := c.senderName(ctx, event.SenderID)
	var body string
	switch {
	case event.Content != "":
		body = constant.MessagePreview(event.Content, event.MessageType)
	case event.Event == constant.EventGroupConvCreated:
		body = "added you to " + event.GroupName
	default:
		body = "started a conversation with you"
	}
	return c.deliver(ctx, event, event.Participants, constant.NotificationConvCreated, title, body)
}

func (c *Consumer) senderName(ctx context.Context, senderID string) string {
	sender, err := c.chatDB.TakeUser(ctx, senderID)
	if err != nil || sender.Name == "" {
		return senderID
	}
	return sender.Name
}

// deliver records a notification row for every recipient and pushes to the
// devices of those who are offline and allow it. A transient failure for any
// recipient fails the whole event; the dedup notification id makes the
// replay harmless for the recipients that already succeeded.
func (c *Consumer) deliver(ctx context.Context, event *pushevent.Event, recipients []string, notifType, title, body string) error {
	data := map[string]string{
		"event":          event.Event,
		"conversationId": event.ConversationID,
		"messageId":      event.MessageID,
		"senderId":       event.SenderID,
	}

	var failed int
	for _, recipient := range recipients {
		if recipient == event.SenderID {
			continue
		}
		if _, err := c.pushDB.RecordNotification(ctx, &model.Notification{
			NotificationID: event.NotificationID(recipient),
			UserID:         recipient,
			Type:           notifType,
			Title:          title,
			Body:           body,
			Data:           data,
			CreatedAt:      time.Now(),
		}); err != nil {
			log.ZWarn(ctx, "record notification failed", err, "userID", recipient)
			failed++
			continue
		}
		if err := c.pushToUser(ctx, recipient, notifType, title, body, data); err != nil {
			log.ZWarn(ctx, "offline push failed", err, "userID", recipient)
			failed++
		}
	}
	if failed > 0 {
		return servererrs.ErrTransient.WrapMsg("delivery incomplete", "failed", failed, "recipients", len(recipients))
	}
	return nil
}

// pushToUser re-checks presence live (the user may have connected since
// enqueue), evaluates preferences and fans out to the user's devices.
func (c *Consumer) pushToUser(ctx context.Context, userID, notifType, title, body string, data map[string]string) error {
	user, err := c.chatDB.TakeUser(ctx, userID)
	if err != nil && !servererrs.IsNotFound(err) {
		return err
	}
	if err == nil && user.IsOnline {
		return nil
	}

	allowed, err := c.pushAllowed(ctx, userID, notifType)
	if err != nil {
		return err
	}
	if !allowed {
		return nil
	}

	tokens, err := c.pushDB.FindDeviceTokens(ctx, userID)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil
	}

	mobile := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if token.DeviceType == constant.DeviceTypeWeb && c.web != nil {
			if err := c.web.Publish(ctx, userID, title, body, data); err != nil {
				log.ZWarn(ctx, "web push failed", err, "userID", userID)
				prommetrics.OfflinePushFailedCounter.Inc()
			} else {
				prommetrics.OfflinePushSuccessCounter.Inc()
			}
			continue
		}
		mobile = append(mobile, token.Token)
	}
	if len(mobile) == 0 {
		return nil
	}

	result, err := c.pusher.Push(ctx, mobile, title, body, &options.Opts{Data: data})
	if err != nil {
		prommetrics.OfflinePushFailedCounter.Add(float64(len(mobile)))
		return err
	}
	prommetrics.OfflinePushSuccessCounter.Add(float64(result.Success))
	prommetrics.OfflinePushFailedCounter.Add(float64(result.Failed))
	for _, dead := range result.InvalidTokens {
		if err := c.pushDB.DeleteDeviceToken(ctx, userID, dead); err != nil {
			log.ZWarn(ctx, "delete invalid token failed", err, "userID", userID)
			continue
		}
		prommetrics.InvalidTokenReapedCounter.Inc()
	}
	return nil
}

// pushAllowed evaluates the preference gate: pushEnabled, then muteUntil,
// then the per-type flag. A missing preference doc allows everything.
func (c *Consumer) pushAllowed(ctx context.Context, userID, notifType string) (bool, error) {
	prefs, err := c.pushDB.TakePrefs(ctx, userID)
	if err != nil {
		return false, err
	}
	if !prefs.PushEnabled {
		return false, nil
	}
	if prefs.MuteUntil != nil && prefs.MuteUntil.After(time.Now()) {
		return false, nil
	}
	switch notifType {
	case constant.NotificationNewMessage, constant.NotificationConvCreated:
		return prefs.MessageNotifications, nil
	case constant.NotificationGroupInvitation:
		return prefs.GroupNotifications, nil
	case constant.NotificationFriendRequest:
		return prefs.FriendRequestNotifications, nil
	default:
		return prefs.SystemNotifications, nil
	}
}
