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

package controller

import (
	"context"
	"time"

	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
	"github.com/chatwire/chatwire-server/pkg/common/storage/database"
	"github.com/chatwire/chatwire-server/pkg/common/storage/model"
)

// PushDatabase backs the notification consumer: durable notification rows,
// per-user preferences and device token bookkeeping.
type PushDatabase interface {
	// RecordNotification inserts the notification and, when the insert was
	// new, bumps the user's unread notification counter. Redelivered
	// events hit the unique notification_id index and change nothing.
	RecordNotification(ctx context.Context, notification *model.Notification) (inserted bool, err error)
	FindNotifications(ctx context.Context, userID string, limit int) ([]*model.Notification, error)
	MarkNotificationsRead(ctx context.Context, userID string, notificationIDs []string) error

	// TakePrefs never fails on a missing document; it returns the
	// everything-enabled default instead.
	TakePrefs(ctx context.Context, userID string) (*model.NotificationPref, error)
	SetPrefs(ctx context.Context, pref *model.NotificationPref) error

	FindDeviceTokens(ctx context.Context, userID string) ([]*model.DeviceToken, error)
	UpsertDeviceToken(ctx context.Context, token *model.DeviceToken) error
	// DeleteDeviceToken reaps a token FCM reported as unregistered.
	DeleteDeviceToken(ctx context.Context, userID, token string) error
}

func NewPushDatabase(
	notificationDB database.Notification,
	prefDB database.NotificationPref,
	tokenDB database.DeviceToken,
	userDB database.User,
) PushDatabase {
	return &pushDatabase{
		notificationDB: notificationDB,
		prefDB:         prefDB,
		tokenDB:        tokenDB,
		userDB:         userDB,
	}
}

type pushDatabase struct {
	notificationDB database.Notification
	prefDB         database.NotificationPref
	tokenDB        database.DeviceToken
	userDB         database.User
}

func (p *pushDatabase) RecordNotification(ctx context.Context, notification *model.Notification) (bool, error) {
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}
	inserted, err := p.notificationDB.Create(ctx, notification)
	if err != nil || !inserted {
		return false, err
	}
	if err := p.userDB.IncrUnreadNotifications(ctx, notification.UserID, 1); err != nil {
		return true, err
	}
	return true, nil
}

func (p *pushDatabase) FindNotifications(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	return p.notificationDB.Find(ctx, userID, limit)
}

func (p *pushDatabase) MarkNotificationsRead(ctx context.Context, userID string, notificationIDs []string) error {
	if err := p.notificationDB.MarkRead(ctx, userID, notificationIDs); err != nil {
		return err
	}
	return p.userDB.IncrUnreadNotifications(ctx, userID, -int64(len(notificationIDs)))
}

func (p *pushDatabase) TakePrefs(ctx context.Context, userID string) (*model.NotificationPref, error) {
	pref, err := p.prefDB.Take(ctx, userID)
	if err == nil {
		return pref, nil
	}
	if servererrs.IsNotFound(err) {
		return &model.NotificationPref{
			UserID:                     userID,
			PushEnabled:                true,
			MessageNotifications:       true,
			GroupNotifications:         true,
			FriendRequestNotifications: true,
			SystemNotifications:        true,
		}, nil
	}
	return nil, err
}

func (p *pushDatabase) SetPrefs(ctx context.Context, pref *model.NotificationPref) error {
	return p.prefDB.Set(ctx, pref)
}

func (p *pushDatabase) FindDeviceTokens(ctx context.Context, userID string) ([]*model.DeviceToken, error) {
	return p.tokenDB.FindByUser(ctx, userID)
}

func (p *pushDatabase) UpsertDeviceToken(ctx context.Context, token *model.DeviceToken) error {
	return p.tokenDB.Upsert(ctx, token)
}

func (p *pushDatabase) DeleteDeviceToken(ctx context.Context, userID, token string) error {
	return p.tokenDB.Delete(ctx, userID, token)
}
