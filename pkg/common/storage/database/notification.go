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

package database

import (
	"context"

	"github.com/chatwire/chatwire-server/pkg/common/storage/model"
)

type Notification interface {
	// Create inserts keyed by notification_id; duplicates are a no-op, so
	// at-least-once queue delivery yields at most one row per event.
	Create(ctx context.Context, notification *model.Notification) (inserted bool, err error)
	Find(ctx context.Context, userID string, limit int) ([]*model.Notification, error)
	MarkRead(ctx context.Context, userID string, notificationIDs []string) error
}

type NotificationPref interface {
	// Take returns ErrRecordNotFound for users without a preference doc;
	// callers treat that as everything-enabled.
	Take(ctx context.Context, userID string) (*model.NotificationPref, error)
	Set(ctx context.Context, pref *model.NotificationPref) error
}

type DeviceToken interface {
	FindByUser(ctx context.Context, userID string) ([]*model.DeviceToken, error)
	// Upsert is keyed by (user_id, token).
	Upsert(ctx context.Context, token *model.DeviceToken) error
	Delete(ctx context.Context, userID, token string) error
}
