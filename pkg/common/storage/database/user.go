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

type User interface {
	Take(ctx context.Context, userID string) (*model.User, error)
	Find(ctx context.Context, userIDs []string) ([]*model.User, error)
	// Upsert creates the user document when absent.
	Upsert(ctx context.Context, user *model.User) error
	SetOnline(ctx context.Context, userID string, online bool) error
	SetStatus(ctx context.Context, userID, status string) error
	// IncrUnreadNotifications bumps unread_notifications atomically.
	IncrUnreadNotifications(ctx context.Context, userID string, delta int64) error
}
