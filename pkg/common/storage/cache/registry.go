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

package cache

import (
	"context"
	"time"
)

// ConnMeta describes one WebSocket connection in the cross-instance
// registry.
type ConnMeta struct {
	InstanceID string    `json:"instanceId"`
	CreatedAt  time.Time `json:"createdAt"`
	IPAddress  string    `json:"ipAddress,omitempty"`
}

// ConnRegistry is the shared view of which users hold connections on which
// instances. It is best effort: the gateway treats its in-memory map as the
// truth for local delivery and uses the registry for global presence.
type ConnRegistry interface {
	Register(ctx context.Context, userID, connID string, meta ConnMeta) error
	Unregister(ctx context.Context, userID, connID string) error
	// ConnectionCount spans all instances; zero means globally offline.
	ConnectionCount(ctx context.Context, userID string) (int64, error)
	Connections(ctx context.Context, userID string) (map[string]ConnMeta, error)
	// RefreshPresence renews the expiry of the given users' connection
	// hashes. Called periodically by the instance serving the sockets, so
	// an instance that dies without unregistering stops counting once the
	// expiry lapses.
	RefreshPresence(ctx context.Context, userIDs []string) error
	// SetSubscriptions reconciles the instance's advertised channel set,
	// adding and removing only the difference.
	SetSubscriptions(ctx context.Context, instanceID string, channels []string) error
	GetSubscriptions(ctx context.Context, instanceID string) ([]string, error)
}
