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

// Package cachekey centralizes the redis key layout so every instance of the
// service agrees on it.
package cachekey

const (
	connectionsKey   = "connections:"
	subscriptionsKey = "subscriptions:"
)

// GetConnectionsKey is the hash of a user's live connections across all
// instances: field = connection id, value = connection metadata JSON.
func GetConnectionsKey(userID string) string {
	return connectionsKey + userID
}

// GetSubscriptionsKey is the set of bus channels an instance is subscribed
// to, kept for observability and crash diagnosis.
func GetSubscriptionsKey(instanceID string) string {
	return subscriptionsKey + instanceID
}
