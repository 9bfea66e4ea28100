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

// User is keyed by E.164 phone number.
type User struct {
	UserID              string    `bson:"user_id"`
	Name                string    `bson:"name,omitempty"`
	IsOnline            bool      `bson:"is_online"`
	Status              string    `bson:"status,omitempty"`
	LastActive          time.Time `bson:"last_active"`
	UnreadNotifications int64     `bson:"unread_notifications"`
	Disabled            bool      `bson:"disabled,omitempty"`
}
