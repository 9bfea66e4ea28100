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

// Package offlinepush abstracts the device push providers behind one
// interface so the consumer never talks to FCM or SNS directly.
package offlinepush

import (
	"context"

	"github.com/chatwire/chatwire-server/internal/push/offlinepush/dummy"
	"github.com/chatwire/chatwire-server/internal/push/offlinepush/fcm"
	"github.com/chatwire/chatwire-server/internal/push/offlinepush/options"
	"github.com/chatwire/chatwire-server/pkg/common/config"
)

const firebase = "fcm"

// OfflinePusher sends one notification to a set of device tokens.
type OfflinePusher interface {
	Push(ctx context.Context, tokens []string, title, content string, opts *options.Opts) (*options.Result, error)
}

// NewOfflinePusher selects the provider by config; anything unrecognized
// falls back to the dummy pusher so a misconfigured consumer still drains
// its queues.
func NewOfflinePusher(pushConf *config.Push) (OfflinePusher, error) {
	switch pushConf.Enable {
	case firebase:
		return fcm.NewClient(pushConf)
	default:
		return dummy.NewClient(), nil
	}
}
