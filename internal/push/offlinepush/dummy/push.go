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

// Package dummy is the development pusher: it logs instead of sending.
package dummy

import (
	"context"

	"github.com/openimsdk/tools/log"

	"github.com/chatwire/chatwire-server/internal/push/offlinepush/options"
)

func NewClient() *Dummy {
	return &Dummy{}
}

type Dummy struct{}

func (d *Dummy) Push(ctx context.Context, tokens []string, title, content string, opts *options.Opts) (*options.Result, error) {
	log.ZDebug(ctx, "dummy push", "tokens", len(tokens), "title", title, "content", content)
	return &options.Result{Success: len(tokens)}, nil
}
