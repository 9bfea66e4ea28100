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

// Package fcm pushes through Firebase Cloud Messaging.
package fcm

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/utils/httputil"
	"google.golang.org/api/option"

	"github.com/chatwire/chatwire-server/internal/push/offlinepush/options"
	"github.com/chatwire/chatwire-server/pkg/common/config"
)

// MulticastBatchLimit is FCM's hard cap on tokens per multicast request.
const MulticastBatchLimit = 500

type Fcm struct {
	client    *messaging.Client
	batchSize int
}

// NewClient builds the messaging client from either a service account key
// file or a URL serving the credentials JSON.
func NewClient(pushConf *config.Push) (*Fcm, error) {
	var opt option.ClientOption
	switch {
	case len(pushConf.FCM.FilePath) != 0:
		opt = option.WithCredentialsFile(pushConf.FCM.FilePath)
	case len(pushConf.FCM.AuthURL) != 0:
		client := httputil.NewHTTPClient(httputil.NewClientConfig())
		resp, err := client.Get(pushConf.FCM.AuthURL)
		if err != nil {
			return nil, err
		}
		opt = option.WithCredentialsJSON(resp)
	default:
		return nil, errs.New("no FCM credentials configured").Wrap()
	}

	ctx := context.Background()
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	batchSize := pushConf.FCM.BatchSize
	if batchSize <= 0 || batchSize > MulticastBatchLimit {
		batchSize = MulticastBatchLimit
	}
	return &Fcm{client: client, batchSize: batchSize}, nil
}

// Push multicasts the notification in batches. Tokens FCM reports as
// unregistered or malformed come back in Result.InvalidTokens; other
// per-token failures only count as failed sends.
func (f *Fcm) Push(ctx context.Context, tokens []string, title, content string, opts *options.Opts) (*options.Result, error) {
	result := &options.Result{}
	notification := &messaging.Notification{Title: title, Body: content}
	var data map[string]string
	if opts != nil {
		data = opts.Data
	}

	for start := 0; start < len(tokens); start += f.batchSize {
		end := start + f.batchSize
		if end > len(tokens) {
			end = len(tokens)
		}
		batch := tokens[start:end]
		resp, err := f.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens:       batch,
			Notification: notification,
			Data:         data,
		})
		if err != nil {
			return result, errs.WrapMsg(err, "fcm multicast failed", "tokens", len(batch))
		}
		result.Success += resp.SuccessCount
		result.Failed += resp.FailureCount
		for i, r := range resp.Responses {
			if r.Success || r.Error == nil {
				continue
			}
			if invalidTokenError(r.Error) {
				result.InvalidTokens = append(result.InvalidTokens, batch[i])
			}
		}
	}
	return result, nil
}

func invalidTokenError(err error) bool {
	return messaging.IsRegistrationTokenNotRegistered(err) ||
		messaging.IsInvalidArgument(err)
}
