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

package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/utils/datautil"
	"github.com/redis/go-redis/v9"

	"github.com/chatwire/chatwire-server/pkg/common/storage/cache"
	"github.com/chatwire/chatwire-server/pkg/common/storage/cache/cachekey"
)

// presenceTTL bounds how long a crashed instance keeps its users counted as
// online. Must comfortably exceed the gateway's refresh cadence
// (gateway.subscriptionSyncInterval).
const presenceTTL = 5 * time.Minute

func NewConnRegistry(rdb redis.UniversalClient) cache.ConnRegistry {
	return &connRegistry{rdb: rdb}
}

type connRegistry struct {
	rdb redis.UniversalClient
}

func (r *connRegistry) Register(ctx context.Context, userID, connID string, meta cache.ConnMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return errs.Wrap(err)
	}
	key := cachekey.GetConnectionsKey(userID)
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, key, connID, string(data))
	pipe.Expire(ctx, key, presenceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return errs.Wrap(err)
	}
	return nil
}

func (r *connRegistry) RefreshPresence(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	pipe := r.rdb.Pipeline()
	for _, userID := range userIDs {
		pipe.Expire(ctx, cachekey.GetConnectionsKey(userID), presenceTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errs.Wrap(err)
	}
	return nil
}

func (r *connRegistry) Unregister(ctx context.Context, userID, connID string) error {
	return errs.Wrap(r.rdb.HDel(ctx, cachekey.GetConnectionsKey(userID), connID).Err())
}

func (r *connRegistry) ConnectionCount(ctx context.Context, userID string) (int64, error) {
	n, err := r.rdb.HLen(ctx, cachekey.GetConnectionsKey(userID)).Result()
	if err != nil {
		return 0, errs.Wrap(err)
	}
	return n, nil
}

func (r *connRegistry) Connections(ctx context.Context, userID string) (map[string]cache.ConnMeta, error) {
	fields, err := r.rdb.HGetAll(ctx, cachekey.GetConnectionsKey(userID)).Result()
	if err != nil {
		return nil, errs.Wrap(err)
	}
	res := make(map[string]cache.ConnMeta, len(fields))
	for connID, raw := range fields {
		var meta cache.ConnMeta
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			// A corrupt field still counts as a connection; skip the
			// metadata rather than failing presence checks.
			res[connID] = cache.ConnMeta{}
			continue
		}
		res[connID] = meta
	}
	return res, nil
}

func (r *connRegistry) SetSubscriptions(ctx context.Context, instanceID string, channels []string) error {
	key := cachekey.GetSubscriptionsKey(instanceID)
	current, err := r.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return errs.Wrap(err)
	}
	add := datautil.SliceSub(channels, current)
	del := datautil.SliceSub(current, channels)
	pipe := r.rdb.Pipeline()
	if len(add) > 0 {
		pipe.SAdd(ctx, key, datautil.Slice(add, func(s string) any { return s })...)
	}
	if len(del) > 0 {
		pipe.SRem(ctx, key, datautil.Slice(del, func(s string) any { return s })...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errs.Wrap(err)
	}
	return nil
}

func (r *connRegistry) GetSubscriptions(ctx context.Context, instanceID string) ([]string, error) {
	channels, err := r.rdb.SMembers(ctx, cachekey.GetSubscriptionsKey(instanceID)).Result()
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return channels, nil
}
