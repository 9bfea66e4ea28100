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
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatwire/chatwire-server/pkg/common/storage/cache"
)

func TestConnRegistryRegister(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	reg := NewConnRegistry(rdb)

	meta := cache.ConnMeta{
		InstanceID: "i1",
		CreatedAt:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		IPAddress:  "10.0.0.1",
	}
	data, err := json.Marshal(meta)
	require.NoError(t, err)

	mock.ExpectHSet("connections:+84900000001", "conn1", string(data)).SetVal(1)
	mock.ExpectExpire("connections:+84900000001", presenceTTL).SetVal(true)
	require.NoError(t, reg.Register(context.Background(), "+84900000001", "conn1", meta))

	mock.ExpectHDel("connections:+84900000001", "conn1").SetVal(1)
	require.NoError(t, reg.Unregister(context.Background(), "+84900000001", "conn1"))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnRegistryRefreshPresence(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	reg := NewConnRegistry(rdb)

	mock.ExpectExpire("connections:+84900000001", presenceTTL).SetVal(true)
	mock.ExpectExpire("connections:+84900000002", presenceTTL).SetVal(true)
	require.NoError(t, reg.RefreshPresence(context.Background(), []string{"+84900000001", "+84900000002"}))

	// No round trip for an empty user set.
	require.NoError(t, reg.RefreshPresence(context.Background(), nil))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnRegistryConnectionCount(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	reg := NewConnRegistry(rdb)

	mock.ExpectHLen("connections:+84900000002").SetVal(2)
	n, err := reg.ConnectionCount(context.Background(), "+84900000002")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnRegistrySetSubscriptionsDiff(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	reg := NewConnRegistry(rdb)

	mock.ExpectSMembers("subscriptions:i1").SetVal([]string{"conversation:a", "conversation:b"})
	mock.ExpectSAdd("subscriptions:i1", "conversation:c").SetVal(1)
	mock.ExpectSRem("subscriptions:i1", "conversation:a").SetVal(1)

	err := reg.SetSubscriptions(context.Background(), "i1", []string{"conversation:b", "conversation:c"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
