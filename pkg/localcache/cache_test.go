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

package localcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheReadThrough(t *testing.T) {
	ctx := context.Background()
	c := New[[]string](8, time.Minute)

	calls := 0
	fetch := func(ctx context.Context) ([]string, error) {
		calls++
		return []string{"+84900000001", "+84900000002"}, nil
	}

	v, err := c.Get(ctx, "c1", fetch)
	require.NoError(t, err)
	assert.Len(t, v, 2)

	_, err = c.Get(ctx, "c1", fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	c.Del("c1")
	_, err = c.Get(ctx, "c1", fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCacheFetchErrorNotCached(t *testing.T) {
	ctx := context.Background()
	c := New[string](8, time.Minute)

	boom := errors.New("store down")
	_, err := c.Get(ctx, "k", func(ctx context.Context) (string, error) { return "", boom })
	require.ErrorIs(t, err, boom)

	v, err := c.Get(ctx, "k", func(ctx context.Context) (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}
