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

package msggateway

import (
	"crypto/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomPayload(t *testing.T, n int) []byte {
	t.Helper()
	data := make([]byte, n)
	_, err := rand.Read(data)
	require.NoError(t, err)
	return data
}

func TestCompressDecompress(t *testing.T) {
	compressor := NewGzipCompressor()
	for i := 0; i < 100; i++ {
		src := randomPayload(t, 256)
		dest, err := compressor.CompressWithPool(src)
		require.NoError(t, err)
		res, err := compressor.DecompressWithPool(dest)
		require.NoError(t, err)
		assert.EqualValues(t, src, res)
	}
}

func TestCompressDecompressWithConcurrency(t *testing.T) {
	compressor := NewGzipCompressor()
	var wg sync.WaitGroup
	wg.Add(200)
	for i := 0; i < 200; i++ {
		go func() {
			defer wg.Done()
			src := randomPayload(t, 256)
			dest, err := compressor.CompressWithPool(src)
			assert.NoError(t, err)
			res, err := compressor.DecompressWithPool(dest)
			assert.NoError(t, err)
			assert.EqualValues(t, src, res)
		}()
	}
	wg.Wait()
}

func TestUnpooledMatchesPooled(t *testing.T) {
	compressor := NewGzipCompressor()
	src := randomPayload(t, 1024)

	plain, err := compressor.Compress(src)
	require.NoError(t, err)
	res, err := compressor.DecompressWithPool(plain)
	require.NoError(t, err)
	assert.EqualValues(t, src, res)

	pooled, err := compressor.CompressWithPool(src)
	require.NoError(t, err)
	res, err = compressor.DeCompress(pooled)
	require.NoError(t, err)
	assert.EqualValues(t, src, res)
}
