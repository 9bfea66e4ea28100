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
	"bytes"
	"compress/gzip"
	"io"
	"sync"

	"github.com/openimsdk/tools/errs"
)

var (
	gzipWriterPool = sync.Pool{New: func() any { return gzip.NewWriter(nil) }}
	gzipReaderPool = sync.Pool{New: func() any { return new(gzip.Reader) }}
)

// Compressor shrinks frames for clients that negotiated compression on the
// handshake. The pooled variants are the hot path.
type Compressor interface {
	Compress(rawData []byte) ([]byte, error)
	CompressWithPool(rawData []byte) ([]byte, error)
	DeCompress(compressedData []byte) ([]byte, error)
	DecompressWithPool(compressedData []byte) ([]byte, error)
}

type GzipCompressor struct{}

func NewGzipCompressor() *GzipCompressor {
	return &GzipCompressor{}
}

func (g *GzipCompressor) Compress(rawData []byte) ([]byte, error) {
	gzipBuffer := bytes.Buffer{}
	gz := gzip.NewWriter(&gzipBuffer)
	if _, err := gz.Write(rawData); err != nil {
		return nil, errs.WrapMsg(err, "gzip write failed")
	}
	if err := gz.Close(); err != nil {
		return nil, errs.WrapMsg(err, "gzip close failed")
	}
	return gzipBuffer.Bytes(), nil
}

func (g *GzipCompressor) CompressWithPool(rawData []byte) ([]byte, error) {
	gz := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(gz)

	gzipBuffer := bytes.Buffer{}
	gz.Reset(&gzipBuffer)
	if _, err := gz.Write(rawData); err != nil {
		return nil, errs.WrapMsg(err, "pooled gzip write failed")
	}
	if err := gz.Close(); err != nil {
		return nil, errs.WrapMsg(err, "pooled gzip close failed")
	}
	return gzipBuffer.Bytes(), nil
}

func (g *GzipCompressor) DeCompress(compressedData []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewBuffer(compressedData))
	if err != nil {
		return nil, errs.WrapMsg(err, "gzip reader creation failed")
	}
	decompressedData, err := io.ReadAll(reader)
	if err != nil {
		return nil, errs.WrapMsg(err, "gzip read failed")
	}
	if err = reader.Close(); err != nil {
		// The data is already read; report the close failure alongside it.
		return decompressedData, errs.WrapMsg(err, "gzip reader close failed")
	}
	return decompressedData, nil
}

func (g *GzipCompressor) DecompressWithPool(compressedData []byte) ([]byte, error) {
	reader := gzipReaderPool.Get().(*gzip.Reader)
	defer gzipReaderPool.Put(reader)

	if err := reader.Reset(bytes.NewReader(compressedData)); err != nil {
		return nil, errs.WrapMsg(err, "pooled gzip reader reset failed")
	}
	decompressedData, err := io.ReadAll(reader)
	if err != nil {
		return nil, errs.WrapMsg(err, "pooled gzip read failed")
	}
	if err = reader.Close(); err != nil {
		return decompressedData, errs.WrapMsg(err, "pooled gzip reader close failed")
	}
	return decompressedData, nil
}
