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
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/openimsdk/tools/utils/encrypt"
	"github.com/openimsdk/tools/utils/timeutil"
)

// UserConnContext carries one websocket handshake. It doubles as a
// context.Context so the connection's identifiers flow into logging.
type UserConnContext struct {
	RespWriter http.ResponseWriter
	Req        *http.Request
	Path       string
	Method     string
	RemoteAddr string
	ConnID     string
	UserID     string
}

func newContext(respWriter http.ResponseWriter, req *http.Request) *UserConnContext {
	remoteAddr := req.RemoteAddr
	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		remoteAddr += "_" + forwarded
	}
	return &UserConnContext{
		RespWriter: respWriter,
		Req:        req,
		Path:       req.URL.Path,
		Method:     req.Method,
		RemoteAddr: remoteAddr,
		ConnID:     encrypt.Md5(req.RemoteAddr + "_" + strconv.Itoa(int(timeutil.GetCurrentTimestampByMill()))),
		UserID:     pathUserID(req.URL.Path),
	}
}

// pathUserID extracts {userId} from /ws/{userId}.
func pathUserID(path string) string {
	trimmed := strings.TrimPrefix(strings.TrimSuffix(path, "/"), "/ws/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		trimmed = trimmed[:i]
	}
	return trimmed
}

func (c *UserConnContext) Deadline() (deadline time.Time, ok bool) { return }
func (c *UserConnContext) Done() <-chan struct{}                   { return nil }
func (c *UserConnContext) Err() error                              { return nil }

func (c *UserConnContext) Value(key any) any {
	switch key {
	case "opUserID":
		return c.UserID
	case "operationID":
		return c.ConnID
	case "connID":
		return c.ConnID
	case "remoteAddr":
		return c.RemoteAddr
	default:
		return nil
	}
}

func (c *UserConnContext) GetRemoteAddr() string {
	return c.RemoteAddr
}

// ClientIP is the address stored in the connection registry; the first
// X-Forwarded-For hop when present.
func (c *UserConnContext) ClientIP() string {
	if forwarded := c.Req.Header.Get("X-Forwarded-For"); forwarded != "" {
		if i := strings.IndexByte(forwarded, ','); i >= 0 {
			return strings.TrimSpace(forwarded[:i])
		}
		return strings.TrimSpace(forwarded)
	}
	host := c.Req.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}

func (c *UserConnContext) Query(key string) (string, bool) {
	value := c.Req.URL.Query().Get(key)
	return value, value != ""
}

func (c *UserConnContext) GetToken() string {
	return c.Req.URL.Query().Get(WsToken)
}

func (c *UserConnContext) GetCompression() bool {
	compression, _ := c.Query(WsCompression)
	if compression == GzipCompression {
		return true
	}
	return strings.Contains(c.Req.Header.Get(WebsocketProtocl), GzipCompression)
}

func (c *UserConnContext) GetDeviceType() string {
	deviceType, ok := c.Query(WsDeviceType)
	if !ok {
		return "web"
	}
	return deviceType
}

func (c *UserConnContext) GetConnID() string {
	return c.ConnID
}

func (c *UserConnContext) ErrReturn(error string, code int) {
	http.Error(c.RespWriter, error, code)
}
