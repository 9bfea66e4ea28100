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
	"time"

	"github.com/gorilla/websocket"
	"github.com/openimsdk/tools/errs"
)

type PingPongHandler func(string) error

// LongConn hides the websocket library behind the small surface the client
// loop needs, so tests can substitute a fake.
type LongConn interface {
	Close() error
	WriteMessage(messageType int, message []byte) error
	ReadMessage() (int, []byte, error)
	SetReadDeadline(timeout time.Duration) error
	SetWriteDeadline(timeout time.Duration) error
	SetReadLimit(limit int64)
	SetPongHandler(handler PingPongHandler)
	SetPingHandler(handler PingPongHandler)
	// WriteClose sends an application close frame (4001..4003) and shuts
	// the connection down.
	WriteClose(code int, reason string) error
	// Upgrade turns the HTTP request into a websocket connection.
	Upgrade(w http.ResponseWriter, r *http.Request) error
}

type GWebSocket struct {
	conn             *websocket.Conn
	handshakeTimeout time.Duration
	writeBufferSize  int
}

func newGWebSocket(handshakeTimeout time.Duration, writeBufferSize int) *GWebSocket {
	return &GWebSocket{handshakeTimeout: handshakeTimeout, writeBufferSize: writeBufferSize}
}

func (d *GWebSocket) Upgrade(w http.ResponseWriter, r *http.Request) error {
	upgrader := &websocket.Upgrader{
		HandshakeTimeout: d.handshakeTimeout,
		CheckOrigin:      func(r *http.Request) bool { return true },
	}
	if d.writeBufferSize > 0 {
		upgrader.WriteBufferSize = d.writeBufferSize
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return errs.WrapMsg(err, "websocket upgrade failed")
	}
	d.conn = conn
	return nil
}

func (d *GWebSocket) Close() error {
	return d.conn.Close()
}

func (d *GWebSocket) WriteMessage(messageType int, message []byte) error {
	return d.conn.WriteMessage(messageType, message)
}

func (d *GWebSocket) ReadMessage() (int, []byte, error) {
	return d.conn.ReadMessage()
}

func (d *GWebSocket) SetReadDeadline(timeout time.Duration) error {
	return d.conn.SetReadDeadline(time.Now().Add(timeout))
}

func (d *GWebSocket) SetWriteDeadline(timeout time.Duration) error {
	if timeout <= 0 {
		return errs.New("timeout must be greater than 0")
	}
	if err := d.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return errs.WrapMsg(err, "SetWriteDeadline failed")
	}
	return nil
}

func (d *GWebSocket) SetReadLimit(limit int64) {
	d.conn.SetReadLimit(limit)
}

func (d *GWebSocket) SetPongHandler(handler PingPongHandler) {
	d.conn.SetPongHandler(handler)
}

func (d *GWebSocket) SetPingHandler(handler PingPongHandler) {
	d.conn.SetPingHandler(handler)
}

func (d *GWebSocket) WriteClose(code int, reason string) error {
	data := websocket.FormatCloseMessage(code, reason)
	_ = d.conn.WriteControl(websocket.CloseMessage, data, time.Now().Add(writeWait))
	return d.conn.Close()
}
