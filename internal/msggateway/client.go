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
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/log"

	"github.com/chatwire/chatwire-server/pkg/common/constant"
	"github.com/chatwire/chatwire-server/pkg/pubsub"
)

var (
	ErrConnClosed   = errs.New("conn has closed")
	ErrClientClosed = errs.New("client actively close the connection")
	ErrPanic        = errs.New("panic error")
)

// Websocket frame types per RFC 6455.
const (
	MessageText = iota + 1
	MessageBinary
	CloseMessage = 8
	PingMessage  = 9
	PongMessage  = 10
)

// Client is one live websocket. Its read loop is the only reader; writes go
// through writeMessage under the send mutex so concurrent frames never
// interleave.
type Client struct {
	w              *sync.Mutex
	conn           LongConn
	ctx            *UserConnContext
	longConnServer LongConnServer

	UserID     string `json:"userID"`
	ConnID     string `json:"connID"`
	DeviceType string `json:"deviceType"`
	IsCompress bool   `json:"isCompress"`

	closed    atomic.Bool
	closedErr error
	hbCtx     context.Context
	hbCancel  context.CancelFunc
}

// ResetClient readies a pooled Client for a fresh connection.
func (c *Client) ResetClient(ctx *UserConnContext, conn LongConn, longConnServer LongConnServer) {
	c.w = new(sync.Mutex)
	c.conn = conn
	c.ctx = ctx
	c.longConnServer = longConnServer
	c.UserID = ctx.UserID
	c.ConnID = ctx.GetConnID()
	c.DeviceType = ctx.GetDeviceType()
	c.IsCompress = ctx.GetCompression()
	c.closed.Store(false)
	c.closedErr = nil
	c.hbCtx, c.hbCancel = context.WithCancel(c.ctx)
}

func (c *Client) pingHandler(appData string) error {
	if err := c.conn.SetReadDeadline(pongWait); err != nil {
		return err
	}
	return c.writePongMsg(appData)
}

func (c *Client) pongHandler(_ string) error {
	return c.conn.SetReadDeadline(pongWait)
}

func (c *Client) readMessage() {
	defer func() {
		if r := recover(); r != nil {
			c.closedErr = ErrPanic
			log.ZPanic(c.ctx, "socket read loop panic", errs.ErrPanic(r))
		}
		c.close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(pongWait)
	c.conn.SetPongHandler(c.pongHandler)
	c.conn.SetPingHandler(c.pingHandler)
	c.activeHeartbeat()

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			c.closedErr = err
			return
		}
		if c.closed.Load() {
			c.closedErr = ErrConnClosed
			return
		}
		switch messageType {
		case MessageText:
			_ = c.conn.SetReadDeadline(pongWait)
			c.handleTextFrame(message)
		case PingMessage:
			if err := c.writePongMsg(""); err != nil {
				log.ZWarn(c.ctx, "write pong failed", err)
			}
		case CloseMessage:
			c.closedErr = ErrClientClosed
			return
		default:
			// Binary frames are not part of the protocol; ignore.
		}
	}
}

// handleTextFrame parses one client frame and routes it. A malformed frame
// is logged and dropped; it never closes the socket.
func (c *Client) handleTextFrame(message []byte) {
	if c.IsCompress {
		decompressed, err := c.longConnServer.DecompressWithPool(message)
		if err != nil {
			log.ZWarn(c.ctx, "drop undecompressable frame", err, "userID", c.UserID)
			return
		}
		message = decompressed
	}
	event, err := pubsub.DecodeEvent(message)
	if err != nil {
		log.ZWarn(c.ctx, "drop unparsable frame", err, "userID", c.UserID)
		return
	}
	if event.Event == constant.EventHeartbeat {
		if err := c.WriteEvent(&pubsub.Event{Event: constant.EventHeartbeatAck}); err != nil {
			log.ZWarn(c.ctx, "heartbeat ack failed", err, "userID", c.UserID)
		}
		return
	}
	c.longConnServer.HandleClientFrame(c.ctx, c, event)
}

func (c *Client) close() {
	c.w.Lock()
	defer c.w.Unlock()
	if c.closed.Load() {
		return
	}
	c.closed.Store(true)
	c.conn.Close()
	c.hbCancel()
	c.longConnServer.UnRegister(c)
}

// WriteEvent serializes the event onto the socket. Errors mark the socket
// dead; the caller removes it.
func (c *Client) WriteEvent(event *pubsub.Event) error {
	if c.closed.Load() {
		return ErrConnClosed
	}
	data, err := event.Encode()
	if err != nil {
		return err
	}
	c.w.Lock()
	defer c.w.Unlock()
	if err := c.conn.SetWriteDeadline(writeWait); err != nil {
		return err
	}
	if c.IsCompress {
		compressed, err := c.longConnServer.CompressWithPool(data)
		if err != nil {
			return err
		}
		return c.conn.WriteMessage(MessageText, compressed)
	}
	return c.conn.WriteMessage(MessageText, data)
}

// activeHeartbeat pings web clients, whose browsers cannot originate
// websocket pings themselves.
func (c *Client) activeHeartbeat() {
	if c.DeviceType != constant.DeviceTypeWeb {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.ZPanic(c.hbCtx, "active heartbeat panic", errs.ErrPanic(r))
			}
		}()
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := c.writePingMsg(); err != nil {
					log.ZWarn(c.ctx, "send ping failed", err, "userID", c.UserID)
					return
				}
			case <-c.hbCtx.Done():
				return
			}
		}
	}()
}

func (c *Client) writePingMsg() error {
	if c.closed.Load() {
		return nil
	}
	c.w.Lock()
	defer c.w.Unlock()
	if err := c.conn.SetWriteDeadline(writeWait); err != nil {
		return err
	}
	return c.conn.WriteMessage(PingMessage, nil)
}

func (c *Client) writePongMsg(appData string) error {
	if c.closed.Load() {
		return nil
	}
	c.w.Lock()
	defer c.w.Unlock()
	if err := c.conn.SetWriteDeadline(writeWait); err != nil {
		return errs.Wrap(err)
	}
	return errs.Wrap(c.conn.WriteMessage(PongMessage, []byte(appData)))
}
