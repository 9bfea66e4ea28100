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

import "time"

// Query parameters of GET /ws/{userId}.
const (
	WsToken          = "token"
	WsCompression    = "compression"
	WsDeviceType     = "deviceType"
	GzipCompression  = "gzip"
	WebsocketProtocl = "Sec-WebSocket-Protocol"
)

// Application close codes sent before rejecting a handshake.
const (
	CloseCodeInvalidToken   = 4001
	CloseCodeUserIDMismatch = 4002
	CloseCodeUserDisabled   = 4003
)

const (
	// maxMessageSize bounds a single inbound frame.
	maxMessageSize = 8192

	// writeWait is the per-frame write deadline.
	writeWait = 10 * time.Second

	// pongWait is how long a socket may stay silent before the read
	// loop gives up on it.
	pongWait = 30 * time.Second

	// pingPeriod must be shorter than pongWait so the peer always has a
	// ping to answer before the deadline.
	pingPeriod = (pongWait * 9) / 10
)
