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

package api

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/openimsdk/tools/mcontext"

	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
)

const (
	ctxUserIDKey  = "userID"
	ctxIsAdminKey = "isAdmin"

	operationIDHeader = "X-Operation-Id"
	proxyAuthHeader   = "X-Proxy-Authorization"
)

// operationID threads a per-request operation id through the request context
// so every log line of one request correlates.
func (s *Server) operationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		operationID := c.GetHeader(operationIDHeader)
		if operationID == "" {
			operationID = uuid.NewString()
		}
		c.Request = c.Request.WithContext(mcontext.SetOperationID(c.Request.Context(), operationID))
		c.Header(operationIDHeader, operationID)
		c.Next()
	}
}

// auth requires a bearer token and stashes the verified identity on the
// gin context. DEV environments accept a bare phone number as token.
func (s *Server) auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		claims, err := s.verifier.Verify(token)
		if err != nil {
			respError(c, err)
			return
		}
		userID := claims.UserID
		c.Set(ctxUserIDKey, userID)
		c.Set(ctxIsAdminKey, s.verifier.IsAdmin(userID))
		c.Request = c.Request.WithContext(mcontext.SetOpUserID(c.Request.Context(), userID))
		c.Next()
	}
}

// requireAdmin gates the maintenance surface: a configured admin identity or
// the internal proxy shared secret.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetBool(ctxIsAdminKey) || s.verifier.CheckProxyAuth(c.GetHeader(proxyAuthHeader)) {
			c.Next()
			return
		}
		respError(c, servererrs.ErrNoPermission.WrapMsg("admin only"))
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}

func callerID(c *gin.Context) string {
	return c.GetString(ctxUserIDKey)
}
