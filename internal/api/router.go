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

// Package api serves the REST surface under /api/v1. Handlers bind and
// authorize, then delegate to the conversation and message services; domain
// errors map onto HTTP statuses in resp.go.
package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/chatwire/chatwire-server/internal/conversation"
	"github.com/chatwire/chatwire-server/internal/msg"
	"github.com/chatwire/chatwire-server/pkg/common/authverify"
	"github.com/chatwire/chatwire-server/pkg/common/config"
	"github.com/chatwire/chatwire-server/pkg/common/storage/controller"
)

// Version is reported by GET /health.
const Version = "1.0.0"

type Server struct {
	conf     *config.Config
	verifier *authverify.TokenVerifier
	conv     *conversation.Service
	msg      *msg.Service
	pushDB   controller.PushDatabase
}

func NewServer(
	conf *config.Config,
	verifier *authverify.TokenVerifier,
	conv *conversation.Service,
	msgSvc *msg.Service,
	pushDB controller.PushDatabase,
) *Server {
	return &Server{
		conf:     conf,
		verifier: verifier,
		conv:     conv,
		msg:      msgSvc,
		pushDB:   pushDB,
	}
}

// Engine builds the gin engine with all routes registered.
func (s *Server) Engine() *gin.Engine {
	if !s.conf.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), gzip.Gzip(gzip.DefaultCompression), s.operationID())

	// Health sits at the root, outside the versioned prefix, so load
	// balancers and probes need no auth header and no API version.
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1", s.auth())
	{
		v1.GET("/whoami", s.whoami)

		v1.GET("/conversations", s.listConversations)
		v1.POST("/conversations", s.createConversation)
		v1.GET("/conversations/:conversationID", s.getConversation)
		v1.PUT("/conversations/:conversationID", s.updateConversation)
		v1.POST("/conversations/:conversationID/members", s.addMembers)
		v1.POST("/conversations/:conversationID/typing", s.typing)

		v1.GET("/conversations/:conversationID/messages", s.listMessages)
		v1.POST("/conversations/:conversationID/messages", s.sendMessage)
		v1.POST("/conversations/:conversationID/messages/:messageID/read", s.markMessageRead)
		v1.POST("/conversations/:conversationID/mark_all_read", s.markAllRead)
		v1.POST("/conversations/:conversationID/messages/:messageID/reactions", s.setReaction)

		v1.POST("/user/status", s.setUserStatus)

		v1.GET("/notifications", s.listNotifications)
		v1.POST("/notifications/mark_read", s.markNotificationsRead)
		v1.GET("/notifications/preferences", s.getNotificationPrefs)
		v1.PUT("/notifications/preferences", s.setNotificationPrefs)
		v1.POST("/device_tokens", s.registerDeviceToken)
		v1.DELETE("/device_tokens/:token", s.deleteDeviceToken)

		maintenance := v1.Group("/maintenance")
		maintenance.POST("/recompute_unread", s.recomputeUnread)
		maintenance.POST("/find_inconsistencies", s.requireAdmin(), s.findInconsistencies)
		maintenance.POST("/repair_all_unread_counts", s.requireAdmin(), s.repairAllUnread)
	}
	return r
}
