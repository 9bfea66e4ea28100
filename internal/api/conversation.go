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
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chatwire/chatwire-server/internal/conversation"
	"github.com/chatwire/chatwire-server/pkg/apistruct"
	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
)

func (s *Server) health(c *gin.Context) {
	respJSON(c, apistruct.HealthResp{Status: "ok", Version: Version})
}

func (s *Server) whoami(c *gin.Context) {
	respJSON(c, apistruct.WhoamiResp{UserID: callerID(c), IsAdmin: c.GetBool(ctxIsAdminKey)})
}

func (s *Server) createConversation(c *gin.Context) {
	var req apistruct.CreateConversationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respError(c, servererrs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	conv, _, err := s.conv.Create(c.Request.Context(), &conversation.CreateReq{
		CreatorID:      callerID(c),
		Type:           req.Type,
		Name:           req.Name,
		Participants:   req.Participants,
		InitialMessage: req.InitialMessage,
		Metadata:       req.Metadata,
	})
	if err != nil {
		respError(c, err)
		return
	}
	// Creation and direct get-or-create answer alike: repeating the same
	// direct body yields the same conversation with the same status.
	c.JSON(http.StatusOK, toConversationResp(conv, nil))
}

func (s *Server) listConversations(c *gin.Context) {
	pagination := queryPagination(c)
	unreadOnly := c.Query("unread_only") == "true"
	total, conversations, stats, err := s.conv.List(c.Request.Context(), callerID(c), c.Query("type"), unreadOnly, pagination)
	if err != nil {
		respError(c, err)
		return
	}
	resp := apistruct.ConversationListResp{
		Total:         total,
		Conversations: make([]*apistruct.ConversationResp, 0, len(conversations)),
	}
	for _, conv := range conversations {
		resp.Conversations = append(resp.Conversations, toConversationResp(conv, stats[conv.ConversationID]))
	}
	respJSON(c, resp)
}

func (s *Server) getConversation(c *gin.Context) {
	conv, stats, err := s.conv.Get(c.Request.Context(), c.Param("conversationID"), callerID(c))
	if err != nil {
		respError(c, err)
		return
	}
	respJSON(c, toConversationResp(conv, stats))
}

func (s *Server) updateConversation(c *gin.Context) {
	var req apistruct.UpdateConversationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respError(c, servererrs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	conversationID := c.Param("conversationID")
	err := s.conv.Update(c.Request.Context(), conversationID, callerID(c), &conversation.UpdateReq{
		Name:        req.Name,
		Description: req.Description,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		respError(c, err)
		return
	}
	conv, stats, err := s.conv.Get(c.Request.Context(), conversationID, callerID(c))
	if err != nil {
		respError(c, err)
		return
	}
	respJSON(c, toConversationResp(conv, stats))
}

func (s *Server) addMembers(c *gin.Context) {
	var req apistruct.AddMembersReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respError(c, servererrs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	if err := s.conv.AddMembers(c.Request.Context(), c.Param("conversationID"), callerID(c), req.Members); err != nil {
		respError(c, err)
		return
	}
	respJSON(c, gin.H{"status": "ok"})
}

func (s *Server) typing(c *gin.Context) {
	if err := s.conv.Typing(c.Request.Context(), c.Param("conversationID"), callerID(c)); err != nil {
		respError(c, err)
		return
	}
	respJSON(c, gin.H{"status": "ok"})
}

// queryPagination reads ?page= and ?size=; services clamp the values to
// their own bounds.
func queryPagination(c *gin.Context) apistruct.Pagination {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "0"))
	return apistruct.Pagination{PageNumber: int32(page), ShowNumber: int32(size)}
}
