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

	"github.com/gin-gonic/gin"

	"github.com/chatwire/chatwire-server/internal/msg"
	"github.com/chatwire/chatwire-server/pkg/apistruct"
	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
	"github.com/chatwire/chatwire-server/pkg/common/storage/model"
)

func (s *Server) sendMessage(c *gin.Context) {
	var req apistruct.SendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respError(c, servererrs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	sendReq := &msg.SendReq{
		ConversationID: c.Param("conversationID"),
		SenderID:       callerID(c),
		Content:        req.Content,
		MessageType:    req.MessageType,
	}
	if req.FileInfo != nil {
		sendReq.FileInfo = &model.FileInfo{
			URL:      req.FileInfo.URL,
			Name:     req.FileInfo.Name,
			Size:     req.FileInfo.Size,
			MimeType: req.FileInfo.MimeType,
		}
	}
	message, err := s.msg.SendMessage(c.Request.Context(), sendReq)
	if err != nil {
		respError(c, err)
		return
	}
	c.JSON(http.StatusCreated, apistruct.SendMessageResp{
		MessageID: message.MessageID,
		Timestamp: message.Timestamp,
		Status:    "sent",
	})
}

func (s *Server) listMessages(c *gin.Context) {
	pagination := queryPagination(c)
	total, messages, err := s.msg.GetMessages(c.Request.Context(), c.Param("conversationID"), callerID(c), pagination)
	if err != nil {
		respError(c, err)
		return
	}
	resp := apistruct.MessageListResp{
		Total:    total,
		Messages: make([]*apistruct.MessageResp, 0, len(messages)),
	}
	for _, message := range messages {
		resp.Messages = append(resp.Messages, toMessageResp(message))
	}
	respJSON(c, resp)
}

func (s *Server) markMessageRead(c *gin.Context) {
	err := s.msg.MarkMessageRead(c.Request.Context(), c.Param("conversationID"), c.Param("messageID"), callerID(c))
	if err != nil {
		respError(c, err)
		return
	}
	respJSON(c, gin.H{"status": "ok"})
}

func (s *Server) markAllRead(c *gin.Context) {
	read, err := s.msg.MarkConversationRead(c.Request.Context(), c.Param("conversationID"), callerID(c))
	if err != nil {
		respError(c, err)
		return
	}
	respJSON(c, apistruct.MarkAllReadResp{MessagesRead: read})
}

func (s *Server) setReaction(c *gin.Context) {
	var req apistruct.ReactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respError(c, servererrs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	emoji := ""
	if req.Reaction != nil {
		emoji = *req.Reaction
	}
	reactions, err := s.msg.SetReaction(c.Request.Context(), c.Param("conversationID"), c.Param("messageID"), callerID(c), emoji)
	if err != nil {
		respError(c, err)
		return
	}
	respJSON(c, gin.H{"reactions": reactions})
}
