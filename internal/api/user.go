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
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chatwire/chatwire-server/pkg/apistruct"
	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
	"github.com/chatwire/chatwire-server/pkg/common/storage/model"
)

func (s *Server) setUserStatus(c *gin.Context) {
	var req apistruct.StatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respError(c, servererrs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	if err := s.msg.SetUserStatus(c.Request.Context(), callerID(c), req.Status); err != nil {
		respError(c, err)
		return
	}
	respJSON(c, gin.H{"status": req.Status})
}

func (s *Server) registerDeviceToken(c *gin.Context) {
	var req apistruct.DeviceTokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respError(c, servererrs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	err := s.pushDB.UpsertDeviceToken(c.Request.Context(), &model.DeviceToken{
		UserID:      callerID(c),
		Token:       req.Token,
		DeviceType:  req.DeviceType,
		LastUpdated: time.Now().UTC(),
	})
	if err != nil {
		respError(c, err)
		return
	}
	respJSON(c, gin.H{"status": "ok"})
}

func (s *Server) deleteDeviceToken(c *gin.Context) {
	if err := s.pushDB.DeleteDeviceToken(c.Request.Context(), callerID(c), c.Param("token")); err != nil {
		respError(c, err)
		return
	}
	respJSON(c, gin.H{"status": "ok"})
}
