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
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chatwire/chatwire-server/pkg/apistruct"
	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
	"github.com/chatwire/chatwire-server/pkg/common/storage/model"
)

const notificationListMax = 100

func (s *Server) listNotifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > notificationListMax {
		limit = notificationListMax
	}
	notifications, err := s.pushDB.FindNotifications(c.Request.Context(), callerID(c), limit)
	if err != nil {
		respError(c, err)
		return
	}
	resp := make([]*apistruct.NotificationResp, 0, len(notifications))
	for _, notification := range notifications {
		resp = append(resp, toNotificationResp(notification))
	}
	respJSON(c, gin.H{"notifications": resp})
}

func (s *Server) markNotificationsRead(c *gin.Context) {
	var req apistruct.MarkNotificationsReadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respError(c, servererrs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	if err := s.pushDB.MarkNotificationsRead(c.Request.Context(), callerID(c), req.NotificationIDs); err != nil {
		respError(c, err)
		return
	}
	respJSON(c, gin.H{"status": "ok"})
}

func (s *Server) getNotificationPrefs(c *gin.Context) {
	prefs, err := s.pushDB.TakePrefs(c.Request.Context(), callerID(c))
	if err != nil {
		respError(c, err)
		return
	}
	respJSON(c, toPrefsResp(prefs))
}

func (s *Server) setNotificationPrefs(c *gin.Context) {
	var req apistruct.NotificationPrefsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respError(c, servererrs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	prefs := &model.NotificationPref{
		UserID:                     callerID(c),
		PushEnabled:                req.PushEnabled,
		MessageNotifications:       req.MessageNotifications,
		GroupNotifications:         req.GroupNotifications,
		FriendRequestNotifications: req.FriendRequestNotifications,
		SystemNotifications:        req.SystemNotifications,
		MuteUntil:                  req.MuteUntil,
	}
	if err := s.pushDB.SetPrefs(c.Request.Context(), prefs); err != nil {
		respError(c, err)
		return
	}
	respJSON(c, toPrefsResp(prefs))
}

func toPrefsResp(prefs *model.NotificationPref) apistruct.NotificationPrefsReq {
	return apistruct.NotificationPrefsReq{
		PushEnabled:                prefs.PushEnabled,
		MessageNotifications:       prefs.MessageNotifications,
		GroupNotifications:         prefs.GroupNotifications,
		FriendRequestNotifications: prefs.FriendRequestNotifications,
		SystemNotifications:        prefs.SystemNotifications,
		MuteUntil:                  prefs.MuteUntil,
	}
}
