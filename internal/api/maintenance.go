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
	"github.com/gin-gonic/gin"

	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
)

// recomputeUnread rebuilds the caller's unread counter for one conversation
// from the messages themselves.
func (s *Server) recomputeUnread(c *gin.Context) {
	conversationID := c.Query("conversation_id")
	if conversationID == "" {
		respError(c, servererrs.ErrArgs.WrapMsg("conversation_id is required"))
		return
	}
	unread, err := s.msg.RecomputeUnread(c.Request.Context(), conversationID, callerID(c))
	if err != nil {
		respError(c, err)
		return
	}
	respJSON(c, gin.H{"conversationId": conversationID, "unreadCount": unread})
}

func (s *Server) findInconsistencies(c *gin.Context) {
	drifted, err := s.msg.FindInconsistencies(c.Request.Context())
	if err != nil {
		respError(c, err)
		return
	}
	respJSON(c, gin.H{"inconsistencies": drifted, "count": len(drifted)})
}

func (s *Server) repairAllUnread(c *gin.Context) {
	repaired, err := s.msg.RepairAllUnread(c.Request.Context())
	if err != nil {
		respError(c, err)
		return
	}
	respJSON(c, gin.H{"repaired": repaired})
}
