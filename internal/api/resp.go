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
	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/log"

	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
)

// errorDetail is the only error body shape the API emits. Internals never
// leak: anything without a known code collapses to a generic 500.
type errorDetail struct {
	Detail string `json:"detail"`
}

func respError(c *gin.Context, err error) {
	unwrapped := errs.Unwrap(err)
	codeErr, ok := unwrapped.(errs.CodeError)
	if !ok {
		log.ZError(c.Request.Context(), "request failed with uncoded error", err,
			"method", c.Request.Method, "path", c.Request.URL.Path)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorDetail{Detail: "internal server error"})
		return
	}
	status := servererrs.HTTPStatus(codeErr.Code())
	if status >= http.StatusInternalServerError {
		log.ZError(c.Request.Context(), "request failed", err,
			"method", c.Request.Method, "path", c.Request.URL.Path, "code", codeErr.Code())
		c.AbortWithStatusJSON(status, errorDetail{Detail: "internal server error"})
		return
	}
	log.ZDebug(c.Request.Context(), "request rejected",
		"method", c.Request.Method, "path", c.Request.URL.Path, "code", codeErr.Code(), "detail", codeErr.Msg())
	c.AbortWithStatusJSON(status, errorDetail{Detail: codeErr.Msg()})
}

func respJSON(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}
