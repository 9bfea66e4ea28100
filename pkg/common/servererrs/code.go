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

package servererrs

// Error codes carried by CodeError. The API layer maps them onto HTTP
// statuses; the consumer maps them onto retry decisions.
const (
	ValidationError  = 1001 // 400
	AuthError        = 1002 // 401
	ForbiddenError   = 1003 // 403
	NotFoundError    = 1004 // 404
	ConflictError    = 1005 // 409, reserved
	UnavailableError = 1006 // 503
	InternalError    = 1500 // 500

	// Consumer-side kinds. Never surfaced over HTTP.
	TransientError    = 2001 // retry
	PermanentError    = 2002 // drop or dead-letter
	TokenInvalidError = 2003 // delete device token, continue
)
