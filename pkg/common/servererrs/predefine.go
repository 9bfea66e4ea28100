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

import (
	"errors"

	"github.com/openimsdk/tools/errs"
	"go.mongodb.org/mongo-driver/mongo"
)

// IsNotFound reports whether err means the record does not exist, whichever
// layer produced it.
func IsNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments) || errs.ErrRecordNotFound.Is(err) || ErrRecordNotFound.Is(err)
}

var (
	ErrArgs               = errs.NewCodeError(ValidationError, "ArgsError")
	ErrTokenInvalid       = errs.NewCodeError(AuthError, "TokenInvalidError")
	ErrTokenExpired       = errs.NewCodeError(AuthError, "TokenExpiredError")
	ErrUserIDMismatch     = errs.NewCodeError(AuthError, "UserIDMismatchError")
	ErrUserDisabled       = errs.NewCodeError(ForbiddenError, "UserDisabledError")
	ErrNoPermission       = errs.NewCodeError(ForbiddenError, "NoPermissionError")
	ErrRecordNotFound     = errs.NewCodeError(NotFoundError, "RecordNotFoundError")
	ErrConflict           = errs.NewCodeError(ConflictError, "ConflictError")
	ErrServiceUnavailable = errs.NewCodeError(UnavailableError, "ServiceUnavailableError")
	ErrInternalServer     = errs.NewCodeError(InternalError, "InternalServerError")

	ErrTransient       = errs.NewCodeError(TransientError, "TransientError")
	ErrPermanent       = errs.NewCodeError(PermanentError, "PermanentError")
	ErrPushTokenInvalid = errs.NewCodeError(TokenInvalidError, "PushTokenInvalidError")

	ErrConnOverMaxNumLimit = errs.NewCodeError(UnavailableError, "ConnOverMaxNumLimit")
	ErrPayloadTooLarge     = errs.NewCodeError(ValidationError, "PayloadTooLargeError")
)

// HTTPStatus maps a CodeError code to the HTTP status the API surfaces.
func HTTPStatus(code int) int {
	switch code {
	case ValidationError:
		return 400
	case AuthError:
		return 401
	case ForbiddenError:
		return 403
	case NotFoundError:
		return 404
	case ConflictError:
		return 409
	case UnavailableError:
		return 503
	default:
		return 500
	}
}
