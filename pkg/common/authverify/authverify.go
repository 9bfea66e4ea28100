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

package authverify

import (
	"crypto/subtle"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/chatwire/chatwire-server/pkg/common/config"
	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
)

// phoneRE matches an E.164 number after normalization.
var phoneRE = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// NormalizePhone canonicalizes a phone number to E.164: strips separators
// and whitespace, keeps the leading plus.
func NormalizePhone(s string) (string, error) {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		switch {
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", servererrs.ErrArgs.WrapMsg("invalid phone number")
		}
	}
	normalized := b.String()
	if !strings.HasPrefix(normalized, "+") {
		normalized = "+" + normalized
	}
	if !phoneRE.MatchString(normalized) {
		return "", servererrs.ErrArgs.WrapMsg("invalid phone number")
	}
	return normalized, nil
}

// Claims is the token payload. UserID is the subject's E.164 number.
type Claims struct {
	UserID   string `json:"uid"`
	Disabled bool   `json:"disabled,omitempty"`
	jwt.RegisteredClaims
}

type TokenVerifier struct {
	environment string
	secret      []byte
	expire      time.Duration
	proxySecret string
	admins      map[string]struct{}
}

func NewTokenVerifier(environment string, auth *config.Auth) *TokenVerifier {
	admins := make(map[string]struct{}, len(auth.AdminUserIDs))
	for _, id := range auth.AdminUserIDs {
		admins[id] = struct{}{}
	}
	return &TokenVerifier{
		environment: environment,
		secret:      []byte(auth.Secret),
		expire:      auth.Expire,
		proxySecret: auth.ProxyAuthSecret,
		admins:      admins,
	}
}

// Verify resolves a bearer token to its claims. In DEV a bare phone number
// is accepted as the token; in PROD the token is an HS256 JWT.
func (v *TokenVerifier) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil, servererrs.ErrTokenInvalid.WrapMsg("empty token")
	}
	if v.environment == config.EnvDev {
		if userID, err := NormalizePhone(token); err == nil {
			return &Claims{UserID: userID}, nil
		}
		// Fall through: a real JWT still verifies in DEV.
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, servererrs.ErrTokenInvalid.WrapMsg("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, servererrs.ErrTokenExpired.WrapMsg("token expired")
		}
		return nil, servererrs.ErrTokenInvalid.WrapMsg(err.Error())
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, servererrs.ErrTokenInvalid.WrapMsg("invalid claims")
	}
	if claims.Disabled {
		return nil, servererrs.ErrUserDisabled.WrapMsg("user disabled")
	}
	userID, err := NormalizePhone(claims.UserID)
	if err != nil {
		return nil, servererrs.ErrTokenInvalid.WrapMsg("token subject is not a phone number")
	}
	claims.UserID = userID
	return claims, nil
}

// VerifyFor additionally requires the token subject to match pathUserID
// after normalization.
func (v *TokenVerifier) VerifyFor(token, pathUserID string) (*Claims, error) {
	claims, err := v.Verify(token)
	if err != nil {
		return nil, err
	}
	want, err := NormalizePhone(pathUserID)
	if err != nil {
		return nil, err
	}
	if claims.UserID != want {
		return nil, servererrs.ErrUserIDMismatch.WrapMsg("token user mismatch", "tokenUserID", claims.UserID)
	}
	return claims, nil
}

// IsAdmin reports whether userID is configured as an operator.
func (v *TokenVerifier) IsAdmin(userID string) bool {
	_, ok := v.admins[userID]
	return ok
}

// CheckProxyAuth validates the shared-secret header trusted internal callers
// present on the maintenance surface.
func (v *TokenVerifier) CheckProxyAuth(secret string) bool {
	if v.proxySecret == "" || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(v.proxySecret), []byte(secret)) == 1
}

// Sign issues a token for userID. Used by development tooling and tests;
// production tokens come from the auth provider.
func (v *TokenVerifier) Sign(userID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.expire)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
