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
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatwire/chatwire-server/pkg/common/config"
	"github.com/chatwire/chatwire-server/pkg/common/servererrs"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims *Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func newVerifier(env string) *TokenVerifier {
	return NewTokenVerifier(env, &config.Auth{
		Secret:       testSecret,
		AdminUserIDs: []string{"+84900000099"},
	})
}

func TestNormalizePhone(t *testing.T) {
	for raw, want := range map[string]string{
		"+84 90 000-0001": "+84900000001",
		"84900000001":     "+84900000001",
		"+1 (212) 555.0199": "+12125550199",
	} {
		got, err := NormalizePhone(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}
	for _, raw := range []string{"", "abc", "+0123", "+1"} {
		_, err := NormalizePhone(raw)
		assert.Error(t, err, raw)
	}
}

func TestVerifyDevAcceptsBarePhone(t *testing.T) {
	v := newVerifier(config.EnvDev)
	claims, err := v.Verify("Bearer +84 900 000 001")
	require.NoError(t, err)
	assert.Equal(t, "+84900000001", claims.UserID)
}

func TestVerifyProdRejectsBarePhone(t *testing.T) {
	v := newVerifier(config.EnvProd)
	_, err := v.Verify("+84900000001")
	require.Error(t, err)
	assert.True(t, servererrs.ErrTokenInvalid.Is(err))
}

func TestVerifyProdJWT(t *testing.T) {
	v := newVerifier(config.EnvProd)
	token := signToken(t, &Claims{
		UserID: "+84900000001",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "+84900000001", claims.UserID)
}

func TestVerifyExpired(t *testing.T) {
	v := newVerifier(config.EnvProd)
	token := signToken(t, &Claims{
		UserID: "+84900000001",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	_, err := v.Verify(token)
	require.Error(t, err)
	assert.True(t, servererrs.ErrTokenExpired.Is(err))
}

func TestVerifyDisabled(t *testing.T) {
	v := newVerifier(config.EnvProd)
	token := signToken(t, &Claims{
		UserID:   "+84900000001",
		Disabled: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	_, err := v.Verify(token)
	require.Error(t, err)
	assert.True(t, servererrs.ErrUserDisabled.Is(err))
}

func TestVerifyForMismatch(t *testing.T) {
	v := newVerifier(config.EnvDev)
	_, err := v.VerifyFor("+84900000001", "+84900000002")
	require.Error(t, err)
	assert.True(t, servererrs.ErrUserIDMismatch.Is(err))

	claims, err := v.VerifyFor("+84900000001", "+84 900-000-001")
	require.NoError(t, err)
	assert.Equal(t, "+84900000001", claims.UserID)
}

func TestIsAdmin(t *testing.T) {
	v := newVerifier(config.EnvDev)
	assert.True(t, v.IsAdmin("+84900000099"))
	assert.False(t, v.IsAdmin("+84900000001"))
}

func TestCheckProxyAuth(t *testing.T) {
	v := NewTokenVerifier(config.EnvProd, &config.Auth{Secret: testSecret, ProxyAuthSecret: "proxy-secret"})
	assert.True(t, v.CheckProxyAuth("proxy-secret"))
	assert.False(t, v.CheckProxyAuth("wrong"))
	assert.False(t, v.CheckProxyAuth(""))

	// Unset secret never matches, not even the empty string.
	unset := NewTokenVerifier(config.EnvProd, &config.Auth{Secret: testSecret})
	assert.False(t, unset.CheckProxyAuth(""))
}

func TestSignRoundTrip(t *testing.T) {
	v := NewTokenVerifier(config.EnvProd, &config.Auth{Secret: testSecret, Expire: time.Hour})
	token, err := v.Sign("+84900000001")
	require.NoError(t, err)

	claims, err := v.VerifyFor(token, "+84900000001")
	require.NoError(t, err)
	assert.Equal(t, "+84900000001", claims.UserID)
}
