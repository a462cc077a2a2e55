package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "test-secret", Issuer: "i5e.identity"}

func sign(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestParseValidToken(t *testing.T) {
	token := sign(t, jwt.MapClaims{
		"sub":    "user-1",
		"iss":    testConfig.Issuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": "dashboard:read activities:write",
	}, testConfig.Secret)

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.True(t, claims.HasScope(ScopeDashboardRead))
	require.True(t, claims.HasAnyScope(ScopeActivitiesRead, ScopeActivitiesWrite))
	require.False(t, claims.HasScope(ScopeActivitiesRead))
}

func TestParseRejectsBadTokens(t *testing.T) {
	cases := map[string]string{
		"wrong secret": sign(t, jwt.MapClaims{"sub": "u", "iss": testConfig.Issuer, "exp": time.Now().Add(time.Hour).Unix()}, "other"),
		"wrong issuer": sign(t, jwt.MapClaims{"sub": "u", "iss": "elsewhere", "exp": time.Now().Add(time.Hour).Unix()}, testConfig.Secret),
		"expired":      sign(t, jwt.MapClaims{"sub": "u", "iss": testConfig.Issuer, "exp": time.Now().Add(-time.Hour).Unix()}, testConfig.Secret),
		"no subject":   sign(t, jwt.MapClaims{"iss": testConfig.Issuer, "exp": time.Now().Add(time.Hour).Unix()}, testConfig.Secret),
		"no expiry":    sign(t, jwt.MapClaims{"sub": "u", "iss": testConfig.Issuer}, testConfig.Secret),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(token, testConfig)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err := Parse("  ", testConfig)
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestMiddleware(t *testing.T) {
	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := NewMiddleware(testConfig).Wrap(next)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/dashboard", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Nil(t, seen)

	token := sign(t, jwt.MapClaims{"sub": "user-9", "iss": testConfig.Issuer, "exp": time.Now().Add(time.Hour).Unix()}, testConfig.Secret)
	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.NotNil(t, seen)
	require.Equal(t, "user-9", seen.Subject)
}
