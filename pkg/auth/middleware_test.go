package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labstack/echo/v4"
)

var testSecret = []byte("unit-test-secret")

func signedRequest(t *testing.T, id *Identity) *http.Request {
	t.Helper()
	token, err := NewToken(testSecret, id, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	return req
}

func TestJWTMiddlewareSuccess(t *testing.T) {
	e := echo.New()
	req := signedRequest(t, &Identity{
		User:         "alice",
		Tenant:       "acme",
		Roles:        []string{"analysts"},
		BackendRoles: []string{"ldap-eng"},
	})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var captured *Identity
	handler := func(c echo.Context) error {
		id, ok := FromContext(c.Request().Context())
		require.True(t, ok, "identity should be on the request context")
		captured = id
		return c.String(http.StatusOK, "ok")
	}

	err := JWTMiddleware(testSecret)(handler)(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "alice", captured.User)
	assert.Equal(t, "acme", captured.Tenant)
	assert.Equal(t, []string{"analysts"}, captured.Roles)
	assert.Equal(t, []string{"ldap-eng"}, captured.BackendRoles)
}

func TestJWTMiddlewareRejects(t *testing.T) {
	makeRequest := func(authorization string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		if authorization != "" {
			req.Header.Set(echo.HeaderAuthorization, authorization)
		}
		return req
	}

	expiredToken := func(t *testing.T) string {
		t.Helper()
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "alice",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
			Tenant: "acme",
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
		require.NoError(t, err)
		return token
	}

	noExpiryToken := func(t *testing.T) string {
		t.Helper()
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"},
			Tenant:           "acme",
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
		require.NoError(t, err)
		return token
	}

	wrongKeyToken := func(t *testing.T) string {
		t.Helper()
		token, err := NewToken([]byte("some-other-secret"), &Identity{User: "alice", Tenant: "acme"}, time.Minute)
		require.NoError(t, err)
		return token
	}

	noTenantToken := func(t *testing.T) string {
		t.Helper()
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "alice",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name          string
		authorization func(t *testing.T) string
	}{
		{name: "no header", authorization: func(t *testing.T) string { return "" }},
		{name: "wrong scheme", authorization: func(t *testing.T) string { return "Basic abc" }},
		{name: "garbage token", authorization: func(t *testing.T) string { return "Bearer not.a.jwt" }},
		{name: "expired", authorization: func(t *testing.T) string { return "Bearer " + expiredToken(t) }},
		{name: "no expiry claim", authorization: func(t *testing.T) string { return "Bearer " + noExpiryToken(t) }},
		{name: "wrong key", authorization: func(t *testing.T) string { return "Bearer " + wrongKeyToken(t) }},
		{name: "incomplete claims", authorization: func(t *testing.T) string { return "Bearer " + noTenantToken(t) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(makeRequest(tt.authorization(t)), rec)

			handlerCalled := false
			handler := func(c echo.Context) error {
				handlerCalled = true
				return c.String(http.StatusOK, "ok")
			}

			err := JWTMiddleware(testSecret)(handler)(c)
			require.NoError(t, err)
			assert.False(t, handlerCalled, "handler must not run without valid auth")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "UNAUTHENTICATED")
		})
	}
}

func TestParseTokenRejectsUnsignedAlgorithm(t *testing.T) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		Tenant: "acme",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken(testSecret, token)
	require.Error(t, err)
}

func TestNewTokenRoundTrip(t *testing.T) {
	id := &Identity{User: "bob", Tenant: "globex", Roles: []string{"readers"}}

	token, err := NewToken(testSecret, id, time.Minute)
	require.NoError(t, err)

	parsed, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, id.User, parsed.User)
	assert.Equal(t, id.Tenant, parsed.Tenant)
	assert.Equal(t, id.Roles, parsed.Roles)
}

func TestNewTokenRequiresCompleteIdentity(t *testing.T) {
	_, err := NewToken(testSecret, &Identity{User: "alice"}, time.Minute)
	require.ErrorIs(t, err, ErrMissingTenant)
}
