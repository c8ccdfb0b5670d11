package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Claims is the JWT claim set collabd accepts. The subject names the
// user; tenant and role sets ride as private claims.
type Claims struct {
	jwt.RegisteredClaims
	Tenant       string   `json:"tenant"`
	Roles        []string `json:"roles,omitempty"`
	BackendRoles []string `json:"backend_roles,omitempty"`
}

// ErrNoToken is returned when a request carries no bearer token.
var ErrNoToken = errors.New("missing bearer token")

// JWTMiddleware creates an Echo middleware that authenticates requests
// with an HS256 bearer token signed by the shared secret.
//
// On success the parsed Identity is attached to the request context and
// is available to handlers via FromContext. Requests without a token,
// with an invalid signature, with an expired token or with incomplete
// identity claims are rejected with 401 and the standard error envelope.
func JWTMiddleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c.Request())
			if err != nil {
				return unauthenticated(c, "missing bearer token")
			}

			id, err := ParseToken(secret, raw)
			if err != nil {
				return unauthenticated(c, "invalid token")
			}

			ctx := WithIdentity(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// NewToken signs a token for the identity, valid for ttl. Used by the
// token command for local development and by tests.
func NewToken(secret []byte, id *Identity, ttl time.Duration) (string, error) {
	if err := id.Validate(); err != nil {
		return "", err
	}

	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.User,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Tenant:       id.Tenant,
		Roles:        id.Roles,
		BackendRoles: id.BackendRoles,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies a signed token and extracts the caller identity.
// Tokens must be HS256 signed and carry an expiry.
func ParseToken(secret []byte, raw string) (*Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
			}
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	id := &Identity{
		User:         claims.Subject,
		Tenant:       claims.Tenant,
		Roles:        claims.Roles,
		BackendRoles: claims.BackendRoles,
	}
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return id, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", ErrNoToken
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func unauthenticated(c echo.Context, message string) error {
	return c.JSON(http.StatusUnauthorized, map[string]any{
		"error": map[string]any{
			"code":    "UNAUTHENTICATED",
			"message": message,
		},
	})
}
