// Package auth provides the caller identity model for collabd.
//
// Every request carries an authenticated identity: a user name, the
// tenant the caller belongs to, and the role sets granted by the
// identity provider. Object visibility is decided by intersecting the
// identity's access tokens with the access list stamped on each object.
package auth

import (
	"context"
	"errors"
)

// SuperuserRole grants unrestricted access: tenant and access-list
// checks are bypassed and object metadata is never redacted.
const SuperuserRole = "all_access"

// Access token prefixes. Tokens are stamped into object access lists at
// creation and matched against the caller's tokens on read.
const (
	userTokenPrefix        = "user:"
	roleTokenPrefix        = "role:"
	backendRoleTokenPrefix = "berole:"
)

var (
	// ErrMissingUser is returned when an identity has no user name.
	ErrMissingUser = errors.New("identity has no user")
	// ErrMissingTenant is returned when an identity has no tenant.
	ErrMissingTenant = errors.New("identity has no tenant")
)

// Identity is an authenticated caller.
type Identity struct {
	// User is the authenticated user name.
	User string
	// Tenant is the tenant the caller operates in. Every object the
	// caller creates or reads belongs to this tenant.
	Tenant string
	// Roles are provider-assigned role names.
	Roles []string
	// BackendRoles are roles mapped from the upstream directory.
	BackendRoles []string
}

// Validate reports whether the identity is complete enough to authorize
// requests.
func (i *Identity) Validate() error {
	if i == nil || i.User == "" {
		return ErrMissingUser
	}
	if i.Tenant == "" {
		return ErrMissingTenant
	}
	return nil
}

// IsSuperuser reports whether the identity holds the superuser role.
func (i *Identity) IsSuperuser() bool {
	if i == nil {
		return false
	}
	for _, role := range i.Roles {
		if role == SuperuserRole {
			return true
		}
	}
	return false
}

// HasAllInfoAccess reports whether the caller may see full object
// metadata. Callers without it receive objects with tenant, access list
// and creation time withheld.
func (i *Identity) HasAllInfoAccess() bool {
	return i.IsSuperuser()
}

// AccessTokens returns the tokens this identity matches against object
// access lists: one per user name, role and backend role, each carrying
// its kind prefix.
func (i *Identity) AccessTokens() []string {
	if i == nil {
		return nil
	}
	tokens := make([]string, 0, 1+len(i.Roles)+len(i.BackendRoles))
	if i.User != "" {
		tokens = append(tokens, userTokenPrefix+i.User)
	}
	for _, role := range i.Roles {
		tokens = append(tokens, roleTokenPrefix+role)
	}
	for _, role := range i.BackendRoles {
		tokens = append(tokens, backendRoleTokenPrefix+role)
	}
	return tokens
}

// identityCtxKey keys the identity in a request context.
type identityCtxKey struct{}

// WithIdentity returns a context carrying the identity.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// FromContext extracts the identity set by the authentication
// middleware, or false when the context carries none.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(*Identity)
	return id, ok && id != nil
}
