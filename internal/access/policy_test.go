// internal/access/policy_test.go
package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/collabd/pkg/auth"
)

func TestCanAccess(t *testing.T) {
	obj := aliceNote("n-1")

	tests := []struct {
		name     string
		identity *auth.Identity
		want     bool
	}{
		{name: "user token match", identity: alice, want: true},
		{name: "role token match", identity: &auth.Identity{User: "dan", Tenant: "acme", Roles: []string{"analysts"}}, want: true},
		{name: "tenant mismatch", identity: bob, want: false},
		{name: "no token intersection", identity: carol, want: false},
		{name: "superuser bypasses both checks", identity: &auth.Identity{User: "ops", Tenant: "globex", Roles: []string{auth.SuperuserRole}}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, canAccess(tt.identity, &obj))
		})
	}
}

func TestCanAccessEmptyAccessList(t *testing.T) {
	// An object with no access tokens is visible to nobody but the
	// superuser; stamping at creation makes this state unreachable
	// through the normal write path.
	obj := aliceNote("n-1")
	obj.Access = nil

	assert.False(t, canAccess(alice, &obj))
	assert.True(t, canAccess(root, &obj))
}

func TestRedactForIdentity(t *testing.T) {
	obj := aliceNote("n-1")

	t.Run("regular caller loses ownership metadata", func(t *testing.T) {
		got := redactForIdentity(alice, &obj)
		assert.Empty(t, got.Tenant)
		assert.Nil(t, got.Access)
		assert.True(t, got.CreatedTime.IsZero())
		assert.Equal(t, obj.UpdatedTime, got.UpdatedTime)
		assert.Equal(t, obj.Data, got.Data)

		// The source object is untouched.
		assert.Equal(t, "acme", obj.Tenant)
	})

	t.Run("superuser keeps everything", func(t *testing.T) {
		got := redactForIdentity(root, &obj)
		assert.Equal(t, "acme", got.Tenant)
		assert.Equal(t, obj.Access, got.Access)
		assert.Equal(t, obj.CreatedTime, got.CreatedTime)
	})
}
