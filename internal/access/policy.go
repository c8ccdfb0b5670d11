// internal/access/policy.go
package access

import (
	"time"

	"github.com/fyrsmithlabs/collabd/internal/objectstore"
	"github.com/fyrsmithlabs/collabd/pkg/auth"
)

// canAccess decides object visibility: the caller's tenant must equal
// the object's tenant and the caller's tokens must intersect the
// object's access list. Superusers bypass both checks.
func canAccess(identity *auth.Identity, obj *objectstore.CollaborationObject) bool {
	if identity.IsSuperuser() {
		return true
	}
	if obj.Tenant != identity.Tenant {
		return false
	}
	return intersects(obj.Access, identity.AccessTokens())
}

func intersects(objectAccess, callerTokens []string) bool {
	for _, granted := range objectAccess {
		for _, token := range callerTokens {
			if granted == token {
				return true
			}
		}
	}
	return false
}

// redactForIdentity withholds ownership metadata from callers without
// full-info access. Tenant, access list and creation time are cleared;
// the payload and update time remain.
func redactForIdentity(identity *auth.Identity, obj *objectstore.CollaborationObject) *objectstore.CollaborationObject {
	if identity.HasAllInfoAccess() {
		return obj
	}
	redacted := *obj
	redacted.Tenant = ""
	redacted.Access = nil
	redacted.CreatedTime = time.Time{}
	return &redacted
}
