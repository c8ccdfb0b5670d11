// internal/access/notifier.go
package access

import (
	"context"

	"github.com/fyrsmithlabs/collabd/internal/objectstore"
)

// Notifier receives object lifecycle notifications after a mutation
// succeeds. Implementations must not block the request path and must
// never fail it; delivery is best effort.
type Notifier interface {
	ObjectCreated(ctx context.Context, obj *objectstore.CollaborationObject)
	ObjectDeleted(ctx context.Context, obj *objectstore.CollaborationObject)
}
