// internal/access/errors.go
package access

import "errors"

var (
	// ErrUnauthenticated indicates the request carried no usable identity.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrNotFound indicates one or more requested objects do not exist.
	ErrNotFound = errors.New("object not found")

	// ErrPermissionDenied indicates an existing object the caller may not
	// see. Always distinct from ErrNotFound so callers can tell "absent"
	// from "hidden" by error class, never by message text.
	ErrPermissionDenied = errors.New("permission denied")
)
