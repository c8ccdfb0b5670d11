// internal/objectstore/errors.go
package objectstore

import "errors"

// Store error taxonomy. The access gate adds ErrNotFound,
// ErrPermissionDenied and ErrUnauthenticated on top of these.
var (
	// ErrInvalidRequest indicates a malformed request (bad pagination,
	// missing tenant, inconsistent payload).
	ErrInvalidRequest = errors.New("invalid request")

	// ErrConflictingCreate indicates create-only semantics hit an
	// existing document id.
	ErrConflictingCreate = errors.New("object already exists")

	// ErrBackendUnavailable indicates the search backend failed or
	// reported a transient fault. Not retried here.
	ErrBackendUnavailable = errors.New("search backend unavailable")

	// ErrTimeout indicates the fixed operation timeout elapsed.
	ErrTimeout = errors.New("operation timed out")

	// ErrProvisioningFailure indicates the index could not be created or
	// its mapping could not be applied.
	ErrProvisioningFailure = errors.New("index provisioning failed")

	// ErrUnknownObjectType indicates a type tag outside the closed set.
	ErrUnknownObjectType = errors.New("unknown object type")

	// ErrMalformedDocument indicates a stored document whose payload
	// does not match its declared type.
	ErrMalformedDocument = errors.New("malformed object document")
)
