// internal/search/errors.go
package search

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// Sentinel errors returned by Backend implementations. Callers match
// with errors.Is and translate into their own taxonomy.
var (
	// ErrConflict indicates a create-only write hit an existing document id.
	ErrConflict = errors.New("document version conflict")

	// ErrIndexExists indicates index creation lost a race to another creator.
	ErrIndexExists = errors.New("index already exists")

	// ErrIndexNotFound indicates the target index is absent from cluster state.
	ErrIndexNotFound = errors.New("index not found")

	// ErrNotAcknowledged indicates the cluster accepted a request but did not
	// acknowledge it before its internal timeout.
	ErrNotAcknowledged = errors.New("request not acknowledged")

	// ErrUnavailable indicates a transport failure or a 5xx/429 response.
	ErrUnavailable = errors.New("backend unavailable")
)

// IsTransient reports whether err is worth retrying at a higher layer.
// The store itself never retries; this feeds error classification only.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
