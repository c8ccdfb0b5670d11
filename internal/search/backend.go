// Package search provides the document-search backend client used by the
// collaboration object store. The Backend interface covers exactly the
// cluster operations the store needs; the OpenSearch implementation talks
// to the cluster over its REST API.
package search

import (
	"context"
	"encoding/json"
)

// TotalRelation reports whether a search total is exact or a lower bound.
type TotalRelation string

const (
	// TotalEqual means the reported total is an exact count.
	TotalEqual TotalRelation = "eq"
	// TotalGreaterOrEqual means counting was capped and the total is a
	// lower bound.
	TotalGreaterOrEqual TotalRelation = "gte"
)

// Hit is a single document returned by a read or search operation.
type Hit struct {
	ID          string
	Source      json.RawMessage
	Version     int64
	SeqNo       int64
	PrimaryTerm int64
	Score       float64
}

// SearchResponse is the parsed result of a search request.
type SearchResponse struct {
	TookMillis int64
	Hits       []Hit
	Total      int64
	Relation   TotalRelation
}

// BulkResult is the per-document outcome of a bulk operation.
type BulkResult struct {
	// StatusCode is the per-item HTTP status reported by the backend.
	StatusCode int
	// Result is the backend's result string, e.g. "deleted" or "not_found".
	Result string
	// Reason carries the error reason for failed items, empty otherwise.
	Reason string
}

// Deleted reports whether the item removed an existing document.
func (r BulkResult) Deleted() bool {
	return r.Result == "deleted"
}

// NotFound reports whether the item targeted an absent document.
func (r BulkResult) NotFound() bool {
	return r.Result == "not_found" || r.StatusCode == 404
}

// Failed reports whether the item failed outright.
func (r BulkResult) Failed() bool {
	return !r.Deleted() && !r.NotFound()
}

// Backend is the set of cluster operations the object store depends on.
// Implementations must be safe for concurrent use.
type Backend interface {
	// IndexExists checks cluster routing state for the index.
	IndexExists(ctx context.Context, index string) (bool, error)

	// CreateIndex creates the index with the given settings/mappings body.
	// Racing creators surface ErrIndexExists.
	CreateIndex(ctx context.Context, index string, body []byte) error

	// PutMapping applies an additive mapping update to an existing index.
	PutMapping(ctx context.Context, index string, body []byte) error

	// GetDocument fetches a document by id. Absence returns (nil, nil).
	GetDocument(ctx context.Context, index, id string) (*Hit, error)

	// MultiGetDocuments fetches documents by id, returning only those found.
	MultiGetDocuments(ctx context.Context, index string, ids []string) ([]Hit, error)

	// CreateDocument indexes a document with create-only semantics. An empty
	// id requests a backend-assigned id; the assigned id is returned. An
	// existing id surfaces ErrConflict.
	CreateDocument(ctx context.Context, index, id string, body []byte) (string, error)

	// DeleteDocument removes a document by id, reporting whether it existed.
	DeleteDocument(ctx context.Context, index, id string) (bool, error)

	// BulkDeleteDocuments removes documents by id with independent per-id
	// outcomes.
	BulkDeleteDocuments(ctx context.Context, index string, ids []string) (map[string]BulkResult, error)

	// Search executes a query body against the index.
	Search(ctx context.Context, index string, body []byte) (*SearchResponse, error)

	// Ping checks cluster reachability.
	Ping(ctx context.Context) error
}
