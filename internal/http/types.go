// Package http provides the HTTP API for collabd.
package http

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/collabd/internal/objectstore"
)

// ObjectPayload is the wire rendering of a collaboration object.
//
// Tenant, access list and creation time are omitted when the gate
// redacted them for the caller.
type ObjectPayload struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Data        any        `json:"data"`
	CreatedTime *time.Time `json:"createdTime,omitempty"`
	UpdatedTime time.Time  `json:"updatedTime"`
	Tenant      string     `json:"tenant,omitempty"`
	Access      []string   `json:"access,omitempty"`
}

// CreateObjectRequest is the request body for POST /api/v1/objects.
// ID is optional; empty requests a backend-assigned id.
type CreateObjectRequest struct {
	ID   string          `json:"id,omitempty"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// CreateObjectResponse is the response body for POST /api/v1/objects.
type CreateObjectResponse struct {
	ID string `json:"id"`
}

// ObjectListResponse is the response body for GET /api/v1/objects.
type ObjectListResponse struct {
	Objects []ObjectPayload `json:"objects"`
}

// SearchObjectsRequest is the request body for POST /api/v1/objects/search.
type SearchObjectsRequest struct {
	IDs          []string          `json:"ids,omitempty"`
	Types        []string          `json:"types,omitempty"`
	FromIndex    int               `json:"fromIndex,omitempty"`
	MaxItems     int               `json:"maxItems,omitempty"`
	SortField    string            `json:"sortField,omitempty"`
	SortOrder    string            `json:"sortOrder,omitempty"`
	FilterParams map[string]string `json:"filterParams,omitempty"`
}

// SearchObjectsResponse is the response body for POST /api/v1/objects/search.
type SearchObjectsResponse struct {
	Objects          []ObjectPayload `json:"objects"`
	StartIndex       int             `json:"startIndex"`
	TotalHits        int64           `json:"totalHits"`
	TotalHitRelation string          `json:"totalHitRelation"`
}

// DeleteObjectsRequest is the request body for POST /api/v1/objects/delete.
type DeleteObjectsRequest struct {
	IDs []string `json:"ids"`
}

// DeleteObjectsResponse is the response body for POST /api/v1/objects/delete.
// DeleteStatus carries one of OK, NOT_FOUND, FORBIDDEN or FAILED per id.
type DeleteObjectsResponse struct {
	DeleteStatus map[string]string `json:"deleteStatus"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the envelope every error response uses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine code plus a human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// toStoreRequest converts the wire search request into the store form,
// validating the sort order. Unknown types are left for the store to
// reject so the error taxonomy stays in one place.
func (r *SearchObjectsRequest) toStoreRequest() (*objectstore.SearchRequest, error) {
	order := objectstore.SortOrder(r.SortOrder)
	switch order {
	case objectstore.SortUnspecified, objectstore.SortAsc, objectstore.SortDesc:
	default:
		return nil, fmt.Errorf("%w: sort order must be asc or desc, got %q",
			objectstore.ErrInvalidRequest, r.SortOrder)
	}

	types := make([]objectstore.ObjectType, 0, len(r.Types))
	for _, t := range r.Types {
		types = append(types, objectstore.ObjectType(t))
	}

	return &objectstore.SearchRequest{
		IDs:          r.IDs,
		Types:        types,
		FromIndex:    r.FromIndex,
		MaxItems:     r.MaxItems,
		SortField:    r.SortField,
		SortOrder:    order,
		FilterParams: r.FilterParams,
	}, nil
}

// objectPayload renders a store object for the wire. Zero creation time
// (withheld by redaction) is dropped rather than serialized as the zero
// timestamp.
func objectPayload(obj *objectstore.CollaborationObject) ObjectPayload {
	p := ObjectPayload{
		ID:          obj.ID,
		Type:        string(obj.Type),
		Data:        activeVariant(obj),
		UpdatedTime: obj.UpdatedTime,
		Tenant:      obj.Tenant,
		Access:      obj.Access,
	}
	if !obj.CreatedTime.IsZero() {
		created := obj.CreatedTime
		p.CreatedTime = &created
	}
	return p
}

// activeVariant returns the payload matching the object's type.
func activeVariant(obj *objectstore.CollaborationObject) any {
	switch obj.Type {
	case objectstore.TypeNote:
		return obj.Data.Note
	case objectstore.TypeAnnotation:
		return obj.Data.Annotation
	case objectstore.TypeSavedQuery:
		return obj.Data.SavedQuery
	case objectstore.TypeWorkspace:
		return obj.Data.Workspace
	}
	return nil
}

// decodeObjectData parses the request payload into the variant named by
// the type tag.
func decodeObjectData(t objectstore.ObjectType, raw json.RawMessage) (objectstore.ObjectData, error) {
	var data objectstore.ObjectData
	var err error

	switch t {
	case objectstore.TypeNote:
		note := &objectstore.NoteData{}
		err = json.Unmarshal(raw, note)
		data.Note = note
	case objectstore.TypeAnnotation:
		annotation := &objectstore.AnnotationData{}
		err = json.Unmarshal(raw, annotation)
		data.Annotation = annotation
	case objectstore.TypeSavedQuery:
		query := &objectstore.SavedQueryData{}
		err = json.Unmarshal(raw, query)
		data.SavedQuery = query
	case objectstore.TypeWorkspace:
		workspace := &objectstore.WorkspaceData{}
		err = json.Unmarshal(raw, workspace)
		data.Workspace = workspace
	default:
		return data, fmt.Errorf("%w: %q", objectstore.ErrUnknownObjectType, t)
	}

	if err != nil {
		return objectstore.ObjectData{}, fmt.Errorf("%w: invalid %s payload: %v",
			objectstore.ErrInvalidRequest, t, err)
	}
	return data, nil
}
