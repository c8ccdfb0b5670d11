// Package objectstore implements the collaboration object store: a
// tenant-scoped, typed document store backed by a search index. It owns
// index provisioning, the document codec, query construction and the
// CRUD/bulk operations; visibility rules live in the access package.
package objectstore

import (
	"fmt"
	"time"
)

// ObjectType enumerates the closed set of collaboration object kinds.
type ObjectType string

const (
	TypeNote       ObjectType = "note"
	TypeAnnotation ObjectType = "annotation"
	TypeSavedQuery ObjectType = "savedQuery"
	TypeWorkspace  ObjectType = "workspace"
)

// knownTypes lists every valid object type.
var knownTypes = []ObjectType{TypeNote, TypeAnnotation, TypeSavedQuery, TypeWorkspace}

// Valid reports whether t is a known object type.
func (t ObjectType) Valid() bool {
	for _, known := range knownTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseObjectType converts a wire string into an ObjectType.
func ParseObjectType(s string) (ObjectType, error) {
	t := ObjectType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownObjectType, s)
	}
	return t, nil
}

// NoteData is the payload of a note object.
type NoteData struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category,omitempty"`
}

// AnnotationData is the payload of an annotation pinned to a target
// document or time range.
type AnnotationData struct {
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	TargetID    string `json:"targetId,omitempty"`
	StartTimeMs int64  `json:"startTimeMs,omitempty"`
	EndTimeMs   int64  `json:"endTimeMs,omitempty"`
}

// SavedQueryData is the payload of a saved search query.
type SavedQueryData struct {
	Name      string   `json:"name"`
	Query     string   `json:"query"`
	QueryLang string   `json:"queryLang,omitempty"`
	Fields    []string `json:"fields,omitempty"`
}

// WorkspaceData is the payload of a shared workspace definition.
type WorkspaceData struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Kind        string   `json:"kind,omitempty"`
	MemberIDs   []string `json:"memberIds,omitempty"`
}

// ObjectData is the tagged union of per-type payloads. Exactly one
// variant is set, matching the owning object's Type.
type ObjectData struct {
	Note       *NoteData       `json:"note,omitempty"`
	Annotation *AnnotationData `json:"annotation,omitempty"`
	SavedQuery *SavedQueryData `json:"savedQuery,omitempty"`
	Workspace  *WorkspaceData  `json:"workspace,omitempty"`
}

// variantFor returns the payload pointer for the given type, or nil
// when that variant is unset.
func (d ObjectData) variantFor(t ObjectType) any {
	switch t {
	case TypeNote:
		if d.Note != nil {
			return d.Note
		}
	case TypeAnnotation:
		if d.Annotation != nil {
			return d.Annotation
		}
	case TypeSavedQuery:
		if d.SavedQuery != nil {
			return d.SavedQuery
		}
	case TypeWorkspace:
		if d.Workspace != nil {
			return d.Workspace
		}
	}
	return nil
}

// variantCount counts how many payload variants are set.
func (d ObjectData) variantCount() int {
	n := 0
	if d.Note != nil {
		n++
	}
	if d.Annotation != nil {
		n++
	}
	if d.SavedQuery != nil {
		n++
	}
	if d.Workspace != nil {
		n++
	}
	return n
}

// CollaborationObject is the persisted, typed, tenant-scoped document.
//
// Tenant and Access are stamped from the creator's identity at creation
// and never change afterwards. CreatedTime is set once; UpdatedTime is
// refreshed on every mutation (the write path is create and delete only,
// so in practice both are stamped together).
type CollaborationObject struct {
	ID          string
	CreatedTime time.Time
	UpdatedTime time.Time
	Tenant      string
	Access      []string
	Type        ObjectType
	Data        ObjectData
}

// Validate checks type/payload consistency.
func (o *CollaborationObject) Validate() error {
	if !o.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownObjectType, o.Type)
	}
	if o.Data.variantCount() != 1 {
		return fmt.Errorf("%w: exactly one payload variant must be set, got %d",
			ErrMalformedDocument, o.Data.variantCount())
	}
	if o.Data.variantFor(o.Type) == nil {
		return fmt.Errorf("%w: payload does not match declared type %q",
			ErrMalformedDocument, o.Type)
	}
	return nil
}

// DocInfo pairs an object with its storage metadata for
// optimistic-concurrency-aware callers. Constructed on read, never
// persisted.
type DocInfo struct {
	Object      CollaborationObject
	Version     int64
	SeqNo       int64
	PrimaryTerm int64
}

// HitRelation reports whether TotalHits is exact or a lower bound.
type HitRelation string

const (
	RelationEqualTo              HitRelation = "EQUAL_TO"
	RelationGreaterThanOrEqualTo HitRelation = "GREATER_THAN_OR_EQUAL_TO"
)

// SearchResult is one page of objects plus total-hit bookkeeping.
// Objects preserves backend order; len(Objects) <= TotalHits.
type SearchResult struct {
	Objects    []CollaborationObject
	StartIndex int
	TotalHits  int64
	Relation   HitRelation
}

// SortOrder selects search sort direction.
type SortOrder string

const (
	SortUnspecified SortOrder = ""
	SortAsc         SortOrder = "asc"
	SortDesc        SortOrder = "desc"
)

// SearchRequest is the typed search request handed to the store.
type SearchRequest struct {
	// IDs restricts results to the given object ids when non-empty.
	IDs []string
	// Types restricts results to the given object types when non-empty.
	Types []ObjectType
	// FromIndex is the zero-based result offset.
	FromIndex int
	// MaxItems caps the page size; 0 selects the configured default.
	MaxItems int
	// SortField names a mapped field to sort by; empty keeps backend order.
	SortField string
	// SortOrder applies when SortField is set; default ascending.
	SortOrder SortOrder
	// FilterParams carries free-form key/value filters. Only keys in the
	// recognized allow-list are applied; the rest are ignored.
	FilterParams map[string]string
}

// DeleteStatus is the per-id outcome of a bulk delete.
type DeleteStatus string

const (
	DeleteOK        DeleteStatus = "OK"
	DeleteNotFound  DeleteStatus = "NOT_FOUND"
	DeleteForbidden DeleteStatus = "FORBIDDEN"
	DeleteFailed    DeleteStatus = "FAILED"
)
