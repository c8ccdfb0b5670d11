// internal/objectstore/codec.go
package objectstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// docSource is the wire form of a collaboration object. Timestamps are
// epoch milliseconds; the payload field matching Type carries the data.
type docSource struct {
	CreatedTimeMs int64           `json:"createdTimeMs"`
	UpdatedTimeMs int64           `json:"updatedTimeMs"`
	Tenant        string          `json:"tenant"`
	Access        []string        `json:"access,omitempty"`
	Type          string          `json:"type"`
	Note          *NoteData       `json:"note,omitempty"`
	Annotation    *AnnotationData `json:"annotation,omitempty"`
	SavedQuery    *SavedQueryData `json:"savedQuery,omitempty"`
	Workspace     *WorkspaceData  `json:"workspace,omitempty"`
}

// MarshalObject serializes an object into its index source form. The
// object id is the backend document id and is not part of the source.
func MarshalObject(obj *CollaborationObject) ([]byte, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	src := docSource{
		CreatedTimeMs: obj.CreatedTime.UnixMilli(),
		UpdatedTimeMs: obj.UpdatedTime.UnixMilli(),
		Tenant:        obj.Tenant,
		Access:        obj.Access,
		Type:          string(obj.Type),
		Note:          obj.Data.Note,
		Annotation:    obj.Data.Annotation,
		SavedQuery:    obj.Data.SavedQuery,
		Workspace:     obj.Data.Workspace,
	}

	data, err := json.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize object: %w", err)
	}
	return data, nil
}

// UnmarshalObject parses an index source document back into an object.
// A type tag outside the closed set, or a source whose payload field
// does not match the declared type, is a hard parse error.
func UnmarshalObject(data []byte, id string) (*CollaborationObject, error) {
	var src docSource
	if err := json.Unmarshal(data, &src); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	objType, err := ParseObjectType(src.Type)
	if err != nil {
		return nil, fmt.Errorf("document %q: %w", id, err)
	}

	obj := &CollaborationObject{
		ID:          id,
		CreatedTime: time.UnixMilli(src.CreatedTimeMs).UTC(),
		UpdatedTime: time.UnixMilli(src.UpdatedTimeMs).UTC(),
		Tenant:      src.Tenant,
		Access:      src.Access,
		Type:        objType,
		Data: ObjectData{
			Note:       src.Note,
			Annotation: src.Annotation,
			SavedQuery: src.SavedQuery,
			Workspace:  src.Workspace,
		},
	}

	if obj.Data.variantFor(objType) == nil {
		return nil, fmt.Errorf("document %q: %w: missing %q payload", id, ErrMalformedDocument, objType)
	}
	return obj, nil
}
