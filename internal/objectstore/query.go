// internal/objectstore/query.go
package objectstore

import (
	"encoding/json"
	"fmt"
	"sort"
)

// buildSearchBody translates a typed search request into the backend's
// bool query. The tenant term filter is mandatory; the access terms
// filter applies only when accessList is non-empty (privileged callers
// pass an empty list and rely on the gate instead).
func buildSearchBody(tenant string, accessList []string, req *SearchRequest, size int) ([]byte, error) {
	if tenant == "" {
		return nil, fmt.Errorf("%w: tenant is required", ErrInvalidRequest)
	}

	filters := []any{
		map[string]any{"term": map[string]any{"tenant": tenant}},
	}

	if len(accessList) > 0 {
		filters = append(filters, map[string]any{
			"terms": map[string]any{"access": accessList},
		})
	}

	if len(req.IDs) > 0 {
		filters = append(filters, map[string]any{
			"terms": map[string]any{"_id": req.IDs},
		})
	}

	if len(req.Types) > 0 {
		types := make([]string, 0, len(req.Types))
		for _, t := range req.Types {
			if !t.Valid() {
				return nil, fmt.Errorf("%w: %q", ErrUnknownObjectType, t)
			}
			types = append(types, string(t))
		}
		filters = append(filters, map[string]any{
			"terms": map[string]any{"type": types},
		})
	}

	// Sorted for a stable query shape regardless of map order.
	paramKeys := make([]string, 0, len(req.FilterParams))
	for key := range req.FilterParams {
		paramKeys = append(paramKeys, key)
	}
	sort.Strings(paramKeys)
	for _, key := range paramKeys {
		field, ok := allowedFilterParams[key]
		if !ok {
			continue
		}
		filters = append(filters, map[string]any{
			"term": map[string]any{field: req.FilterParams[key]},
		})
	}

	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{"filter": filters},
		},
		"from":             req.FromIndex,
		"size":             size,
		"track_total_hits": true,
	}

	if req.SortField != "" {
		order := req.SortOrder
		if order == SortUnspecified {
			order = SortAsc
		}
		body["sort"] = []any{
			map[string]any{req.SortField: map[string]any{"order": string(order)}},
		}
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search query: %w", err)
	}
	return encoded, nil
}

// hitRelation converts the backend's relation tag into the result form.
func hitRelation(relation string) HitRelation {
	if relation == "gte" {
		return RelationGreaterThanOrEqualTo
	}
	return RelationEqualTo
}
