// Package access enforces tenant and ACL visibility around every store
// operation. The gate is the only component that raises authorization
// errors: the store returns whatever the index holds, and the gate
// decides what the caller may see, create or delete.
package access

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/collabd/internal/logging"
	"github.com/fyrsmithlabs/collabd/internal/objectstore"
	"github.com/fyrsmithlabs/collabd/pkg/auth"
)

// Store is the persistence capability the gate guards. Satisfied by
// *objectstore.Store.
type Store interface {
	Get(ctx context.Context, id string) (*objectstore.DocInfo, error)
	MultiGet(ctx context.Context, ids []string) ([]objectstore.DocInfo, error)
	Create(ctx context.Context, obj *objectstore.CollaborationObject, id string) (string, error)
	Search(ctx context.Context, tenant string, accessList []string, req *objectstore.SearchRequest) (*objectstore.SearchResult, error)
	Delete(ctx context.Context, id string) (bool, error)
	BulkDelete(ctx context.Context, ids []string) (map[string]objectstore.DeleteStatus, error)
}

// Gate wraps the object store with identity validation, visibility
// checks and response redaction. An optional Notifier receives lifecycle
// notifications after successful mutations.
type Gate struct {
	store    Store
	logger   *logging.Logger
	notifier Notifier
}

// NewGate creates an access gate over the store. notifier may be nil.
func NewGate(store Store, logger *logging.Logger, notifier Notifier) (*Gate, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Gate{
		store:    store,
		logger:   logger.Named("access"),
		notifier: notifier,
	}, nil
}

// Get returns one object the caller may see. Absence is ErrNotFound; an
// existing object outside the caller's visibility is ErrPermissionDenied.
func (g *Gate) Get(ctx context.Context, identity *auth.Identity, id string) (*objectstore.CollaborationObject, error) {
	if err := g.validateIdentity("get", identity); err != nil {
		return nil, err
	}

	info, err := g.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if info == nil {
		recordDecision("get", "not_found")
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if !canAccess(identity, &info.Object) {
		return nil, g.deny(ctx, "get", identity, id)
	}

	recordDecision("get", "allowed")
	return redactForIdentity(identity, &info.Object), nil
}

// MultiGet returns the requested objects. Any requested id that does not
// exist fails the batch with ErrNotFound naming the missing ids; any
// present object outside the caller's visibility fails the batch with
// ErrPermissionDenied. There is no partial result.
func (g *Gate) MultiGet(ctx context.Context, identity *auth.Identity, ids []string) ([]objectstore.CollaborationObject, error) {
	if err := g.validateIdentity("multi_get", identity); err != nil {
		return nil, err
	}

	unique := dedupe(ids)
	if len(unique) == 0 {
		return nil, nil
	}

	infos, err := g.store.MultiGet(ctx, unique)
	if err != nil {
		return nil, err
	}

	// Existence is settled for the whole batch before any access check
	// runs, so a missing id is always reported as missing, never masked
	// as forbidden.
	if missing := missingIDs(unique, infos); len(missing) > 0 {
		recordDecision("multi_get", "not_found")
		return nil, fmt.Errorf("%w: %s", ErrNotFound, strings.Join(missing, ", "))
	}

	for i := range infos {
		if !canAccess(identity, &infos[i].Object) {
			return nil, g.deny(ctx, "multi_get", identity, infos[i].Object.ID)
		}
	}

	objects := make([]objectstore.CollaborationObject, 0, len(infos))
	for i := range infos {
		objects = append(objects, *redactForIdentity(identity, &infos[i].Object))
	}
	recordDecision("multi_get", "allowed")
	return objects, nil
}

// Create stores a new object owned by the caller. Tenant and access list
// come from the identity, never from the request; a caller cannot plant
// an object into another tenant or grant visibility it does not hold.
// id may be empty to request a backend-assigned one.
func (g *Gate) Create(ctx context.Context, identity *auth.Identity, obj *objectstore.CollaborationObject, id string) (string, error) {
	if err := g.validateIdentity("create", identity); err != nil {
		return "", err
	}

	stamped := *obj
	stamped.Tenant = identity.Tenant
	stamped.Access = identity.AccessTokens()

	assigned, err := g.store.Create(ctx, &stamped, id)
	if err != nil {
		return "", err
	}

	recordDecision("create", "allowed")
	if g.notifier != nil {
		stamped.ID = assigned
		g.notifier.ObjectCreated(ctx, &stamped)
	}
	return assigned, nil
}

// Search runs a tenant-scoped search as the caller. Regular identities
// are additionally restricted to objects their tokens can see; the
// superuser searches the whole tenant unrestricted.
func (g *Gate) Search(ctx context.Context, identity *auth.Identity, req *objectstore.SearchRequest) (*objectstore.SearchResult, error) {
	if err := g.validateIdentity("search", identity); err != nil {
		return nil, err
	}

	var accessList []string
	if !identity.IsSuperuser() {
		accessList = identity.AccessTokens()
	}

	result, err := g.store.Search(ctx, identity.Tenant, accessList, req)
	if err != nil {
		return nil, err
	}

	if !identity.HasAllInfoAccess() {
		for i := range result.Objects {
			result.Objects[i] = *redactForIdentity(identity, &result.Objects[i])
		}
	}
	recordDecision("search", "allowed")
	return result, nil
}

// Delete removes one object the caller may see. Absence is ErrNotFound;
// an existing object outside the caller's visibility is
// ErrPermissionDenied and nothing is deleted.
func (g *Gate) Delete(ctx context.Context, identity *auth.Identity, id string) error {
	if err := g.validateIdentity("delete", identity); err != nil {
		return err
	}

	info, err := g.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if info == nil {
		recordDecision("delete", "not_found")
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if !canAccess(identity, &info.Object) {
		return g.deny(ctx, "delete", identity, id)
	}

	deleted, err := g.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		// Removed between the visibility check and the delete.
		recordDecision("delete", "not_found")
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	recordDecision("delete", "allowed")
	if g.notifier != nil {
		g.notifier.ObjectDeleted(ctx, &info.Object)
	}
	return nil
}

// DeleteMany removes a batch of objects with per-id outcomes. The whole
// batch must exist and be visible to the caller before any deletion
// runs: missing ids fail with ErrNotFound naming them, and a single
// visibility failure aborts with ErrPermissionDenied leaving every
// object in place.
func (g *Gate) DeleteMany(ctx context.Context, identity *auth.Identity, ids []string) (map[string]objectstore.DeleteStatus, error) {
	if err := g.validateIdentity("delete_many", identity); err != nil {
		return nil, err
	}

	unique := dedupe(ids)
	if len(unique) == 0 {
		return map[string]objectstore.DeleteStatus{}, nil
	}

	infos, err := g.store.MultiGet(ctx, unique)
	if err != nil {
		return nil, err
	}
	if missing := missingIDs(unique, infos); len(missing) > 0 {
		recordDecision("delete_many", "not_found")
		return nil, fmt.Errorf("%w: %s", ErrNotFound, strings.Join(missing, ", "))
	}

	byID := make(map[string]*objectstore.CollaborationObject, len(infos))
	for i := range infos {
		if !canAccess(identity, &infos[i].Object) {
			return nil, g.deny(ctx, "delete_many", identity, infos[i].Object.ID)
		}
		byID[infos[i].Object.ID] = &infos[i].Object
	}

	statuses, err := g.store.BulkDelete(ctx, unique)
	if err != nil {
		return nil, err
	}

	recordDecision("delete_many", "allowed")
	if g.notifier != nil {
		for id, status := range statuses {
			if status == objectstore.DeleteOK {
				if obj, ok := byID[id]; ok {
					g.notifier.ObjectDeleted(ctx, obj)
				}
			}
		}
	}
	return statuses, nil
}

func (g *Gate) validateIdentity(operation string, identity *auth.Identity) error {
	if err := identity.Validate(); err != nil {
		recordDecision(operation, "unauthenticated")
		return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return nil
}

// deny logs and returns a permission failure for an existing object.
func (g *Gate) deny(ctx context.Context, operation string, identity *auth.Identity, id string) error {
	recordDecision(operation, "denied")
	g.logger.Warn(ctx, "access denied",
		zap.String("operation", operation),
		zap.String("object_id", id),
		zap.String("user", identity.User),
		zap.String("tenant", identity.Tenant))
	return fmt.Errorf("%w: object %q", ErrPermissionDenied, id)
}

// dedupe preserves first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

// missingIDs returns the requested ids absent from the fetched set,
// sorted for stable reporting.
func missingIDs(requested []string, infos []objectstore.DocInfo) []string {
	found := make(map[string]struct{}, len(infos))
	for i := range infos {
		found[infos[i].Object.ID] = struct{}{}
	}
	var missing []string
	for _, id := range requested {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return missing
}
