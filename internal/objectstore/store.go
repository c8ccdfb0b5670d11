// internal/objectstore/store.go
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/collabd/internal/logging"
	"github.com/fyrsmithlabs/collabd/internal/search"
)

// indexNameRe matches valid index names: lowercase, optionally hidden
// (leading dot), no leading underscore or dash.
var indexNameRe = regexp.MustCompile(`^\.?[a-z0-9][a-z0-9_\-]{0,254}$`)

// Config configures the collaboration object store.
type Config struct {
	// IndexName is the backing index for all collaboration objects.
	IndexName string

	// OpTimeout bounds every backend round-trip. Exceeding it surfaces
	// ErrTimeout; nothing is retried internally.
	OpTimeout time.Duration

	// DefaultPageSize applies when a search request leaves MaxItems 0.
	DefaultPageSize int

	// MaxPageSize caps requested page sizes.
	MaxPageSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.IndexName == "" {
		c.IndexName = ".collaboration-objects"
	}
	if c.OpTimeout == 0 {
		c.OpTimeout = 10 * time.Second
	}
	if c.DefaultPageSize == 0 {
		c.DefaultPageSize = 20
	}
	if c.MaxPageSize == 0 {
		c.MaxPageSize = 10000
	}
}

// Validate validates the store configuration.
func (c *Config) Validate() error {
	if !indexNameRe.MatchString(c.IndexName) {
		return fmt.Errorf("invalid index name %q", c.IndexName)
	}
	if c.OpTimeout <= 0 {
		return fmt.Errorf("operation timeout must be positive")
	}
	if c.DefaultPageSize < 1 || c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("default page size must be in [1, %d], got %d", c.MaxPageSize, c.DefaultPageSize)
	}
	return nil
}

// Store is the collaboration object store facade. All operations ensure
// the backing index first, apply the fixed operation timeout, and leave
// retries to callers. Visibility rules are enforced by the access gate
// wrapping this store, never here.
type Store struct {
	backend search.Backend
	logger  *logging.Logger
	tracer  trace.Tracer

	index           string
	opTimeout       time.Duration
	defaultPageSize int
	maxPageSize     int

	// mappingApplied caches "this process confirmed the mapping" for the
	// process lifetime. See ensureIndex.
	mappingApplied atomic.Bool

	now func() time.Time
}

// NewStore creates a store over an explicit backend capability. The
// backend is constructed once at startup and passed in; the store never
// builds its own client.
func NewStore(cfg *Config, backend search.Backend, logger *logging.Logger) (*Store, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Store{
		backend:         backend,
		logger:          logger.Named("objectstore"),
		tracer:          otel.Tracer("collabd/objectstore"),
		index:           cfg.IndexName,
		opTimeout:       cfg.OpTimeout,
		defaultPageSize: cfg.DefaultPageSize,
		maxPageSize:     cfg.MaxPageSize,
		now:             func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}, nil
}

// IndexName returns the backing index name.
func (s *Store) IndexName() string {
	return s.index
}

// EnsureReady provisions the backing index outside any operation, for
// startup checks and the provision command.
func (s *Store) EnsureReady(ctx context.Context) (err error) {
	ctx, span, cancel := s.startOp(ctx, "objectstore.ensure_ready")
	defer cancel()
	defer span.End()
	defer observeOperation("ensure_ready", time.Now(), &err)

	if err = s.ensureIndex(ctx); err != nil {
		return s.failSpan(span, err)
	}
	return nil
}

// Get fetches one object by id. Absence is a normal outcome: (nil, nil).
func (s *Store) Get(ctx context.Context, id string) (info *DocInfo, err error) {
	ctx, span, cancel := s.startOp(ctx, "objectstore.get",
		attribute.String("object.id", id))
	defer cancel()
	defer span.End()
	defer observeOperation("get", time.Now(), &err)

	if id == "" {
		return nil, s.failSpan(span, fmt.Errorf("%w: id is required", ErrInvalidRequest))
	}
	if err = s.ensureIndex(ctx); err != nil {
		return nil, s.failSpan(span, err)
	}

	hit, err := s.backend.GetDocument(ctx, s.index, id)
	if err != nil {
		return nil, s.failSpan(span, s.wrapBackendErr("get", err))
	}
	if hit == nil {
		span.SetAttributes(attribute.Bool("object.found", false))
		return nil, nil
	}

	obj, err := UnmarshalObject(hit.Source, hit.ID)
	if err != nil {
		return nil, s.failSpan(span, err)
	}

	return &DocInfo{
		Object:      *obj,
		Version:     hit.Version,
		SeqNo:       hit.SeqNo,
		PrimaryTerm: hit.PrimaryTerm,
	}, nil
}

// MultiGet fetches objects by id. Ids that do not exist are silently
// omitted; callers diff the result against the requested set to detect
// partial misses.
func (s *Store) MultiGet(ctx context.Context, ids []string) (infos []DocInfo, err error) {
	ctx, span, cancel := s.startOp(ctx, "objectstore.multi_get",
		attribute.Int("object.count", len(ids)))
	defer cancel()
	defer span.End()
	defer observeOperation("multi_get", time.Now(), &err)

	if len(ids) == 0 {
		return nil, nil
	}
	if err = s.ensureIndex(ctx); err != nil {
		return nil, s.failSpan(span, err)
	}

	hits, err := s.backend.MultiGetDocuments(ctx, s.index, ids)
	if err != nil {
		return nil, s.failSpan(span, s.wrapBackendErr("multi get", err))
	}

	infos = make([]DocInfo, 0, len(hits))
	for _, hit := range hits {
		obj, perr := UnmarshalObject(hit.Source, hit.ID)
		if perr != nil {
			err = perr
			return nil, s.failSpan(span, err)
		}
		infos = append(infos, DocInfo{
			Object:      *obj,
			Version:     hit.Version,
			SeqNo:       hit.SeqNo,
			PrimaryTerm: hit.PrimaryTerm,
		})
	}
	span.SetAttributes(attribute.Int("object.found", len(infos)))
	return infos, nil
}

// Create stores a new object with create-only semantics and returns its
// id. An empty id requests a backend-assigned one. Tenant and access
// must already be stamped by the caller; creation and update times are
// stamped here.
func (s *Store) Create(ctx context.Context, obj *CollaborationObject, id string) (assigned string, err error) {
	ctx, span, cancel := s.startOp(ctx, "objectstore.create",
		attribute.String("object.type", string(obj.Type)))
	defer cancel()
	defer span.End()
	defer observeOperation("create", time.Now(), &err)

	if obj.Tenant == "" {
		return "", s.failSpan(span, fmt.Errorf("%w: tenant is required", ErrInvalidRequest))
	}

	stamped := *obj
	now := s.now()
	stamped.CreatedTime = now
	stamped.UpdatedTime = now

	body, err := MarshalObject(&stamped)
	if err != nil {
		return "", s.failSpan(span, err)
	}

	if err = s.ensureIndex(ctx); err != nil {
		return "", s.failSpan(span, err)
	}

	assigned, err = s.backend.CreateDocument(ctx, s.index, id, body)
	if err != nil {
		if errors.Is(err, search.ErrConflict) {
			err = fmt.Errorf("%w: id %q", ErrConflictingCreate, id)
			return "", s.failSpan(span, err)
		}
		return "", s.failSpan(span, s.wrapBackendErr("create", err))
	}

	span.SetAttributes(attribute.String("object.id", assigned))
	s.logger.Debug(ctx, "created object",
		zap.String("id", assigned), zap.String("type", string(obj.Type)))
	return assigned, nil
}

// Search executes a filtered, sorted, paginated query. The tenant term
// filter is always applied; accessList adds an ACL intersection filter
// when non-empty (privileged callers pass none).
func (s *Store) Search(ctx context.Context, tenant string, accessList []string, req *SearchRequest) (result *SearchResult, err error) {
	ctx, span, cancel := s.startOp(ctx, "objectstore.search",
		attribute.String("object.tenant", tenant))
	defer cancel()
	defer span.End()
	defer observeOperation("search", time.Now(), &err)

	if req == nil {
		req = &SearchRequest{}
	}
	if req.FromIndex < 0 {
		return nil, s.failSpan(span, fmt.Errorf("%w: fromIndex must be >= 0, got %d", ErrInvalidRequest, req.FromIndex))
	}
	if req.MaxItems < 0 {
		return nil, s.failSpan(span, fmt.Errorf("%w: maxItems must be >= 0, got %d", ErrInvalidRequest, req.MaxItems))
	}

	size := req.MaxItems
	if size == 0 {
		size = s.defaultPageSize
	}
	if size > s.maxPageSize {
		size = s.maxPageSize
	}

	body, err := buildSearchBody(tenant, accessList, req, size)
	if err != nil {
		return nil, s.failSpan(span, err)
	}

	if err = s.ensureIndex(ctx); err != nil {
		return nil, s.failSpan(span, err)
	}

	res, err := s.backend.Search(ctx, s.index, body)
	if err != nil {
		return nil, s.failSpan(span, s.wrapBackendErr("search", err))
	}

	objects := make([]CollaborationObject, 0, len(res.Hits))
	for _, hit := range res.Hits {
		obj, perr := UnmarshalObject(hit.Source, hit.ID)
		if perr != nil {
			err = perr
			return nil, s.failSpan(span, err)
		}
		objects = append(objects, *obj)
	}

	recordSearchResultSize(len(objects))
	span.SetAttributes(
		attribute.Int("search.hits", len(objects)),
		attribute.Int64("search.total", res.Total),
	)

	return &SearchResult{
		Objects:    objects,
		StartIndex: req.FromIndex,
		TotalHits:  res.Total,
		Relation:   hitRelation(string(res.Relation)),
	}, nil
}

// Delete removes one object by id. Returns true iff the object existed.
func (s *Store) Delete(ctx context.Context, id string) (deleted bool, err error) {
	ctx, span, cancel := s.startOp(ctx, "objectstore.delete",
		attribute.String("object.id", id))
	defer cancel()
	defer span.End()
	defer observeOperation("delete", time.Now(), &err)

	if id == "" {
		return false, s.failSpan(span, fmt.Errorf("%w: id is required", ErrInvalidRequest))
	}
	if err = s.ensureIndex(ctx); err != nil {
		return false, s.failSpan(span, err)
	}

	deleted, err = s.backend.DeleteDocument(ctx, s.index, id)
	if err != nil {
		return false, s.failSpan(span, s.wrapBackendErr("delete", err))
	}
	span.SetAttributes(attribute.Bool("object.deleted", deleted))
	return deleted, nil
}

// BulkDelete removes objects by id with independent per-id outcomes.
// One id failing never blocks the others; partial success is a
// first-class result, not an error.
func (s *Store) BulkDelete(ctx context.Context, ids []string) (statuses map[string]DeleteStatus, err error) {
	ctx, span, cancel := s.startOp(ctx, "objectstore.bulk_delete",
		attribute.Int("object.count", len(ids)))
	defer cancel()
	defer span.End()
	defer observeOperation("bulk_delete", time.Now(), &err)

	statuses = make(map[string]DeleteStatus, len(ids))
	if len(ids) == 0 {
		return statuses, nil
	}
	if err = s.ensureIndex(ctx); err != nil {
		return nil, s.failSpan(span, err)
	}

	results, err := s.backend.BulkDeleteDocuments(ctx, s.index, ids)
	if err != nil {
		return nil, s.failSpan(span, s.wrapBackendErr("bulk delete", err))
	}

	for _, id := range ids {
		result, ok := results[id]
		switch {
		case !ok:
			statuses[id] = DeleteFailed
		case result.Deleted():
			statuses[id] = DeleteOK
		case result.NotFound():
			statuses[id] = DeleteNotFound
		default:
			statuses[id] = DeleteFailed
			s.logger.Warn(ctx, "bulk delete item failed",
				zap.String("id", id), zap.String("reason", result.Reason))
		}
	}
	return statuses, nil
}

// startOp applies the fixed operation timeout and opens a span.
func (s *Store) startOp(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	ctx, span := s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, span, cancel
}

// failSpan records err on the span and passes it through.
func (s *Store) failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// wrapBackendErr translates backend failures into the store taxonomy.
func (s *Store) wrapBackendErr(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s", ErrTimeout, op)
	case search.IsTransient(err):
		return fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, op, err)
	default:
		return fmt.Errorf("%s failed: %w", op, err)
	}
}
