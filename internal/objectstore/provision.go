// internal/objectstore/provision.go
package objectstore

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/collabd/internal/search"
)

// ensureIndex makes the backing index ready before an operation runs.
// It is idempotent and safe under concurrent callers: the backend is the
// source of truth for index existence, so duplicate provisioning
// attempts are tolerated rather than serialized.
//
// When the index is absent it is created with the full settings/mappings
// bundle. A creation race is success for the loser ("already exists"),
// and any other creation failure triggers one existence re-check before
// the failure is declared, since the cluster may have made the index
// visible between the check and the create.
//
// When the index exists but this process has not yet confirmed the
// mapping (fresh process against an index created by an older schema),
// an additive mapping update is applied once per process lifetime. The
// mappingApplied flag is a best-effort cache guarded by compare-and-set,
// not a lock.
func (s *Store) ensureIndex(ctx context.Context) error {
	exists, err := s.backend.IndexExists(ctx, s.index)
	if err != nil {
		return s.wrapBackendErr("ensure index", err)
	}

	if !exists {
		if err := s.createIndex(ctx); err != nil {
			return err
		}
		// A fresh index carries the latest mapping.
		s.mappingApplied.Store(true)
		return nil
	}

	if s.mappingApplied.CompareAndSwap(false, true) {
		if err := s.applyMapping(ctx); err != nil {
			s.mappingApplied.Store(false)
			return err
		}
	}
	return nil
}

func (s *Store) createIndex(ctx context.Context) error {
	err := s.backend.CreateIndex(ctx, s.index, []byte(indexSettings))
	if err == nil {
		recordProvisionOutcome("created")
		s.logger.Info(ctx, "created object index", zap.String("index", s.index))
		return nil
	}

	if errors.Is(err, search.ErrIndexExists) {
		// Another creator won the race.
		recordProvisionOutcome("raced")
		s.logger.Debug(ctx, "object index created concurrently", zap.String("index", s.index))
		return nil
	}

	// Creation failures can mask an index that became visible after the
	// existence check; re-check once before giving up.
	if exists, checkErr := s.backend.IndexExists(ctx, s.index); checkErr == nil && exists {
		recordProvisionOutcome("raced")
		s.logger.Debug(ctx, "object index appeared after failed create",
			zap.String("index", s.index), zap.Error(err))
		return nil
	}

	recordProvisionOutcome("failed")
	return fmt.Errorf("%w: create index %q: %v", ErrProvisioningFailure, s.index, err)
}

func (s *Store) applyMapping(ctx context.Context) error {
	err := s.backend.PutMapping(ctx, s.index, []byte(indexMappings))
	if err == nil {
		recordProvisionOutcome("mapping_applied")
		s.logger.Info(ctx, "applied object index mapping",
			zap.String("index", s.index), zap.Int("schema_version", schemaVersion))
		return nil
	}

	if errors.Is(err, search.ErrIndexNotFound) {
		// Index deleted under us; absence re-triggers creation on the
		// next call, so this is non-fatal.
		s.logger.Warn(ctx, "object index vanished during mapping update",
			zap.String("index", s.index))
		return nil
	}

	recordProvisionOutcome("failed")
	return fmt.Errorf("%w: update mapping on %q: %v", ErrProvisioningFailure, s.index, err)
}
