package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/collabd/internal/config"
	"github.com/fyrsmithlabs/collabd/internal/objectstore"
	"github.com/fyrsmithlabs/collabd/internal/search"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create the backing index and apply its mapping",
	Long: `Provision creates the collaboration object index on the configured
search backend, applies the document mapping and exits. Safe to run
repeatedly; an existing index only has its mapping refreshed.

Examples:
  # Provision against the configured backend
  collabd provision

  # Provision a non-default cluster
  COLLABD_BACKEND_ADDRESSES=http://search-1:9200 collabd provision`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProvision(cmd.Context())
	},
}

func runProvision(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := buildLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	backend, err := search.NewOpenSearchBackend(&search.Config{
		Addresses:   cfg.Backend.Addresses,
		Username:    cfg.Backend.Username,
		Password:    cfg.Backend.Password.Value(),
		InsecureTLS: cfg.Backend.InsecureTLS,
		DialTimeout: cfg.Backend.DialTimeout.Duration(),
	}, logger)
	if err != nil {
		return fmt.Errorf("init search backend: %w", err)
	}

	store, err := objectstore.NewStore(&objectstore.Config{
		IndexName:       cfg.Store.IndexName,
		OpTimeout:       cfg.Store.OpTimeout.Duration(),
		DefaultPageSize: cfg.Store.DefaultPageSize,
		MaxPageSize:     cfg.Store.MaxPageSize,
	}, backend, logger)
	if err != nil {
		return fmt.Errorf("init object store: %w", err)
	}

	if err := store.EnsureReady(ctx); err != nil {
		return fmt.Errorf("provision index: %w", err)
	}

	fmt.Printf("index %q ready\n", store.IndexName())
	return nil
}
