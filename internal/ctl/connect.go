package ctl

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	dsqlstore "github.com/mastra-ai/dsqlstore"
	"github.com/mastra-ai/dsqlstore/internal/dsqlconfig"
	"github.com/mastra-ai/dsqlstore/internal/dsqlpool"
	"github.com/mastra-ai/dsqlstore/internal/schemaboot"
)

// resolveConfig loads dsqlconfig with priority: defaults -> config file ->
// DSQL_* environment variables -> command-line flags, the last of which
// wins since it is the most specific to this invocation.
func resolveConfig(cmd *cobra.Command) (*dsqlconfig.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := dsqlconfig.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if id, _ := cmd.Flags().GetString("id"); id != "" {
		cfg.ID = id
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Host = host
	}
	if schemaName, _ := cmd.Flags().GetString("schema"); schemaName != "" {
		cfg.SchemaName = schemaName
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// connection bundles the pool and the two top-level storage-core
// components every dsqlctl subcommand operates through.
type connection struct {
	pool    *dsqlpool.Pool
	store   *dsqlstore.Store
	indexes *dsqlstore.IndexManager
}

func (c *connection) Close() {
	c.pool.Close()
}

func connect(ctx context.Context, cmd *cobra.Command) (*connection, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	pool, err := dsqlpool.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}

	store := dsqlstore.New(pool, cfg.SchemaName, schemaboot.Default(), logger)
	indexes := dsqlstore.NewIndexManager(pool, cfg.SchemaName)

	return &connection{pool: pool, store: store, indexes: indexes}, nil
}
