package ctl

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mastra-ai/dsqlstore/internal/identifier"
	"github.com/mastra-ai/dsqlstore/internal/schemaboot"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Schema bootstrap commands",
}

var schemaBootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Ensure the configured schema exists, creating it if absent",
	RunE:  runSchemaBootstrap,
}

func init() {
	schemaCmd.AddCommand(schemaBootstrapCmd)
}

// rawExec adapts a connection's pool directly to schemaboot.Execer, the
// same shape Store uses internally, so the CLI can bootstrap a schema
// without first constructing a Store against it.
type rawExec struct{ conn *connection }

func (r rawExec) SchemaExists(ctx context.Context, schemaName string) (bool, error) {
	row, err := r.conn.pool.OneOrNone(ctx, `SELECT 1 FROM information_schema.schemata WHERE schema_name = $1`, schemaName)
	if err != nil {
		return false, err
	}
	var probe int
	if err := row.Scan(&probe); err != nil {
		return false, err
	}
	return probe == 1, nil
}

func (r rawExec) CreateSchema(ctx context.Context, schemaName string) error {
	quoted, err := identifier.Quote("schema", schemaName)
	if err != nil {
		return err
	}
	return r.conn.pool.None(ctx, `CREATE SCHEMA IF NOT EXISTS `+quoted)
}

func runSchemaBootstrap(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	conn, err := connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.SchemaName == "public" {
		cmd.Println("public schema requires no bootstrap")
		return nil
	}

	if err := schemaboot.Default().Ensure(ctx, rawExec{conn}, cfg.SchemaName); err != nil {
		return err
	}
	cmd.Printf("schema %q ready\n", cfg.SchemaName)
	return nil
}
