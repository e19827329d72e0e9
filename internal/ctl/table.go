package ctl

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mastra-ai/dsqlstore/internal/fixtures"
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Table lifecycle commands (create, drop, clear)",
}

var tableCreateCmd = &cobra.Command{
	Use:   "create <table>",
	Short: "Create a table from its built-in schema, with *Z shadow columns",
	Long: fmt.Sprintf(`Create a table from one of the built-in illustrative schemas:

  %s

Use --with-index to also create the table's default composite indexes,
waiting for each async index job; an index that fails ends the command
with an error.`, strings.Join(fixtures.Names(), ", ")),
	Args: cobra.ExactArgs(1),
	RunE: runTableCreate,
}

var tableDropCmd = &cobra.Command{
	Use:   "drop <table>",
	Short: "Drop a table (DROP TABLE IF EXISTS)",
	Args:  cobra.ExactArgs(1),
	RunE:  runTableDrop,
}

var tableClearCmd = &cobra.Command{
	Use:   "clear <table>",
	Short: "Delete all rows from a table (DELETE FROM, never TRUNCATE)",
	Args:  cobra.ExactArgs(1),
	RunE:  runTableClear,
}

func init() {
	tableCreateCmd.Flags().Bool("with-index", false, "Also create the table's default composite indexes")
	tableCmd.AddCommand(tableCreateCmd)
	tableCmd.AddCommand(tableDropCmd)
	tableCmd.AddCommand(tableClearCmd)
}

func runTableCreate(cmd *cobra.Command, args []string) error {
	name := args[0]
	desc, ok := fixtures.ByName(name)
	if !ok {
		return fmt.Errorf("unknown table %q; known tables: %s", name, strings.Join(fixtures.Names(), ", "))
	}

	ctx := cmd.Context()
	conn, err := connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.store.CreateTable(ctx, desc, conn.indexes); err != nil {
		return err
	}
	cmd.Printf("table %q created\n", name)

	withIndex, _ := cmd.Flags().GetBool("with-index")
	if !withIndex {
		return nil
	}
	for _, opts := range fixtures.DefaultIndexes() {
		if opts.Table != name {
			continue
		}
		if err := conn.indexes.CreateIndex(ctx, opts); err != nil {
			return fmt.Errorf("creating index %q: %w", opts.Name, err)
		}
		cmd.Printf("index %q created\n", opts.Name)
	}
	return nil
}

func runTableDrop(cmd *cobra.Command, args []string) error {
	name := args[0]
	ctx := cmd.Context()
	conn, err := connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.store.DropTable(ctx, name); err != nil {
		return err
	}
	cmd.Printf("table %q dropped\n", name)
	return nil
}

func runTableClear(cmd *cobra.Command, args []string) error {
	name := args[0]
	ctx := cmd.Context()
	conn, err := connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.store.ClearTable(ctx, name); err != nil {
		return err
	}
	cmd.Printf("table %q cleared\n", name)
	return nil
}
