package ctl

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mastra-ai/dsqlstore/schema"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index management commands (create, drop, list, describe)",
}

var indexCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an index (async), waiting for the job to complete",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexCreate,
}

var indexDropCmd = &cobra.Command{
	Use:   "drop <name>",
	Short: "Drop an index (DROP INDEX IF EXISTS)",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexDrop,
}

var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexes, optionally filtered to one table",
	RunE:  runIndexList,
}

var indexDescribeCmd = &cobra.Command{
	Use:   "describe <name>",
	Short: "Show detailed metadata and usage statistics for one index",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexDescribe,
}

func init() {
	indexCreateCmd.Flags().String("table", "", "Table the index is created on (required)")
	indexCreateCmd.Flags().StringSlice("columns", nil, "Comma-separated column list")
	indexCreateCmd.Flags().Bool("unique", false, "Create a unique index")
	indexCreateCmd.Flags().String("method", "", "Index method (default btree)")
	indexCreateCmd.Flags().String("storage", "", "WITH (...) storage clause contents")

	indexListCmd.Flags().String("table", "", "Restrict listing to one table")

	indexCmd.AddCommand(indexCreateCmd)
	indexCmd.AddCommand(indexDropCmd)
	indexCmd.AddCommand(indexListCmd)
	indexCmd.AddCommand(indexDescribeCmd)
}

func runIndexCreate(cmd *cobra.Command, args []string) error {
	name := args[0]
	table, _ := cmd.Flags().GetString("table")
	columns, _ := cmd.Flags().GetStringSlice("columns")
	unique, _ := cmd.Flags().GetBool("unique")
	method, _ := cmd.Flags().GetString("method")
	storage, _ := cmd.Flags().GetString("storage")

	if table == "" || len(columns) == 0 {
		return fmt.Errorf("--table and --columns are required")
	}

	ctx := cmd.Context()
	conn, err := connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	opts := schema.CreateIndexOptions{
		Name: name, Table: table, Columns: columns, Unique: unique, Method: method, Storage: storage,
	}
	if err := conn.indexes.CreateIndex(ctx, opts); err != nil {
		return err
	}
	cmd.Printf("index %q ready on %s (%s)\n", name, table, strings.Join(columns, ", "))
	return nil
}

func runIndexDrop(cmd *cobra.Command, args []string) error {
	name := args[0]
	ctx := cmd.Context()
	conn, err := connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.indexes.DropIndex(ctx, name); err != nil {
		return err
	}
	cmd.Printf("index %q dropped\n", name)
	return nil
}

func runIndexList(cmd *cobra.Command, args []string) error {
	table, _ := cmd.Flags().GetString("table")
	ctx := cmd.Context()
	conn, err := connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	list, err := conn.indexes.ListIndexes(ctx, table)
	if err != nil {
		return err
	}
	for _, info := range list {
		cmd.Printf("%-40s %-25s unique=%-5v cols=%s\n", info.Name, info.Table, info.Unique, strings.Join(info.Columns, ","))
	}
	return nil
}

func runIndexDescribe(cmd *cobra.Command, args []string) error {
	name := args[0]
	ctx := cmd.Context()
	conn, err := connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	info, err := conn.indexes.DescribeIndex(ctx, name)
	if err != nil {
		return err
	}
	cmd.Printf("name:       %s\n", info.Name)
	cmd.Printf("table:      %s\n", info.Table)
	cmd.Printf("columns:    %s\n", strings.Join(info.Columns, ", "))
	cmd.Printf("unique:     %v\n", info.Unique)
	cmd.Printf("method:     %s\n", info.Method)
	cmd.Printf("size:       %d bytes\n", info.SizeBytes)
	cmd.Printf("scans:      %d\n", info.Scans)
	cmd.Printf("tup_read:   %d\n", info.TuplesRead)
	cmd.Printf("tup_fetch:  %d\n", info.TuplesFetch)
	return nil
}
