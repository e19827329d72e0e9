// Package ctl implements dsqlctl, the operator CLI for the storage core:
// schema bootstrap, table lifecycle, and index management against a live
// Aurora DSQL cluster.
package ctl

import (
	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

// SetVersion is called from main to inject build-time version info.
func SetVersion(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date
}

var rootCmd = &cobra.Command{
	Use:   "dsqlctl",
	Short: "dsqlctl — operator CLI for the Aurora DSQL storage core",
	Long: `dsqlctl drives the storage core's schema bootstrap, table lifecycle,
and index management operations against a live Aurora DSQL cluster.

Configuration is resolved from command-line flags, DSQL_* environment
variables, the --config file, and built-in defaults, in that priority
order.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to dsqlstore.toml config file")
	rootCmd.PersistentFlags().String("id", "", "Cluster identifier (overrides config/DSQL_ID)")
	rootCmd.PersistentFlags().String("host", "", "Cluster endpoint host (overrides config/DSQL_HOST)")
	rootCmd.PersistentFlags().String("schema", "", "Schema name (overrides config/DSQL_SCHEMA_NAME)")

	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print dsqlctl version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("dsqlctl %s (commit %s, built %s)\n", buildVersion, buildCommit, buildDate)
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
