package main

import (
	"fmt"
	"os"

	"github.com/mastra-ai/dsqlstore/internal/ctl"
)

// Set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctl.SetVersion(version, commit, date)
	if err := ctl.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
