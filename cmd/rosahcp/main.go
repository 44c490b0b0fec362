// Package main is the entry point for the rosahcp CLI.
//
// rosahcp provisions ROSA hosted control plane clusters by orchestrating
// resource manifests on a management cluster: it sequences dependent
// resources, polls them to convergence, and aggregates per-resource state
// into one job view.
//
// Commands: serve, provision, status, list, cancel.
//
// For detailed usage information, run:
//
//	rosahcp --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/rosahcp/cmd/rosahcp/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
