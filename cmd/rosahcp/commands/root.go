// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the rosahcp CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rosahcp",
		Short: "Provision ROSA hosted control plane clusters",
	}

	cmd.AddCommand(Serve())
	cmd.AddCommand(Provision())
	cmd.AddCommand(Status())
	cmd.AddCommand(List())
	cmd.AddCommand(Cancel())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
