package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/rosahcp/cmd/rosahcp/handlers"
)

// List returns the command that lists all jobs in the store.
func List() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List provisioning jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.List(cmd.Context(), cmd.OutOrStdout(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: rosahcp.yaml)")

	return cmd
}
