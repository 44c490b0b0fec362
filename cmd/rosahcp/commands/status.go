package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/rosahcp/cmd/rosahcp/handlers"
)

// Status returns the command that prints one job's state from the store.
func Status() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the state of a provisioning job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Status(cmd.Context(), cmd.OutOrStdout(), configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: rosahcp.yaml)")

	return cmd
}
