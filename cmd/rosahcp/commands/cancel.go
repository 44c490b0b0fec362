package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/rosahcp/cmd/rosahcp/handlers"
)

// Cancel returns the command that requests cancellation of a running job on
// the service.
func Cancel() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a running provisioning job",
		Long: `Cancel a running provisioning job.

Cancellation is cooperative: in-flight submissions and probes finish and
their results are recorded, but no new work is started. The job settles in
the Cancelled state.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Cancel(cmd.Context(), cmd.OutOrStdout(), serverURL, args[0])
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Base URL of the provisioning service")

	return cmd
}
