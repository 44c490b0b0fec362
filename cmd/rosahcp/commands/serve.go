package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/rosahcp/cmd/rosahcp/handlers"
)

// Serve returns the command that runs the orchestration service.
//
// Optional flags:
//
//	--config, -c: Path to service configuration YAML file (default: rosahcp.yaml)
//	--kubeconfig: Path to the management cluster kubeconfig (default: $KUBECONFIG or kubeconfig)
func Serve() *cobra.Command {
	var configPath string
	var kubeconfigPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the provisioning service",
		Long: `Run the provisioning service.

The service resumes any unfinished jobs from the store, then accepts new
provisioning jobs over the HTTP API and streams their transitions over
websockets.

Examples:
  # Serve with rosahcp.yaml in the current directory
  rosahcp serve

  # Serve with an explicit config and kubeconfig
  rosahcp serve -c production.yaml --kubeconfig mgmt-kubeconfig`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Serve(cmd.Context(), configPath, kubeconfigPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: rosahcp.yaml)")
	cmd.Flags().StringVar(&kubeconfigPath, "kubeconfig", "", "Path to management cluster kubeconfig")

	return cmd
}
