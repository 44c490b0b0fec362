package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/rosahcp/cmd/rosahcp/handlers"
)

// Provision returns the command that runs one provisioning job to completion
// in-process.
//
// Required flags:
//
//	--file, -f: Path to the provisioning spec YAML file
//
// Optional flags:
//
//	--config, -c: Path to service configuration YAML file (default: rosahcp.yaml)
//	--kubeconfig: Path to the management cluster kubeconfig
//	--plain: Line-per-transition output instead of the dashboard
func Provision() *cobra.Command {
	var configPath string
	var kubeconfigPath string
	var specPath string
	var plain bool

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision a cluster from a spec file",
		Long: `Provision a cluster from a spec file.

Reads the resource specs, submits them in dependency order, and watches the
job until every resource converges or the job fails. On an interactive
terminal a live dashboard is shown; otherwise transitions are printed one
per line.

Examples:
  # Provision and watch on the dashboard
  rosahcp provision -f cluster-specs.yaml

  # Plain output, e.g. for CI logs
  rosahcp provision -f cluster-specs.yaml --plain`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Provision(cmd.Context(), configPath, kubeconfigPath, specPath, plain)
		},
	}

	cmd.Flags().StringVarP(&specPath, "file", "f", "", "Path to the provisioning spec file")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: rosahcp.yaml)")
	cmd.Flags().StringVar(&kubeconfigPath, "kubeconfig", "", "Path to management cluster kubeconfig")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print transitions line by line instead of the dashboard")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
