package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/imamik/rosahcp/internal/config"
	"github.com/imamik/rosahcp/internal/ui/tui"
)

// Provision runs one provisioning job in-process and watches it to a
// terminal state.
func Provision(ctx context.Context, configPath, kubeconfigPath, specPath string, plain bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	clusterName, specs, err := config.LoadSpecFile(specPath)
	if err != nil {
		return err
	}

	gw, prober, err := buildKubeClients(kubeconfigPath)
	if err != nil {
		return err
	}

	st, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}

	// SIGINT requests cooperative cancellation rather than killing the
	// process outright.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manager := buildManager(cfg, gw, prober, st, newLogger())
	if err := manager.Start(ctx); err != nil {
		return err
	}

	jobID, err := manager.CreateJob(clusterName, specs)
	if err != nil {
		return err
	}
	fmt.Printf("provisioning %s (job %s, %d resources)\n", clusterName, jobID, len(specs))

	if !plain && isatty.IsTerminal(os.Stdout.Fd()) {
		return tui.Run(ctx, manager, jobID)
	}
	return tui.Follow(ctx, os.Stdout, manager, jobID)
}
