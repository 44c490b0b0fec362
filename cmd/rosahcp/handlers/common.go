// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command
// definitions in the commands package. Handlers are framework-agnostic and
// can be tested independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"

	"github.com/imamik/rosahcp/internal/config"
	"github.com/imamik/rosahcp/internal/gateway"
	"github.com/imamik/rosahcp/internal/graph"
	"github.com/imamik/rosahcp/internal/orchestrator"
	"github.com/imamik/rosahcp/internal/platform/kube"
	"github.com/imamik/rosahcp/internal/retry"
	"github.com/imamik/rosahcp/internal/store"
)

const defaultConfigFile = "rosahcp.yaml"

// loadConfig loads the service config from the given path, falling back to
// rosahcp.yaml in the working directory and finally to built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		} else {
			cfg := &config.Config{}
			cfg.ApplyDefaults()
			return cfg, nil
		}
	}
	return config.LoadFile(path)
}

func newLogger() logr.Logger {
	return stdr.New(log.New(os.Stderr, "", log.LstdFlags))
}

// buildStore creates the persistence backend selected by the config.
func buildStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "file":
		return store.NewFileStore(cfg.Store.Dir)
	case "s3":
		return store.NewS3Store(ctx,
			cfg.Store.S3Endpoint, cfg.Store.S3Region, cfg.Store.S3Bucket,
			cfg.Store.S3AccessKey, cfg.Store.S3SecretKey)
	case "none":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// buildKubeClients creates the apply gateway and status prober against the
// management cluster. The kubeconfig path resolves flag, then $KUBECONFIG,
// then ./kubeconfig.
func buildKubeClients(kubeconfigPath string) (gateway.ApplyGateway, gateway.StatusProber, error) {
	if kubeconfigPath == "" {
		kubeconfigPath = os.Getenv("KUBECONFIG")
	}
	if kubeconfigPath == "" {
		kubeconfigPath = "kubeconfig"
	}

	// #nosec G304
	kubeconfig, err := os.ReadFile(kubeconfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read kubeconfig %s: %w", kubeconfigPath, err)
	}

	gw, err := kube.NewGatewayFromKubeconfig(kubeconfig)
	if err != nil {
		return nil, nil, err
	}
	prober, err := kube.NewProberFromKubeconfig(kubeconfig)
	if err != nil {
		return nil, nil, err
	}
	return gw, prober, nil
}

// buildManager assembles the orchestration manager from the config.
func buildManager(cfg *config.Config, gw gateway.ApplyGateway, prober gateway.StatusProber, st store.Store, log logr.Logger) *orchestrator.Manager {
	perKind := make(map[graph.NodeKind]retry.Policy, len(cfg.Retry.PerKind))
	for kind, policy := range cfg.Retry.PerKind {
		perKind[graph.NodeKind(kind)] = policy
	}

	return orchestrator.NewManager(orchestrator.ManagerOptions{
		Gateway:       gw,
		Prober:        prober,
		Store:         st,
		Policies:      orchestrator.PolicySet{Default: cfg.Retry.Default, PerKind: perKind},
		PollInterval:  cfg.Orchestrator.PollInterval,
		CallTimeout:   cfg.Orchestrator.CallTimeout,
		PoolSize:      cfg.Orchestrator.PoolSize,
		EventBuffer:   cfg.Orchestrator.EventBuffer,
		Log:           log,
		EnableMetrics: cfg.Server.EnableMetrics,
	})
}
