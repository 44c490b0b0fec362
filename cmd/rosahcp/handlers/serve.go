package handlers

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/imamik/rosahcp/internal/server"
)

// Serve runs the provisioning service until interrupted.
//
// Startup order matters: the store-backed resume runs before the listener
// opens, so clients never observe a job as missing that the service is about
// to pick back up.
func Serve(ctx context.Context, configPath, kubeconfigPath string) error {
	cfg, err := loadConfig(configPath)
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

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := newLogger()
	manager := buildManager(cfg, gw, prober, st, log)
	if err := manager.Start(ctx); err != nil {
		return err
	}

	srv := server.New(manager, server.Options{
		ListenAddr:    cfg.Server.ListenAddr,
		EnableMetrics: cfg.Server.EnableMetrics,
		Log:           log,
	})
	return srv.Run(ctx)
}
