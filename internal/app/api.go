package app

import (
	"context"

	"go-hris-leave/internal/bootstrap"
	"go-hris-leave/internal/config"

	"go.uber.org/zap"
)

// RunAPI serves HTTP until a shutdown signal arrives.
func RunAPI(cfg *config.Config, logger *zap.Logger) error {
	a, err := Build(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.StartBackground(ctx)

	// Without Redis the counters live in this process, so the worker cannot
	// reconcile them.
	if a.Redis == nil {
		go runStatsRecompute(ctx, a.Aggregator, cfg.Workflow.StatsRecomputeInterval, a.Logger)
	}

	router := bootstrap.NewRouter(bootstrap.RouterConfig{
		Production:  cfg.IsProduction(),
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	registerModules(router, a)

	bootstrap.StartHTTPServer(
		router,
		bootstrap.ServerConfig{
			Port:            cfg.Server.Port,
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			IdleTimeout:     cfg.Server.IdleTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		},
		a.Audit,
		func(context.Context) { cancel() },
		a.Close,
	)
	return nil
}
