package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"ProductCatalog/internal/catalog"
	"ProductCatalog/internal/config"
	"ProductCatalog/pkg/kit"
)

const service = "catalog"

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog: %v\n", err)
		os.Exit(1)
	}

	log, err := kit.NewLogger(service, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	manager := catalog.NewManager(ctx, newStore(cfg, log),
		catalog.WithLogger(log),
		catalog.WithMetrics(catalog.NewMetrics(reg)),
	)

	s := &catalog.Server{
		Catalog:     manager,
		Log:         log,
		MinProducts: cfg.MinProducts,
	}
	if cfg.RateLimit.Writes > 0 {
		s.WriteLimit = kit.NewIPRateLimiter(cfg.RateLimit.Writes, cfg.RateLimit.Window).Middleware
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Token == "" {
		log.Warn("metrics enabled without token, /metrics will refuse every request")
	}

	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsToken:   cfg.Metrics.Token,
		CORSOrigins:    cfg.CORS.Origins,
	})

	if err := kit.RunHTTPServer(ctx, cfg.Addr, h, log, cfg.ShutdownTimeout); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func newStore(cfg *config.Config, log *zap.Logger) catalog.Store {
	if cfg.Storage == config.StorageMemory {
		log.Warn("memory storage selected, catalog will not survive restarts")
		return catalog.NewMemStore()
	}
	log.Info("catalog backing file", zap.String("path", cfg.DataFile))
	return catalog.NewFileStore(cfg.DataFile)
}
