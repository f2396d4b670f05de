// Package app is the composition root: it wires configuration, the catalog, the
// cluster client, the wizard engine and the HTTP API together.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kv-shepherd.io/vmwizard/internal/api/handlers"
	"kv-shepherd.io/vmwizard/internal/catalog"
	"kv-shepherd.io/vmwizard/internal/config"
	apperrors "kv-shepherd.io/vmwizard/internal/pkg/errors"
	"kv-shepherd.io/vmwizard/internal/pkg/logger"
	"kv-shepherd.io/vmwizard/internal/pkg/worker"
	"kv-shepherd.io/vmwizard/internal/provider"
	"kv-shepherd.io/vmwizard/internal/session"
	"kv-shepherd.io/vmwizard/internal/wizard"
)

// Application holds composed application dependencies.
type Application struct {
	Config   *config.Config
	Router   *gin.Engine
	Pools    *worker.Pools
	Sessions *session.Service
	Health   *provider.ClusterHealthChecker // nil without a cluster
}

// Bootstrap initializes all dependencies using manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	cat, err := loadCatalog(cfg.Wizard.CatalogPath)
	if err != nil {
		return nil, err
	}

	var (
		cluster provider.ClusterClient
		health  *provider.ClusterHealthChecker
	)
	if cfg.K8s.Enabled {
		kube, err := provider.NewKubeClusterClientFromKubeconfig(cfg.K8s.Kubeconfig, cfg.K8s.OperationTimeout)
		if err != nil {
			return nil, fmt.Errorf("init cluster client: %w", err)
		}
		cluster = kube
		health = provider.NewClusterHealthChecker(kube, cfg.K8s.HealthCheckInterval)
	}
	loader := catalog.NewLoader(cat, cluster)

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize: cfg.Worker.GeneralPoolSize,
		FetchPoolSize:   cfg.Worker.FetchPoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	engine := wizard.NewEngine(wizard.Options{
		DefaultRootDiskSize: cfg.Wizard.DefaultRootDiskSize,
		GuestToolsImage:     cfg.Wizard.GuestToolsImage,
	}, logger.Named("wizard"))

	sessions := session.NewService(session.Config{
		TTL:           cfg.Wizard.SessionTTL,
		SweepInterval: cfg.Wizard.SweepInterval,
		MaxSessions:   cfg.Wizard.MaxSessions,
		LoadTimeout:   cfg.Wizard.LoadTimeout,
	}, engine, loader, pools, logger.Named("session"))
	events := session.NewEventDispatcher(logger.Named("events"))
	events.Register(session.LogEvents(logger.Named("events")), session.AllEventTypes...)
	sessions.UseEvents(events)

	server := handlers.NewServer(handlers.ServerDeps{
		Sessions: sessions,
		Lookup:   loader,
		Health:   health,
		Pools:    pools,
	})

	logger.Info("Application composed",
		zap.Int("templates", len(cat.Templates)),
		zap.Int("base_images", len(cat.BaseImages)),
		zap.Bool("k8s_enabled", cfg.K8s.Enabled),
	)

	return &Application{
		Config:   cfg,
		Router:   newRouter(cfg, server),
		Pools:    pools,
		Sessions: sessions,
		Health:   health,
	}, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		logger.Warn("No catalog configured, templates and base images are empty")
		return catalog.Empty(), nil
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, apperrors.ErrCatalogLoadf(err)
	}
	return cat, nil
}
