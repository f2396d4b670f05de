package app

import (
	"context"
	"fmt"

	"kv-shepherd.io/vmwizard/internal/pkg/logger"
)

// Start starts all background services (cluster health checker, session janitor).
func (a *Application) Start(ctx context.Context) error {
	if a.Health != nil {
		a.Health.Start(ctx)
		logger.Info("Cluster health checker started")
	}
	if a.Sessions != nil {
		if err := a.Sessions.StartJanitor(); err != nil {
			return fmt.Errorf("start session janitor: %w", err)
		}
	}
	return nil
}

// Shutdown gracefully shuts down all application components.
func (a *Application) Shutdown() {
	if a.Health != nil {
		a.Health.Stop()
	}
	// Cancels the janitor and any reference loads still running.
	if a.Pools != nil {
		a.Pools.Shutdown()
	}
}
