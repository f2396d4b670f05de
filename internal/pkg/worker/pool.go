// Package worker runs the background work of the VM wizard service on ants pools.
// The fetch pool loads reference data for sessions; the general pool runs
// housekeeping such as the session janitor.
//
// Naked goroutines are forbidden outside ticker loops.
//
// Import Path: kv-shepherd.io/vmwizard/internal/pkg/worker
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"kv-shepherd.io/vmwizard/internal/pkg/logger"
)

var (
	// ErrPoolClosed is returned when submitting after Shutdown.
	ErrPoolClosed = errors.New("worker pool is closed")

	// ErrUnknownPool is returned for a pool name other than PoolGeneral or PoolFetch.
	ErrUnknownPool = errors.New("unknown worker pool")
)

// Pool names accepted by SubmitDetached.
const (
	PoolGeneral = "general"
	PoolFetch   = "fetch"
)

// Task is a unit of background work. ctx is cancelled when the service shuts down.
type Task func(ctx context.Context)

// Pools holds the named pools and the service lifecycle context handed to tasks.
type Pools struct {
	pools map[string]*ants.Pool

	serviceCtx    context.Context
	serviceCancel context.CancelFunc
}

// PoolConfig sizes the pools.
type PoolConfig struct {
	GeneralPoolSize int
	FetchPoolSize   int
}

// DefaultPoolConfig returns default configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		GeneralPoolSize: 16,
		FetchPoolSize:   32,
	}
}

// NewPools creates the general and fetch pools. Submission blocks while a pool is
// full, so callers must not hold locks a task needs.
func NewPools(ctx context.Context, cfg PoolConfig) (*Pools, error) {
	serviceCtx, serviceCancel := context.WithCancel(ctx)
	p := &Pools{
		pools:         make(map[string]*ants.Pool, 2),
		serviceCtx:    serviceCtx,
		serviceCancel: serviceCancel,
	}

	specs := []struct {
		name   string
		size   int
		expiry time.Duration
	}{
		{PoolGeneral, cfg.GeneralPoolSize, 10 * time.Second},
		{PoolFetch, cfg.FetchPoolSize, 30 * time.Second}, // cluster listings are longer-lived
	}
	for _, spec := range specs {
		name := spec.name
		pool, err := ants.NewPool(spec.size,
			ants.WithNonblocking(false),
			ants.WithExpiryDuration(spec.expiry),
			ants.WithPanicHandler(func(v interface{}) {
				logger.Error("worker task panicked",
					zap.String("pool", name),
					zap.Any("panic", v),
					zap.Stack("stack"),
				)
			}),
		)
		if err != nil {
			for _, created := range p.pools {
				created.Release()
			}
			serviceCancel()
			return nil, fmt.Errorf("create %s pool: %w", name, err)
		}
		p.pools[name] = pool
	}
	return p, nil
}

// SubmitDetached runs task on the named pool with the service context, so it outlives
// the request that scheduled it. Tasks still queued at shutdown are skipped.
func (p *Pools) SubmitDetached(poolName string, task Task) error {
	pool, ok := p.pools[poolName]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPool, poolName)
	}

	err := pool.Submit(func() {
		if p.serviceCtx.Err() != nil {
			logger.Debug("detached task skipped: service shutting down", zap.String("pool", poolName))
			return
		}
		task(p.serviceCtx)
	})
	if errors.Is(err, ants.ErrPoolClosed) {
		return ErrPoolClosed
	}
	return err
}

// Shutdown cancels the service context, then waits up to 30s per pool for running
// tasks.
func (p *Pools) Shutdown() {
	p.serviceCancel()

	const shutdownTimeout = 30 * time.Second
	for name, pool := range p.pools {
		if err := pool.ReleaseTimeout(shutdownTimeout); err != nil {
			logger.Warn("worker pool shutdown timeout", zap.String("pool", name), zap.Error(err))
		}
	}
}

// Metrics reports running, free and cap per pool for the readiness endpoint.
func (p *Pools) Metrics() map[string]interface{} {
	out := make(map[string]interface{}, len(p.pools))
	for name, pool := range p.pools {
		out[name] = map[string]int{
			"running": pool.Running(),
			"free":    pool.Free(),
			"cap":     pool.Cap(),
		}
	}
	return out
}
