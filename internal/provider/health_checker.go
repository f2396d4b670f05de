package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"kv-shepherd.io/vmwizard/internal/pkg/logger"
)

// ClusterStatus represents cluster health status.
type ClusterStatus string

const (
	ClusterStatusUnknown     ClusterStatus = "UNKNOWN"
	ClusterStatusHealthy     ClusterStatus = "HEALTHY"
	ClusterStatusUnreachable ClusterStatus = "UNREACHABLE"
)

// ClusterHealth contains health check results.
type ClusterHealth struct {
	Status      ClusterStatus `json:"status"`
	Version     string        `json:"version,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
	Error       string        `json:"error,omitempty"`
}

// Healthy reports whether the last check succeeded.
func (h ClusterHealth) Healthy() bool { return h.Status == ClusterStatusHealthy }

// ClusterHealthChecker periodically checks that the cluster API answers.
type ClusterHealthChecker struct {
	client   ClusterClient
	interval time.Duration
	health   ClusterHealth
	mu       sync.RWMutex
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewClusterHealthChecker creates a new ClusterHealthChecker.
func NewClusterHealthChecker(client ClusterClient, interval time.Duration) *ClusterHealthChecker {
	return &ClusterHealthChecker{
		client:   client,
		interval: interval,
		health:   ClusterHealth{Status: ClusterStatusUnknown},
		stopCh:   make(chan struct{}),
	}
}

// Check performs a single health check and stores its result.
func (c *ClusterHealthChecker) Check(ctx context.Context) ClusterHealth {
	health := ClusterHealth{LastChecked: time.Now()}

	version, err := c.client.ServerVersion(ctx)
	if err != nil {
		health.Status = ClusterStatusUnreachable
		health.Error = fmt.Sprintf("connection failed: %v", err)
		logger.Warn("Cluster health check failed", zap.Error(err))
	} else {
		health.Status = ClusterStatusHealthy
		health.Version = version
	}

	c.mu.Lock()
	c.health = health
	c.mu.Unlock()
	return health
}

// Health returns the last stored result.
func (c *ClusterHealthChecker) Health() ClusterHealth {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.health
}

// Start begins periodic health checking.
// nolint:naked-goroutine // ticker loop; doesn't fit the worker pool pattern.
func (c *ClusterHealthChecker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		c.Check(ctx)
		for {
			select {
			case <-ticker.C:
				c.Check(ctx)
			case <-c.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts periodic health checking. Safe to call more than once.
func (c *ClusterHealthChecker) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}
