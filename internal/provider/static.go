package provider

import (
	"context"
	"sync"

	"kv-shepherd.io/vmwizard/internal/domain"
)

// StaticCluster implements ClusterClient over fixed records, for running without a
// Kubernetes cluster.
type StaticCluster struct {
	dataVolumes []domain.DataVolume
	claims      []domain.PersistentVolumeClaim
	mu          sync.RWMutex
}

// NewStaticCluster creates a new StaticCluster.
func NewStaticCluster() *StaticCluster {
	return &StaticCluster{}
}

// Seed adds records to the cluster.
func (c *StaticCluster) Seed(dataVolumes []domain.DataVolume, claims []domain.PersistentVolumeClaim) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dataVolumes = append(c.dataVolumes, dataVolumes...)
	c.claims = append(c.claims, claims...)
}

// Reset clears all records.
func (c *StaticCluster) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dataVolumes, c.claims = nil, nil
}

func (c *StaticCluster) ListDataVolumes(_ context.Context, namespace string) ([]domain.DataVolume, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var items []domain.DataVolume
	for _, dv := range c.dataVolumes {
		if namespace == "" || dv.Metadata.Namespace == namespace {
			items = append(items, dv)
		}
	}
	return items, nil
}

func (c *StaticCluster) ListClaims(_ context.Context, namespace string) ([]domain.PersistentVolumeClaim, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var items []domain.PersistentVolumeClaim
	for _, pvc := range c.claims {
		if namespace == "" || pvc.Metadata.Namespace == namespace {
			items = append(items, pvc)
		}
	}
	return items, nil
}

func (c *StaticCluster) ServerVersion(context.Context) (string, error) { return "static", nil }
