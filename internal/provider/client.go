package provider

import (
	"context"

	"kv-shepherd.io/vmwizard/internal/domain"
)

// ClusterClient lists the live storage records the wizard reconciles against.
// Anti-Corruption Layer: callers only see domain records, never client-go types.
type ClusterClient interface {
	ListDataVolumes(ctx context.Context, namespace string) ([]domain.DataVolume, error)
	ListClaims(ctx context.Context, namespace string) ([]domain.PersistentVolumeClaim, error)
	// ServerVersion returns the Kubernetes version of the cluster.
	ServerVersion(ctx context.Context) (string, error)
}
