package provider

import (
	"context"
	"fmt"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	cdiv1 "kubevirt.io/containerized-data-importer-api/pkg/apis/core/v1beta1"

	"kv-shepherd.io/vmwizard/internal/domain"
)

// DataVolumeResource is the CDI DataVolume resource listed through the dynamic client.
var DataVolumeResource = cdiv1.SchemeGroupVersion.WithResource("datavolumes")

// KubeClusterClient implements ClusterClient with client-go. Claims are listed through
// the typed client, DataVolumes through the dynamic client so the CDI clientset is not
// needed.
type KubeClusterClient struct {
	core             kubernetes.Interface
	dynamic          dynamic.Interface
	mapper           *KubeVirtMapper
	operationTimeout time.Duration
}

// NewKubeClusterClient creates a ClusterClient from existing clients.
func NewKubeClusterClient(core kubernetes.Interface, dyn dynamic.Interface, operationTimeout time.Duration) *KubeClusterClient {
	if operationTimeout <= 0 {
		operationTimeout = 30 * time.Second // same default as config.go
	}
	return &KubeClusterClient{
		core:             core,
		dynamic:          dyn,
		mapper:           NewKubeVirtMapper(),
		operationTimeout: operationTimeout,
	}
}

// NewKubeClusterClientFromKubeconfig builds the clients from a kubeconfig file.
// An empty path falls back to the in-cluster configuration.
func NewKubeClusterClientFromKubeconfig(path string, operationTimeout time.Duration) (*KubeClusterClient, error) {
	restCfg, err := clientcmd.BuildConfigFromFlags("", path)
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig %q: %w", path, err)
	}
	core, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("build kubernetes client: %w", err)
	}
	dyn, err := dynamic.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("build dynamic client: %w", err)
	}
	return NewKubeClusterClient(core, dyn, operationTimeout), nil
}

// withTimeout wraps ctx with the configured K8s operation timeout.
func (c *KubeClusterClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.operationTimeout)
}

// ListDataVolumes lists the DataVolumes of namespace.
func (c *KubeClusterClient) ListDataVolumes(ctx context.Context, namespace string) ([]domain.DataVolume, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	list, err := c.dynamic.Resource(DataVolumeResource).Namespace(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list datavolumes in %s: %w", namespace, err)
	}
	dvs := make([]cdiv1.DataVolume, len(list.Items))
	for i := range list.Items {
		if err := runtime.DefaultUnstructuredConverter.FromUnstructured(list.Items[i].Object, &dvs[i]); err != nil {
			return nil, fmt.Errorf("convert datavolume %s/%s: %w", namespace, list.Items[i].GetName(), err)
		}
	}
	return c.mapper.MapDataVolumes(dvs), nil
}

// ListClaims lists the PersistentVolumeClaims of namespace.
func (c *KubeClusterClient) ListClaims(ctx context.Context, namespace string) ([]domain.PersistentVolumeClaim, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	list, err := c.core.CoreV1().PersistentVolumeClaims(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list claims in %s: %w", namespace, err)
	}
	return c.mapper.MapClaims(list.Items), nil
}

// ServerVersion returns the git version reported by the API server.
func (c *KubeClusterClient) ServerVersion(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	info, err := c.core.Discovery().ServerVersion()
	if err != nil {
		return "", fmt.Errorf("get server version: %w", err)
	}
	return info.GitVersion, nil
}
