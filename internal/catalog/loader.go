package catalog

import (
	"context"
	"fmt"

	"kv-shepherd.io/vmwizard/internal/domain"
	"kv-shepherd.io/vmwizard/internal/provider"
	"kv-shepherd.io/vmwizard/internal/storage/combined"
	"kv-shepherd.io/vmwizard/internal/template"
	"kv-shepherd.io/vmwizard/internal/wizard"
)

// Loader assembles the reference data of a wizard session.
type Loader struct {
	catalog *Catalog
	cluster provider.ClusterClient
}

// NewLoader creates a Loader. Without a cluster client, the DataVolumes and claims
// listed in the catalog are served instead.
func NewLoader(c *Catalog, cluster provider.ClusterClient) *Loader {
	if c == nil {
		c = Empty()
	}
	if cluster == nil {
		static := provider.NewStaticCluster()
		static.Seed(c.DataVolumes, c.Claims)
		cluster = static
	}
	return &Loader{catalog: c, cluster: cluster}
}

// References loads the reference data visible from namespace. User templates are the
// non-common templates of that namespace; common templates are visible everywhere.
// When the cluster cannot be listed, the catalog data is still returned and the live
// collections stay flagged as loading.
func (l *Loader) References(ctx context.Context, namespace string) (wizard.References, error) {
	refs := wizard.PendingReferences()
	refs.TemplatesLoading, refs.BaseImagesLoading = false, false
	refs.BaseImages = l.catalog.BaseImages
	refs.StorageClassDefaults = l.catalog.StorageClasses

	for _, t := range l.catalog.Templates {
		switch {
		case template.IsCommonTemplate(t):
			refs.CommonTemplates = append(refs.CommonTemplates, t)
		case t.Metadata.Namespace == "" || t.Metadata.Namespace == namespace:
			refs.UserTemplates = append(refs.UserTemplates, t)
		}
	}

	dvs, err := l.cluster.ListDataVolumes(ctx, namespace)
	if err != nil {
		return refs, fmt.Errorf("load data volumes: %w", err)
	}
	claims, err := l.cluster.ListClaims(ctx, namespace)
	if err != nil {
		return refs, fmt.Errorf("load claims: %w", err)
	}
	refs.DataVolumes = combined.DataVolumes{Items: dvs}
	refs.Claims = combined.Claims{Items: claims}
	return refs, nil
}

// Claims lists the live claims of namespace. Sessions use it for namespaces other than
// their own, such as the source of a clone.
func (l *Loader) Claims(ctx context.Context, namespace string) ([]domain.PersistentVolumeClaim, error) {
	claims, err := l.cluster.ListClaims(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("load claims of %s: %w", namespace, err)
	}
	return claims, nil
}

// Lookup returns the live DataVolumes and claims of namespace, for reconciling a VM
// outside a wizard session.
func (l *Loader) Lookup(ctx context.Context, namespace string) (combined.DataVolumes, combined.Claims, error) {
	dvs, err := l.cluster.ListDataVolumes(ctx, namespace)
	if err != nil {
		return combined.DataVolumes{}, combined.Claims{}, fmt.Errorf("load data volumes: %w", err)
	}
	claims, err := l.cluster.ListClaims(ctx, namespace)
	if err != nil {
		return combined.DataVolumes{}, combined.Claims{}, fmt.Errorf("load claims: %w", err)
	}
	return combined.DataVolumes{Items: dvs}, combined.Claims{Items: claims}, nil
}

// Templates returns every catalog template.
func (l *Loader) Templates() []domain.Template { return l.catalog.Templates }
