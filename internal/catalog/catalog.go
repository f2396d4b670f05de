// Package catalog loads the reference data the wizard reconciles against: templates,
// base images and storage class defaults from a catalog file, and live DataVolumes
// and claims from the cluster.
//
// Import Path: kv-shepherd.io/vmwizard/internal/catalog
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/api/resource"

	"kv-shepherd.io/vmwizard/internal/domain"
	"kv-shepherd.io/vmwizard/internal/storage/wrapper"
)

// File is the on-disk catalog index. Manifest paths are globs relative to the
// catalog file.
type File struct {
	Templates      []string         `yaml:"templates"`
	BaseImages     []BaseImageEntry `yaml:"baseImages"`
	StorageClasses StorageClasses   `yaml:"storageClasses"`
	// Manifests holds DataVolumes and claims served when no cluster is configured.
	Manifests []string `yaml:"manifests"`
}

// BaseImageEntry declares the golden image claim of an operating system.
type BaseImageEntry struct {
	OS           string `yaml:"os"`
	Name         string `yaml:"name"`
	Namespace    string `yaml:"namespace"`
	Size         string `yaml:"size"`
	StorageClass string `yaml:"storageClass"`
}

// StorageClasses declares per-class defaults for new claims.
type StorageClasses struct {
	Default string                       `yaml:"default"`
	Classes map[string]StorageClassEntry `yaml:"classes"`
}

// StorageClassEntry holds the defaults of one storage class.
type StorageClassEntry struct {
	AccessModes []string `yaml:"accessModes"`
	VolumeMode  string   `yaml:"volumeMode"`
}

// Catalog is a loaded catalog.
type Catalog struct {
	Templates      []domain.Template
	BaseImages     []domain.BaseImage
	StorageClasses domain.StorageClassDefaults
	DataVolumes    []domain.DataVolume
	Claims         []domain.PersistentVolumeClaim
}

// Empty returns a catalog without templates or base images.
func Empty() *Catalog {
	return &Catalog{}
}

// Load reads the catalog index at path and every manifest it references.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	var idx File
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&idx); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return idx.resolve(filepath.Dir(path))
}

func (idx File) resolve(dir string) (*Catalog, error) {
	c := &Catalog{
		StorageClasses: domain.StorageClassDefaults{DefaultStorageClass: idx.StorageClasses.Default},
	}

	templates, err := decodeGlobs(dir, idx.Templates)
	if err != nil {
		return nil, err
	}
	c.Templates = templates.Templates

	live, err := decodeGlobs(dir, idx.Manifests)
	if err != nil {
		return nil, err
	}
	c.DataVolumes, c.Claims = live.DataVolumes, live.Claims

	for _, e := range idx.BaseImages {
		img, err := e.baseImage()
		if err != nil {
			return nil, err
		}
		c.BaseImages = append(c.BaseImages, img)
	}

	if len(idx.StorageClasses.Classes) > 0 {
		c.StorageClasses.Classes = make(map[string]domain.StorageClassDefault, len(idx.StorageClasses.Classes))
		for name, sc := range idx.StorageClasses.Classes {
			c.StorageClasses.Classes[name] = domain.StorageClassDefault{
				AccessModes: slices.Clone(sc.AccessModes),
				VolumeMode:  sc.VolumeMode,
			}
		}
	}
	return c, nil
}

func (e BaseImageEntry) baseImage() (domain.BaseImage, error) {
	if e.OS == "" || e.Name == "" {
		return domain.BaseImage{}, fmt.Errorf("base image needs os and name, got %+v", e)
	}
	if e.Size != "" {
		if _, err := resource.ParseQuantity(e.Size); err != nil {
			return domain.BaseImage{}, fmt.Errorf("base image %s: size: %w", e.Name, err)
		}
	}
	claim := wrapper.NewClaim(e.Name, e.Namespace, e.Size)
	if e.StorageClass != "" {
		claim = claim.WithStorageClassName(e.StorageClass)
	}
	return domain.BaseImage{OS: e.OS, Claim: claim.Record()}, nil
}

func decodeGlobs(dir string, patterns []string) (Manifests, error) {
	var out Manifests
	for _, pattern := range patterns {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(dir, pattern)
		}
		paths, err := filepath.Glob(pattern)
		if err != nil {
			return out, fmt.Errorf("glob %s: %w", pattern, err)
		}
		if len(paths) == 0 {
			return out, fmt.Errorf("no manifests match %s", pattern)
		}
		for _, p := range paths {
			m, err := decodeFile(p)
			if err != nil {
				return out, err
			}
			out.VMs = append(out.VMs, m.VMs...)
			out.Templates = append(out.Templates, m.Templates...)
			out.DataVolumes = append(out.DataVolumes, m.DataVolumes...)
			out.Claims = append(out.Claims, m.Claims...)
		}
	}
	return out, nil
}

func decodeFile(path string) (Manifests, error) {
	f, err := os.Open(path)
	if err != nil {
		return Manifests{}, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()
	m, err := DecodeManifests(f)
	if err != nil {
		return m, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
