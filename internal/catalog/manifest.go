package catalog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	kubevirtv1 "kubevirt.io/api/core/v1"
	cdiv1 "kubevirt.io/containerized-data-importer-api/pkg/apis/core/v1beta1"
	"sigs.k8s.io/yaml"

	"kv-shepherd.io/vmwizard/internal/domain"
	"kv-shepherd.io/vmwizard/internal/provider"
)

// Supported manifest kinds.
const (
	KindVirtualMachine        = "VirtualMachine"
	KindDataVolume            = "DataVolume"
	KindPersistentVolumeClaim = "PersistentVolumeClaim"
	KindList                  = "List"
)

// Manifests holds the objects of a YAML or JSON stream, mapped to domain records.
// Kinds the wizard does not read are listed in Skipped.
type Manifests struct {
	VMs         []domain.VMLikeEntity
	Templates   []domain.Template
	DataVolumes []domain.DataVolume
	Claims      []domain.PersistentVolumeClaim
	Skipped     []string
}

// DecodeManifests reads a multi-document YAML (or JSON) stream. Lists, as printed by
// kubectl get -o yaml, are flattened.
func DecodeManifests(r io.Reader) (Manifests, error) {
	var out Manifests
	reader := utilyaml.NewYAMLReader(bufio.NewReader(r))
	for {
		doc, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("read manifest: %w", err)
		}
		if len(bytes.TrimSpace(doc)) == 0 {
			continue
		}
		if err := out.add(doc); err != nil {
			return out, err
		}
	}
}

func (m *Manifests) add(doc []byte) error {
	var meta metav1.TypeMeta
	if err := yaml.Unmarshal(doc, &meta); err != nil {
		return fmt.Errorf("decode manifest header: %w", err)
	}
	mapper := provider.NewKubeVirtMapper()

	switch meta.Kind {
	case "":
		// Comment-only documents.
		return nil
	case KindList:
		var list metav1.List
		if err := yaml.Unmarshal(doc, &list); err != nil {
			return fmt.Errorf("decode list: %w", err)
		}
		for _, item := range list.Items {
			if err := m.add(item.Raw); err != nil {
				return err
			}
		}
	case KindVirtualMachine:
		var vm kubevirtv1.VirtualMachine
		if err := yaml.Unmarshal(doc, &vm); err != nil {
			return fmt.Errorf("decode virtual machine: %w", err)
		}
		entity, err := mapper.MapVM(&vm)
		if err != nil {
			return err
		}
		m.VMs = append(m.VMs, entity)
		m.Templates = append(m.Templates, domain.Template{Metadata: entity.Metadata, VM: entity})
	case KindDataVolume:
		var dv cdiv1.DataVolume
		if err := yaml.Unmarshal(doc, &dv); err != nil {
			return fmt.Errorf("decode data volume: %w", err)
		}
		m.DataVolumes = append(m.DataVolumes, mapper.MapDataVolume(&dv))
	case KindPersistentVolumeClaim:
		var pvc corev1.PersistentVolumeClaim
		if err := yaml.Unmarshal(doc, &pvc); err != nil {
			return fmt.Errorf("decode claim: %w", err)
		}
		m.Claims = append(m.Claims, mapper.MapClaim(&pvc))
	default:
		m.Skipped = append(m.Skipped, meta.Kind)
	}
	return nil
}
