package source

import (
	"encoding/json"

	"kv-shepherd.io/vmwizard/internal/domain"
	"kv-shepherd.io/vmwizard/internal/storage/wrapper"
)

// ProvisionSource is how the operating system of a new VM is provisioned.
type ProvisionSource struct {
	key         string
	label       string
	bootStorage *StorageUISource
	networkBoot bool
}

var (
	ProvisionURL       = &ProvisionSource{key: "URL", label: "Import via URL", bootStorage: URL}
	ProvisionContainer = &ProvisionSource{key: "Container", label: "Container image", bootStorage: ContainerEphemeral}
	ProvisionDisk      = &ProvisionSource{key: "Disk", label: "Clone existing PVC", bootStorage: AttachClonedDisk}
	ProvisionPXE       = &ProvisionSource{key: "PXE", label: "PXE (network boot)", networkBoot: true}
)

// ProvisionSources lists every provision source in display order.
var ProvisionSources = []*ProvisionSource{ProvisionURL, ProvisionContainer, ProvisionDisk, ProvisionPXE}

// ProvisionSourceFromKey returns the provision source with the given key, or nil.
func ProvisionSourceFromKey(key string) *ProvisionSource {
	for _, p := range ProvisionSources {
		if p.key == key {
			return p
		}
	}
	return nil
}

func (p *ProvisionSource) Key() string    { return p.key }
func (p *ProvisionSource) Label() string  { return p.label }
func (p *ProvisionSource) String() string { return p.key }

// BootStorageSource is the storage variant of the boot disk, nil for network boot.
func (p *ProvisionSource) BootStorageSource() *StorageUISource { return p.bootStorage }

// RequiresBootableDisk reports whether a boot disk must exist.
func (p *ProvisionSource) RequiresBootableDisk() bool { return p.bootStorage != nil }

// IsNetworkBoot reports whether the VM boots from an interface.
func (p *ProvisionSource) IsNetworkBoot() bool { return p.networkBoot }

// MarshalJSON encodes the provision source as its key.
func (p *ProvisionSource) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.key)
}

// ProvisionSourceFromEntity derives the provision source of a VM or template: a boot
// interface means PXE, otherwise the variant of the boot disk decides. Nil when unknown.
func ProvisionSourceFromEntity(vm domain.VMLikeEntity) *ProvisionSource {
	for _, iface := range vm.Interfaces {
		if iface.BootOrder != nil && *iface.BootOrder == 1 {
			return ProvisionPXE
		}
	}

	var boot *wrapper.Disk
	for _, d := range vm.Disks {
		if w := wrapper.WrapDisk(d); w.IsBootDisk() {
			boot = &w
			break
		}
	}
	if boot == nil {
		return nil
	}

	for _, v := range vm.Volumes {
		if v.Name != boot.Name() {
			continue
		}
		volume := wrapper.WrapVolume(v)
		var dv *wrapper.DataVolume
		for _, tpl := range vm.DataVolumeTemplates {
			if tpl.Metadata.Name == volume.DataVolumeName() {
				w := wrapper.WrapDataVolume(tpl)
				dv = &w
				break
			}
		}
		variant := ClassifyRecords(volume, dv, false)
		for _, p := range ProvisionSources {
			if p.bootStorage == variant {
				return p
			}
		}
		if variant == Container {
			return ProvisionContainer
		}
		return nil
	}
	return nil
}
