// Package source classifies storage into provisioning-source variants.
//
// A StorageUISource is derived from the (volume type, DataVolume source type,
// new claim) triple of a disk. Variants are package-level singletons compared by
// pointer; Key is their stable string form for (de)serialization.
//
// Import Path: kv-shepherd.io/vmwizard/internal/storage/source
package source

import (
	"encoding/json"
	"fmt"

	"kv-shepherd.io/vmwizard/internal/domain"
	"kv-shepherd.io/vmwizard/internal/storage/wrapper"
)

// StorageUISource is one provisioning-source variant and its capabilities.
type StorageUISource struct {
	key   string
	label string

	volumeType   domain.VolumeType
	dvSourceType domain.DataVolumeSourceType
	newClaim     bool

	requiresSize         bool
	requiresStorageClass bool
	requiresNamespace    bool
	requiresClaim        bool
	requiresNewClaim     bool
	requiresURL          bool
	requiresImage        bool
	requiresModes        bool
	cdromCompatible      bool
}

var (
	Blank = &StorageUISource{
		key: "blank", label: "Blank",
		volumeType: domain.VolumeTypeDataVolume, dvSourceType: domain.DataVolumeSourceBlank,
		requiresSize: true, requiresStorageClass: true, requiresModes: true,
	}
	URL = &StorageUISource{
		key: "url", label: "URL",
		volumeType: domain.VolumeTypeDataVolume, dvSourceType: domain.DataVolumeSourceHTTP,
		requiresSize: true, requiresStorageClass: true, requiresURL: true, requiresModes: true,
		cdromCompatible: true,
	}
	Container = &StorageUISource{
		key: "container", label: "Container",
		volumeType: domain.VolumeTypeDataVolume, dvSourceType: domain.DataVolumeSourceRegistry,
		requiresSize: true, requiresStorageClass: true, requiresImage: true, requiresModes: true,
		cdromCompatible: true,
	}
	ContainerEphemeral = &StorageUISource{
		key: "container-ephemeral", label: "Container (ephemeral)",
		volumeType: domain.VolumeTypeContainerDisk, requiresImage: true, cdromCompatible: true,
	}
	AttachDisk = &StorageUISource{
		key: "attach-disk", label: "Use an existing PVC",
		volumeType: domain.VolumeTypePersistentVolumeClaim, requiresClaim: true, cdromCompatible: true,
	}
	AttachClonedDisk = &StorageUISource{
		key: "attach-cloned-disk", label: "Clone existing PVC",
		volumeType: domain.VolumeTypeDataVolume, dvSourceType: domain.DataVolumeSourcePVC,
		requiresSize: true, requiresStorageClass: true, requiresNamespace: true,
		requiresClaim: true, requiresModes: true, cdromCompatible: true,
	}
	ImportDisk = &StorageUISource{
		key: "import-disk", label: "Import disk",
		volumeType: domain.VolumeTypePersistentVolumeClaim, newClaim: true,
		requiresSize: true, requiresStorageClass: true, requiresNewClaim: true, requiresModes: true,
	}
	// Other is the sentinel for every unrecognized combination. It is read-only.
	Other = &StorageUISource{key: "other", label: "Other"}
)

// All lists the classifiable variants in table order, Other excluded.
var All = []*StorageUISource{Blank, URL, Container, ContainerEphemeral, AttachDisk, AttachClonedDisk, ImportDisk}

// Classify maps a storage triple to its variant. It never fails: a miss yields Other.
func Classify(volumeType domain.VolumeType, dvSourceType domain.DataVolumeSourceType, hasNewClaim bool) *StorageUISource {
	for _, s := range All {
		if s.volumeType == volumeType && s.dvSourceType == dvSourceType && s.newClaim == hasNewClaim {
			return s
		}
	}
	return Other
}

// ClassifyRecords classifies wrapped records; dv may be nil.
func ClassifyRecords(volume wrapper.Volume, dv *wrapper.DataVolume, hasNewClaim bool) *StorageUISource {
	var dvType domain.DataVolumeSourceType
	if dv != nil && volume.Type() == domain.VolumeTypeDataVolume {
		dvType = dv.Type()
	}
	return Classify(volume.Type(), dvType, hasNewClaim)
}

// FromKey returns the variant with the given key, or Other.
func FromKey(key string) *StorageUISource {
	for _, s := range All {
		if s.key == key {
			return s
		}
	}
	return Other
}

func (s *StorageUISource) Key() string   { return s.key }
func (s *StorageUISource) Label() string { return s.label }
func (s *StorageUISource) String() string {
	return s.key
}

// VolumeType is the volume type this variant is built from.
func (s *StorageUISource) VolumeType() domain.VolumeType { return s.volumeType }

// DataVolumeSourceType is the DataVolume source this variant is built from, "" if none.
func (s *StorageUISource) DataVolumeSourceType() domain.DataVolumeSourceType {
	return s.dvSourceType
}

// HasNewClaim reports whether the variant creates its claim alongside the VM.
func (s *StorageUISource) HasNewClaim() bool { return s.newClaim }

func (s *StorageUISource) RequiresSize() bool           { return s.requiresSize }
func (s *StorageUISource) RequiresStorageClass() bool   { return s.requiresStorageClass }
func (s *StorageUISource) RequiresNamespace() bool      { return s.requiresNamespace }
func (s *StorageUISource) RequiresClaim() bool          { return s.requiresClaim }
func (s *StorageUISource) RequiresNewClaim() bool       { return s.requiresNewClaim }
func (s *StorageUISource) RequiresURL() bool            { return s.requiresURL }
func (s *StorageUISource) RequiresContainerImage() bool { return s.requiresImage }

// RequiresDataVolume reports whether the variant is backed by a DataVolume.
func (s *StorageUISource) RequiresDataVolume() bool {
	return s.volumeType == domain.VolumeTypeDataVolume
}

// RequiresVolumeModeOrAccessModes reports whether the variant provisions storage whose
// modes come from storage class defaults.
func (s *StorageUISource) RequiresVolumeModeOrAccessModes() bool { return s.requiresModes }

// CanChangeTo reports whether a disk of type diskType may be backed by this variant.
// CD-ROMs accept only claim-backed, URL and container sources.
func (s *StorageUISource) CanChangeTo(diskType domain.DiskType) bool {
	if diskType == domain.DiskTypeCDRom {
		return s.cdromCompatible
	}
	return s != Other
}

// IsEditingSupported reports whether storage of this variant may be edited at all.
func (s *StorageUISource) IsEditingSupported() bool { return s != Other }

// IsSizeEditingSupported reports whether the size may be changed given the current size.
// An imported claim may only receive a size while it has none.
func (s *StorageUISource) IsSizeEditingSupported(current wrapper.Size) bool {
	switch s {
	case ImportDisk:
		return current.IsZero()
	case AttachDisk, ContainerEphemeral, Other:
		return false
	}
	return true
}

// AllowedSizeUnits returns the units a size may be entered in; nil when size is not editable.
func (s *StorageUISource) AllowedSizeUnits() []string {
	if !s.requiresSize {
		return nil
	}
	return append([]string(nil), wrapper.SizeUnits...)
}

// MarshalJSON encodes the variant as its key.
func (s *StorageUISource) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.key)
}

// Capabilities is the serializable policy surface of a variant.
type Capabilities struct {
	Key                             string   `json:"key"`
	Label                           string   `json:"label"`
	RequiresSize                    bool     `json:"requiresSize"`
	RequiresStorageClass            bool     `json:"requiresStorageClass"`
	RequiresNamespace               bool     `json:"requiresNamespace"`
	RequiresClaim                   bool     `json:"requiresClaim"`
	RequiresNewClaim                bool     `json:"requiresNewClaim"`
	RequiresURL                     bool     `json:"requiresURL"`
	RequiresContainerImage          bool     `json:"requiresContainerImage"`
	RequiresVolumeModeOrAccessModes bool     `json:"requiresVolumeModeOrAccessModes"`
	CDRomCompatible                 bool     `json:"cdromCompatible"`
	EditingSupported                bool     `json:"editingSupported"`
	AllowedSizeUnits                []string `json:"allowedSizeUnits,omitempty"`
}

// Capabilities returns the policy surface of the variant.
func (s *StorageUISource) Capabilities() Capabilities {
	return Capabilities{
		Key:                             s.key,
		Label:                           s.label,
		RequiresSize:                    s.requiresSize,
		RequiresStorageClass:            s.requiresStorageClass,
		RequiresNamespace:               s.requiresNamespace,
		RequiresClaim:                   s.requiresClaim,
		RequiresNewClaim:                s.requiresNewClaim,
		RequiresURL:                     s.requiresURL,
		RequiresContainerImage:          s.requiresImage,
		RequiresVolumeModeOrAccessModes: s.requiresModes,
		CDRomCompatible:                 s.CanChangeTo(domain.DiskTypeCDRom),
		EditingSupported:                s.IsEditingSupported(),
		AllowedSizeUnits:                s.AllowedSizeUnits(),
	}
}

// Describe renders a short "<label> (<volume>/<dv source>)" description for logs and CLIs.
func (s *StorageUISource) Describe() string {
	if s.dvSourceType == "" {
		return fmt.Sprintf("%s (%s)", s.label, s.volumeType)
	}
	return fmt.Sprintf("%s (%s/%s)", s.label, s.volumeType, s.dvSourceType)
}
