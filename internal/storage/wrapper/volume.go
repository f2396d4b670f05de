package wrapper

import (
	"encoding/base64"

	"kv-shepherd.io/vmwizard/internal/domain"
)

// VolumeTypeData is the union of the payload fields of every volume type:
// Name for dataVolume, ClaimName for persistentVolumeClaim and ephemeral, Image for
// containerDisk, UserData/UserDataBase64 for cloudInitNoCloud and Capacity for emptyDisk.
type VolumeTypeData struct {
	Name           string
	ClaimName      string
	Image          string
	UserData       string
	UserDataBase64 string
	Capacity       string
}

var volumeTypes = typedSpec[domain.Volume, domain.VolumeType, VolumeTypeData]{
	types: []domain.VolumeType{
		domain.VolumeTypeDataVolume,
		domain.VolumeTypePersistentVolumeClaim,
		domain.VolumeTypeContainerDisk,
		domain.VolumeTypeCloudInitNoCloud,
		domain.VolumeTypeEphemeral,
		domain.VolumeTypeEmptyDisk,
	},
	has: func(v *domain.Volume, t domain.VolumeType) bool {
		switch t {
		case domain.VolumeTypeDataVolume:
			return v.DataVolume != nil
		case domain.VolumeTypePersistentVolumeClaim:
			return v.PersistentVolumeClaim != nil
		case domain.VolumeTypeContainerDisk:
			return v.ContainerDisk != nil
		case domain.VolumeTypeCloudInitNoCloud:
			return v.CloudInitNoCloud != nil
		case domain.VolumeTypeEphemeral:
			return v.Ephemeral != nil
		case domain.VolumeTypeEmptyDisk:
			return v.EmptyDisk != nil
		}
		return false
	},
	read: func(v *domain.Volume, t domain.VolumeType) VolumeTypeData {
		switch t {
		case domain.VolumeTypeDataVolume:
			return VolumeTypeData{Name: v.DataVolume.Name}
		case domain.VolumeTypePersistentVolumeClaim:
			return VolumeTypeData{ClaimName: v.PersistentVolumeClaim.ClaimName}
		case domain.VolumeTypeContainerDisk:
			return VolumeTypeData{Image: v.ContainerDisk.Image}
		case domain.VolumeTypeCloudInitNoCloud:
			return VolumeTypeData{
				UserData:       v.CloudInitNoCloud.UserData,
				UserDataBase64: v.CloudInitNoCloud.UserDataBase64,
			}
		case domain.VolumeTypeEphemeral:
			return VolumeTypeData{ClaimName: v.Ephemeral.ClaimName}
		case domain.VolumeTypeEmptyDisk:
			return VolumeTypeData{Capacity: v.EmptyDisk.Capacity}
		}
		return VolumeTypeData{}
	},
	sanitize: func(v *domain.Volume, t domain.VolumeType, data VolumeTypeData) {
		switch t {
		case domain.VolumeTypeDataVolume:
			v.DataVolume = &domain.DataVolumeVolumeSource{Name: data.Name}
		case domain.VolumeTypePersistentVolumeClaim:
			v.PersistentVolumeClaim = &domain.ClaimVolumeSource{ClaimName: data.ClaimName}
		case domain.VolumeTypeContainerDisk:
			v.ContainerDisk = &domain.ContainerDiskSource{Image: data.Image}
		case domain.VolumeTypeCloudInitNoCloud:
			v.CloudInitNoCloud = &domain.CloudInitNoCloudSource{
				UserData:       data.UserData,
				UserDataBase64: data.UserDataBase64,
			}
		case domain.VolumeTypeEphemeral:
			v.Ephemeral = &domain.EphemeralVolumeSource{ClaimName: data.ClaimName}
		case domain.VolumeTypeEmptyDisk:
			v.EmptyDisk = &domain.EmptyDiskSource{Capacity: data.Capacity}
		}
	},
	clear: func(v *domain.Volume) {
		v.DataVolume = nil
		v.PersistentVolumeClaim = nil
		v.ContainerDisk = nil
		v.CloudInitNoCloud = nil
		v.Ephemeral = nil
		v.EmptyDisk = nil
	},
	merge: func(base, over VolumeTypeData) VolumeTypeData {
		overlay(&base.Name, over.Name)
		overlay(&base.ClaimName, over.ClaimName)
		overlay(&base.Image, over.Image)
		overlay(&base.UserData, over.UserData)
		overlay(&base.UserDataBase64, over.UserDataBase64)
		overlay(&base.Capacity, over.Capacity)
		return base
	},
}

func overlay(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// Volume wraps a volume record.
type Volume struct {
	volume domain.Volume
}

// WrapVolume wraps an existing volume record.
func WrapVolume(v domain.Volume) Volume {
	return Volume{volume: v}
}

// NewVolume builds a volume of the given type.
func NewVolume(name string, t domain.VolumeType, data VolumeTypeData) Volume {
	return Volume{volume: volumeTypes.setType(domain.Volume{Name: name}, t, data)}
}

// Record returns the plain volume record.
func (w Volume) Record() domain.Volume { return w.volume }

// Name returns the volume name.
func (w Volume) Name() string { return w.volume.Name }

// Type returns the source type tag, or "" when none is set.
func (w Volume) Type() domain.VolumeType { return volumeTypes.typeOf(w.volume) }

// TypeData returns the payload of the active type.
func (w Volume) TypeData() VolumeTypeData { return volumeTypes.typeData(w.volume) }

// DataVolumeName returns the referenced DataVolume, if any.
func (w Volume) DataVolumeName() string {
	if w.volume.DataVolume == nil {
		return ""
	}
	return w.volume.DataVolume.Name
}

// ClaimName returns the referenced claim of a persistentVolumeClaim or ephemeral volume.
func (w Volume) ClaimName() string {
	switch {
	case w.volume.PersistentVolumeClaim != nil:
		return w.volume.PersistentVolumeClaim.ClaimName
	case w.volume.Ephemeral != nil:
		return w.volume.Ephemeral.ClaimName
	}
	return ""
}

// ContainerImage returns the container disk image, if any.
func (w Volume) ContainerImage() string {
	if w.volume.ContainerDisk == nil {
		return ""
	}
	return w.volume.ContainerDisk.Image
}

// CloudInitUserData returns the plain cloud-init user data, decoding the base64 form
// when only that one is set.
func (w Volume) CloudInitUserData() string {
	src := w.volume.CloudInitNoCloud
	if src == nil {
		return ""
	}
	if src.UserData != "" || src.UserDataBase64 == "" {
		return src.UserData
	}
	decoded, err := base64.StdEncoding.DecodeString(src.UserDataBase64)
	if err != nil {
		return ""
	}
	return string(decoded)
}

// SetType returns a copy switched to type t with a sanitized payload.
func (w Volume) SetType(t domain.VolumeType, data VolumeTypeData) Volume {
	return Volume{volume: volumeTypes.setType(w.volume, t, data)}
}

// WithName returns a renamed copy.
func (w Volume) WithName(name string) Volume {
	out := w.volume
	out.Name = name
	return Volume{volume: out}
}

// MergeWith overlays other onto the volume.
func (w Volume) MergeWith(other Volume) Volume {
	out := volumeTypes.mergeWith(w.volume, other.volume)
	if other.volume.Name != "" {
		out.Name = other.volume.Name
	}
	return Volume{volume: out}
}
