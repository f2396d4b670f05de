package domain

// VolumeType is the source type tag of a Volume.
type VolumeType string

const (
	VolumeTypeDataVolume            VolumeType = "dataVolume"
	VolumeTypePersistentVolumeClaim VolumeType = "persistentVolumeClaim"
	VolumeTypeContainerDisk         VolumeType = "containerDisk"
	VolumeTypeCloudInitNoCloud      VolumeType = "cloudInitNoCloud"
	VolumeTypeEphemeral             VolumeType = "ephemeral"
	VolumeTypeEmptyDisk             VolumeType = "emptyDisk"
)

// Volume tells the runtime where the content of the disk with the same name comes from.
// Exactly one source field is set; that field is the type tag.
type Volume struct {
	Name                  string                  `json:"name"`
	DataVolume            *DataVolumeVolumeSource `json:"dataVolume,omitempty"`
	PersistentVolumeClaim *ClaimVolumeSource      `json:"persistentVolumeClaim,omitempty"`
	ContainerDisk         *ContainerDiskSource    `json:"containerDisk,omitempty"`
	CloudInitNoCloud      *CloudInitNoCloudSource `json:"cloudInitNoCloud,omitempty"`
	Ephemeral             *EphemeralVolumeSource  `json:"ephemeral,omitempty"`
	EmptyDisk             *EmptyDiskSource        `json:"emptyDisk,omitempty"`
}

// DataVolumeVolumeSource references a DataVolume by name.
type DataVolumeVolumeSource struct {
	Name string `json:"name"`
}

// ClaimVolumeSource references a PersistentVolumeClaim by name.
type ClaimVolumeSource struct {
	ClaimName string `json:"claimName"`
}

// ContainerDiskSource references a container image holding a disk.
type ContainerDiskSource struct {
	Image string `json:"image"`
}

// CloudInitNoCloudSource carries NoCloud user data.
type CloudInitNoCloudSource struct {
	UserData       string `json:"userData,omitempty"`
	UserDataBase64 string `json:"userDataBase64,omitempty"`
}

// EphemeralVolumeSource is a copy-on-write overlay over a claim.
type EphemeralVolumeSource struct {
	ClaimName string `json:"claimName"`
}

// EmptyDiskSource is a sparse scratch disk.
type EmptyDiskSource struct {
	Capacity string `json:"capacity"`
}
