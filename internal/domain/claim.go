package domain

// PersistentVolumeClaim is a concrete allocated storage unit.
type PersistentVolumeClaim struct {
	Metadata ObjectMeta  `json:"metadata"`
	Spec     StorageSpec `json:"spec"`
}

// BaseImage is a golden-image claim that can be cloned for a given operating system.
type BaseImage struct {
	OS    string                `json:"os"`
	Claim PersistentVolumeClaim `json:"claim"`
}

// StorageClassDefaults holds per-storage-class defaults for new claims.
type StorageClassDefaults struct {
	DefaultStorageClass string                         `json:"defaultStorageClass,omitempty"`
	Classes             map[string]StorageClassDefault `json:"classes,omitempty"`
}

// StorageClassDefault holds the access and volume mode defaults of one storage class.
type StorageClassDefault struct {
	AccessModes []string `json:"accessModes,omitempty"`
	VolumeMode  string   `json:"volumeMode,omitempty"`
}

// For returns the defaults of the named class, falling back to the default class.
func (d StorageClassDefaults) For(class string) (string, StorageClassDefault) {
	if class == "" {
		class = d.DefaultStorageClass
	}
	return class, d.Classes[class]
}
