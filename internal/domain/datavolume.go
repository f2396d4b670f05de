package domain

// DataVolumeSourceType is the source type tag of a DataVolume.
type DataVolumeSourceType string

const (
	DataVolumeSourceBlank    DataVolumeSourceType = "blank"
	DataVolumeSourceHTTP     DataVolumeSourceType = "http"
	DataVolumeSourceRegistry DataVolumeSourceType = "registry"
	DataVolumeSourcePVC      DataVolumeSourceType = "pvc"
	DataVolumeSourceUpload   DataVolumeSourceType = "upload"
)

// ObjectMeta is the subset of Kubernetes object metadata the wizard needs.
type ObjectMeta struct {
	Name            string            `json:"name"`
	Namespace       string            `json:"namespace,omitempty"`
	UID             string            `json:"uid,omitempty"`
	Labels          map[string]string `json:"labels,omitempty"`
	Annotations     map[string]string `json:"annotations,omitempty"`
	OwnerReferences []OwnerReference  `json:"ownerReferences,omitempty"`
}

// OwnerReference links a dependent object to its owner.
type OwnerReference struct {
	APIVersion string `json:"apiVersion,omitempty"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	UID        string `json:"uid,omitempty"`
}

// DataVolume is an import or clone request that materializes volume content.
type DataVolume struct {
	Metadata ObjectMeta     `json:"metadata"`
	Spec     DataVolumeSpec `json:"spec"`
}

// DataVolumeSpec holds the source and the requested storage.
type DataVolumeSpec struct {
	Source  DataVolumeSource `json:"source"`
	Storage StorageSpec      `json:"storage"`
}

// DataVolumeSource carries exactly one source; that field is the type tag.
type DataVolumeSource struct {
	Blank    *BlankSource  `json:"blank,omitempty"`
	HTTP     *URLSource    `json:"http,omitempty"`
	Registry *URLSource    `json:"registry,omitempty"`
	PVC      *PVCSource    `json:"pvc,omitempty"`
	Upload   *UploadSource `json:"upload,omitempty"`
}

// BlankSource requests an empty disk image.
type BlankSource struct{}

// UploadSource waits for a client upload.
type UploadSource struct{}

// URLSource imports from an HTTP or registry URL.
type URLSource struct {
	URL string `json:"url"`
}

// PVCSource clones an existing claim.
type PVCSource struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
}

// StorageSpec describes the claim a DataVolume or a PVC asks for.
type StorageSpec struct {
	Resources        ResourceRequirements `json:"resources"`
	StorageClassName *string              `json:"storageClassName,omitempty"`
	AccessModes      []string             `json:"accessModes,omitempty"`
	VolumeMode       *string              `json:"volumeMode,omitempty"`
}

// ResourceRequirements holds storage requests.
type ResourceRequirements struct {
	Requests ResourceList `json:"requests"`
}

// ResourceList holds the storage quantity as "<value><unit>", e.g. "10Gi".
type ResourceList struct {
	Storage string `json:"storage,omitempty"`
}
