package wrapper

import (
	"slices"

	"kv-shepherd.io/vmwizard/internal/domain"
)

// DataVolumeKind is the owner reference kind that links a claim to its DataVolume.
const DataVolumeKind = "DataVolume"

// DataVolumeTypeData is the union of the payload fields of every DataVolume source:
// URL for http and registry, Name and Namespace of the cloned claim for pvc.
type DataVolumeTypeData struct {
	URL       string
	Name      string
	Namespace string
}

var dataVolumeTypes = typedSpec[domain.DataVolume, domain.DataVolumeSourceType, DataVolumeTypeData]{
	types: []domain.DataVolumeSourceType{
		domain.DataVolumeSourceBlank,
		domain.DataVolumeSourceHTTP,
		domain.DataVolumeSourceRegistry,
		domain.DataVolumeSourcePVC,
		domain.DataVolumeSourceUpload,
	},
	has: func(dv *domain.DataVolume, t domain.DataVolumeSourceType) bool {
		src := &dv.Spec.Source
		switch t {
		case domain.DataVolumeSourceBlank:
			return src.Blank != nil
		case domain.DataVolumeSourceHTTP:
			return src.HTTP != nil
		case domain.DataVolumeSourceRegistry:
			return src.Registry != nil
		case domain.DataVolumeSourcePVC:
			return src.PVC != nil
		case domain.DataVolumeSourceUpload:
			return src.Upload != nil
		}
		return false
	},
	read: func(dv *domain.DataVolume, t domain.DataVolumeSourceType) DataVolumeTypeData {
		src := &dv.Spec.Source
		switch t {
		case domain.DataVolumeSourceHTTP:
			return DataVolumeTypeData{URL: src.HTTP.URL}
		case domain.DataVolumeSourceRegistry:
			return DataVolumeTypeData{URL: src.Registry.URL}
		case domain.DataVolumeSourcePVC:
			return DataVolumeTypeData{Name: src.PVC.Name, Namespace: src.PVC.Namespace}
		}
		return DataVolumeTypeData{}
	},
	sanitize: func(dv *domain.DataVolume, t domain.DataVolumeSourceType, data DataVolumeTypeData) {
		src := &dv.Spec.Source
		switch t {
		case domain.DataVolumeSourceBlank:
			src.Blank = &domain.BlankSource{}
		case domain.DataVolumeSourceHTTP:
			src.HTTP = &domain.URLSource{URL: data.URL}
		case domain.DataVolumeSourceRegistry:
			src.Registry = &domain.URLSource{URL: data.URL}
		case domain.DataVolumeSourcePVC:
			src.PVC = &domain.PVCSource{Name: data.Name, Namespace: data.Namespace}
		case domain.DataVolumeSourceUpload:
			src.Upload = &domain.UploadSource{}
		}
	},
	clear: func(dv *domain.DataVolume) {
		dv.Spec.Source = domain.DataVolumeSource{}
	},
	merge: func(base, over DataVolumeTypeData) DataVolumeTypeData {
		overlay(&base.URL, over.URL)
		overlay(&base.Name, over.Name)
		overlay(&base.Namespace, over.Namespace)
		return base
	},
}

// DataVolume wraps a DataVolume record.
type DataVolume struct {
	dv domain.DataVolume
}

// WrapDataVolume wraps an existing DataVolume record.
func WrapDataVolume(dv domain.DataVolume) DataVolume {
	return DataVolume{dv: dv}
}

// NewDataVolume builds a DataVolume with the given source.
func NewDataVolume(name string, t domain.DataVolumeSourceType, data DataVolumeTypeData) DataVolume {
	dv := domain.DataVolume{Metadata: domain.ObjectMeta{Name: name}}
	return DataVolume{dv: dataVolumeTypes.setType(dv, t, data)}
}

// Record returns the plain DataVolume record.
func (w DataVolume) Record() domain.DataVolume { return w.dv }

// Name returns the DataVolume name, which is also the name of the claim it produces.
func (w DataVolume) Name() string { return w.dv.Metadata.Name }

// Namespace returns the namespace of a live DataVolume; templates leave it empty.
func (w DataVolume) Namespace() string { return w.dv.Metadata.Namespace }

// UID returns the UID of a live DataVolume, matched against claim owner references.
func (w DataVolume) UID() string { return w.dv.Metadata.UID }

// Type returns the source type tag, or "" when none is set.
func (w DataVolume) Type() domain.DataVolumeSourceType { return dataVolumeTypes.typeOf(w.dv) }

// TypeData returns the payload of the active source.
func (w DataVolume) TypeData() DataVolumeTypeData { return dataVolumeTypes.typeData(w.dv) }

// URL returns the import URL of http and registry sources.
func (w DataVolume) URL() string {
	switch w.Type() {
	case domain.DataVolumeSourceHTTP, domain.DataVolumeSourceRegistry:
		return w.TypeData().URL
	}
	return ""
}

// PVCSourceName returns the name of the cloned claim.
func (w DataVolume) PVCSourceName() string {
	if w.dv.Spec.Source.PVC == nil {
		return ""
	}
	return w.dv.Spec.Source.PVC.Name
}

// PVCSourceNamespace returns the namespace of the cloned claim.
func (w DataVolume) PVCSourceNamespace() string {
	if w.dv.Spec.Source.PVC == nil {
		return ""
	}
	return w.dv.Spec.Source.PVC.Namespace
}

// Size returns the raw requested storage quantity.
func (w DataVolume) Size() string { return w.dv.Spec.Storage.Resources.Requests.Storage }

// ReadableSize returns the requested size, false when unset or unparseable.
func (w DataVolume) ReadableSize() (Size, bool) { return readableSize(w.Size()) }

// StorageClassName returns the requested class, or "" for the cluster default.
func (w DataVolume) StorageClassName() string { return deref(w.dv.Spec.Storage.StorageClassName) }

// AccessModes returns a copy of the requested access modes.
func (w DataVolume) AccessModes() []string { return slices.Clone(w.dv.Spec.Storage.AccessModes) }

func (w DataVolume) VolumeMode() string { return deref(w.dv.Spec.Storage.VolumeMode) }

// SetType returns a copy switched to source t with a sanitized payload.
func (w DataVolume) SetType(t domain.DataVolumeSourceType, data DataVolumeTypeData) DataVolume {
	return DataVolume{dv: dataVolumeTypes.setType(w.dv, t, data)}
}

// WithName returns a renamed copy. The volume referencing it must be renamed too.
func (w DataVolume) WithName(name string) DataVolume {
	out := w.dv
	out.Metadata.Name = name
	return DataVolume{dv: out}
}

// WithSize returns a copy requesting the given quantity.
func (w DataVolume) WithSize(quantity string) DataVolume {
	out := w.dv
	out.Spec.Storage.Resources.Requests.Storage = quantity
	return DataVolume{dv: out}
}

// WithStorageClassName returns a copy using the given class; "" unsets it.
func (w DataVolume) WithStorageClassName(class string) DataVolume {
	out := w.dv
	out.Spec.Storage.StorageClassName = ptrOrNil(class)
	return DataVolume{dv: out}
}

func (w DataVolume) WithAccessModes(modes []string) DataVolume {
	out := w.dv
	out.Spec.Storage.AccessModes = slices.Clone(modes)
	return DataVolume{dv: out}
}

func (w DataVolume) WithVolumeMode(mode string) DataVolume {
	out := w.dv
	out.Spec.Storage.VolumeMode = ptrOrNil(mode)
	return DataVolume{dv: out}
}

// MergeWith overlays other onto the DataVolume: set metadata and storage fields win,
// and the source is merged when both carry the same type and replaced otherwise.
func (w DataVolume) MergeWith(other DataVolume) DataVolume {
	out := dataVolumeTypes.mergeWith(w.dv, other.dv)
	overlay(&out.Metadata.Name, other.dv.Metadata.Name)
	overlay(&out.Metadata.Namespace, other.dv.Metadata.Namespace)
	overlay(&out.Spec.Storage.Resources.Requests.Storage, other.Size())
	if other.dv.Spec.Storage.StorageClassName != nil {
		out.Spec.Storage.StorageClassName = ptrOrNil(other.StorageClassName())
	}
	if len(other.dv.Spec.Storage.AccessModes) > 0 {
		out.Spec.Storage.AccessModes = other.AccessModes()
	}
	if other.dv.Spec.Storage.VolumeMode != nil {
		out.Spec.Storage.VolumeMode = ptrOrNil(other.VolumeMode())
	}
	return DataVolume{dv: out}
}

// IsOwnerOf reports whether the claim was produced by this DataVolume. UIDs are
// compared only when both sides carry one.
func (w DataVolume) IsOwnerOf(claim Claim) bool {
	return claim.OwnedByDataVolume(w.Name(), w.UID())
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
