package wrapper

import (
	"slices"

	"kv-shepherd.io/vmwizard/internal/domain"
)

// Claim wraps a persistent volume claim record. Claims carry no type tag.
type Claim struct {
	claim domain.PersistentVolumeClaim
}

// WrapClaim wraps an existing claim record.
func WrapClaim(c domain.PersistentVolumeClaim) Claim {
	return Claim{claim: c}
}

// NewClaim builds a claim requesting size in namespace.
func NewClaim(name, namespace, size string) Claim {
	c := domain.PersistentVolumeClaim{Metadata: domain.ObjectMeta{Name: name, Namespace: namespace}}
	c.Spec.Resources.Requests.Storage = size
	return Claim{claim: c}
}

// Record returns the plain claim record.
func (w Claim) Record() domain.PersistentVolumeClaim { return w.claim }

func (w Claim) Name() string      { return w.claim.Metadata.Name }
func (w Claim) Namespace() string { return w.claim.Metadata.Namespace }

// Size returns the raw requested storage quantity.
func (w Claim) Size() string { return w.claim.Spec.Resources.Requests.Storage }

// ReadableSize returns the requested size, false when unset or unparseable.
func (w Claim) ReadableSize() (Size, bool) { return readableSize(w.Size()) }

func (w Claim) StorageClassName() string { return deref(w.claim.Spec.StorageClassName) }
func (w Claim) AccessModes() []string    { return slices.Clone(w.claim.Spec.AccessModes) }
func (w Claim) VolumeMode() string       { return deref(w.claim.Spec.VolumeMode) }

// WithSize returns a copy requesting the given quantity.
func (w Claim) WithSize(quantity string) Claim {
	out := w.claim
	out.Spec.Resources.Requests.Storage = quantity
	return Claim{claim: out}
}

// WithStorageClassName returns a copy using the given class; "" unsets it.
func (w Claim) WithStorageClassName(class string) Claim {
	out := w.claim
	out.Spec.StorageClassName = ptrOrNil(class)
	return Claim{claim: out}
}

// OwnedByDataVolume reports whether an owner reference of kind DataVolume points at name.
// An empty uid on either side matches any UID.
func (w Claim) OwnedByDataVolume(name, uid string) bool {
	for _, ref := range w.claim.Metadata.OwnerReferences {
		if ref.Kind != DataVolumeKind || ref.Name != name {
			continue
		}
		if uid == "" || ref.UID == "" || ref.UID == uid {
			return true
		}
	}
	return false
}
