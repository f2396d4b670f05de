// Package wrapper provides copy-on-write accessors over the storage records of a VM:
// disks, volumes, data volumes and persistent volume claims.
//
// Disk, Volume and DataVolume records carry exactly one of a closed set of type tags
// plus a tag-specific payload. Changing the tag always projects the payload onto the
// fields legal for the new tag, so stale fields never leak into another variant.
//
// Import Path: kv-shepherd.io/vmwizard/internal/storage/wrapper
package wrapper

import "slices"

// typedSpec describes a record R carrying one of the tags in types, whose payload is
// projected from (and read back into) the type-data union D.
//
// has reports whether the payload of tag t is present, read returns it as type data,
// sanitize writes the whitelist projection of d for tag t, clear drops every payload,
// and merge overlays the non-zero fields of over onto base.
type typedSpec[R any, T ~string, D any] struct {
	types    []T
	has      func(r *R, t T) bool
	read     func(r *R, t T) D
	sanitize func(r *R, t T, d D)
	clear    func(r *R)
	merge    func(base, over D) D
}

func (s typedSpec[R, T, D]) known(t T) bool {
	return slices.Contains(s.types, t)
}

// typeOf returns the active tag of r, or the empty tag when none is set.
func (s typedSpec[R, T, D]) typeOf(r R) T {
	for _, t := range s.types {
		if s.has(&r, t) {
			return t
		}
	}
	var none T
	return none
}

func (s typedSpec[R, T, D]) typeData(r R) D {
	t := s.typeOf(r)
	if t == "" {
		var zero D
		return zero
	}
	return s.read(&r, t)
}

// setType returns a copy of r whose payload is sanitize(t, d).
// An unrecognized tag leaves the copy without any payload.
func (s typedSpec[R, T, D]) setType(r R, t T, d D) R {
	out := r
	s.clear(&out)
	if s.known(t) {
		s.sanitize(&out, t, d)
	}
	return out
}

// mergeWith overlays the payload of other onto r when both carry the same tag,
// and replaces the payload wholesale otherwise.
func (s typedSpec[R, T, D]) mergeWith(r, other R) R {
	otherType := s.typeOf(other)
	if otherType == "" {
		return r
	}
	if s.typeOf(r) == otherType {
		return s.setType(r, otherType, s.merge(s.typeData(r), s.typeData(other)))
	}
	return s.setType(r, otherType, s.typeData(other))
}
