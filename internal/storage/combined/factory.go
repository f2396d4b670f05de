package combined

import (
	"k8s.io/apimachinery/pkg/util/sets"

	"kv-shepherd.io/vmwizard/internal/domain"
	"kv-shepherd.io/vmwizard/internal/storage/source"
	"kv-shepherd.io/vmwizard/internal/storage/wrapper"
)

// DataVolumes is a live DataVolume listing and whether it is still loading.
type DataVolumes struct {
	Items   []domain.DataVolume `json:"items,omitempty"`
	Loading bool                `json:"loading,omitempty"`
}

// Claims is a live claim listing and whether it is still loading.
type Claims struct {
	Items   []domain.PersistentVolumeClaim `json:"items,omitempty"`
	Loading bool                           `json:"loading,omitempty"`
}

// Set is an ordered collection of combined disks.
type Set struct {
	disks []Disk
}

// NewSet collects combined disks.
func NewSet(disks ...Disk) *Set {
	return &Set{disks: disks}
}

// ForEntity reconciles every disk of a VM or template with its volume, DataVolume and
// claim. Live records outside the entity namespace are ignored. DataVolume templates
// embedded in the entity win over live DataVolumes of the same name. Disk IDs are
// assigned in disk order starting at 1.
func ForEntity(entity domain.VMLikeEntity, dataVolumes DataVolumes, claims Claims) *Set {
	ns := entity.Metadata.Namespace

	liveDVs := make(map[string]wrapper.DataVolume)
	for _, dv := range dataVolumes.Items {
		if dv.Metadata.Namespace == ns {
			liveDVs[dv.Metadata.Name] = wrapper.WrapDataVolume(dv)
		}
	}
	templateDVs := make(map[string]wrapper.DataVolume, len(entity.DataVolumeTemplates))
	for _, dv := range entity.DataVolumeTemplates {
		templateDVs[dv.Metadata.Name] = wrapper.WrapDataVolume(dv)
	}
	var liveClaims []wrapper.Claim
	for _, c := range claims.Items {
		if c.Metadata.Namespace == ns {
			liveClaims = append(liveClaims, wrapper.WrapClaim(c))
		}
	}
	volumes := make(map[string]wrapper.Volume, len(entity.Volumes))
	for _, v := range entity.Volumes {
		volumes[v.Name] = wrapper.WrapVolume(v)
	}

	loading := Loading{DataVolumes: dataVolumes.Loading, Claims: claims.Loading}
	set := &Set{disks: make([]Disk, 0, len(entity.Disks))}
	for i, d := range entity.Disks {
		in := Input{
			ID:      i + 1,
			Disk:    wrapper.WrapDisk(d),
			Volume:  volumes[d.Name],
			Loading: loading,
		}

		switch in.Volume.Type() {
		case domain.VolumeTypeDataVolume:
			name := in.Volume.DataVolumeName()
			if dv, ok := templateDVs[name]; ok {
				in.DataVolume = &dv
			} else if dv, ok := liveDVs[name]; ok {
				in.DataVolume = &dv
			}
			if in.DataVolume != nil {
				in.Claim = ownedClaim(liveClaims, *in.DataVolume)
			}
		case domain.VolumeTypePersistentVolumeClaim, domain.VolumeTypeEphemeral:
			in.Claim = claimByName(liveClaims, in.Volume.ClaimName())
		}

		set.disks = append(set.disks, NewDisk(in))
	}
	return set
}

func claimByName(claims []wrapper.Claim, name string) *wrapper.Claim {
	for i := range claims {
		if claims[i].Name() == name {
			return &claims[i]
		}
	}
	return nil
}

func ownedClaim(claims []wrapper.Claim, dv wrapper.DataVolume) *wrapper.Claim {
	for i := range claims {
		if dv.IsOwnerOf(claims[i]) {
			return &claims[i]
		}
	}
	return nil
}

// Disks returns the combined disks in order.
func (s *Set) Disks() []Disk {
	return append([]Disk(nil), s.disks...)
}

// Len returns the number of disks.
func (s *Set) Len() int { return len(s.disks) }

// Get returns the disk with the given ID.
func (s *Set) Get(id int) (Disk, bool) {
	for _, d := range s.disks {
		if d.ID() == id {
			return d, true
		}
	}
	return Disk{}, false
}

// UsedDiskNames returns the disk names of every disk except excludingID.
func (s *Set) UsedDiskNames(excludingID int) sets.Set[string] {
	used := sets.New[string]()
	for _, d := range s.disks {
		if d.ID() != excludingID && d.Name() != "" {
			used.Insert(d.Name())
		}
	}
	return used
}

// UsedDataVolumeNames returns the DataVolume names of every disk except excludingID.
func (s *Set) UsedDataVolumeNames(excludingID int) sets.Set[string] {
	used := sets.New[string]()
	for _, d := range s.disks {
		if d.ID() != excludingID && d.DataVolume() != nil && d.DataVolume().Name() != "" {
			used.Insert(d.DataVolume().Name())
		}
	}
	return used
}

// UsedClaimNames returns the claims bound directly by every disk except excludingID.
func (s *Set) UsedClaimNames(excludingID int) sets.Set[string] {
	used := sets.New[string]()
	for _, d := range s.disks {
		if d.ID() == excludingID {
			continue
		}
		if name := d.ClaimName(); name != "" {
			used.Insert(name)
		}
	}
	return used
}

// BootDisk returns the first disk with boot order 1.
func (s *Set) BootDisk() (Disk, bool) {
	for _, d := range s.disks {
		if d.IsBootDisk() {
			return d, true
		}
	}
	return Disk{}, false
}

// BootSource is the outcome of boot source validation. Unknown is set while the
// verdict depends on records that are still loading.
type BootSource struct {
	Valid   bool   `json:"valid"`
	Unknown bool   `json:"unknown,omitempty"`
	Message string `json:"message,omitempty"`
	DiskID  int    `json:"diskId,omitempty"`
}

// ValidateBootSource checks that exactly one disk boots first and that its source is
// usable. Missing records that are still loading make the result unknown, not invalid.
func (s *Set) ValidateBootSource() BootSource {
	var boot []Disk
	for _, d := range s.disks {
		if d.IsBootDisk() {
			boot = append(boot, d)
		}
	}
	switch len(boot) {
	case 0:
		return BootSource{Message: "no bootable device found"}
	case 1:
	default:
		return BootSource{Message: "more than one device has boot order 1"}
	}

	d := boot[0]
	out := BootSource{DiskID: d.ID()}
	if _, res := d.Size(); res == Unknown {
		out.Unknown = true
		return out
	}
	src := d.Source()
	switch {
	case d.Volume().Type() == domain.VolumeTypeDataVolume && d.DataVolume() == nil:
		out.Message = "data volume " + d.Volume().DataVolumeName() + " does not exist"
	case src == source.Other:
		out.Message = "boot device " + d.Name() + " has an unsupported source"
	case src == source.AttachDisk && d.Claim() == nil:
		out.Message = "claim " + d.Volume().ClaimName() + " does not exist"
	default:
		out.Valid = true
	}
	return out
}
