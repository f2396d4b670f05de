// Package combined reconciles the disk, volume, DataVolume and claim records of one
// logical VM disk into a single classified view.
//
// Import Path: kv-shepherd.io/vmwizard/internal/storage/combined
package combined

import (
	"fmt"

	"kv-shepherd.io/vmwizard/internal/domain"
	"kv-shepherd.io/vmwizard/internal/storage/source"
	"kv-shepherd.io/vmwizard/internal/storage/wrapper"
)

// Resolution tells whether a derived value could be read from its authoritative record.
type Resolution int

const (
	// Absent means there is no value: the variant has none, or its record is missing
	// and nothing is loading.
	Absent Resolution = iota
	// Resolved means the value was read from the authoritative record.
	Resolved
	// Unknown means the authoritative record is missing while it is still loading.
	Unknown
)

func (r Resolution) String() string {
	switch r {
	case Resolved:
		return "resolved"
	case Unknown:
		return "unknown"
	}
	return "absent"
}

// MarshalText encodes the resolution as its name.
func (r Resolution) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a resolution name.
func (r *Resolution) UnmarshalText(text []byte) error {
	switch string(text) {
	case "resolved":
		*r = Resolved
	case "unknown":
		*r = Unknown
	case "absent", "":
		*r = Absent
	default:
		return fmt.Errorf("unknown resolution %q", text)
	}
	return nil
}

// Loading flags the reference collections that are still being fetched.
type Loading struct {
	DataVolumes bool `json:"dataVolumes"`
	Claims      bool `json:"claims"`
}

// Input holds the records of one logical disk. DataVolume and Claim are optional.
type Input struct {
	ID         int
	Disk       wrapper.Disk
	Volume     wrapper.Volume
	DataVolume *wrapper.DataVolume
	Claim      *wrapper.Claim
	IsNewClaim bool
	Loading    Loading
}

// Disk is the reconciled view of one logical disk. Derived values are computed on
// every call; nothing is cached.
type Disk struct {
	in     Input
	source *source.StorageUISource
}

// NewDisk classifies the records of one logical disk.
func NewDisk(in Input) Disk {
	return Disk{
		in:     in,
		source: source.ClassifyRecords(in.Volume, in.DataVolume, in.IsNewClaim),
	}
}

func (d Disk) ID() int                         { return d.in.ID }
func (d Disk) Name() string                    { return d.in.Disk.Name() }
func (d Disk) Disk() wrapper.Disk              { return d.in.Disk }
func (d Disk) Volume() wrapper.Volume          { return d.in.Volume }
func (d Disk) DataVolume() *wrapper.DataVolume { return d.in.DataVolume }
func (d Disk) Claim() *wrapper.Claim           { return d.in.Claim }

// Source returns the provisioning-source variant.
func (d Disk) Source() *source.StorageUISource { return d.source }

// Type returns the device type of the disk.
func (d Disk) Type() domain.DiskType { return d.in.Disk.Type() }

// Bus returns the device bus.
func (d Disk) Bus() domain.DiskBus { return d.in.Disk.Bus() }

// ClaimName returns the claim the disk is bound to directly: the claim created
// alongside the VM, or the one a persistentVolumeClaim or ephemeral volume references.
// DataVolume-backed disks return "".
func (d Disk) ClaimName() string {
	if d.in.IsNewClaim && d.in.Claim != nil && d.in.Claim.Name() != "" {
		return d.in.Claim.Name()
	}
	return d.in.Volume.ClaimName()
}

// IsBootDisk reports whether the disk carries boot order 1.
func (d Disk) IsBootDisk() bool { return d.in.Disk.IsBootDisk() }

// IsEditingSupported reports whether the disk may be edited.
func (d Disk) IsEditingSupported() bool { return d.source.IsEditingSupported() }

// storageRecord is the record that holds the size, class and modes of a disk.
type storageRecord interface {
	Size() string
	StorageClassName() string
	AccessModes() []string
	VolumeMode() string
}

// authoritative returns the record the volume type designates for storage attributes.
// A nil record with Unknown means it is missing while loading.
func (d Disk) authoritative() (storageRecord, Resolution) {
	switch d.in.Volume.Type() {
	case domain.VolumeTypeDataVolume:
		if d.in.DataVolume != nil {
			return *d.in.DataVolume, Resolved
		}
		if d.in.Loading.DataVolumes {
			return nil, Unknown
		}
	case domain.VolumeTypePersistentVolumeClaim, domain.VolumeTypeEphemeral:
		if d.in.Claim != nil {
			return *d.in.Claim, Resolved
		}
		if d.in.Loading.Claims {
			return nil, Unknown
		}
	}
	return nil, Absent
}

// Size returns the requested size of the disk.
func (d Disk) Size() (wrapper.Size, Resolution) {
	rec, res := d.authoritative()
	if rec == nil {
		return wrapper.Size{}, res
	}
	if rec.Size() == "" {
		return wrapper.Size{}, Resolved
	}
	size, err := wrapper.ParseSize(rec.Size())
	if err != nil {
		return wrapper.Size{}, Resolved
	}
	return size, Resolved
}

// StorageClassName returns the storage class of the disk.
func (d Disk) StorageClassName() (string, Resolution) {
	rec, res := d.authoritative()
	if rec == nil {
		return "", res
	}
	return rec.StorageClassName(), Resolved
}

// AccessModes returns the access modes of the disk.
func (d Disk) AccessModes() ([]string, Resolution) {
	rec, res := d.authoritative()
	if rec == nil {
		return nil, res
	}
	return rec.AccessModes(), Resolved
}

// VolumeMode returns the volume mode of the disk.
func (d Disk) VolumeMode() (string, Resolution) {
	rec, res := d.authoritative()
	if rec == nil {
		return "", res
	}
	return rec.VolumeMode(), Resolved
}

// ReadableSize renders the size for display; empty when absent or unknown.
func (d Disk) ReadableSize() string {
	size, res := d.Size()
	if res != Resolved || size.IsZero() {
		return ""
	}
	return size.String()
}

// Content describes where the disk content comes from: an image, a URL or a claim.
func (d Disk) Content() string {
	switch d.source {
	case source.URL, source.Container:
		if d.in.DataVolume != nil {
			return d.in.DataVolume.URL()
		}
	case source.ContainerEphemeral:
		return d.in.Volume.ContainerImage()
	case source.AttachDisk, source.ImportDisk:
		return d.in.Volume.ClaimName()
	case source.AttachClonedDisk:
		if d.in.DataVolume == nil {
			return ""
		}
		if ns := d.in.DataVolume.PVCSourceNamespace(); ns != "" {
			return ns + "/" + d.in.DataVolume.PVCSourceName()
		}
		return d.in.DataVolume.PVCSourceName()
	}
	return ""
}

func (d Disk) String() string {
	return fmt.Sprintf("%s (%s)", d.Name(), d.source.Label())
}

// View is the serializable rendering of a combined disk.
type View struct {
	ID               int                           `json:"id"`
	Name             string                        `json:"name"`
	Source           string                        `json:"source"`
	SourceLabel      string                        `json:"sourceLabel"`
	Content          string                        `json:"content,omitempty"`
	Type             domain.DiskType               `json:"type,omitempty"`
	Bus              domain.DiskBus                `json:"bus,omitempty"`
	ReadableBus      string                        `json:"readableBus,omitempty"`
	BootOrder        *int                          `json:"bootOrder,omitempty"`
	Size             string                        `json:"size,omitempty"`
	SizeResolution   Resolution                    `json:"sizeResolution"`
	StorageClassName string                        `json:"storageClassName,omitempty"`
	AccessModes      []string                      `json:"accessModes,omitempty"`
	VolumeMode       string                        `json:"volumeMode,omitempty"`
	EditingSupported bool                          `json:"editingSupported"`
	Capabilities     source.Capabilities           `json:"capabilities"`
	DataVolume       *domain.DataVolume            `json:"dataVolume,omitempty"`
	Volume           domain.Volume                 `json:"volume"`
	Disk             domain.Disk                   `json:"disk"`
	Claim            *domain.PersistentVolumeClaim `json:"persistentVolumeClaim,omitempty"`
}

// View renders the disk for API and CLI output.
func (d Disk) View() View {
	_, sizeRes := d.Size()
	class, _ := d.StorageClassName()
	modes, _ := d.AccessModes()
	mode, _ := d.VolumeMode()

	v := View{
		ID:               d.ID(),
		Name:             d.Name(),
		Source:           d.source.Key(),
		SourceLabel:      d.source.Label(),
		Content:          d.Content(),
		Type:             d.Type(),
		Bus:              d.Bus(),
		ReadableBus:      d.in.Disk.ReadableBus(),
		Size:             d.ReadableSize(),
		SizeResolution:   sizeRes,
		StorageClassName: class,
		AccessModes:      modes,
		VolumeMode:       mode,
		EditingSupported: d.IsEditingSupported(),
		Capabilities:     d.source.Capabilities(),
		Volume:           d.in.Volume.Record(),
		Disk:             d.in.Disk.Record(),
	}
	if order, ok := d.in.Disk.BootOrder(); ok {
		v.BootOrder = &order
	}
	if d.in.DataVolume != nil {
		rec := d.in.DataVolume.Record()
		v.DataVolume = &rec
	}
	if d.in.Claim != nil {
		rec := d.in.Claim.Record()
		v.Claim = &rec
	}
	return v
}
