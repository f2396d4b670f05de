package wrapper

import "kv-shepherd.io/vmwizard/internal/domain"

// DiskTypeData is the union of the payload fields of every disk type.
type DiskTypeData struct {
	Bus domain.DiskBus
}

var diskTypes = typedSpec[domain.Disk, domain.DiskType, DiskTypeData]{
	types: []domain.DiskType{
		domain.DiskTypeDisk,
		domain.DiskTypeCDRom,
		domain.DiskTypeFloppy,
		domain.DiskTypeLUN,
	},
	has: func(d *domain.Disk, t domain.DiskType) bool {
		if t == domain.DiskTypeFloppy {
			return d.Floppy != nil
		}
		return diskTarget(d, t) != nil
	},
	read: func(d *domain.Disk, t domain.DiskType) DiskTypeData {
		if target := diskTarget(d, t); target != nil {
			return DiskTypeData{Bus: target.Bus}
		}
		return DiskTypeData{}
	},
	sanitize: func(d *domain.Disk, t domain.DiskType, data DiskTypeData) {
		switch t {
		case domain.DiskTypeDisk:
			d.Disk = &domain.DiskTarget{Bus: data.Bus}
		case domain.DiskTypeCDRom:
			d.CDRom = &domain.DiskTarget{Bus: data.Bus}
		case domain.DiskTypeLUN:
			d.LUN = &domain.DiskTarget{Bus: data.Bus}
		case domain.DiskTypeFloppy:
			d.Floppy = &domain.FloppyTarget{}
		}
	},
	clear: func(d *domain.Disk) {
		d.Disk, d.CDRom, d.Floppy, d.LUN = nil, nil, nil, nil
	},
	merge: func(base, over DiskTypeData) DiskTypeData {
		if over.Bus != "" {
			base.Bus = over.Bus
		}
		return base
	},
}

func diskTarget(d *domain.Disk, t domain.DiskType) *domain.DiskTarget {
	switch t {
	case domain.DiskTypeDisk:
		return d.Disk
	case domain.DiskTypeCDRom:
		return d.CDRom
	case domain.DiskTypeLUN:
		return d.LUN
	}
	return nil
}

// Disk wraps a disk record.
type Disk struct {
	disk domain.Disk
}

// WrapDisk wraps an existing disk record.
func WrapDisk(d domain.Disk) Disk {
	return Disk{disk: d}
}

// NewDisk builds a disk of the given type.
func NewDisk(name string, t domain.DiskType, data DiskTypeData) Disk {
	return Disk{disk: diskTypes.setType(domain.Disk{Name: name}, t, data)}
}

// Record returns the plain disk record.
func (w Disk) Record() domain.Disk { return w.disk }

// Name returns the disk name.
func (w Disk) Name() string { return w.disk.Name }

// Type returns the device type tag, or "" when none is set.
func (w Disk) Type() domain.DiskType { return diskTypes.typeOf(w.disk) }

// TypeData returns the payload of the active type.
func (w Disk) TypeData() DiskTypeData { return diskTypes.typeData(w.disk) }

// Bus returns the bus of the device, or "" for floppies.
func (w Disk) Bus() domain.DiskBus { return w.TypeData().Bus }

// ReadableBus returns the display label of the bus.
func (w Disk) ReadableBus() string {
	return ReadableBus(w.Bus())
}

// ReadableBus returns the display label of a bus value.
func ReadableBus(bus domain.DiskBus) string {
	switch bus {
	case domain.DiskBusVirtio:
		return "VirtIO"
	case domain.DiskBusSATA:
		return "SATA"
	case domain.DiskBusSCSI:
		return "SCSI"
	}
	return string(bus)
}

// BootOrder returns the boot order and whether one is set.
func (w Disk) BootOrder() (int, bool) {
	if w.disk.BootOrder == nil {
		return 0, false
	}
	return *w.disk.BootOrder, true
}

// IsBootDisk reports whether the disk boots first.
func (w Disk) IsBootDisk() bool {
	order, ok := w.BootOrder()
	return ok && order == 1
}

// SetType returns a copy switched to type t with a sanitized payload.
func (w Disk) SetType(t domain.DiskType, data DiskTypeData) Disk {
	return Disk{disk: diskTypes.setType(w.disk, t, data)}
}

// WithBus returns a copy with the bus of the current type replaced.
// Disks without a bus-carrying type are returned unchanged.
func (w Disk) WithBus(bus domain.DiskBus) Disk {
	t := w.Type()
	if t == "" || t == domain.DiskTypeFloppy {
		return w
	}
	return w.SetType(t, DiskTypeData{Bus: bus})
}

// WithName returns a renamed copy.
func (w Disk) WithName(name string) Disk {
	out := w.disk
	out.Name = name
	return Disk{disk: out}
}

// WithBootOrder returns a copy with the given boot order.
func (w Disk) WithBootOrder(order int) Disk {
	out := w.disk
	out.BootOrder = &order
	return Disk{disk: out}
}

// WithoutBootOrder returns a copy without a boot order.
func (w Disk) WithoutBootOrder() Disk {
	out := w.disk
	out.BootOrder = nil
	return Disk{disk: out}
}

// MergeWith overlays other onto the disk: set scalar fields win, and the type payload
// is merged when both carry the same type and replaced otherwise.
func (w Disk) MergeWith(other Disk) Disk {
	out := diskTypes.mergeWith(w.disk, other.disk)
	if other.disk.Name != "" {
		out.Name = other.disk.Name
	}
	if other.disk.BootOrder != nil {
		order := *other.disk.BootOrder
		out.BootOrder = &order
	}
	return Disk{disk: out}
}
