// Package domain provides the storage and wizard records for the VM wizard service.
//
// All records are decoupled from Kubernetes API types (Anti-Corruption Layer):
// the provider mapper translates kubevirt.io / CDI / core objects into these shapes,
// and the JSON tags mirror the upstream field names one-to-one.
//
// Import Path: kv-shepherd.io/vmwizard/internal/domain
package domain

// DiskType is the device type tag of a Disk.
type DiskType string

const (
	DiskTypeDisk   DiskType = "disk"
	DiskTypeCDRom  DiskType = "cdrom"
	DiskTypeFloppy DiskType = "floppy"
	DiskTypeLUN    DiskType = "lun"
)

// DiskBus is the bus a disk device is attached with.
type DiskBus string

const (
	DiskBusVirtio DiskBus = "virtio"
	DiskBusSATA   DiskBus = "sata"
	DiskBusSCSI   DiskBus = "scsi"
)

// Disk is the device-facing descriptor of a VM disk.
// Exactly one of Disk, CDRom, Floppy, LUN is set; that field is the type tag.
type Disk struct {
	Name      string        `json:"name"`
	BootOrder *int          `json:"bootOrder,omitempty"`
	Disk      *DiskTarget   `json:"disk,omitempty"`
	CDRom     *DiskTarget   `json:"cdrom,omitempty"`
	Floppy    *FloppyTarget `json:"floppy,omitempty"`
	LUN       *DiskTarget   `json:"lun,omitempty"`
}

// DiskTarget is the payload shared by disk, cdrom and lun devices.
type DiskTarget struct {
	Bus DiskBus `json:"bus,omitempty"`
}

// FloppyTarget carries no payload.
type FloppyTarget struct{}
