package domain

// VMLikeEntity is a virtual machine, or the virtual machine embedded in a template.
// Only the fields the storage and network views need are carried.
type VMLikeEntity struct {
	Metadata            ObjectMeta   `json:"metadata"`
	Disks               []Disk       `json:"disks,omitempty"`
	Interfaces          []Interface  `json:"interfaces,omitempty"`
	Networks            []Network    `json:"networks,omitempty"`
	Volumes             []Volume     `json:"volumes,omitempty"`
	DataVolumeTemplates []DataVolume `json:"dataVolumeTemplates,omitempty"`
	Memory              string       `json:"memory,omitempty"`
	CPUCores            int          `json:"cpuCores,omitempty"`
}

// Interface is a VM network interface.
type Interface struct {
	Name       string `json:"name"`
	Model      string `json:"model,omitempty"`
	Binding    string `json:"binding,omitempty"` // bridge, masquerade or sriov
	MACAddress string `json:"macAddress,omitempty"`
	BootOrder  *int   `json:"bootOrder,omitempty"`
}

// Network is the backend an interface with the same name is connected to.
type Network struct {
	Name   string         `json:"name"`
	Pod    *PodNetwork    `json:"pod,omitempty"`
	Multus *MultusNetwork `json:"multus,omitempty"`
}

// PodNetwork is the cluster default pod network.
type PodNetwork struct{}

// MultusNetwork references a network attachment definition.
type MultusNetwork struct {
	NetworkName string `json:"networkName"`
}

// Template is a reusable preset of OS/flavor/workload-tagged VM defaults.
type Template struct {
	Metadata ObjectMeta   `json:"metadata"`
	VM       VMLikeEntity `json:"vm"`
}

// Name returns the template name.
func (t Template) Name() string { return t.Metadata.Name }
