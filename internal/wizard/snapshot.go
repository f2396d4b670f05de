// Package wizard holds the state of a VM creation wizard and the update engine that
// keeps its tabs consistent while the user edits interdependent fields.
//
// A Snapshot is a plain value. External edits and updaters change it only through
// Mutations; the Engine runs the ordered updater list once per edit batch.
//
// Import Path: kv-shepherd.io/vmwizard/internal/wizard
package wizard

import (
	"slices"

	"kv-shepherd.io/vmwizard/internal/domain"
	"kv-shepherd.io/vmwizard/internal/storage/combined"
	"kv-shepherd.io/vmwizard/internal/storage/wrapper"
)

// NamePlaceholder stands for the VM name in names derived before the VM exists.
const NamePlaceholder = "${NAME}"

// FieldKey identifies a field of the VM settings tab.
type FieldKey string

const (
	FieldName              FieldKey = "name"
	FieldDescription       FieldKey = "description"
	FieldUserTemplate      FieldKey = "userTemplate"
	FieldProvisionSource   FieldKey = "provisionSourceType"
	FieldImageURL          FieldKey = "imageURL"
	FieldContainerImage    FieldKey = "containerImage"
	FieldClonePVCName      FieldKey = "clonePVCName"
	FieldClonePVCNamespace FieldKey = "clonePVCNamespace"
	FieldCloneBaseImage    FieldKey = "cloneBaseImage"
	FieldOperatingSystem   FieldKey = "operatingSystem"
	FieldFlavor            FieldKey = "flavor"
	FieldWorkloadProfile   FieldKey = "workloadProfile"
	FieldMemory            FieldKey = "memory"
	FieldCPU               FieldKey = "cpu"
)

// FieldState is the value of a VM settings field and its presentation flags.
type FieldState struct {
	Value      string `json:"value,omitempty"`
	IsHidden   bool   `json:"isHidden,omitempty"`
	IsRequired bool   `json:"isRequired,omitempty"`
	IsDisabled bool   `json:"isDisabled,omitempty"`
}

// VMSettings is the VM settings tab.
type VMSettings struct {
	Name              FieldState `json:"name"`
	Description       FieldState `json:"description"`
	UserTemplate      FieldState `json:"userTemplate"`
	ProvisionSource   FieldState `json:"provisionSourceType"`
	ImageURL          FieldState `json:"imageURL"`
	ContainerImage    FieldState `json:"containerImage"`
	ClonePVCName      FieldState `json:"clonePVCName"`
	ClonePVCNamespace FieldState `json:"clonePVCNamespace"`
	CloneBaseImage    FieldState `json:"cloneBaseImage"`
	OperatingSystem   FieldState `json:"operatingSystem"`
	Flavor            FieldState `json:"flavor"`
	WorkloadProfile   FieldState `json:"workloadProfile"`
	Memory            FieldState `json:"memory"`
	CPU               FieldState `json:"cpu"`
}

type fieldAccessor struct {
	key FieldKey
	get func(*VMSettings) *FieldState
}

// settingsFields maps every field key to its struct field, in tab order.
var settingsFields = []fieldAccessor{
	{FieldName, func(s *VMSettings) *FieldState { return &s.Name }},
	{FieldDescription, func(s *VMSettings) *FieldState { return &s.Description }},
	{FieldUserTemplate, func(s *VMSettings) *FieldState { return &s.UserTemplate }},
	{FieldProvisionSource, func(s *VMSettings) *FieldState { return &s.ProvisionSource }},
	{FieldImageURL, func(s *VMSettings) *FieldState { return &s.ImageURL }},
	{FieldContainerImage, func(s *VMSettings) *FieldState { return &s.ContainerImage }},
	{FieldClonePVCName, func(s *VMSettings) *FieldState { return &s.ClonePVCName }},
	{FieldClonePVCNamespace, func(s *VMSettings) *FieldState { return &s.ClonePVCNamespace }},
	{FieldCloneBaseImage, func(s *VMSettings) *FieldState { return &s.CloneBaseImage }},
	{FieldOperatingSystem, func(s *VMSettings) *FieldState { return &s.OperatingSystem }},
	{FieldFlavor, func(s *VMSettings) *FieldState { return &s.Flavor }},
	{FieldWorkloadProfile, func(s *VMSettings) *FieldState { return &s.WorkloadProfile }},
	{FieldMemory, func(s *VMSettings) *FieldState { return &s.Memory }},
	{FieldCPU, func(s *VMSettings) *FieldState { return &s.CPU }},
}

// FieldKeys returns every VM settings field key in tab order.
func FieldKeys() []FieldKey {
	keys := make([]FieldKey, 0, len(settingsFields))
	for _, f := range settingsFields {
		keys = append(keys, f.key)
	}
	return keys
}

// Field returns a pointer to the state of key, or false for an unknown key.
func (s *VMSettings) Field(key FieldKey) (*FieldState, bool) {
	for _, f := range settingsFields {
		if f.key == key {
			return f.get(s), true
		}
	}
	return nil, false
}

// Value returns the value of key, "" for an unknown key.
func (s VMSettings) Value(key FieldKey) string {
	if f, ok := s.Field(key); ok {
		return f.Value
	}
	return ""
}

// NetworkType tells where a network row comes from.
type NetworkType string

const (
	NetworkTypeTemplate   NetworkType = "template"
	NetworkTypeDefaultPod NetworkType = "default-pod"
	NetworkTypeUIInput    NetworkType = "ui-input"
)

// Network is one row of the networking tab.
type Network struct {
	ID        int              `json:"id"`
	Type      NetworkType      `json:"type"`
	Interface domain.Interface `json:"interface"`
	Network   domain.Network   `json:"network"`
}

// StorageType tells where a storage row comes from.
type StorageType string

const (
	StorageTypeTemplate          StorageType = "template"
	StorageTypeProvisionSource   StorageType = "provision-source-disk"
	StorageTypeUIInput           StorageType = "ui-input"
	StorageTypeWindowsGuestTools StorageType = "windows-guest-tools"
	StorageTypeImported          StorageType = "imported"
)

// IsSystemManaged reports whether rows of this type are maintained by updaters.
func (t StorageType) IsSystemManaged() bool {
	switch t {
	case StorageTypeProvisionSource, StorageTypeImported, StorageTypeWindowsGuestTools:
		return true
	}
	return false
}

// Storage is one row of the storage tab.
type Storage struct {
	ID                    int                           `json:"id"`
	Type                  StorageType                   `json:"type"`
	Disk                  domain.Disk                   `json:"disk"`
	Volume                domain.Volume                 `json:"volume"`
	DataVolume            *domain.DataVolume            `json:"dataVolume,omitempty"`
	PersistentVolumeClaim *domain.PersistentVolumeClaim `json:"persistentVolumeClaim,omitempty"`
}

// Advanced is the advanced tab.
type Advanced struct {
	CloudInitUserData string `json:"cloudInitUserData,omitempty"`
}

// References is read-only data fetched by the collaborating store. Loading flags are
// set while the matching collection is being fetched.
type References struct {
	UserTemplates        []domain.Template           `json:"userTemplates,omitempty"`
	CommonTemplates      []domain.Template           `json:"commonTemplates,omitempty"`
	TemplatesLoading     bool                        `json:"templatesLoading,omitempty"`
	BaseImages           []domain.BaseImage          `json:"baseImages,omitempty"`
	BaseImagesLoading    bool                        `json:"baseImagesLoading,omitempty"`
	StorageClassDefaults domain.StorageClassDefaults `json:"storageClassDefaults"`
	DataVolumes          combined.DataVolumes        `json:"dataVolumes"`
	Claims               combined.Claims             `json:"claims"`
}

// PendingReferences returns references with every loading flag set, for a snapshot
// whose reference data has not arrived yet.
func PendingReferences() References {
	return References{
		TemplatesLoading:  true,
		BaseImagesLoading: true,
		DataVolumes:       combined.DataVolumes{Loading: true},
		Claims:            combined.Claims{Loading: true},
	}
}

// Snapshot is the complete wizard state.
type Snapshot struct {
	Namespace  string     `json:"namespace"`
	VMSettings VMSettings `json:"vmSettings"`
	Networks   []Network  `json:"networks"`
	Storages   []Storage  `json:"storages"`
	Advanced   Advanced   `json:"advanced"`
	References References `json:"references"`
	NextID     int        `json:"nextId"`
}

// NewSnapshot returns the initial state of a wizard in namespace: a default pod network
// and the fields required before anything is selected.
func NewSnapshot(namespace string) Snapshot {
	s := Snapshot{Namespace: namespace, NextID: 1}
	s.VMSettings.Name.IsRequired = true
	s.VMSettings.ProvisionSource.IsRequired = true
	s.VMSettings.OperatingSystem.IsRequired = true
	s.VMSettings.Flavor.IsRequired = true
	s.Networks = []Network{defaultPodNetwork(s.allocateID())}
	return s
}

func defaultPodNetwork(id int) Network {
	return Network{
		ID:        id,
		Type:      NetworkTypeDefaultPod,
		Interface: domain.Interface{Name: "nic0", Model: "virtio", Binding: "masquerade"},
		Network:   domain.Network{Name: "nic0", Pod: &domain.PodNetwork{}},
	}
}

// Clone returns a copy whose slices can be replaced without touching s. Records are
// shared; they are never modified in place.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Networks = slices.Clone(s.Networks)
	out.Storages = slices.Clone(s.Storages)
	return out
}

func (s *Snapshot) allocateID() int {
	next := max(s.NextID, 1)
	for _, st := range s.Storages {
		next = max(next, st.ID+1)
	}
	for _, n := range s.Networks {
		next = max(next, n.ID+1)
	}
	s.NextID = next + 1
	return next
}

// Storage returns the storage row with the given ID.
func (s Snapshot) Storage(id int) (Storage, bool) {
	for _, st := range s.Storages {
		if st.ID == id {
			return st, true
		}
	}
	return Storage{}, false
}

// StoragesOfType returns the storage rows of type t.
func (s Snapshot) StoragesOfType(t StorageType) []Storage {
	var out []Storage
	for _, st := range s.Storages {
		if st.Type == t {
			out = append(out, st)
		}
	}
	return out
}

// ProvisionSourceStorage returns the boot disk row created for the provision source.
func (s Snapshot) ProvisionSourceStorage() (Storage, bool) {
	rows := s.StoragesOfType(StorageTypeProvisionSource)
	if len(rows) == 0 {
		return Storage{}, false
	}
	return rows[0], true
}

// CombinedDisk reconciles one storage row against the live references.
func (s Snapshot) CombinedDisk(st Storage) combined.Disk {
	in := combined.Input{
		ID:     st.ID,
		Disk:   wrapper.WrapDisk(st.Disk),
		Volume: wrapper.WrapVolume(st.Volume),
		Loading: combined.Loading{
			DataVolumes: s.References.DataVolumes.Loading,
			Claims:      s.References.Claims.Loading,
		},
	}
	if st.DataVolume != nil {
		dv := wrapper.WrapDataVolume(*st.DataVolume)
		in.DataVolume = &dv
	} else if name := in.Volume.DataVolumeName(); name != "" {
		in.DataVolume = s.liveDataVolume(name, s.Namespace)
	}

	switch {
	case st.PersistentVolumeClaim != nil:
		c := wrapper.WrapClaim(*st.PersistentVolumeClaim)
		in.Claim = &c
		in.IsNewClaim = st.Type == StorageTypeImported
	case in.DataVolume != nil:
		in.Claim = s.ownedClaim(*in.DataVolume)
	case in.Volume.ClaimName() != "":
		in.Claim = s.liveClaim(in.Volume.ClaimName(), s.Namespace)
	}
	return combined.NewDisk(in)
}

// CombinedDisks reconciles every storage row.
func (s Snapshot) CombinedDisks() *combined.Set {
	disks := make([]combined.Disk, 0, len(s.Storages))
	for _, st := range s.Storages {
		disks = append(disks, s.CombinedDisk(st))
	}
	return combined.NewSet(disks...)
}

// CloneNamespace returns the namespace of the claim to clone when it lies outside the
// session namespace, or "".
func (s Snapshot) CloneNamespace() string {
	if ns := s.VMSettings.ClonePVCNamespace.Value; ns != s.Namespace {
		return ns
	}
	return ""
}

// CloneSourceClaims returns the live claims of CloneNamespace.
func (s Snapshot) CloneSourceClaims() []domain.PersistentVolumeClaim {
	ns := s.CloneNamespace()
	if ns == "" {
		return nil
	}
	var out []domain.PersistentVolumeClaim
	for _, c := range s.References.Claims.Items {
		if c.Metadata.Namespace == ns {
			out = append(out, c)
		}
	}
	return out
}

func (s Snapshot) liveClaim(name, namespace string) *wrapper.Claim {
	for _, c := range s.References.Claims.Items {
		if c.Metadata.Name == name && c.Metadata.Namespace == namespace {
			w := wrapper.WrapClaim(c)
			return &w
		}
	}
	return nil
}

func (s Snapshot) ownedClaim(dv wrapper.DataVolume) *wrapper.Claim {
	for _, c := range s.References.Claims.Items {
		if c.Metadata.Namespace != s.Namespace {
			continue
		}
		if w := wrapper.WrapClaim(c); dv.IsOwnerOf(w) {
			return &w
		}
	}
	return nil
}

func (s Snapshot) liveDataVolume(name, namespace string) *wrapper.DataVolume {
	for _, dv := range s.References.DataVolumes.Items {
		if dv.Metadata.Name == name && dv.Metadata.Namespace == namespace {
			w := wrapper.WrapDataVolume(dv)
			return &w
		}
	}
	return nil
}

// baseImage returns the base image published for os.
func (s Snapshot) baseImage(os string) (domain.BaseImage, bool) {
	if os == "" {
		return domain.BaseImage{}, false
	}
	for _, img := range s.References.BaseImages {
		if img.OS == os {
			return img, true
		}
	}
	return domain.BaseImage{}, false
}
