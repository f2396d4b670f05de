package wizard

import (
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"kv-shepherd.io/vmwizard/internal/domain"
	"kv-shepherd.io/vmwizard/internal/storage/combined"
	"kv-shepherd.io/vmwizard/internal/storage/source"
	"kv-shepherd.io/vmwizard/internal/storage/wrapper"
	"kv-shepherd.io/vmwizard/internal/template"
)

// Names of disks the wizard creates itself.
const (
	RootDiskName       = "rootdisk"
	GuestToolsDiskName = "windows-guest-tools"
)

// Updater names, in run order.
const (
	UpdaterTemplatePrefill       = "template-prefill"
	UpdaterProvisionSourceFields = "provision-source-fields"
	UpdaterBaseImageField        = "base-image-field"
	UpdaterBootSourcePrefill     = "boot-source-prefill"
	UpdaterPXENetworkBoot        = "pxe-network-boot"
	UpdaterWindowsToolsDisk      = "windows-tools-disk"
	UpdaterBusConformance        = "bus-conformance"
)

// standardUpdaters is the fixed update order. Later updaters rely on the rows and
// values earlier ones dispatch in the same pass.
func standardUpdaters() []Updater {
	return []Updater{
		{
			Name:    UpdaterTemplatePrefill,
			Watches: []Key{SettingKey(FieldUserTemplate), KeyTemplates},
			Update:  prefillFromTemplate,
		},
		{
			Name:    UpdaterProvisionSourceFields,
			Watches: []Key{SettingKey(FieldProvisionSource)},
			Update:  syncProvisionSourceFields,
		},
		{
			Name: UpdaterBaseImageField,
			Watches: []Key{
				SettingKey(FieldProvisionSource), SettingKey(FieldOperatingSystem),
				SettingKey(FieldCloneBaseImage), SettingKey(FieldUserTemplate), KeyBaseImages,
			},
			Update: syncBaseImageField,
		},
		{
			Name: UpdaterBootSourcePrefill,
			Watches: []Key{
				SettingKey(FieldOperatingSystem), SettingKey(FieldFlavor), SettingKey(FieldWorkloadProfile),
				SettingKey(FieldProvisionSource), SettingKey(FieldCloneBaseImage),
				SettingKey(FieldImageURL), SettingKey(FieldContainerImage),
				SettingKey(FieldClonePVCName), SettingKey(FieldClonePVCNamespace),
				SettingKey(FieldUserTemplate), KeyBaseImages, KeyStorageClassDefaults,
				KeyCloneSourceClaims,
			},
			Update: prefillBootSource,
		},
		{
			Name:    UpdaterPXENetworkBoot,
			Watches: []Key{SettingKey(FieldProvisionSource), KeyNetworks},
			Update:  syncNetworkBoot,
		},
		{
			Name:    UpdaterWindowsToolsDisk,
			Watches: []Key{SettingKey(FieldOperatingSystem)},
			Update:  syncWindowsToolsDisk,
		},
		{
			Name: UpdaterBusConformance,
			Watches: []Key{
				KeyStorages, KeyTemplates, SettingKey(FieldUserTemplate),
				SettingKey(FieldOperatingSystem), SettingKey(FieldWorkloadProfile), SettingKey(FieldFlavor),
			},
			Update: conformBuses,
		},
	}
}

// JoinName derives a record name from a prefix and a disk name.
func JoinName(prefix, name string) string { return prefix + "-" + name }

// IsWindows reports whether os names a Windows family operating system.
func IsWindows(os string) bool { return strings.HasPrefix(strings.ToLower(os), "win") }

func namespaceOr(ns, fallback string) string {
	if ns == "" {
		return fallback
	}
	return ns
}

func validationsOf(p *Pass) template.Validations {
	v, err := p.State().Validations()
	if err != nil {
		p.Logger().Warn("ignoring malformed template validations", zap.Error(err))
	}
	return v
}

// Fields the selected user template fills in and locks.
var templateLockedFields = []FieldKey{
	FieldOperatingSystem, FieldWorkloadProfile, FieldFlavor, FieldProvisionSource, FieldMemory, FieldCPU,
}

func prefillFromTemplate(p *Pass) {
	s := p.State()
	if s.VMSettings.UserTemplate.Value == "" {
		if p.Prev().VMSettings.UserTemplate.Value != "" {
			clearTemplate(p)
		}
		return
	}
	if s.References.TemplatesLoading {
		return
	}
	tpl, ok := s.SelectedUserTemplate()
	if !ok {
		p.Logger().Debug("selected user template not found", zap.String("template", s.VMSettings.UserTemplate.Value))
		return
	}
	vm := tpl.VM

	p.Dispatch(&SetNetworks{Networks: templateNetworkRows(s, vm)})
	rows, tplRows := templateStorageRows(s, vm)
	p.Dispatch(&SetStorages{Storages: rows})

	values := map[FieldKey]string{
		FieldOperatingSystem: template.OS(tpl),
		FieldWorkloadProfile: template.Workload(tpl),
		FieldFlavor:          template.Flavor(tpl),
		FieldMemory:          vm.Memory,
	}
	if vm.CPUCores > 0 {
		values[FieldCPU] = strconv.Itoa(vm.CPUCores)
	}
	if ps := source.ProvisionSourceFromEntity(entityOf(vm, tplRows)); ps != nil {
		values[FieldProvisionSource] = ps.Key()
	}
	disabled := true
	var patches []FieldPatch
	for _, key := range templateLockedFields {
		value, ok := values[key]
		if !ok || value == "" {
			continue
		}
		patches = append(patches, FieldPatch{Field: key, Value: &value, IsDisabled: &disabled})
	}
	p.Dispatch(&UpdateVMSettings{Patches: patches})

	for _, vol := range vm.Volumes {
		if data := wrapper.WrapVolume(vol).CloudInitUserData(); data != "" {
			p.Dispatch(&SetAdvanced{Advanced: Advanced{CloudInitUserData: data}})
			break
		}
	}
}

// clearTemplate drops template rows and unlocks the fields a template filled in.
func clearTemplate(p *Pass) {
	s := p.State()

	var storages []Storage
	for _, st := range s.Storages {
		if st.Type != StorageTypeTemplate {
			storages = append(storages, st)
		}
	}
	p.Dispatch(&SetStorages{Storages: storages})

	var networks []Network
	hasPod := false
	for _, n := range s.Networks {
		if n.Type == NetworkTypeTemplate {
			continue
		}
		hasPod = hasPod || n.Network.Pod != nil
		networks = append(networks, n)
	}
	if !hasPod {
		networks = append([]Network{defaultPodNetwork(0)}, networks...)
	}
	p.Dispatch(&SetNetworks{Networks: networks})

	enabled := false
	patches := make([]FieldPatch, 0, len(templateLockedFields))
	for _, key := range templateLockedFields {
		patches = append(patches, FieldPatch{Field: key, IsDisabled: &enabled})
	}
	p.Dispatch(&UpdateVMSettings{Patches: patches})
}

// templateNetworkRows replaces template and default pod rows with the networks of vm.
// Rows the user entered are kept; template rows keep their IDs across reloads.
func templateNetworkRows(s Snapshot, vm domain.VMLikeEntity) []Network {
	ids := make(map[string]int)
	var rows []Network
	for _, n := range s.Networks {
		switch n.Type {
		case NetworkTypeUIInput:
			rows = append(rows, n)
		case NetworkTypeTemplate:
			ids[n.Interface.Name] = n.ID
		}
	}

	backends := make(map[string]domain.Network, len(vm.Networks))
	for _, n := range vm.Networks {
		backends[n.Name] = n
	}
	tplRows := make([]Network, 0, len(vm.Interfaces))
	for _, iface := range vm.Interfaces {
		tplRows = append(tplRows, Network{
			ID:        ids[iface.Name],
			Type:      NetworkTypeTemplate,
			Interface: iface,
			Network:   backends[iface.Name],
		})
	}
	return append(tplRows, rows...)
}

// templateStorageRows replaces template rows with the disks of vm and returns all rows
// and the template rows. DataVolume volumes that neither the template nor the cluster
// define get a clone of the claim of the same name in the wizard namespace.
func templateStorageRows(s Snapshot, vm domain.VMLikeEntity) (all, fromTemplate []Storage) {
	ids := make(map[string]int)
	var rows []Storage
	for _, st := range s.Storages {
		if st.Type == StorageTypeTemplate {
			ids[st.Disk.Name] = st.ID
			continue
		}
		rows = append(rows, st)
	}

	volumes := make(map[string]domain.Volume, len(vm.Volumes))
	for _, v := range vm.Volumes {
		volumes[v.Name] = v
	}
	templateDVs := make(map[string]domain.DataVolume, len(vm.DataVolumeTemplates))
	for _, dv := range vm.DataVolumeTemplates {
		templateDVs[dv.Metadata.Name] = dv
	}

	tplRows := make([]Storage, 0, len(vm.Disks))
	for _, d := range vm.Disks {
		row := Storage{ID: ids[d.Name], Type: StorageTypeTemplate, Disk: d, Volume: volumes[d.Name]}
		vol := wrapper.WrapVolume(row.Volume)
		if dvName := vol.DataVolumeName(); dvName != "" {
			if dv, ok := templateDVs[dvName]; ok {
				row.DataVolume = &dv
			} else if s.liveDataVolume(dvName, s.Namespace) == nil {
				clone := cloneDataVolume(s, JoinName(NamePlaceholder, d.Name), dvName, s.Namespace)
				rec := clone.Record()
				row.DataVolume = &rec
				row.Volume = vol.SetType(domain.VolumeTypeDataVolume, wrapper.VolumeTypeData{Name: clone.Name()}).Record()
			}
		}
		tplRows = append(tplRows, row)
	}
	return append(slices.Clone(tplRows), rows...), tplRows
}

// entityOf returns vm with the volumes and DataVolumes of the template rows.
func entityOf(vm domain.VMLikeEntity, rows []Storage) domain.VMLikeEntity {
	vm.Volumes, vm.DataVolumeTemplates = nil, nil
	for _, st := range rows {
		vm.Volumes = append(vm.Volumes, st.Volume)
		if st.DataVolume != nil {
			vm.DataVolumeTemplates = append(vm.DataVolumeTemplates, *st.DataVolume)
		}
	}
	return vm
}

// cloneDataVolume builds a DataVolume cloning the claim namespace/claimName, sized and
// classed like the claim when it is known.
func cloneDataVolume(s Snapshot, name, claimName, namespace string) wrapper.DataVolume {
	dv := wrapper.NewDataVolume(name, domain.DataVolumeSourcePVC, wrapper.DataVolumeTypeData{
		Name:      claimName,
		Namespace: namespace,
	})
	if c := s.liveClaim(claimName, namespace); c != nil {
		dv = dv.WithSize(c.Size()).
			WithStorageClassName(c.StorageClassName()).
			WithAccessModes(c.AccessModes()).
			WithVolumeMode(c.VolumeMode())
	}
	return dv
}

// fieldWant is the desired presentation of a field. Hidden fields lose their value.
type fieldWant struct {
	key      FieldKey
	hidden   bool
	required bool
	value    *string
}

func syncFields(p *Pass, wants ...fieldWant) {
	settings := p.State().VMSettings
	var patches []FieldPatch
	for _, w := range wants {
		f, _ := settings.Field(w.key)
		patch := FieldPatch{Field: w.key}
		dirty := false
		if f.IsHidden != w.hidden {
			patch.IsHidden, dirty = &w.hidden, true
		}
		if f.IsRequired != w.required {
			patch.IsRequired, dirty = &w.required, true
		}
		value := w.value
		if w.hidden {
			empty := ""
			value = &empty
		}
		if value != nil && *value != f.Value {
			patch.Value, dirty = value, true
		}
		if dirty {
			patches = append(patches, patch)
		}
	}
	if len(patches) > 0 {
		p.Dispatch(&UpdateVMSettings{Patches: patches})
	}
}

func syncProvisionSourceFields(p *Pass) {
	ps := source.ProvisionSourceFromKey(p.State().VMSettings.ProvisionSource.Value)
	isURL := ps == source.ProvisionURL
	isContainer := ps == source.ProvisionContainer
	syncFields(p,
		fieldWant{key: FieldImageURL, hidden: !isURL, required: isURL},
		fieldWant{key: FieldContainerImage, hidden: !isContainer, required: isContainer},
	)
}

// syncBaseImageField offers cloning the base image of the selected OS when one exists.
// Otherwise the claim to clone must be named explicitly.
func syncBaseImageField(p *Pass) {
	s := p.State()
	v := s.VMSettings
	isDisk := source.ProvisionSourceFromKey(v.ProvisionSource.Value) == source.ProvisionDisk
	if isDisk && s.References.BaseImagesLoading {
		return
	}
	_, hasImage := s.baseImage(v.OperatingSystem.Value)
	offer := isDisk && hasImage

	want := fieldWant{key: FieldCloneBaseImage, hidden: !offer}
	useImage := offer && v.CloneBaseImage.Value != "false"
	if useImage {
		yes := "true"
		want.value = &yes
	}
	explicit := isDisk && !useImage && !templateHasBootDisk(s)
	syncFields(p,
		want,
		fieldWant{key: FieldClonePVCName, hidden: !explicit, required: explicit},
		fieldWant{key: FieldClonePVCNamespace, hidden: !explicit, required: explicit},
	)
}

func prefillBootSource(p *Pass) {
	s := p.State()
	existing, hasExisting := s.ProvisionSourceStorage()
	if s.VMSettings.UserTemplate.Value != "" && s.References.TemplatesLoading {
		return
	}

	ps := source.ProvisionSourceFromKey(s.VMSettings.ProvisionSource.Value)
	if ps == nil || !ps.RequiresBootableDisk() || templateHasBootDisk(s) {
		if hasExisting {
			p.Dispatch(&RemoveStorage{ID: existing.ID})
		}
		return
	}

	var prev *Storage
	if hasExisting {
		prev = &existing
	}
	row := bootStorage(s, ps.BootStorageSource(), prev, p.Options(), validationsOf(p))
	m := &UpdateStorage{Storage: row}
	p.Dispatch(m)

	for _, st := range p.State().Storages {
		d := wrapper.WrapDisk(st.Disk)
		if st.ID != m.Storage.ID && d.IsBootDisk() {
			st.Disk = d.WithoutBootOrder().Record()
			p.Dispatch(&UpdateStorage{Storage: st})
		}
	}
}

func templateHasBootDisk(s Snapshot) bool {
	for _, st := range s.StoragesOfType(StorageTypeTemplate) {
		if wrapper.WrapDisk(st.Disk).IsBootDisk() {
			return true
		}
	}
	return false
}

// bootStorage builds the boot disk row for src. The row keeps the ID and bus of prev.
// Its size comes from the cloned claim when known, then from prev when both sources
// take a size, then from the configured default.
func bootStorage(s Snapshot, src *source.StorageUISource, prev *Storage, opts Options, v template.Validations) Storage {
	bus := v.DefaultBus(domain.DiskTypeDisk)
	row := Storage{Type: StorageTypeProvisionSource}
	carried := ""
	if prev != nil {
		row.ID = prev.ID
		if b := wrapper.WrapDisk(prev.Disk).Bus(); b != "" {
			bus = b
		}
		cd := s.CombinedDisk(*prev)
		if size, res := cd.Size(); res == combined.Resolved && !size.IsZero() && cd.Source().RequiresSize() && src.RequiresSize() {
			carried = size.String()
		}
	}
	row.Disk = wrapper.NewDisk(RootDiskName, domain.DiskTypeDisk, wrapper.DiskTypeData{Bus: bus}).WithBootOrder(1).Record()

	settings := s.VMSettings
	dvName := JoinName(NamePlaceholder, RootDiskName)
	var dv wrapper.DataVolume
	switch src {
	case source.ContainerEphemeral:
		row.Volume = wrapper.NewVolume(RootDiskName, domain.VolumeTypeContainerDisk, wrapper.VolumeTypeData{
			Image: settings.ContainerImage.Value,
		}).Record()
		return row
	case source.URL:
		dv = wrapper.NewDataVolume(dvName, domain.DataVolumeSourceHTTP, wrapper.DataVolumeTypeData{URL: settings.ImageURL.Value})
	case source.AttachClonedDisk:
		name, ns := settings.ClonePVCName.Value, settings.ClonePVCNamespace.Value
		if settings.CloneBaseImage.Value == "true" {
			if img, ok := s.baseImage(settings.OperatingSystem.Value); ok {
				name, ns = img.Claim.Metadata.Name, img.Claim.Metadata.Namespace
				if size := img.Claim.Spec.Resources.Requests.Storage; size != "" {
					carried = size
				}
			}
		} else if c := s.liveClaim(name, namespaceOr(ns, s.Namespace)); c != nil && c.Size() != "" {
			carried = c.Size()
		}
		dv = wrapper.NewDataVolume(dvName, domain.DataVolumeSourcePVC, wrapper.DataVolumeTypeData{Name: name, Namespace: ns})
	default:
		dv = wrapper.NewDataVolume(dvName, domain.DataVolumeSourceBlank, wrapper.DataVolumeTypeData{})
	}

	size := carried
	if size == "" {
		size = opts.DefaultRootDiskSize
	}
	class, defaults := s.References.StorageClassDefaults.For("")
	dv = dv.WithSize(size).
		WithStorageClassName(class).
		WithAccessModes(defaults.AccessModes).
		WithVolumeMode(defaults.VolumeMode)
	rec := dv.Record()
	row.DataVolume = &rec
	row.Volume = wrapper.NewVolume(RootDiskName, domain.VolumeTypeDataVolume, wrapper.VolumeTypeData{Name: dvName}).Record()
	return row
}

// syncNetworkBoot makes the first multus interface, or else the first interface, the
// boot device under PXE. Leaving PXE clears every interface boot order.
func syncNetworkBoot(p *Pass) {
	s := p.State()
	pxe := source.ProvisionSourceFromKey(s.VMSettings.ProvisionSource.Value) == source.ProvisionPXE
	if !pxe && !p.Changed(SettingKey(FieldProvisionSource)) {
		return
	}

	target := -1
	if pxe {
		for i, n := range s.Networks {
			if n.Network.Multus != nil {
				target = i
				break
			}
		}
		if target < 0 && len(s.Networks) > 0 {
			target = 0
		}
	}

	next := make([]Network, len(s.Networks))
	for i, n := range s.Networks {
		if i == target {
			order := 1
			n.Interface.BootOrder = &order
		} else {
			n.Interface.BootOrder = nil
		}
		next[i] = n
	}
	p.Dispatch(&SetNetworks{Networks: next})
}

func syncWindowsToolsDisk(p *Pass) {
	s := p.State()
	rows := s.StoragesOfType(StorageTypeWindowsGuestTools)
	if IsWindows(s.VMSettings.OperatingSystem.Value) {
		if len(rows) > 0 {
			return
		}
		p.Dispatch(&UpdateStorage{Storage: Storage{
			Type: StorageTypeWindowsGuestTools,
			Disk: wrapper.NewDisk(GuestToolsDiskName, domain.DiskTypeCDRom, wrapper.DiskTypeData{
				Bus: domain.DiskBusSATA,
			}).Record(),
			Volume: wrapper.NewVolume(GuestToolsDiskName, domain.VolumeTypeContainerDisk, wrapper.VolumeTypeData{
				Image: p.Options().GuestToolsImage,
			}).Record(),
		}})
		return
	}
	for _, r := range rows {
		p.Dispatch(&RemoveStorage{ID: r.ID})
	}
}

// conformBuses moves system managed disks off buses the relevant template forbids.
func conformBuses(p *Pass) {
	if p.State().References.TemplatesLoading {
		return
	}
	v := validationsOf(p)
	for _, st := range p.State().Storages {
		if !st.Type.IsSystemManaged() {
			continue
		}
		d := wrapper.WrapDisk(st.Disk)
		if d.Type() == "" || d.Type() == domain.DiskTypeFloppy {
			continue
		}
		if d.Bus() != "" && v.IsBusAllowed(d.Type(), d.Bus()) {
			continue
		}
		bus := v.DefaultBus(d.Type())
		if bus == d.Bus() {
			// No legal bus exists; validation reports it.
			continue
		}
		st.Disk = d.WithBus(bus).Record()
		p.Logger().Debug("rewriting disallowed bus",
			zap.String("disk", d.Name()), zap.String("from", string(d.Bus())), zap.String("to", string(bus)))
		p.Dispatch(&UpdateStorage{Storage: st})
	}
}
