package wizard

import (
	"testing"

	"github.com/stretchr/testify/require"

	"kv-shepherd.io/vmwizard/internal/domain"
	"kv-shepherd.io/vmwizard/internal/storage/wrapper"
)

func newEngine() *Engine { return NewEngine(Options{}, nil) }

func edit(t *testing.T, e *Engine, s Snapshot, values map[FieldKey]string) Snapshot {
	t.Helper()
	return e.Edit(s, SetValues(values)).Snapshot
}

func uiStorage(name string) Storage {
	return Storage{
		Type: StorageTypeUIInput,
		Disk: wrapper.NewDisk(name, domain.DiskTypeDisk, wrapper.DiskTypeData{Bus: domain.DiskBusVirtio}).Record(),
		Volume: wrapper.NewVolume(name, domain.VolumeTypeDataVolume, wrapper.VolumeTypeData{
			Name: JoinName(NamePlaceholder, name),
		}).Record(),
		DataVolume: ptr(wrapper.NewDataVolume(JoinName(NamePlaceholder, name), domain.DataVolumeSourceBlank, wrapper.DataVolumeTypeData{}).
			WithSize("1Gi").Record()),
	}
}

func ptr[T any](v T) *T { return &v }

func TestEngine_UpdaterOrder(t *testing.T) {
	require.Equal(t, []string{
		UpdaterTemplatePrefill,
		UpdaterProvisionSourceFields,
		UpdaterBaseImageField,
		UpdaterBootSourcePrefill,
		UpdaterPXENetworkBoot,
		UpdaterWindowsToolsDisk,
		UpdaterBusConformance,
	}, newEngine().Updaters())
}

func TestEngine_RunsOnlyWatchingUpdaters(t *testing.T) {
	e := newEngine()
	s := NewSnapshot("default")

	res := e.Run(s, s)
	require.Empty(t, res.Ran)
	require.Empty(t, res.Mutations)

	res = e.Edit(s, SetValues(map[FieldKey]string{FieldName: "vm1", FieldDescription: "demo"}))
	require.Empty(t, res.Ran)
	require.Len(t, res.Mutations, 1)

	res = e.Edit(s, SetValues(map[FieldKey]string{FieldOperatingSystem: "fedora"}))
	require.Equal(t, []string{UpdaterBaseImageField, UpdaterBootSourcePrefill, UpdaterWindowsToolsDisk, UpdaterBusConformance}, res.Ran)
}

func TestEngine_LaterUpdatersSeeEarlierMutations(t *testing.T) {
	e := newEngine()
	s := NewSnapshot("default")

	// bus-conformance does not watch the provision source; it runs because
	// boot-source-prefill inserted the boot disk earlier in the same pass.
	res := e.Edit(s, SetValues(map[FieldKey]string{
		FieldProvisionSource: "URL",
		FieldImageURL:        "https://example.com/fedora.qcow2",
	}))
	require.Contains(t, res.Ran, UpdaterBusConformance)
	_, ok := res.Snapshot.ProvisionSourceStorage()
	require.True(t, ok)
}

func TestEngine_EmptyCollectionsAreNoChange(t *testing.T) {
	prev := NewSnapshot("default")
	cur := prev.Clone()
	prev.Storages = nil
	cur.Storages = []Storage{}
	require.Empty(t, changedKeys(prev, cur))
}

func TestMutations(t *testing.T) {
	s := NewSnapshot("default")
	require.Equal(t, 2, s.NextID)

	up := &UpdateStorage{Storage: uiStorage("data")}
	s, changed := Apply(s, up)
	require.True(t, changed.Has(KeyStorages))
	require.Equal(t, 2, up.Storage.ID)
	require.Equal(t, 3, s.NextID)

	// Replacing with an equal row changes nothing.
	row, ok := s.Storage(2)
	require.True(t, ok)
	_, changed = Apply(s, &UpdateStorage{Storage: row})
	require.Empty(t, changed)

	// IDs stay unique even when rows were set with explicit IDs.
	explicit := uiStorage("other")
	explicit.ID = 10
	s, _ = Apply(s, &SetStorages{Storages: []Storage{row, explicit, uiStorage("third")}})
	require.Equal(t, []int{2, 10, 11}, []int{s.Storages[0].ID, s.Storages[1].ID, s.Storages[2].ID})

	before := s.Clone()
	s, changed = Apply(s, &RemoveStorage{ID: 10})
	require.True(t, changed.Has(KeyStorages))
	require.Len(t, s.Storages, 2)
	require.Len(t, before.Storages, 3, "removal must not write through to earlier copies")

	_, changed = Apply(s, &RemoveStorage{ID: 99})
	require.Empty(t, changed)
}

func TestUpdateVMSettings(t *testing.T) {
	s := NewSnapshot("default")
	hidden := true
	m := &UpdateVMSettings{Patches: []FieldPatch{
		{Field: FieldImageURL, Value: ptr("https://example.com/disk.img")},
		{Field: FieldContainerImage, IsHidden: &hidden},
	}}
	require.NoError(t, m.Validate())

	s, changed := Apply(s, m)
	require.True(t, changed.Has(SettingKey(FieldImageURL)))
	require.False(t, changed.Has(SettingKey(FieldContainerImage)), "flag changes are not watched")
	require.Equal(t, "https://example.com/disk.img", s.VMSettings.ImageURL.Value)
	require.True(t, s.VMSettings.ContainerImage.IsHidden)

	bad := &UpdateVMSettings{Patches: []FieldPatch{{Field: "nope"}}}
	require.Error(t, bad.Validate())
}

func TestSetReferences_ReportsChangedGroups(t *testing.T) {
	s := NewSnapshot("default")
	refs := s.References
	refs.TemplatesLoading = true
	refs.Claims.Items = []domain.PersistentVolumeClaim{{Metadata: domain.ObjectMeta{Name: "c", Namespace: "default"}}}

	_, changed := Apply(s, &SetReferences{References: refs})
	require.ElementsMatch(t, []Key{KeyTemplates, KeyClaims}, changed.UnsortedList())
}
