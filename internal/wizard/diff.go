package wizard

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"k8s.io/apimachinery/pkg/util/sets"

	"kv-shepherd.io/vmwizard/internal/domain"
)

// Key names a watchable part of the snapshot.
type Key string

const (
	KeyNamespace            Key = "namespace"
	KeyNetworks             Key = "networks"
	KeyStorages             Key = "storages"
	KeyAdvanced             Key = "advanced"
	KeyTemplates            Key = "references.templates"
	KeyBaseImages           Key = "references.baseImages"
	KeyStorageClassDefaults Key = "references.storageClassDefaults"
	KeyDataVolumes          Key = "references.dataVolumes"
	KeyClaims               Key = "references.claims"
	KeyCloneSourceClaims    Key = "references.cloneSourceClaims"
)

// SettingKey returns the key watching the value of a VM settings field.
func SettingKey(field FieldKey) Key { return Key("vmSettings." + string(field)) }

// equalOpts treats nil and empty collections alike; a cleared list is no change.
var equalOpts = []cmp.Option{cmpopts.EquateEmpty()}

func equal(a, b any) bool { return cmp.Equal(a, b, equalOpts...) }

// changedKeys compares two snapshots by value. Only field values are watched; flag
// changes on the VM settings tab never trigger updaters.
func changedKeys(prev, cur Snapshot) sets.Set[Key] {
	changed := sets.New[Key]()
	for _, f := range settingsFields {
		if f.get(&prev.VMSettings).Value != f.get(&cur.VMSettings).Value {
			changed.Insert(SettingKey(f.key))
		}
	}

	pr, cr := prev.References, cur.References
	checks := []struct {
		key  Key
		a, b any
	}{
		{KeyNamespace, prev.Namespace, cur.Namespace},
		{KeyNetworks, prev.Networks, cur.Networks},
		{KeyStorages, prev.Storages, cur.Storages},
		{KeyAdvanced, prev.Advanced, cur.Advanced},
		{KeyTemplates, templateRefs(pr), templateRefs(cr)},
		{KeyBaseImages, baseImageRefs(pr), baseImageRefs(cr)},
		{KeyStorageClassDefaults, pr.StorageClassDefaults, cr.StorageClassDefaults},
		{KeyDataVolumes, pr.DataVolumes, cr.DataVolumes},
		{KeyClaims, pr.Claims, cr.Claims},
		{KeyCloneSourceClaims, prev.CloneSourceClaims(), cur.CloneSourceClaims()},
	}
	for _, c := range checks {
		if !equal(c.a, c.b) {
			changed.Insert(c.key)
		}
	}
	return changed
}

// Reference groups compared as a unit. Fields are exported for cmp.
type templateRefSet struct {
	User, Common []domain.Template
	Loading      bool
}

type baseImageRefSet struct {
	Images  []domain.BaseImage
	Loading bool
}

func templateRefs(r References) templateRefSet {
	return templateRefSet{User: r.UserTemplates, Common: r.CommonTemplates, Loading: r.TemplatesLoading}
}

func baseImageRefs(r References) baseImageRefSet {
	return baseImageRefSet{Images: r.BaseImages, Loading: r.BaseImagesLoading}
}
