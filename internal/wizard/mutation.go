package wizard

import (
	"fmt"
	"slices"

	"k8s.io/apimachinery/pkg/util/sets"

	"kv-shepherd.io/vmwizard/internal/domain"
)

// MutationKind names a mutation for logs and API responses.
type MutationKind string

const (
	KindSetStorages      MutationKind = "SetStorages"
	KindUpdateStorage    MutationKind = "UpdateStorage"
	KindRemoveStorage    MutationKind = "RemoveStorage"
	KindSetNetworks      MutationKind = "SetNetworks"
	KindUpdateVMSettings MutationKind = "UpdateVMSettings"
	KindSetAdvanced      MutationKind = "SetAdvanced"
	KindSetReferences    MutationKind = "SetReferences"
	KindMergeClaims      MutationKind = "MergeClaims"
)

// Mutation is a change to a snapshot. Applying a mutation is copy-on-write: slices of
// the snapshot are replaced, never written through.
type Mutation interface {
	Kind() MutationKind
	// apply changes s and returns the keys whose value changed.
	apply(s *Snapshot) []Key
}

// Apply returns s with the mutations applied in order, and the keys they changed.
func Apply(s Snapshot, mutations ...Mutation) (Snapshot, sets.Set[Key]) {
	out := s.Clone()
	changed := sets.New[Key]()
	for _, m := range mutations {
		changed.Insert(m.apply(&out)...)
	}
	return out, changed
}

// SetStorages replaces the storage tab. Rows with ID 0 get a fresh ID.
type SetStorages struct {
	Storages []Storage `json:"storages"`
}

func (m *SetStorages) Kind() MutationKind { return KindSetStorages }

func (m *SetStorages) apply(s *Snapshot) []Key {
	prev, next := s.Storages, slices.Clone(m.Storages)
	s.Storages = next
	for i := range next {
		if next[i].ID == 0 {
			next[i].ID = s.allocateID()
		}
	}
	if equal(prev, next) {
		s.Storages = prev
		return nil
	}
	return []Key{KeyStorages}
}

// UpdateStorage inserts or replaces one storage row, matched by ID. ID 0 inserts a new row.
type UpdateStorage struct {
	Storage Storage `json:"storage"`
}

func (m *UpdateStorage) Kind() MutationKind { return KindUpdateStorage }

func (m *UpdateStorage) apply(s *Snapshot) []Key {
	st := m.Storage
	rows := slices.Clone(s.Storages)
	idx := slices.IndexFunc(rows, func(r Storage) bool { return st.ID != 0 && r.ID == st.ID })
	if idx >= 0 {
		if equal(rows[idx], st) {
			return nil
		}
		rows[idx] = st
	} else {
		if st.ID == 0 {
			st.ID = s.allocateID()
		}
		rows = append(rows, st)
	}
	s.Storages = rows
	// Keep the assigned ID visible to the dispatcher.
	m.Storage.ID = st.ID
	return []Key{KeyStorages}
}

// RemoveStorage deletes the storage row with ID.
type RemoveStorage struct {
	ID int `json:"id"`
}

func (m *RemoveStorage) Kind() MutationKind { return KindRemoveStorage }

func (m *RemoveStorage) apply(s *Snapshot) []Key {
	idx := slices.IndexFunc(s.Storages, func(r Storage) bool { return r.ID == m.ID })
	if idx < 0 {
		return nil
	}
	s.Storages = slices.Delete(slices.Clone(s.Storages), idx, idx+1)
	return []Key{KeyStorages}
}

// SetNetworks replaces the networking tab. Rows with ID 0 get a fresh ID.
type SetNetworks struct {
	Networks []Network `json:"networks"`
}

func (m *SetNetworks) Kind() MutationKind { return KindSetNetworks }

func (m *SetNetworks) apply(s *Snapshot) []Key {
	prev, next := s.Networks, slices.Clone(m.Networks)
	s.Networks = next
	for i := range next {
		if next[i].ID == 0 {
			next[i].ID = s.allocateID()
		}
	}
	if equal(prev, next) {
		s.Networks = prev
		return nil
	}
	return []Key{KeyNetworks}
}

// FieldPatch changes the value or flags of one VM settings field. Nil members are kept.
type FieldPatch struct {
	Field      FieldKey `json:"field"`
	Value      *string  `json:"value,omitempty"`
	IsHidden   *bool    `json:"isHidden,omitempty"`
	IsRequired *bool    `json:"isRequired,omitempty"`
	IsDisabled *bool    `json:"isDisabled,omitempty"`
}

// UpdateVMSettings patches fields of the VM settings tab.
type UpdateVMSettings struct {
	Patches []FieldPatch `json:"patches"`
}

func (m *UpdateVMSettings) Kind() MutationKind { return KindUpdateVMSettings }

func (m *UpdateVMSettings) apply(s *Snapshot) []Key {
	var keys []Key
	for _, p := range m.Patches {
		f, ok := s.VMSettings.Field(p.Field)
		if !ok {
			continue
		}
		if p.Value != nil && f.Value != *p.Value {
			f.Value = *p.Value
			keys = append(keys, SettingKey(p.Field))
		}
		if p.IsHidden != nil {
			f.IsHidden = *p.IsHidden
		}
		if p.IsRequired != nil {
			f.IsRequired = *p.IsRequired
		}
		if p.IsDisabled != nil {
			f.IsDisabled = *p.IsDisabled
		}
	}
	return keys
}

// Validate rejects patches of unknown fields.
func (m *UpdateVMSettings) Validate() error {
	var settings VMSettings
	for _, p := range m.Patches {
		if _, ok := settings.Field(p.Field); !ok {
			return fmt.Errorf("unknown field %q", p.Field)
		}
	}
	return nil
}

// SetValues is shorthand for an UpdateVMSettings that only changes values.
func SetValues(values map[FieldKey]string) *UpdateVMSettings {
	m := &UpdateVMSettings{}
	for _, key := range FieldKeys() {
		if v, ok := values[key]; ok {
			m.Patches = append(m.Patches, FieldPatch{Field: key, Value: &v})
		}
	}
	return m
}

// SetAdvanced replaces the advanced tab.
type SetAdvanced struct {
	Advanced Advanced `json:"advanced"`
}

func (m *SetAdvanced) Kind() MutationKind { return KindSetAdvanced }

func (m *SetAdvanced) apply(s *Snapshot) []Key {
	if s.Advanced == m.Advanced {
		return nil
	}
	s.Advanced = m.Advanced
	return []Key{KeyAdvanced}
}

// SetReferences replaces the reference data fetched by the collaborating store.
type SetReferences struct {
	References References `json:"references"`
}

func (m *SetReferences) Kind() MutationKind { return KindSetReferences }

func (m *SetReferences) apply(s *Snapshot) []Key {
	prev := *s
	s.References = m.References
	return sets.List(changedKeys(prev, *s))
}

// MergeClaims replaces the live claims of one namespace, leaving the claims of other
// namespaces in place. It carries claims listed outside the session namespace, such as
// the source of a clone.
type MergeClaims struct {
	Namespace string                         `json:"namespace"`
	Claims    []domain.PersistentVolumeClaim `json:"claims"`
}

func (m *MergeClaims) Kind() MutationKind { return KindMergeClaims }

func (m *MergeClaims) apply(s *Snapshot) []Key {
	prev := *s
	items := make([]domain.PersistentVolumeClaim, 0, len(s.References.Claims.Items)+len(m.Claims))
	for _, c := range s.References.Claims.Items {
		if c.Metadata.Namespace != m.Namespace {
			items = append(items, c)
		}
	}
	for _, c := range m.Claims {
		if c.Metadata.Namespace == m.Namespace {
			items = append(items, c)
		}
	}
	s.References.Claims.Items = items
	return sets.List(changedKeys(prev, *s))
}
