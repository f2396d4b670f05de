package session

import (
	"time"

	"kv-shepherd.io/vmwizard/internal/storage/combined"
	"kv-shepherd.io/vmwizard/internal/wizard"
)

// View is a session as returned to API clients.
type View struct {
	ID        string          `json:"id"`
	Namespace string          `json:"namespace"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
	LoadError string          `json:"loadError,omitempty"`
	Snapshot  wizard.Snapshot `json:"snapshot"`
	Disks     []combined.View `json:"disks"`
	// Mutations and Updaters describe the last edit; both are empty on reads.
	Mutations []MutationView `json:"mutations,omitempty"`
	Updaters  []string       `json:"updaters,omitempty"`
}

// MutationView is a mutation tagged with its kind.
type MutationView struct {
	Kind    wizard.MutationKind `json:"kind"`
	Payload wizard.Mutation     `json:"payload"`
}

// Loading reports whether any reference collection of the session is still loading.
func (v *View) Loading() bool {
	r := v.Snapshot.References
	return r.TemplatesLoading || r.BaseImagesLoading || r.DataVolumes.Loading || r.Claims.Loading
}

// view must be called with e.mu held.
func (e *entry) view(ttl time.Duration, res wizard.Result) *View {
	snap := res.Snapshot
	v := &View{
		ID:        e.id,
		Namespace: snap.Namespace,
		CreatedAt: e.createdAt,
		ExpiresAt: e.touchedAt.Add(ttl),
		LoadError: e.loadErr,
		Snapshot:  snap.Clone(),
		Updaters:  res.Ran,
	}
	for _, d := range snap.CombinedDisks().Disks() {
		v.Disks = append(v.Disks, d.View())
	}
	for _, m := range res.Mutations {
		v.Mutations = append(v.Mutations, MutationView{Kind: m.Kind(), Payload: m})
	}
	return v
}
