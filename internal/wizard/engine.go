package wizard

import (
	"slices"
	"time"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Updater reacts to changes of the keys it watches by dispatching mutations.
type Updater struct {
	Name    string
	Watches []Key
	Update  func(p *Pass)
}

// Options are the engine defaults that are not part of the snapshot.
type Options struct {
	// DefaultRootDiskSize is the size of a new boot disk when nothing else supplies one.
	DefaultRootDiskSize string
	// GuestToolsImage is the container image of the Windows guest tools CD-ROM.
	GuestToolsImage string
}

// DefaultOptions returns the built-in engine defaults.
func DefaultOptions() Options {
	return Options{
		DefaultRootDiskSize: "20Gi",
		GuestToolsImage:     "quay.io/kubevirt/virtio-container-disk:v1.5.0",
	}
}

// Pass is the state of one update pass, handed to each updater in turn.
type Pass struct {
	prev      Snapshot
	state     Snapshot
	opts      Options
	changed   sets.Set[Key]
	mutations []Mutation
	log       *zap.Logger
}

// Prev returns the snapshot before the edit batch.
func (p *Pass) Prev() Snapshot { return p.prev }

// State returns the working snapshot, including mutations dispatched earlier in the pass.
func (p *Pass) State() Snapshot { return p.state }

// Options returns the engine options.
func (p *Pass) Options() Options { return p.opts }

// Changed reports whether any of keys changed so far in the pass.
func (p *Pass) Changed(keys ...Key) bool { return p.changed.HasAny(keys...) }

// Logger returns the logger of the running updater.
func (p *Pass) Logger() *zap.Logger { return p.log }

// Dispatch applies m to the working snapshot right away and records it.
func (p *Pass) Dispatch(m Mutation) {
	keys := m.apply(&p.state)
	p.changed.Insert(keys...)
	p.mutations = append(p.mutations, m)
	p.log.Debug("mutation dispatched", zap.String("kind", string(m.Kind())), zap.Any("changed", keys))
}

// Result is the outcome of an update pass.
type Result struct {
	Snapshot  Snapshot
	Mutations []Mutation
	// Ran lists the updaters that were triggered, in order.
	Ran []string
}

// Engine runs a fixed, ordered list of updaters.
type Engine struct {
	updaters []Updater
	opts     Options
	log      *zap.Logger
}

// NewEngine builds an engine with the standard updaters. A nil logger discards logs.
func NewEngine(opts Options, log *zap.Logger) *Engine {
	defaults := DefaultOptions()
	if opts.DefaultRootDiskSize == "" {
		opts.DefaultRootDiskSize = defaults.DefaultRootDiskSize
	}
	if opts.GuestToolsImage == "" {
		opts.GuestToolsImage = defaults.GuestToolsImage
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{updaters: standardUpdaters(), opts: opts, log: log}
}

// Updaters returns the updater names in run order.
func (e *Engine) Updaters() []string {
	names := make([]string, 0, len(e.updaters))
	for _, u := range e.updaters {
		names = append(names, u.Name)
	}
	return names
}

// Run propagates the difference between prev and cur. Each updater runs at most once,
// and only when a key it watches changed in the batch or earlier in the pass.
func (e *Engine) Run(prev, cur Snapshot) Result {
	p := &Pass{
		prev:    prev,
		state:   cur.Clone(),
		opts:    e.opts,
		changed: changedKeys(prev, cur),
	}
	var ran []string
	for _, u := range e.updaters {
		if !p.changed.HasAny(u.Watches...) {
			continue
		}
		start := time.Now()
		before := len(p.mutations)
		p.log = e.log.With(zap.String("updater", u.Name))
		u.Update(p)
		ran = append(ran, u.Name)
		e.log.Debug("updater ran",
			zap.String("updater", u.Name),
			zap.Int("mutations", len(p.mutations)-before),
			zap.Duration("took", time.Since(start)),
		)
	}
	return Result{Snapshot: p.state, Mutations: slices.Clip(p.mutations), Ran: ran}
}

// Edit applies external mutations to cur and runs the update pass on the result.
// The returned mutations include the external ones.
func (e *Engine) Edit(cur Snapshot, mutations ...Mutation) Result {
	next, _ := Apply(cur, mutations...)
	res := e.Run(cur, next)
	res.Mutations = append(slices.Clone(mutations), res.Mutations...)
	return res
}
