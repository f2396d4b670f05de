// Package session keeps wizard sessions in memory. Every external edit runs one update
// pass of the wizard engine against the session snapshot.
//
// Import Path: kv-shepherd.io/vmwizard/internal/session
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/sets"

	"kv-shepherd.io/vmwizard/internal/domain"
	apperrors "kv-shepherd.io/vmwizard/internal/pkg/errors"
	"kv-shepherd.io/vmwizard/internal/pkg/worker"
	"kv-shepherd.io/vmwizard/internal/wizard"
)

// ReferenceLoader fetches the reference data of a namespace.
type ReferenceLoader interface {
	References(ctx context.Context, namespace string) (wizard.References, error)
	// Claims lists the claims of a namespace other than the session's own.
	Claims(ctx context.Context, namespace string) ([]domain.PersistentVolumeClaim, error)
}

// Config holds session limits.
type Config struct {
	TTL           time.Duration
	SweepInterval time.Duration
	MaxSessions   int
	LoadTimeout   time.Duration
}

// Service manages wizard sessions.
type Service struct {
	cfg    Config
	engine *wizard.Engine
	loader ReferenceLoader
	pools  *worker.Pools
	log    *zap.Logger
	events *EventDispatcher // optional
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*entry
}

// entry is one session. mu serializes edits; the snapshot is replaced, never modified
// in place, so readers holding a copy are unaffected.
type entry struct {
	mu        sync.Mutex
	id        string
	createdAt time.Time
	touchedAt time.Time
	snapshot  wizard.Snapshot
	loadErr   string
	// claimNamespaces are the foreign namespaces whose claims were fetched or are
	// being fetched. SetReferences drops foreign claims, so a reload clears it.
	claimNamespaces sets.Set[string]
}

// NewService creates a session service.
func NewService(cfg Config, engine *wizard.Engine, loader ReferenceLoader, pools *worker.Pools, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		cfg:      cfg,
		engine:   engine,
		loader:   loader,
		pools:    pools,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// UseEvents makes the service dispatch session events to d.
func (s *Service) UseEvents(d *EventDispatcher) {
	s.events = d
}

// Create opens a session in namespace. Reference data is loaded asynchronously on the
// fetch pool; until it arrives the snapshot carries loading flags.
func (s *Service) Create(namespace string) (*View, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperrors.Internal("INTERNAL_ERROR", "session id generation failed")
	}
	now := s.now()
	e := &entry{id: id.String(), createdAt: now, touchedAt: now, claimNamespaces: sets.New[string]()}
	res := s.engine.Edit(wizard.NewSnapshot(namespace), &wizard.SetReferences{References: wizard.PendingReferences()})
	e.snapshot = res.Snapshot

	s.mu.Lock()
	if len(s.sessions) >= s.cfg.MaxSessions {
		s.mu.Unlock()
		return nil, apperrors.ErrSessionLimitf(s.cfg.MaxSessions)
	}
	s.sessions[e.id] = e
	s.mu.Unlock()

	if err := s.pools.SubmitDetached(worker.PoolFetch, func(ctx context.Context) {
		s.load(ctx, e.id, namespace)
	}); err != nil {
		s.remove(e.id)
		return nil, apperrors.ErrCatalogLoadf(err)
	}

	s.log.Info("wizard session created", zap.String("session_id", e.id), zap.String("namespace", namespace))
	s.emit(EventSessionCreated, e.id, namespace, nil)
	return e.view(s.cfg.TTL, res), nil
}

// load fetches the references of a session and applies them as an edit.
func (s *Service) load(ctx context.Context, id, namespace string) {
	if s.cfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.LoadTimeout)
		defer cancel()
	}
	refs, err := s.loader.References(ctx, namespace)
	loadErr := ""
	if err != nil {
		loadErr = err.Error()
		s.log.Warn("reference load failed",
			zap.String("session_id", id),
			zap.String("namespace", namespace),
			zap.Error(err),
		)
	}

	e, ok := s.lookup(id)
	if !ok {
		return
	}
	e.mu.Lock()
	e.snapshot = s.engine.Edit(e.snapshot, &wizard.SetReferences{References: refs}).Snapshot
	e.loadErr = loadErr
	e.claimNamespaces.Clear()
	cloneNS := e.claimCloneNamespace()
	e.mu.Unlock()
	s.fetchCloneClaims(e, cloneNS)

	if loadErr != "" {
		s.emit(EventReferencesFailed, id, namespace, LoadFailedPayload{Error: loadErr})
		return
	}
	s.emit(EventReferencesLoaded, id, namespace, nil)
}

// Get returns a session.
func (s *Service) Get(id string) (*View, error) {
	e, err := s.find(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touchedAt = s.now()
	return e.view(s.cfg.TTL, wizard.Result{Snapshot: e.snapshot}), nil
}

// Delete closes a session.
func (s *Service) Delete(id string) error {
	if !s.remove(id) {
		return apperrors.ErrSessionNotFoundf(id)
	}
	s.log.Info("wizard session deleted", zap.String("session_id", id))
	s.emit(EventSessionDeleted, id, "", nil)
	return nil
}

// UpdateSettings patches VM settings fields.
func (s *Service) UpdateSettings(id string, patches []wizard.FieldPatch) (*View, error) {
	m := &wizard.UpdateVMSettings{Patches: patches}
	if err := m.Validate(); err != nil {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidRequestField, err.Error())
	}
	return s.edit(id, func(wizard.Snapshot) ([]wizard.Mutation, error) {
		return []wizard.Mutation{m}, nil
	})
}

// SetStorages replaces the storage tab. Each new or changed row must pass the edit
// policy of its storage source.
func (s *Service) SetStorages(id string, storages []wizard.Storage) (*View, error) {
	return s.edit(id, func(snap wizard.Snapshot) ([]wizard.Mutation, error) {
		rows := make([]wizard.Storage, 0, len(storages))
		for _, st := range storages {
			if prev, ok := snap.Storage(st.ID); ok && st.ID != 0 && unchanged(prev, st) {
				rows = append(rows, prev)
				continue
			}
			m, err := wizard.EditStorage(snap, st)
			if err != nil {
				return nil, err
			}
			rows = append(rows, m.Storage)
		}
		return []wizard.Mutation{&wizard.SetStorages{Storages: rows}}, nil
	})
}

// PutStorage inserts or replaces one storage row. ID 0 inserts.
func (s *Service) PutStorage(id string, st wizard.Storage) (*View, error) {
	return s.edit(id, func(snap wizard.Snapshot) ([]wizard.Mutation, error) {
		m, err := wizard.EditStorage(snap, st)
		if err != nil {
			return nil, err
		}
		return []wizard.Mutation{m}, nil
	})
}

// RemoveStorage deletes one storage row.
func (s *Service) RemoveStorage(id string, storageID int) (*View, error) {
	return s.edit(id, func(snap wizard.Snapshot) ([]wizard.Mutation, error) {
		if _, ok := snap.Storage(storageID); !ok {
			return nil, apperrors.ErrStorageNotFoundf(storageID)
		}
		return []wizard.Mutation{&wizard.RemoveStorage{ID: storageID}}, nil
	})
}

// SetNetworks replaces the networking tab.
func (s *Service) SetNetworks(id string, networks []wizard.Network) (*View, error) {
	return s.edit(id, func(wizard.Snapshot) ([]wizard.Mutation, error) {
		return []wizard.Mutation{&wizard.SetNetworks{Networks: networks}}, nil
	})
}

// SetAdvanced replaces the advanced tab.
func (s *Service) SetAdvanced(id string, advanced wizard.Advanced) (*View, error) {
	return s.edit(id, func(wizard.Snapshot) ([]wizard.Mutation, error) {
		return []wizard.Mutation{&wizard.SetAdvanced{Advanced: advanced}}, nil
	})
}

// SetReferences replaces the reference data of a session.
func (s *Service) SetReferences(id string, refs wizard.References) (*View, error) {
	return s.edit(id, func(wizard.Snapshot) ([]wizard.Mutation, error) {
		return []wizard.Mutation{&wizard.SetReferences{References: refs}}, nil
	})
}

// Validate validates the whole snapshot of a session.
func (s *Service) Validate(id string) (wizard.ValidationResult, error) {
	e, err := s.find(id)
	if err != nil {
		return wizard.ValidationResult{}, err
	}
	e.mu.Lock()
	snap := e.snapshot
	e.mu.Unlock()
	return wizard.ValidateSnapshot(snap), nil
}

// ValidateStorage validates one storage row of a session.
func (s *Service) ValidateStorage(id string, storageID int) (wizard.ValidationResult, error) {
	e, err := s.find(id)
	if err != nil {
		return wizard.ValidationResult{}, err
	}
	e.mu.Lock()
	snap := e.snapshot
	e.mu.Unlock()
	st, ok := snap.Storage(storageID)
	if !ok {
		return wizard.ValidationResult{}, apperrors.ErrStorageNotFoundf(storageID)
	}
	return wizard.ValidateStorage(snap, st), nil
}

// Len returns the number of open sessions.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// edit builds mutations from the current snapshot and runs the update pass. A build
// error leaves the session unchanged.
func (s *Service) edit(id string, build func(wizard.Snapshot) ([]wizard.Mutation, error)) (*View, error) {
	e, err := s.find(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	mutations, err := build(e.snapshot)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	res := s.engine.Edit(e.snapshot, mutations...)
	e.snapshot = res.Snapshot
	e.touchedAt = s.now()
	if _, ok := byKind(mutations, wizard.KindSetReferences); ok {
		e.claimNamespaces.Clear()
	}
	cloneNS := e.claimCloneNamespace()
	v := e.view(s.cfg.TTL, res)
	e.mu.Unlock()
	s.fetchCloneClaims(e, cloneNS)

	payload := EditPayload{Updaters: res.Ran}
	for _, m := range res.Mutations {
		payload.Mutations = append(payload.Mutations, string(m.Kind()))
	}
	s.emit(EventSessionEdited, id, res.Snapshot.Namespace, payload)
	return v, nil
}

// claimCloneNamespace returns the clone namespace of the snapshot when it lies outside
// the session namespace and was not fetched yet, and marks it fetched. Must be called
// with e.mu held.
func (e *entry) claimCloneNamespace() string {
	ns := e.snapshot.CloneNamespace()
	if ns == "" || e.claimNamespaces.Has(ns) {
		return ""
	}
	e.claimNamespaces.Insert(ns)
	return ns
}

// fetchCloneClaims lists the claims of namespace on the fetch pool. They arrive as a
// MergeClaims edit.
func (s *Service) fetchCloneClaims(e *entry, namespace string) {
	if namespace == "" {
		return
	}
	err := s.pools.SubmitDetached(worker.PoolFetch, func(ctx context.Context) {
		s.loadClaims(ctx, e.id, namespace)
	})
	if err != nil {
		e.mu.Lock()
		e.claimNamespaces.Delete(namespace)
		e.mu.Unlock()
		s.log.Warn("clone claims fetch not scheduled",
			zap.String("session_id", e.id),
			zap.String("clone_namespace", namespace),
			zap.Error(err),
		)
	}
}

func (s *Service) loadClaims(ctx context.Context, id, namespace string) {
	if s.cfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.LoadTimeout)
		defer cancel()
	}
	claims, err := s.loader.Claims(ctx, namespace)
	e, ok := s.lookup(id)
	if !ok {
		return
	}
	if err != nil {
		s.log.Warn("clone claims load failed",
			zap.String("session_id", id),
			zap.String("clone_namespace", namespace),
			zap.Error(err),
		)
		e.mu.Lock()
		e.claimNamespaces.Delete(namespace)
		e.mu.Unlock()
		return
	}

	e.mu.Lock()
	if !e.claimNamespaces.Has(namespace) {
		// A reload replaced the references while the claims were in flight.
		e.mu.Unlock()
		return
	}
	res := s.engine.Edit(e.snapshot, &wizard.MergeClaims{Namespace: namespace, Claims: claims})
	e.snapshot = res.Snapshot
	e.mu.Unlock()

	s.log.Debug("clone claims merged",
		zap.String("session_id", id),
		zap.String("clone_namespace", namespace),
		zap.Int("claims", len(claims)),
		zap.Strings("updaters", res.Ran),
	)
}

func byKind(mutations []wizard.Mutation, kind wizard.MutationKind) (wizard.Mutation, bool) {
	for _, m := range mutations {
		if m.Kind() == kind {
			return m, true
		}
	}
	return nil, false
}

// Sweep closes sessions idle for longer than the TTL and returns how many were closed.
func (s *Service) Sweep() int {
	cutoff := s.now().Add(-s.cfg.TTL)
	s.mu.Lock()
	var expired []string
	for id, e := range s.sessions {
		e.mu.Lock()
		if e.touchedAt.Before(cutoff) {
			expired = append(expired, id)
		}
		e.mu.Unlock()
	}
	sort.Strings(expired)
	for _, id := range expired {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if len(expired) > 0 {
		s.log.Info("expired wizard sessions swept", zap.Strings("session_ids", expired))
	}
	for _, id := range expired {
		s.emit(EventSessionExpired, id, "", nil)
	}
	return len(expired)
}

// StartJanitor runs Sweep every sweep interval on the general pool until the pools
// shut down.
func (s *Service) StartJanitor() error {
	return s.pools.SubmitDetached(worker.PoolGeneral, func(ctx context.Context) {
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	})
}

type eventPayload interface {
	ToJSON() ([]byte, error)
}

// emit dispatches an event when a dispatcher is set. Handler failures are logged by
// the dispatcher and never fail the session operation.
func (s *Service) emit(t EventType, id, namespace string, payload eventPayload) {
	if s.events == nil {
		return
	}
	ev := newEvent(t, id, namespace, s.now())
	if payload != nil {
		data, err := payload.ToJSON()
		if err != nil {
			s.log.Warn("encode event payload", zap.String("event_type", string(t)), zap.Error(err))
		}
		ev.Payload = data
	}
	_ = s.events.Dispatch(context.Background(), ev)
}

func (s *Service) find(id string) (*entry, error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, apperrors.ErrSessionNotFoundf(id)
	}
	return e, nil
}

func (s *Service) lookup(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	return e, ok
}

func (s *Service) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// unchanged reports whether a submitted row equals the stored one. Rows the client
// resubmits untouched skip the edit policy, so read-only rows can round-trip.
func unchanged(prev, next wizard.Storage) bool {
	return cmp.Equal(prev, next, cmpopts.EquateEmpty())
}
