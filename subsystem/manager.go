// Package subsystem implements the transactional facet container (C3)
// and the two-phase plan/build subsystem assembler (C5) described in
// spec §4.3/§4.5.
package subsystem

import (
	"sync"

	"github.com/mycelia-dev/subsystem-kernel/errs"
	"github.com/mycelia-dev/subsystem-kernel/facet"
	"golang.org/x/sync/errgroup"
)

// AddOptions configures a single facet addition.
type AddOptions struct {
	Init      bool
	Attach    bool
	Ctx       map[string]any
	API       any
	Subsystem any
}

// Manager owns a kind -> Facet mapping, enforcing unique kinds and
// supporting an at-most-one active transaction with rollback.
type Manager struct {
	mu sync.Mutex

	order   []string
	byKind  map[string]*facet.Facet
	txn     []string
	hasTxn  bool
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{byKind: make(map[string]*facet.Facet)}
}

// BeginTransaction starts a new transaction. It fails if one is
// already active.
func (m *Manager) BeginTransaction() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.beginLocked()
}

func (m *Manager) beginLocked() error {
	if m.hasTxn {
		return errs.New(errs.InvalidArgument, "a transaction is already active")
	}
	m.hasTxn = true
	m.txn = nil
	return nil
}

// Commit clears the active transaction's log without touching
// contents.
func (m *Manager) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasTxn {
		return errs.New(errs.NoTransaction, "commit called with no active transaction")
	}
	m.hasTxn = false
	m.txn = nil
	return nil
}

// Rollback removes every kind added within the active transaction, in
// reverse insertion order, disposing each facet, then clears the log.
func (m *Manager) Rollback() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasTxn {
		return errs.New(errs.NoTransaction, "rollback called with no active transaction")
	}
	for i := len(m.txn) - 1; i >= 0; i-- {
		kind := m.txn[i]
		if f, ok := m.byKind[kind]; ok {
			f.Dispose()
			m.removeLocked(kind)
		}
	}
	m.hasTxn = false
	m.txn = nil
	return nil
}

// Add validates and inserts a facet under kind, appending to the
// active transaction (starting one if absent; a transaction Add
// started itself is closed again before Add returns). With opts.Init it also
// initializes the facet, removing and disposing it on failure before
// re-raising. With opts.Attach, and only when the facet itself wants
// to attach, it is exposed on opts.Subsystem via Attach.
func (m *Manager) Add(kind string, f *facet.Facet, opts AddOptions) error {
	if kind == "" || f == nil {
		return errs.New(errs.InvalidArgument, "kind and facet are required")
	}

	m.mu.Lock()
	if _, exists := m.byKind[kind]; exists {
		m.mu.Unlock()
		return errs.New(errs.DuplicateKind, "facet kind %q already present", kind)
	}
	startedTxn := false
	if !m.hasTxn {
		_ = m.beginLocked()
		startedTxn = true
	}
	m.byKind[kind] = f
	m.order = append(m.order, kind)
	m.txn = append(m.txn, kind)
	m.mu.Unlock()

	if startedTxn {
		defer func() {
			m.mu.Lock()
			m.hasTxn = false
			m.txn = nil
			m.mu.Unlock()
		}()
	}

	if opts.Init {
		if err := f.Init(opts.Ctx, opts.API, opts.Subsystem); err != nil {
			m.mu.Lock()
			m.removeLocked(kind)
			m.mu.Unlock()
			f.Dispose()
			return err
		}
	}
	if opts.Attach && f.ShouldAttach() {
		if err := m.Attach(kind, opts.Subsystem); err != nil {
			return err
		}
	}
	return nil
}

// AddMany adds every kind in order, in a single transaction, then (if
// opts.Init) initializes each facet — running facets whose
// dependencies are already initialized concurrently within the same
// dependency level — attaching as it goes. Any failure rolls back all
// additions made during this call, in reverse order.
func (m *Manager) AddMany(order []string, byKind map[string]*facet.Facet, opts AddOptions) error {
	if err := m.BeginTransaction(); err != nil {
		return err
	}

	for _, kind := range order {
		f, ok := byKind[kind]
		if !ok {
			_ = m.Rollback()
			return errs.New(errs.InvalidArgument, "no facet supplied for kind %q", kind)
		}
		m.mu.Lock()
		if _, exists := m.byKind[kind]; exists {
			m.mu.Unlock()
			_ = m.Rollback()
			return errs.New(errs.DuplicateKind, "facet kind %q already present", kind)
		}
		m.byKind[kind] = f
		m.order = append(m.order, kind)
		m.txn = append(m.txn, kind)
		m.mu.Unlock()
	}

	if opts.Init {
		if err := m.initLevels(order, byKind, opts); err != nil {
			_ = m.Rollback()
			return err
		}
	}

	return m.Commit()
}

// initLevels groups kinds into dependency levels in one pass over
// order (when order lists every dependency before its dependents, as
// a Plan's OrderedKinds does, every dependency of a kind sits in a
// strictly lower level; a dependency listed later, or absent from
// order, does not raise the dependent's level) and initializes each level
// concurrently, matching spec §5's "siblings whose dependencies are
// all initialized may init concurrently".
func (m *Manager) initLevels(order []string, byKind map[string]*facet.Facet, opts AddOptions) error {
	level := make(map[string]int, len(order))
	for _, kind := range order {
		f := byKind[kind]
		max := -1
		for _, dep := range f.GetDependencies() {
			if l, ok := level[dep]; ok && l > max {
				max = l
			}
		}
		level[kind] = max + 1
	}

	maxLevel := 0
	for _, l := range level {
		if l > maxLevel {
			maxLevel = l
		}
	}

	for l := 0; l <= maxLevel; l++ {
		var batch []string
		for _, kind := range order {
			if level[kind] == l {
				batch = append(batch, kind)
			}
		}
		if err := m.initBatch(batch, byKind, opts); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) initBatch(batch []string, byKind map[string]*facet.Facet, opts AddOptions) error {
	g := new(errgroup.Group)
	for _, kind := range batch {
		kind, f := kind, byKind[kind]
		g.Go(func() error {
			if err := f.Init(opts.Ctx, opts.API, opts.Subsystem); err != nil {
				return err
			}
			if opts.Attach && f.ShouldAttach() {
				return m.Attach(kind, opts.Subsystem)
			}
			return nil
		})
	}
	return g.Wait()
}

// Attacher is satisfied by a subsystem value that can expose facet
// properties by kind, sidestepping the dynamic-property pattern the
// source language uses (spec §9).
type Attacher interface {
	AttachFacet(kind string, f *facet.Facet) error
}

// Attach exposes the facet under kind on subsystem, which must
// implement Attacher. It fails if the facet is missing or the
// subsystem already has a property under that kind.
func (m *Manager) Attach(kind string, subsystem any) error {
	m.mu.Lock()
	f, ok := m.byKind[kind]
	m.mu.Unlock()
	if !ok {
		return errs.New(errs.NotFound, "no facet registered for kind %q", kind)
	}
	a, ok := subsystem.(Attacher)
	if !ok {
		return errs.New(errs.InvalidArgument, "subsystem does not support attaching facets")
	}
	return a.AttachFacet(kind, f)
}

// Remove deletes kind from the manager, independent of any
// transaction bookkeeping.
func (m *Manager) Remove(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(kind)
}

func (m *Manager) removeLocked(kind string) {
	delete(m.byKind, kind)
	for i, k := range m.order {
		if k == kind {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Clear removes every facet without disposing them.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byKind = make(map[string]*facet.Facet)
	m.order = nil
}

// Find returns the facet registered under kind, if any.
func (m *Manager) Find(kind string) (*facet.Facet, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.byKind[kind]
	return f, ok
}

// Has reports whether kind is registered.
func (m *Manager) Has(kind string) bool {
	_, ok := m.Find(kind)
	return ok
}

// GetAllKinds returns a defensive copy of the registered kinds in
// insertion order.
func (m *Manager) GetAllKinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// GetAll returns a defensive copy of the kind -> facet mapping.
func (m *Manager) GetAll() map[string]*facet.Facet {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*facet.Facet, len(m.byKind))
	for k, v := range m.byKind {
		out[k] = v
	}
	return out
}

// Size returns the number of registered facets.
func (m *Manager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

// InitAll initializes every registered facet in insertion order.
func (m *Manager) InitAll(ctx map[string]any, api, subsystem any) error {
	for _, kind := range m.GetAllKinds() {
		f, ok := m.Find(kind)
		if !ok {
			continue
		}
		if err := f.Init(ctx, api, subsystem); err != nil {
			return err
		}
	}
	return nil
}

// DisposeAll disposes every registered facet in insertion order,
// logging individual errors via onError (if non-nil) rather than
// aborting, and always clears the map.
func (m *Manager) DisposeAll(onError func(kind string, err any)) {
	kinds := m.GetAllKinds()
	for _, kind := range kinds {
		f, ok := m.Find(kind)
		if !ok {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil && onError != nil {
					onError(kind, r)
				}
			}()
			f.Dispose()
		}()
	}
	m.Clear()
}
