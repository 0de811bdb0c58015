package subsystem

import (
	"sort"
	"sync"

	"github.com/mycelia-dev/subsystem-kernel/errs"
	"github.com/mycelia-dev/subsystem-kernel/facet"
)

// Arena owns a tree of subsystem nodes, indexed by an opaque id, so a
// child's ctx can hold a non-owning back-reference to its parent
// without the two structs owning each other (spec §9).
type Arena struct {
	mu    sync.Mutex
	nodes map[int]*Subsystem
	next  int
}

// NewArena creates an empty subsystem arena.
func NewArena() *Arena {
	return &Arena{nodes: make(map[int]*Subsystem)}
}

func (a *Arena) insert(s *Subsystem) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.next
	a.next++
	a.nodes[id] = s
	return id
}

// Get returns the node registered under id, if any.
func (a *Arena) Get(id int) (*Subsystem, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.nodes[id]
	return s, ok
}

// Subsystem is the runtime aggregate of facets described in spec §3:
// a name, a shared context, the hooks that produce its facets, and
// (optionally) children it owns.
type Subsystem struct {
	ID   int
	Name string
	Ctx  map[string]any

	DefaultHooks *facet.DefaultHooks
	Hooks        []facet.Hook

	Manager *Manager

	// ChildList and ChildMap are the two supported shapes for
	// declaring children ahead of build, per spec §4.5 step 4
	// ("array, map, or iterable"). A child registered in either is
	// built once, in ChildList order then ChildMap key order.
	ChildList []*Subsystem
	ChildMap  map[string]*Subsystem

	arena *Arena

	mu         sync.Mutex
	properties map[string]any
	pendingCtx []map[string]any
	plan       *Plan
	built      bool
}

// New creates a root subsystem with its own arena.
func New(name string, ctx map[string]any) *Subsystem {
	s := &Subsystem{
		Name:         name,
		Ctx:          ctx,
		DefaultHooks: facet.NewDefaultHooks(),
		Manager:      NewManager(),
		properties:   make(map[string]any),
		arena:        NewArena(),
	}
	s.ID = s.arena.insert(s)
	return s
}

// NewChild creates a subsystem owned by parent's arena and appends it
// to parent.ChildList.
func NewChild(parent *Subsystem, name string, ctx map[string]any) *Subsystem {
	s := newChild(parent, name, ctx)
	parent.ChildList = append(parent.ChildList, s)
	return s
}

// newChild creates a subsystem owned by parent's arena.
func newChild(parent *Subsystem, name string, ctx map[string]any) *Subsystem {
	s := &Subsystem{
		Name:         name,
		Ctx:          ctx,
		DefaultHooks: facet.NewDefaultHooks(),
		Manager:      NewManager(),
		properties:   make(map[string]any),
		arena:        parent.arena,
	}
	s.ID = parent.arena.insert(s)
	return s
}

// AttachFacet implements Manager.Attacher: it exposes a facet as a
// named property on the subsystem, rejecting a kind that is already
// present.
func (s *Subsystem) AttachFacet(kind string, f *facet.Facet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.properties[kind]; exists {
		return errs.New(errs.PropertyConflict, "subsystem %q already has a property %q", s.Name, kind)
	}
	s.properties[kind] = f
	return nil
}

// Property returns an attached facet's value by kind.
func (s *Subsystem) Property(kind string) (*facet.Facet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.properties[kind].(*facet.Facet)
	return f, ok
}

// IsBuilt reports whether Build has already completed successfully.
func (s *Subsystem) IsBuilt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.built
}

// children collects, in order, the children sourced from a hierarchy
// facet's registry (if attached), ChildList, and ChildMap, per spec
// §4.5 step 4.
func (s *Subsystem) children() []*Subsystem {
	var out []*Subsystem
	if hierarchy, ok := s.Property("hierarchy"); ok {
		if v, ok := hierarchy.Get("children"); ok {
			if list, ok := v.([]*Subsystem); ok {
				out = append(out, list...)
			}
		}
	}
	out = append(out, s.ChildList...)
	if len(s.ChildMap) > 0 {
		keys := make([]string, 0, len(s.ChildMap))
		for k := range s.ChildMap {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, s.ChildMap[k])
		}
	}
	return out
}
