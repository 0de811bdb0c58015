// Package facet implements the mutable-then-frozen capability carrier
// described in spec §3/§4.2: a Facet holds a kind, a dependency set,
// user-supplied members, and one-shot init/dispose lifecycle hooks.
package facet

import (
	"sync"

	"github.com/mycelia-dev/subsystem-kernel/errs"
)

// Getter resolves a computed member value on read.
type Getter func() any

// Setter accepts a write to a computed member.
type Setter func(any)

// InitArgs is passed to a registered onInit callback.
type InitArgs struct {
	Ctx       map[string]any
	API       any
	Subsystem any
	Facet     *Facet
}

// Facet is a named capability bundle. Before Init it is freely
// mutable; Init renders its members and dependency set immutable for
// the remainder of its lifetime.
type Facet struct {
	mu sync.Mutex

	kind      string
	attach    bool
	overwrite bool
	source    string

	deps    []string
	depSet  map[string]struct{}
	members map[string]any

	onInitFn    func(InitArgs) error
	onDisposeFn func()

	initialized bool
}

// Option configures a Facet at construction time.
type Option func(*Facet)

// WithAttach marks the facet to be exposed as a subsystem property.
func WithAttach() Option { return func(f *Facet) { f.attach = true } }

// WithOverwrite marks the facet as allowed to replace an earlier
// facet of the same kind during planning.
func WithOverwrite() Option { return func(f *Facet) { f.overwrite = true } }

// WithSource tags the facet with an informational source label.
func WithSource(source string) Option {
	return func(f *Facet) { f.source = source }
}

// New creates a Facet with the given kind. kind must be non-empty.
func New(kind string, opts ...Option) (*Facet, error) {
	if kind == "" {
		return nil, errs.New(errs.InvalidArgument, "facet kind must be non-empty")
	}
	f := &Facet{
		kind:    kind,
		depSet:  make(map[string]struct{}),
		members: make(map[string]any),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// GetKind returns the facet's kind.
func (f *Facet) GetKind() string { return f.kind }

// ShouldAttach reports whether the facet wants to be attached to the
// owning subsystem as a property.
func (f *Facet) ShouldAttach() bool { return f.attach }

// ShouldOverwrite reports whether the facet may replace an
// earlier-planned facet of the same kind.
func (f *Facet) ShouldOverwrite() bool { return f.overwrite }

// GetSource returns the facet's informational source tag.
func (f *Facet) GetSource() string { return f.source }

// IsInitialized reports whether Init has taken effect.
func (f *Facet) IsInitialized() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initialized
}

// Add merges member descriptors into the facet. Pre-existing members
// are not overwritten — first writer wins — and the call always
// returns the facet so it chains.
func (f *Facet) Add(members map[string]any) (*Facet, error) {
	if members == nil {
		return f, errs.New(errs.InvalidArgument, "members must be a non-nil map")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initialized {
		return f, errs.New(errs.MutationAfterInit, "cannot add members to facet %q after init", f.kind)
	}
	for name, value := range members {
		if _, exists := f.members[name]; exists {
			continue
		}
		f.members[name] = value
	}
	return f, nil
}

// Get resolves a member by name, invoking a Getter if one was
// registered under that name.
func (f *Facet) Get(name string) (any, bool) {
	f.mu.Lock()
	v, ok := f.members[name]
	f.mu.Unlock()
	if !ok {
		return nil, false
	}
	if g, isGetter := v.(Getter); isGetter {
		return g(), true
	}
	return v, true
}

// Set writes to a member registered as a Setter. It fails with
// MutationAfterInit once the facet is initialized and InvalidArgument
// if the member is not a Setter.
func (f *Facet) Set(name string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initialized {
		return errs.New(errs.MutationAfterInit, "cannot set member %q on facet %q after init", name, f.kind)
	}
	v, ok := f.members[name]
	if !ok {
		return errs.New(errs.InvalidArgument, "no such member %q", name)
	}
	s, isSetter := v.(Setter)
	if !isSetter {
		return errs.New(errs.InvalidArgument, "member %q is not a setter", name)
	}
	s(value)
	return nil
}

// OnInit registers the one-shot init callback. It is rejected once
// the facet has already been initialized.
func (f *Facet) OnInit(fn func(InitArgs) error) error {
	if fn == nil {
		return errs.New(errs.InvalidArgument, "onInit callback must be callable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initialized {
		return errs.New(errs.MutationAfterInit, "cannot register onInit on facet %q after init", f.kind)
	}
	f.onInitFn = fn
	return nil
}

// OnDispose registers the dispose callback. May be called any number
// of times before init; each registration replaces the previous one.
func (f *Facet) OnDispose(fn func()) error {
	if fn == nil {
		return errs.New(errs.InvalidArgument, "onDispose callback must be callable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onDisposeFn = fn
	return nil
}

// AddDependency adds a required dependency kind. Mutating the
// dependency set after init is rejected.
func (f *Facet) AddDependency(kind string) error {
	if kind == "" {
		return errs.New(errs.InvalidArgument, "dependency kind must be non-empty")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initialized {
		return errs.New(errs.MutationAfterInit, "cannot add dependency to facet %q after init", f.kind)
	}
	if _, exists := f.depSet[kind]; exists {
		return nil
	}
	f.depSet[kind] = struct{}{}
	f.deps = append(f.deps, kind)
	return nil
}

// RemoveDependency removes a dependency kind if present. Removing a
// dependency that was never added is a no-op (spec §9 open question,
// resolved as a no-op — see DESIGN.md).
func (f *Facet) RemoveDependency(kind string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initialized {
		return errs.New(errs.MutationAfterInit, "cannot remove dependency from facet %q after init", f.kind)
	}
	if _, exists := f.depSet[kind]; !exists {
		return nil
	}
	delete(f.depSet, kind)
	for i, d := range f.deps {
		if d == kind {
			f.deps = append(f.deps[:i], f.deps[i+1:]...)
			break
		}
	}
	return nil
}

// GetDependencies returns a defensive copy of the required dependency
// kinds, in insertion order.
func (f *Facet) GetDependencies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.deps))
	copy(out, f.deps)
	return out
}

// HasDependency reports whether kind is among the facet's
// dependencies.
func (f *Facet) HasDependency(kind string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.depSet[kind]
	return ok
}

// HasDependencies reports whether the facet has any dependencies.
func (f *Facet) HasDependencies() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deps) > 0
}

// Init runs the facet's lifecycle callback at most once, then freezes
// members and dependencies for the remainder of the facet's lifetime.
// Subsequent calls are no-ops.
func (f *Facet) Init(ctx map[string]any, api, subsystem any) error {
	f.mu.Lock()
	if f.initialized {
		f.mu.Unlock()
		return nil
	}
	fn := f.onInitFn
	f.mu.Unlock()

	if fn != nil {
		if err := fn(InitArgs{Ctx: ctx, API: api, Subsystem: subsystem, Facet: f}); err != nil {
			return err
		}
	}

	f.mu.Lock()
	f.initialized = true
	f.mu.Unlock()
	return nil
}

// Dispose invokes the onDispose callback if one is registered. It
// never returns an error and may be called any number of times,
// including before Init.
func (f *Facet) Dispose() {
	f.mu.Lock()
	fn := f.onDisposeFn
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}
