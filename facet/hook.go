package facet

import "github.com/mycelia-dev/subsystem-kernel/errs"

// HookFunc materializes a Facet from a resolved context. subsystem is
// passed through opaquely so hooks can reach sibling facets via the
// manager without this package depending on the subsystem package.
type HookFunc func(ctx map[string]any, api, subsystem any) (*Facet, error)

// Hook pairs a factory with the metadata of the Facet it produces, so
// planners can reason about dependencies before invoking it.
type Hook struct {
	Kind      string
	Required  []string
	Attach    bool
	Overwrite bool
	Source    string
	Fn        HookFunc
}

// Call invokes the underlying factory.
func (h Hook) Call(ctx map[string]any, api, subsystem any) (*Facet, error) {
	return h.Fn(ctx, api, subsystem)
}

// DefaultHooks is an ordered, forkable, mutable collection of Hooks.
type DefaultHooks struct {
	hooks []Hook
}

// NewDefaultHooks builds a collection seeded with the given hooks.
func NewDefaultHooks(hooks ...Hook) *DefaultHooks {
	return &DefaultHooks{hooks: append([]Hook(nil), hooks...)}
}

// Add appends a hook. It fails if fn is not callable.
func (d *DefaultHooks) Add(h Hook) error {
	if h.Fn == nil {
		return errs.New(errs.InvalidArgument, "hook %q has no factory function", h.Kind)
	}
	d.hooks = append(d.hooks, h)
	return nil
}

// Remove drops the first hook matching kind, reporting whether one was
// found.
func (d *DefaultHooks) Remove(kind string) bool {
	for i, h := range d.hooks {
		if h.Kind == kind {
			d.hooks = append(d.hooks[:i], d.hooks[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the collection.
func (d *DefaultHooks) Clear() { d.hooks = nil }

// List returns a defensive copy of the hooks in registration order.
func (d *DefaultHooks) List() []Hook {
	out := make([]Hook, len(d.hooks))
	copy(out, d.hooks)
	return out
}

// Fork returns a new, independent collection seeded with this one's
// current contents.
func (d *DefaultHooks) Fork() *DefaultHooks {
	return NewDefaultHooks(d.hooks...)
}
