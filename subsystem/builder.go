package subsystem

import (
	"github.com/mycelia-dev/subsystem-kernel/errs"
	"github.com/mycelia-dev/subsystem-kernel/facet"
	"github.com/mycelia-dev/subsystem-kernel/graph"
)

// Plan is the product of Verify (spec §4.5): a resolved context, a
// topological order over the kinds present, and the un-initialized
// facets that order refers to.
type Plan struct {
	ResolvedCtx  map[string]any
	OrderedKinds []string
	FacetsByKind map[string]*facet.Facet
}

// WithCtx queues a context delta to be merged in on the next Plan/
// Build, dropping any cached plan.
func (s *Subsystem) WithCtx(delta map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingCtx = append(s.pendingCtx, delta)
	s.plan = nil
}

// ClearCtx drops queued context deltas and any cached plan.
func (s *Subsystem) ClearCtx() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingCtx = nil
	s.plan = nil
}

// Invalidate drops the cached plan without touching queued deltas.
func (s *Subsystem) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan = nil
}

// GetPlan returns the cached plan, or nil if none has been computed
// (or it was invalidated) since the last context change.
func (s *Subsystem) GetPlan() *Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan
}

// mergeCtx shallow-merges overlays onto base in order, except for a
// nested "config" key, which is deep-merged across every layer
// (spec §4.5 step 1).
func mergeCtx(base map[string]any, overlays ...map[string]any) map[string]any {
	out := make(map[string]any, len(base))
	for k, v := range base {
		out[k] = v
	}
	for _, overlay := range overlays {
		for k, v := range overlay {
			if k == "config" {
				out[k] = deepMergeConfig(asMap(out[k]), asMap(v))
				continue
			}
			out[k] = v
		}
	}
	return out
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}

func deepMergeConfig(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		if existing, ok := out[k].(map[string]any); ok {
			if incoming, ok := v.(map[string]any); ok {
				out[k] = deepMergeConfig(existing, incoming)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// Plan runs verification: it resolves ctx, collects hooks, materializes
// facets, validates dependencies, and orders them topologically
// (consulting cache if given). A successful plan is cached on the
// subsystem; an invalid one never is.
func (s *Subsystem) Plan(cache *graph.Cache) (*Plan, error) {
	s.mu.Lock()
	resolvedCtx := mergeCtx(s.Ctx, s.pendingCtx...)
	hooks := append(s.DefaultHooks.List(), s.Hooks...)
	s.mu.Unlock()

	if cache != nil {
		resolvedCtx["graphCache"] = cache
	}

	facetsByKind := make(map[string]*facet.Facet)
	overwritable := make(map[string]bool)
	var order []string

	for _, h := range hooks {
		if h.Fn == nil {
			continue
		}
		f, err := h.Call(resolvedCtx, s.Manager, s)
		if err != nil {
			return nil, err
		}
		if _, exists := facetsByKind[h.Kind]; exists {
			if !h.Overwrite {
				return nil, errs.New(errs.DuplicateKind, "facet kind %q registered more than once without overwrite", h.Kind)
			}
		} else {
			order = append(order, h.Kind)
		}
		facetsByKind[h.Kind] = f
		overwritable[h.Kind] = h.Overwrite
	}

	deps := make(map[string][]string, len(facetsByKind))
	sigs := make([]graph.HookSignature, 0, len(facetsByKind))
	for kind, f := range facetsByKind {
		required := f.GetDependencies()
		deps[kind] = required
		for _, dep := range required {
			if _, ok := facetsByKind[dep]; !ok {
				return nil, errs.New(errs.MissingDependency, "facet %q requires %q, which is not present", kind, dep)
			}
		}
		sigs = append(sigs, graph.HookSignature{Kind: kind, Overwrite: overwritable[kind], Required: required})
	}

	if err := enforceContracts(facetsByKind, DefaultContracts); err != nil {
		return nil, err
	}

	orderedKinds, err := s.resolveOrder(cache, order, deps, sigs)
	if err != nil {
		return nil, err
	}

	plan := &Plan{ResolvedCtx: resolvedCtx, OrderedKinds: orderedKinds, FacetsByKind: facetsByKind}
	s.mu.Lock()
	s.plan = plan
	s.mu.Unlock()
	return plan, nil
}

func (s *Subsystem) resolveOrder(cache *graph.Cache, order []string, deps map[string][]string, sigs []graph.HookSignature) ([]string, error) {
	if cache == nil {
		return graph.TopoSort(order, deps)
	}
	key := graph.Signature(sigs)
	if cached, ok := cache.Get(key); ok {
		return cached, nil
	}
	sorted, err := graph.TopoSort(order, deps)
	if err != nil {
		return nil, err
	}
	cache.Put(key, sorted)
	return sorted, nil
}

// Build ensures a plan exists, materializes its facets into the
// manager (in a single transaction, rolling back on any init
// failure), then recurses into children. Children already built are
// skipped.
func (s *Subsystem) Build(cache *graph.Cache) (*Subsystem, error) {
	plan := s.GetPlan()
	if plan == nil {
		var err error
		plan, err = s.Plan(cache)
		if err != nil {
			return nil, err
		}
	}

	err := s.Manager.AddMany(plan.OrderedKinds, plan.FacetsByKind, AddOptions{
		Init:      true,
		Attach:    true,
		Ctx:       plan.ResolvedCtx,
		API:       s.Manager,
		Subsystem: s,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.built = true
	s.mu.Unlock()

	for _, child := range s.children() {
		if child == nil || child.IsBuilt() {
			continue
		}
		if child.Ctx == nil {
			child.Ctx = make(map[string]any)
		}
		child.Ctx["parent"] = plan.ResolvedCtx
		child.Ctx["graphCache"] = cache
		if _, err := child.Build(cache); err != nil {
			return nil, err
		}
	}

	return s, nil
}
