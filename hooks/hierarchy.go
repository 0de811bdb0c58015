package hooks

import (
	"github.com/mycelia-dev/subsystem-kernel/facet"
	"github.com/mycelia-dev/subsystem-kernel/subsystem"
)

// HierarchyHook materializes the "hierarchy" facet: a registry of
// child subsystems consulted first by Subsystem.Build when
// collecting children to recurse into (spec §4.5 step 4).
func HierarchyHook() facet.Hook {
	return facet.Hook{
		Kind:   HIERARCHY,
		Attach: true,
		Fn: func(ctx map[string]any, api, sub any) (*facet.Facet, error) {
			var children []*subsystem.Subsystem
			f, err := facet.New(HIERARCHY, facet.WithAttach())
			if err != nil {
				return nil, err
			}
			if _, err := f.Add(map[string]any{
				"children": facet.Getter(func() any { return children }),
				"register": func(child *subsystem.Subsystem) { children = append(children, child) },
			}); err != nil {
				return nil, err
			}
			return f, nil
		},
	}
}
