package graph

import (
	"sort"

	"github.com/mycelia-dev/subsystem-kernel/errs"
)

// TopoSort orders the kinds in order so every dependency of a node
// appears at a lower index than the node. deps maps a kind to its
// required kinds; order gives the original registration order used
// to break ties deterministically. Cycles are reported as
// errs.CycleDetected.
func TopoSort(order []string, deps map[string][]string) ([]string, error) {
	indegree := make(map[string]int, len(order))
	adjacency := make(map[string][]string, len(order))
	index := make(map[string]int, len(order))
	for i, kind := range order {
		indegree[kind] = 0
		index[kind] = i
	}
	for kind, required := range deps {
		for _, dep := range required {
			adjacency[dep] = append(adjacency[dep], kind)
			indegree[kind]++
		}
	}

	byIndex := func(s []string) {
		sort.SliceStable(s, func(i, j int) bool { return index[s[i]] < index[s[j]] })
	}

	var ready []string
	for _, kind := range order {
		if indegree[kind] == 0 {
			ready = append(ready, kind)
		}
	}
	byIndex(ready)

	result := make([]string, 0, len(order))
	for len(ready) > 0 {
		kind := ready[0]
		ready = ready[1:]
		result = append(result, kind)

		for _, next := range adjacency[kind] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
		byIndex(ready)
	}

	if len(result) != len(order) {
		return nil, errs.New(errs.CycleDetected, "dependency cycle detected among %d facet kinds", len(order))
	}
	return result, nil
}
