package hooks

import "github.com/mycelia-dev/subsystem-kernel/facet"

// CanonicalDefaults builds the default hook set for a scheduled
// subsystem (spec §4.1): listeners, statistics, queries, router,
// queue, processor, scheduler, hierarchy — in that registration
// order. Dependency edges (each facet's AddDependency calls, which
// the hooks mirror in Hook.Required), not registration order,
// determine the actual init order.
func CanonicalDefaults() *facet.DefaultHooks {
	return facet.NewDefaultHooks(
		ListenersHook(),
		StatisticsHook(),
		QueriesHook(),
		RouterHook(),
		QueueHook(),
		ProcessorHook(),
		SchedulerHook(),
		HierarchyHook(),
	)
}

// SynchronousDefaults builds the default hook set for a subsystem
// that processes messages inline rather than on a scheduled drain
// loop (spec §4.1): the same set as CanonicalDefaults minus scheduler,
// plus a synchronous facet wrapping the processor's immediate path.
func SynchronousDefaults() *facet.DefaultHooks {
	return facet.NewDefaultHooks(
		ListenersHook(),
		StatisticsHook(),
		QueriesHook(),
		RouterHook(),
		QueueHook(),
		ProcessorHook(),
		SynchronousHook(),
		HierarchyHook(),
	)
}
