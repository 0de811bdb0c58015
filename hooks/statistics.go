package hooks

import (
	"sync"

	"github.com/mycelia-dev/subsystem-kernel/facet"
	"github.com/mycelia-dev/subsystem-kernel/processor"
	"github.com/mycelia-dev/subsystem-kernel/queue"
	"github.com/mycelia-dev/subsystem-kernel/scheduler"
)

// Statistics observes enqueue/dequeue, time-slice, and route events
// (spec §9): its absence must never prevent processing, so every
// sink method is a no-op-safe counter bump.
type Statistics struct {
	mu sync.Mutex

	enqueued, dequeued   uint64
	timeSlicesReceived   uint64
	routesOK, routesFail uint64
}

var (
	_ queue.StatisticsSink     = (*Statistics)(nil)
	_ scheduler.StatisticsSink = (*Statistics)(nil)
	_ processor.StatisticsSink = (*Statistics)(nil)
)

// RecordEnqueue implements queue.StatisticsSink.
func (s *Statistics) RecordEnqueue(queue.Stats) {
	s.mu.Lock()
	s.enqueued++
	s.mu.Unlock()
}

// RecordDequeue implements queue.StatisticsSink.
func (s *Statistics) RecordDequeue(queue.Stats) {
	s.mu.Lock()
	s.dequeued++
	s.mu.Unlock()
}

// RecordTimeSlice implements scheduler.StatisticsSink.
func (s *Statistics) RecordTimeSlice() {
	s.mu.Lock()
	s.timeSlicesReceived++
	s.mu.Unlock()
}

// RecordRoute implements processor.StatisticsSink.
func (s *Statistics) RecordRoute(_ string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.routesFail++
		return
	}
	s.routesOK++
}

// TimeSlicesReceived returns the running time-slice count.
func (s *Statistics) TimeSlicesReceived() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeSlicesReceived
}

// Enqueued returns the running enqueue count.
func (s *Statistics) Enqueued() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enqueued
}

// Dequeued returns the running dequeue count.
func (s *Statistics) Dequeued() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dequeued
}

// StatisticsHook materializes the "statistics" facet.
func StatisticsHook() facet.Hook {
	return facet.Hook{
		Kind:   STATISTICS,
		Attach: true,
		Fn: func(ctx map[string]any, api, sub any) (*facet.Facet, error) {
			stats := &Statistics{}
			f, err := facet.New(STATISTICS, facet.WithAttach())
			if err != nil {
				return nil, err
			}
			if _, err := f.Add(map[string]any{
				"instance":           stats,
				"timeSlicesReceived": facet.Getter(func() any { return stats.TimeSlicesReceived() }),
				"enqueued":           facet.Getter(func() any { return stats.Enqueued() }),
				"dequeued":           facet.Getter(func() any { return stats.Dequeued() }),
			}); err != nil {
				return nil, err
			}
			return f, nil
		},
	}
}

// Listener is a callback invoked on route events.
type Listener func(path string, err error)

// Listeners is a pub/sub registry for route-event observers (spec
// §9: out of core scope beyond "may observe ... route events").
type Listeners struct {
	mu        sync.Mutex
	listeners []Listener
}

// Add registers a listener.
func (l *Listeners) Add(fn Listener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// RecordRoute implements processor.StatisticsSink so Listeners can be
// wired in place of Statistics (a processor holds a single sink).
func (l *Listeners) RecordRoute(path string, err error) {
	l.mu.Lock()
	fns := append([]Listener(nil), l.listeners...)
	l.mu.Unlock()
	for _, fn := range fns {
		fn(path, err)
	}
}

// ListenersHook materializes the "listeners" facet.
func ListenersHook() facet.Hook {
	return facet.Hook{
		Kind:   LISTENERS,
		Attach: true,
		Fn: func(ctx map[string]any, api, sub any) (*facet.Facet, error) {
			l := &Listeners{}
			f, err := facet.New(LISTENERS, facet.WithAttach())
			if err != nil {
				return nil, err
			}
			if _, err := f.Add(map[string]any{
				"instance": l,
				"add":      func(fn Listener) { l.Add(fn) },
			}); err != nil {
				return nil, err
			}
			return f, nil
		},
	}
}

// Queries tracks in-flight query messages awaiting a reply (spec
// §9). The processor itself resolves replies via
// message.SetQueryResult and does not call Begin or Resolve; the
// pending set changes only through callers of those methods.
type Queries struct {
	mu      sync.Mutex
	pending map[string]struct{}
}

// Begin marks id as awaiting a reply.
func (q *Queries) Begin(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending == nil {
		q.pending = make(map[string]struct{})
	}
	q.pending[id] = struct{}{}
}

// Resolve clears id's pending status.
func (q *Queries) Resolve(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, id)
}

// Pending reports whether id is still awaiting a reply.
func (q *Queries) Pending(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.pending[id]
	return ok
}

// QueriesHook materializes the "queries" facet.
func QueriesHook() facet.Hook {
	return facet.Hook{
		Kind:   QUERIES,
		Attach: true,
		Fn: func(ctx map[string]any, api, sub any) (*facet.Facet, error) {
			q := &Queries{pending: make(map[string]struct{})}
			f, err := facet.New(QUERIES, facet.WithAttach())
			if err != nil {
				return nil, err
			}
			if _, err := f.Add(map[string]any{"instance": q}); err != nil {
				return nil, err
			}
			return f, nil
		},
	}
}
