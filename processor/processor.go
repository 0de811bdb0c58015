// Package processor implements the message processor described in
// spec §4.7: it ties the router, queue, and scheduler together and
// exposes the four methods the processor contract (subsystem
// package) enforces by reflection.
package processor

import (
	"context"
	"sync"
	"time"

	"github.com/mycelia-dev/subsystem-kernel/errs"
	"github.com/mycelia-dev/subsystem-kernel/message"
	"github.com/mycelia-dev/subsystem-kernel/queue"
	"github.com/mycelia-dev/subsystem-kernel/router"
	"github.com/sony/gobreaker"
)

// StatisticsSink observes route outcomes (spec §9).
type StatisticsSink interface {
	RecordRoute(path string, err error)
}

// Config carries circuit-breaker tuning for handler dispatch. A
// single open handler must not be allowed to wedge the drain loop:
// gobreaker trips after repeated failures and fails fast until the
// cooldown elapses.
type Config struct {
	BreakerMaxRequests uint32
	BreakerTimeout     int // seconds; 0 uses gobreaker's default
}

// Processor wires router + queue + statistics, per spec §4.7; it
// holds no queries registry. It satisfies the processor contract: accept, processMessage,
// processTick, processImmediately.
type Processor struct {
	mu sync.Mutex

	r     *router.Router
	q     *queue.Queue
	stats StatisticsSink

	breaker *gobreaker.CircuitBreaker
}

// New builds a Processor dispatching through r and queuing onto q.
func New(cfg Config, r *router.Router, q *queue.Queue) *Processor {
	settings := gobreaker.Settings{
		Name:        "processor",
		MaxRequests: cfg.BreakerMaxRequests,
	}
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 1
	}
	if cfg.BreakerTimeout > 0 {
		settings.Timeout = time.Duration(cfg.BreakerTimeout) * time.Second
	}
	return &Processor{
		r:       r,
		q:       q,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// SetStatistics installs (or clears, with nil) the statistics sink.
func (p *Processor) SetStatistics(sink StatisticsSink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats = sink
}

// Accept enqueues msg and returns immediately; the scheduler's drain
// loop is what actually dispatches it.
func (p *Processor) Accept(msg message.Message, priority int, options map[string]any) error {
	return p.q.Enqueue(msg, priority, options)
}

// ProcessMessage runs the synchronous per-message routine: router
// match, handler invocation (through the circuit breaker), and an
// optional query reply.
func (p *Processor) ProcessMessage(msg message.Message) (any, error) {
	out, err := p.dispatch(msg)
	p.recordRoute(msg, err)
	return out, err
}

// ProcessImmediately bypasses the queue entirely, running msg
// synchronously. Used when the synchronous facet is installed in
// place of a scheduler.
func (p *Processor) ProcessImmediately(msg message.Message) (any, error) {
	return p.ProcessMessage(msg)
}

// ProcessTick drains the queue until empty or ctx is cancelled,
// returning the count processed and the last error observed (if
// any); handler errors do not stop the drain.
func (p *Processor) ProcessTick(ctx context.Context) (int, error) {
	var processed int
	var lastErr error
	for {
		select {
		case <-ctx.Done():
			return processed, ctx.Err()
		default:
		}
		entry, ok := p.q.Dequeue()
		if !ok {
			return processed, lastErr
		}
		if _, err := p.ProcessMessage(entry.Msg); err != nil {
			lastErr = err
		}
		processed++
	}
}

func (p *Processor) dispatch(msg message.Message) (any, error) {
	if msg == nil || msg.GetPath() == "" {
		return nil, errs.New(errs.InvalidMessage, "message has no path")
	}
	out, err := p.breaker.Execute(func() (any, error) {
		return p.r.Route(msg)
	})
	if err != nil {
		return nil, err
	}
	if msg.IsQuery() {
		msg.SetQueryResult(out)
	}
	return out, nil
}

func (p *Processor) recordRoute(msg message.Message, err error) {
	p.mu.Lock()
	sink := p.stats
	p.mu.Unlock()
	if sink != nil {
		sink.RecordRoute(msg.GetPath(), err)
	}
}
