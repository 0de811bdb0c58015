// Package scheduler implements the cooperative, time-sliced drain
// loop described in spec §4.7 and §5: a single drain loop per
// subsystem instance that pulls entries off the queue and forwards
// them to the processor's per-message routine, pausable and
// priority-aware.
package scheduler

import (
	"sync"
	"time"

	"github.com/mycelia-dev/subsystem-kernel/errs"
	"github.com/mycelia-dev/subsystem-kernel/message"
	"github.com/mycelia-dev/subsystem-kernel/queue"
	"github.com/yasserelgammal/rate-limiter/limiter"
	"github.com/yasserelgammal/rate-limiter/store"
)

// Dispatcher is the per-message routine the scheduler forwards
// dequeued entries to. The processor facet satisfies this.
type Dispatcher interface {
	ProcessMessage(msg message.Message) (any, error)
}

// Strategy selects how the underlying queue is drained.
type Strategy string

const (
	StrategyPriority Strategy = "priority"
	StrategyFIFO     Strategy = "fifo"
)

// Config carries the scheduler's §6 configuration sub-object.
type Config struct {
	Strategy            Strategy
	MaxMessagesPerSlice int
	Priority            int
	Debug               bool
	// MessagesPerSecond paces draining via a token-bucket limiter;
	// 0 disables pacing.
	MessagesPerSecond int
	BurstSize         int
}

// StatisticsSink observes time-slice events (spec §9).
type StatisticsSink interface {
	RecordTimeSlice()
}

// Result is returned by Process.
type Result struct {
	Status         string // "paused" or "" (ran)
	Processed      int
	Errors         int
	ProcessingTime time.Duration
	RemainingTime  time.Duration
}

// Scheduler drains q into dispatcher on each Process call.
type Scheduler struct {
	mu sync.Mutex

	cfg Config
	q   *queue.Queue
	d   Dispatcher

	isPaused     bool
	isProcessing bool
	stats        StatisticsSink

	limiter *limiter.TokenBucket

	log func(string, ...any)
}

// New builds a Scheduler draining q into d.
func New(cfg Config, q *queue.Queue, d Dispatcher) *Scheduler {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyPriority
	}
	if cfg.MaxMessagesPerSlice <= 0 {
		cfg.MaxMessagesPerSlice = 10
	}
	if cfg.Priority < 0 {
		cfg.Priority = 1
	}
	s := &Scheduler{cfg: cfg, q: q, d: d}
	if cfg.MessagesPerSecond > 0 {
		st := store.NewMemoryStore(time.Minute)
		burst := cfg.BurstSize
		if burst <= 0 {
			burst = cfg.MessagesPerSecond
		}
		lim, err := limiter.NewTokenBucket(limiter.Config{
			Rate:     int64(cfg.MessagesPerSecond),
			Duration: time.Second,
			Burst:    int64(burst),
		}, st)
		if err == nil {
			s.limiter = lim
		}
	}
	q.SetFIFO(cfg.Strategy == StrategyFIFO)
	return s
}

// SetLogger installs a trace callback invoked when cfg.Debug is true.
func (s *Scheduler) SetLogger(log func(string, ...any)) { s.log = log }

func (s *Scheduler) trace(format string, args ...any) {
	if s.cfg.Debug && s.log != nil {
		s.log(format, args...)
	}
}

// SetStatistics installs (or clears, with nil) the statistics sink.
func (s *Scheduler) SetStatistics(sink StatisticsSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = sink
}

// PauseProcessing causes the next Process call to return immediately.
func (s *Scheduler) PauseProcessing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isPaused = true
}

// ResumeProcessing clears the pause flag.
func (s *Scheduler) ResumeProcessing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isPaused = false
}

// IsPaused reports the current pause flag.
func (s *Scheduler) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isPaused
}

// IsProcessing reports whether a slice is currently draining.
func (s *Scheduler) IsProcessing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isProcessing
}

// SetPriority rejects negative priorities, per spec §4.7.
func (s *Scheduler) SetPriority(n int) error {
	if n < 0 {
		return errs.New(errs.InvalidArgument, "priority must be non-negative, got %d", n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Priority = n
	return nil
}

// ConfigureScheduler updates the live policy. Zero values leave the
// corresponding field unchanged.
func (s *Scheduler) ConfigureScheduler(strategy Strategy, maxMessagesPerSlice int, debug *bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strategy != "" {
		s.cfg.Strategy = strategy
		s.q.SetFIFO(strategy == StrategyFIFO)
	}
	if maxMessagesPerSlice > 0 {
		s.cfg.MaxMessagesPerSlice = maxMessagesPerSlice
	}
	if debug != nil {
		s.cfg.Debug = *debug
	}
}

// Process drains at most MaxMessagesPerSlice entries, or until the
// queue empties or sliceMs elapses, whichever comes first. Handler
// errors are counted, not propagated; the scheduler never re-throws.
func (s *Scheduler) Process(sliceMs int) Result {
	s.mu.Lock()
	if s.isPaused {
		s.mu.Unlock()
		return Result{Status: "paused", RemainingTime: time.Duration(sliceMs) * time.Millisecond}
	}
	if s.stats != nil {
		s.stats.RecordTimeSlice()
	}
	s.isProcessing = true
	maxMsgs := s.cfg.MaxMessagesPerSlice
	lim := s.limiter
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isProcessing = false
		s.mu.Unlock()
	}()

	deadline := time.Now().Add(time.Duration(sliceMs) * time.Millisecond)
	start := time.Now()
	var processed, errCount int

	for processed < maxMsgs && time.Now().Before(deadline) {
		if lim != nil && !lim.Allow("scheduler") {
			break
		}
		entry, ok := s.q.Dequeue()
		if !ok {
			break
		}
		if _, err := s.d.ProcessMessage(entry.Msg); err != nil {
			errCount++
			s.trace("scheduler: handler error for %q: %v", entry.Msg.GetPath(), err)
		}
		processed++
	}

	return Result{Processed: processed, Errors: errCount, ProcessingTime: time.Since(start)}
}
