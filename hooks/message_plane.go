package hooks

import (
	"context"

	"github.com/mycelia-dev/subsystem-kernel/errs"
	"github.com/mycelia-dev/subsystem-kernel/facet"
	"github.com/mycelia-dev/subsystem-kernel/message"
	"github.com/mycelia-dev/subsystem-kernel/processor"
	"github.com/mycelia-dev/subsystem-kernel/queue"
	"github.com/mycelia-dev/subsystem-kernel/router"
	"github.com/mycelia-dev/subsystem-kernel/scheduler"
)

// finder is the slice of Manager a hook needs to look up sibling
// facets once every kind in the plan has been registered. Facets are
// all inserted into the Manager before any Init runs (manager.go's
// AddMany), so a dependency lookup performed from inside OnInit is
// safe even though the same lookup from inside Fn would not be —
// Fn runs during Plan, before any facet (including this one's own
// dependencies) has been added to the Manager.
type finder interface {
	Find(kind string) (*facet.Facet, bool)
}

func siblingInstance[T any](api any, kind string) (T, bool) {
	var zero T
	f, ok := api.(finder)
	if !ok {
		return zero, false
	}
	sib, ok := f.Find(kind)
	if !ok {
		return zero, false
	}
	v, ok := sib.Get("instance")
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// RouterHook materializes the "router" facet from ctx.config.router.
func RouterHook() facet.Hook {
	return facet.Hook{
		Kind:   ROUTER,
		Attach: true,
		Fn: func(ctx map[string]any, api, sub any) (*facet.Facet, error) {
			cfg := subConfig(ctx, "router")
			r := router.New(router.Config{
				CacheCapacity: configInt(cfg, "cacheCapacity", 0),
				Debug:         configBool(cfg, "debug", false),
			})
			f, err := facet.New(ROUTER, facet.WithAttach())
			if err != nil {
				return nil, err
			}
			if _, err := f.Add(map[string]any{
				"instance":        r,
				"registerRoute":   r.RegisterRoute,
				"unregisterRoute": r.UnregisterRoute,
				"match":           r.Match,
				"route":           r.Route,
			}); err != nil {
				return nil, err
			}
			return f, nil
		},
	}
}

// QueueHook materializes the "queue" facet from ctx.config.queue,
// wiring the statistics facet's sink during init.
func QueueHook() facet.Hook {
	return facet.Hook{
		Kind:     QUEUE,
		Attach:   true,
		Required: []string{STATISTICS},
		Fn: func(ctx map[string]any, api, sub any) (*facet.Facet, error) {
			cfg := subConfig(ctx, "queue")
			q := queue.New(queue.Config{
				Capacity: configInt(cfg, "capacity", 0),
				Policy:   queue.Policy(configString(cfg, "policy", string(queue.PolicyBlock))),
			})
			f, err := facet.New(QUEUE, facet.WithAttach())
			if err != nil {
				return nil, err
			}
			if err := f.AddDependency(STATISTICS); err != nil {
				return nil, err
			}
			if err := f.OnInit(func(args facet.InitArgs) error {
				if stats, ok := siblingInstance[*Statistics](args.API, STATISTICS); ok {
					q.SetStatistics(stats)
				}
				return nil
			}); err != nil {
				return nil, err
			}
			if _, err := f.Add(map[string]any{
				"instance": q,
				"enqueue":  q.Enqueue,
				"dequeue":  q.Dequeue,
				"peek":     q.Peek,
				"size":     q.Size,
			}); err != nil {
				return nil, err
			}
			return f, nil
		},
	}
}

// ProcessorHook materializes the "processor" facet from
// ctx.config.processor. It depends on router and queue (resolved
// lazily, during init) and satisfies subsystem.ProcessorContract
// through its member functions.
func ProcessorHook() facet.Hook {
	return facet.Hook{
		Kind:     PROCESSOR,
		Attach:   true,
		Required: []string{ROUTER, QUEUE, STATISTICS},
		Fn: func(ctx map[string]any, api, sub any) (*facet.Facet, error) {
			cfg := subConfig(ctx, "processor")

			var p *processor.Processor
			f, err := facet.New(PROCESSOR, facet.WithAttach())
			if err != nil {
				return nil, err
			}
			for _, dep := range []string{ROUTER, QUEUE, STATISTICS} {
				if err := f.AddDependency(dep); err != nil {
					return nil, err
				}
			}
			if err := f.OnInit(func(args facet.InitArgs) error {
				r, ok := siblingInstance[*router.Router](args.API, ROUTER)
				if !ok {
					return errs.New(errs.MissingDependency, "processor facet requires a router instance")
				}
				q, ok := siblingInstance[*queue.Queue](args.API, QUEUE)
				if !ok {
					return errs.New(errs.MissingDependency, "processor facet requires a queue instance")
				}
				p = processor.New(processor.Config{
					BreakerMaxRequests: uint32(configInt(cfg, "breakerMaxRequests", 1)),
				}, r, q)
				if stats, ok := siblingInstance[*Statistics](args.API, STATISTICS); ok {
					p.SetStatistics(stats)
				}
				return nil
			}); err != nil {
				return nil, err
			}
			if _, err := f.Add(map[string]any{
				"accept": func(msg message.Message) error {
					return p.Accept(msg, 0, nil)
				},
				"processMessage": func(msg message.Message) (any, error) {
					return p.ProcessMessage(msg)
				},
				"processTick": func() (int, error) {
					return p.ProcessTick(context.Background())
				},
				"processImmediately": func(msg message.Message) (any, error) {
					return p.ProcessImmediately(msg)
				},
				"instance": facet.Getter(func() any { return p }),
			}); err != nil {
				return nil, err
			}
			return f, nil
		},
	}
}

// SchedulerHook materializes the "scheduler" facet from
// ctx.config.scheduler.
func SchedulerHook() facet.Hook {
	return facet.Hook{
		Kind:     SCHEDULER,
		Attach:   true,
		Required: []string{QUEUE, PROCESSOR, STATISTICS},
		Fn: func(ctx map[string]any, api, sub any) (*facet.Facet, error) {
			cfg := subConfig(ctx, "scheduler")

			var s *scheduler.Scheduler
			f, err := facet.New(SCHEDULER, facet.WithAttach())
			if err != nil {
				return nil, err
			}
			for _, dep := range []string{QUEUE, PROCESSOR, STATISTICS} {
				if err := f.AddDependency(dep); err != nil {
					return nil, err
				}
			}
			if err := f.OnInit(func(args facet.InitArgs) error {
				q, ok := siblingInstance[*queue.Queue](args.API, QUEUE)
				if !ok {
					return errs.New(errs.MissingDependency, "scheduler facet requires a queue instance")
				}
				p, ok := siblingInstance[*processor.Processor](args.API, PROCESSOR)
				if !ok {
					return errs.New(errs.MissingDependency, "scheduler facet requires a processor instance")
				}
				s = scheduler.New(scheduler.Config{
					Strategy:            scheduler.Strategy(configString(cfg, "schedulingStrategy", string(scheduler.StrategyPriority))),
					MaxMessagesPerSlice: configInt(cfg, "maxMessagesPerSlice", 10),
					Priority:            configInt(cfg, "priority", 1),
					Debug:               configBool(cfg, "debug", false),
					MessagesPerSecond:   configInt(cfg, "messagesPerSecond", 0),
					BurstSize:           configInt(cfg, "burstSize", 0),
				}, q, p)
				if stats, ok := siblingInstance[*Statistics](args.API, STATISTICS); ok {
					s.SetStatistics(stats)
				}
				return nil
			}); err != nil {
				return nil, err
			}
			if _, err := f.Add(map[string]any{
				"instance":           facet.Getter(func() any { return s }),
				"process":            func(sliceMs int) scheduler.Result { return s.Process(sliceMs) },
				"pauseProcessing":    func() { s.PauseProcessing() },
				"resumeProcessing":   func() { s.ResumeProcessing() },
				"isPaused":           facet.Getter(func() any { return s.IsPaused() }),
				"setPriority": func(p int) error { return s.SetPriority(p) },
				"configureScheduler": func(strategy scheduler.Strategy, maxMessagesPerSlice int, debug *bool) {
					s.ConfigureScheduler(strategy, maxMessagesPerSlice, debug)
				},
			}); err != nil {
				return nil, err
			}
			return f, nil
		},
	}
}

// SynchronousHook materializes the "synchronous" facet: the
// canonical set's scheduler replacement that processes inline.
func SynchronousHook() facet.Hook {
	return facet.Hook{
		Kind:     SYNCHRONOUS,
		Attach:   true,
		Required: []string{PROCESSOR},
		Fn: func(ctx map[string]any, api, sub any) (*facet.Facet, error) {
			var p *processor.Processor
			f, err := facet.New(SYNCHRONOUS, facet.WithAttach())
			if err != nil {
				return nil, err
			}
			if err := f.AddDependency(PROCESSOR); err != nil {
				return nil, err
			}
			if err := f.OnInit(func(args facet.InitArgs) error {
				inst, ok := siblingInstance[*processor.Processor](args.API, PROCESSOR)
				if !ok {
					return errs.New(errs.MissingDependency, "synchronous facet requires a processor instance")
				}
				p = inst
				return nil
			}); err != nil {
				return nil, err
			}
			if _, err := f.Add(map[string]any{
				"process": func(msg message.Message) (any, error) { return p.ProcessImmediately(msg) },
			}); err != nil {
				return nil, err
			}
			return f, nil
		},
	}
}
