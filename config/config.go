// Package config loads the subsystem's ctx.config sub-object (spec
// §6) from a file or overlay and converts it into the plain
// map[string]any shape subsystem.New/WithCtx expect.
package config

// RouterConfig mirrors the router.* keys of spec §6.
type RouterConfig struct {
	CacheCapacity int  `mapstructure:"cacheCapacity"`
	Debug         bool `mapstructure:"debug"`
}

// QueueConfig mirrors the queue.* keys of spec §6.
type QueueConfig struct {
	Capacity int    `mapstructure:"capacity"`
	Policy   string `mapstructure:"policy"`
}

// SchedulerConfig mirrors the scheduler.* keys of spec §6.
type SchedulerConfig struct {
	SchedulingStrategy  string `mapstructure:"schedulingStrategy"`
	MaxMessagesPerSlice int    `mapstructure:"maxMessagesPerSlice"`
	Priority            int    `mapstructure:"priority"`
	Debug               bool   `mapstructure:"debug"`
	MessagesPerSecond   int    `mapstructure:"messagesPerSecond"`
	BurstSize           int    `mapstructure:"burstSize"`
}

// PrincipalsConfig carries file-loadable principal defaults. The
// `principals.kernel` key itself (spec §6: "must expose
// sendProtected(pkr,msg,opts)") names a live object, not a value a
// config file can express — callers merge it in programmatically via
// subsystem.WithCtx, not through this struct.
type PrincipalsConfig struct {
	DefaultExpiration string `mapstructure:"defaultExpiration"`
}

// StatisticsConfig is reserved by spec §6 ("statistics.* | Reserved").
// It decodes to an empty struct; keys under statistics.* are ignored
// on decode, not rejected.
type StatisticsConfig struct{}

// Config is the typed form of ctx.config.
type Config struct {
	Router     RouterConfig      `mapstructure:"router"`
	Queue      QueueConfig       `mapstructure:"queue"`
	Scheduler  SchedulerConfig   `mapstructure:"scheduler"`
	Principals PrincipalsConfig  `mapstructure:"principals"`
	Statistics StatisticsConfig  `mapstructure:"statistics"`
}

// ToCtxConfig converts the typed Config into the map[string]any shape
// ctx["config"] must have. Every key is emitted, zero values
// included. The hooks package's configInt/configString/configBool
// helpers apply their defaults only to absent keys, so zero values
// reach the router, queue and scheduler constructors as-is; those
// substitute their own defaults for a zero cache capacity, policy,
// strategy and maxMessagesPerSlice, while a zero scheduler priority
// stays 0.
func (c *Config) ToCtxConfig() map[string]any {
	return map[string]any{
		"router": map[string]any{
			"cacheCapacity": c.Router.CacheCapacity,
			"debug":         c.Router.Debug,
		},
		"queue": map[string]any{
			"capacity": c.Queue.Capacity,
			"policy":   c.Queue.Policy,
		},
		"scheduler": map[string]any{
			"schedulingStrategy":  c.Scheduler.SchedulingStrategy,
			"maxMessagesPerSlice": c.Scheduler.MaxMessagesPerSlice,
			"priority":            c.Scheduler.Priority,
			"debug":               c.Scheduler.Debug,
			"messagesPerSecond":   c.Scheduler.MessagesPerSecond,
			"burstSize":           c.Scheduler.BurstSize,
		},
		"principals": map[string]any{
			"defaultExpiration": c.Principals.DefaultExpiration,
		},
		"statistics": map[string]any{},
	}
}

// Default returns a Config populated with the §6-documented defaults.
func Default() Config {
	return Config{
		Router: RouterConfig{CacheCapacity: 256},
		Queue:  QueueConfig{Policy: "block"},
		Scheduler: SchedulerConfig{
			SchedulingStrategy:  "priority",
			MaxMessagesPerSlice: 10,
			Priority:            1,
		},
		Principals: PrincipalsConfig{DefaultExpiration: "1 week"},
	}
}
