package config

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// Load reads a config file (TOML, YAML, or JSON, inferred from its
// extension) at path, applies the §6 defaults for anything left
// unset, and returns the typed result. Its ctx.config map form comes
// from Config.ToCtxConfig.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvPrefix("SUBSYSTEM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadTOMLBytes decodes raw TOML directly via go-toml/v2, bypassing
// viper entirely. Used by cmd/subsystemctl for the standalone route
// table file, which has nothing to do with ctx.config.
func LoadTOMLBytes(data []byte, out any) error {
	return toml.Unmarshal(data, out)
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("router.cacheCapacity", def.Router.CacheCapacity)
	v.SetDefault("router.debug", def.Router.Debug)
	v.SetDefault("queue.capacity", def.Queue.Capacity)
	v.SetDefault("queue.policy", def.Queue.Policy)
	v.SetDefault("scheduler.schedulingStrategy", def.Scheduler.SchedulingStrategy)
	v.SetDefault("scheduler.maxMessagesPerSlice", def.Scheduler.MaxMessagesPerSlice)
	v.SetDefault("scheduler.priority", def.Scheduler.Priority)
	v.SetDefault("scheduler.debug", def.Scheduler.Debug)
	v.SetDefault("principals.defaultExpiration", def.Principals.DefaultExpiration)
}
