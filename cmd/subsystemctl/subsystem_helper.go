package main

import (
	"github.com/mycelia-dev/subsystem-kernel/config"
	"github.com/mycelia-dev/subsystem-kernel/hooks"
	"github.com/mycelia-dev/subsystem-kernel/subsystem"
)

// buildSubsystem loads path (if non-empty; otherwise the §6 defaults
// apply untouched) and builds a canonical-default root subsystem
// around it.
func buildSubsystem(path string) (*subsystem.Subsystem, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	s := subsystem.New("root", map[string]any{"config": cfg.ToCtxConfig()})
	s.DefaultHooks = hooks.CanonicalDefaults()
	if _, err := s.Build(nil); err != nil {
		return nil, err
	}
	return s, nil
}
