package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a canonical-default subsystem and print its facet kinds",
	Long: "Build loads --config (or falls back to the documented defaults), wires\n" +
		"the canonical default hooks, builds the subsystem, and prints the facet\n" +
		"kinds it ended up with in dependency order.",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return nil
	},
	RunE: runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
	s, err := buildSubsystem(configPath)
	if err != nil {
		return err
	}

	plan := s.GetPlan()
	if plan == nil {
		return fmt.Errorf("subsystem built but produced no cached plan")
	}

	fmt.Printf("subsystem %q built with %d facets:\n", s.Name, len(plan.OrderedKinds))
	for _, kind := range plan.OrderedKinds {
		fmt.Printf("  %s\n", kind)
	}
	return nil
}
