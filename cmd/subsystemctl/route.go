package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mycelia-dev/subsystem-kernel/config"
	"github.com/mycelia-dev/subsystem-kernel/message"
	"github.com/mycelia-dev/subsystem-kernel/router"
	"github.com/mycelia-dev/subsystem-kernel/scheduler"
)

var (
	routePattern   string
	routeReply     string
	routeTableFile string
	msgPath        string
	msgBody        string
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Register a route, push one message through it, and drain the scheduler",
	Long: "route registers either a single --pattern/--reply route or every entry\n" +
		"of a --routes TOML table (each a {pattern, reply} pair), accepts one\n" +
		"message addressed at --path with body --body, then runs one scheduler\n" +
		"time slice and prints the outcome.",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return nil
	},
	RunE: runRoute,
}

func init() {
	routeCmd.Flags().StringVar(&routePattern, "pattern", "ping", "route pattern to register")
	routeCmd.Flags().StringVar(&routeReply, "reply", "pong", "static reply body the route returns")
	routeCmd.Flags().StringVar(&routeTableFile, "routes", "", "path to a TOML route table ([[routes]] pattern/reply) instead of a single route")
	routeCmd.Flags().StringVar(&msgPath, "path", "ping", "path of the demo message to accept")
	routeCmd.Flags().StringVar(&msgBody, "body", "", "body of the demo message to accept")
}

type routeEntry struct {
	Pattern string `toml:"pattern"`
	Reply   string `toml:"reply"`
}

type routeTable struct {
	Routes []routeEntry `toml:"routes"`
}

func runRoute(cmd *cobra.Command, args []string) error {
	s, err := buildSubsystem(configPath)
	if err != nil {
		return err
	}

	routerFacet, ok := s.Property("router")
	if !ok {
		return fmt.Errorf("subsystem has no router facet")
	}
	registerRoute, _ := routerFacet.Get("registerRoute")
	register := registerRoute.(func(string, router.Handler, router.Metadata) error)

	if routeTableFile != "" {
		data, err := os.ReadFile(routeTableFile)
		if err != nil {
			return err
		}
		var table routeTable
		if err := config.LoadTOMLBytes(data, &table); err != nil {
			return err
		}
		for _, entry := range table.Routes {
			reply := entry.Reply
			if err := register(entry.Pattern, replyHandler(reply), router.Metadata{}); err != nil {
				return err
			}
			log.Debugf("registered route %q -> %q", entry.Pattern, reply)
		}
	} else {
		if err := register(routePattern, replyHandler(routeReply), router.Metadata{}); err != nil {
			return err
		}
		log.Debugf("registered route %q -> %q", routePattern, routeReply)
	}

	processorFacet, ok := s.Property("processor")
	if !ok {
		return fmt.Errorf("subsystem has no processor facet")
	}
	accept, _ := processorFacet.Get("accept")
	msg := &message.Base{ID: "cli-1", Path: msgPath, Body: msgBody}
	if err := accept.(func(message.Message) error)(msg); err != nil {
		return err
	}

	schedulerFacet, ok := s.Property("scheduler")
	if !ok {
		return fmt.Errorf("subsystem has no scheduler facet")
	}
	process, _ := schedulerFacet.Get("process")
	result := process.(func(int) scheduler.Result)(100)

	fmt.Printf("status=%s processed=%d errors=%d\n", result.Status, result.Processed, result.Errors)
	return nil
}

func replyHandler(reply string) router.Handler {
	return func(msg message.Message, params map[string]string, meta router.Metadata) (any, error) {
		return reply, nil
	}
}
