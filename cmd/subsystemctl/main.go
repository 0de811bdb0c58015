// Command subsystemctl builds a subsystem from a config file and drives
// it through a handful of manual operations, for smoke-testing a
// wiring without writing a Go program against the packages directly.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mycelia-dev/subsystem-kernel/logging"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	log *zap.SugaredLogger
)

var rootCmd = &cobra.Command{
	Use:   "subsystemctl",
	Short: "Build and drive a message subsystem from the command line",
	Long: "subsystemctl builds a subsystem from a config file using the canonical\n" +
		"default hooks, then lets you register routes, push messages through it,\n" +
		"and mint principals against its security registry.",
	PersistentPreRunE: bootstrap,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML/YAML/JSON config file (optional; defaults apply otherwise)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format: console or json")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(principalCmd)
}

func bootstrap(cmd *cobra.Command, args []string) error {
	built, err := logging.Build(logging.Config{Level: logLevel, Format: logFormat})
	if err != nil {
		return err
	}
	log = built
	return nil
}

func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	err := rootCmd.Execute()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return err
	}
	return nil
}

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
