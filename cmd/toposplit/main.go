package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/toposplit/pkg/config"
	"github.com/ajitpratap0/toposplit/pkg/logger"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// app carries the state shared by all subcommands
type app struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "toposplit",
		Short: "toposplit - split a nationwide county TopoJSON into per-state files",
		Long: `toposplit partitions a nationwide TopoJSON topology of counties into one
self-contained topology per state.

Each state file keeps the nationwide transform, holds only the arcs its
counties use, and renumbers them densely from zero.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to a YAML config file (default: ./toposplit.yaml if present)")
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-encoding", "console", "Log encoding (console, json)")

	root.AddCommand(
		a.splitCommand(),
		a.reorderCommand(),
		a.statesCommand(),
		a.configCommand(),
		versionCommand(),
	)
	return root
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "toposplit v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// loadConfig assembles the configuration of cmd. keys maps configuration
// keys to the flags of cmd that override them.
func (a *app) loadConfig(cmd *cobra.Command, keys map[string]string) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	loader := config.NewLoader()
	bound := map[string]string{
		"logging.level":    "log-level",
		"logging.encoding": "log-encoding",
	}
	for k, v := range keys {
		bound[k] = v
	}
	if err := loader.BindFlags(cmd.Flags(), bound); err != nil {
		return nil, err
	}
	return loader.Load(a.configPath)
}

// newLogger installs the global logger described by cfg and returns it
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Encoding:    cfg.Logging.Encoding,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, err
	}
	return logger.Get(), nil
}

func printf(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}
