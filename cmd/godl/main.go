package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/datallboy/godl/internal/infra/config"
	"github.com/datallboy/godl/internal/infra/logger"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stdin).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer, in io.Reader) *cobra.Command {
	o := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "godl",
		Short:        "concurrent download orchestrator",
		SilenceUsage: true,
	}
	cmd.SetOut(out)

	cmd.PersistentFlags().StringVarP(&o.configPath, "config", "c", config.DefaultPath, "path to the YAML config file")
	cmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCmd(o),
		newRunCmd(o, out, in),
		newSizeCmd(o, out),
		newFetchCmd(o, out),
	)

	return cmd
}

// setup loads the config and opens the log file it names.
func (o *rootOptions) setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config error: %w", err)
	}

	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	level := logger.ParseLevel(cfg.Log.Level)

	if cfg.Log.Path == "" {
		return cfg, logger.NewWithWriter(os.Stderr, level, false), nil
	}

	log, err := logger.New(cfg.Log.Path, level, cfg.Log.IncludeStdout)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log %s: %w", cfg.Log.Path, err)
	}
	return cfg, log, nil
}
