package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/datallboy/godl/internal/engine"
	"github.com/datallboy/godl/internal/infra/config"
	"github.com/datallboy/godl/internal/infra/logger"
	"github.com/datallboy/godl/internal/transport"
)

func newSizeCmd(root *rootOptions, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "size URL",
		Short: "print the content length of a remote resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.setup()
			if err != nil {
				return err
			}
			defer log.Close()

			o, err := startProbe(cfg, log)
			if err != nil {
				return err
			}
			defer o.Stop()

			size, status, err := o.FetchSize(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get file size failure: %w", err)
			}
			fmt.Fprintf(out, "%d (status %d)\n", size, status)
			return nil
		},
	}
}

func newFetchCmd(root *rootOptions, out io.Writer) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "stream a remote resource to stdout or a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.setup()
			if err != nil {
				return err
			}
			defer log.Close()

			o, err := startProbe(cfg, log)
			if err != nil {
				return err
			}
			defer o.Stop()

			w := out
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			if _, err := o.FetchBody(cmd.Context(), args[0], w); err != nil {
				return fmt.Errorf("get data failure: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the body to this file instead of stdout")
	return cmd
}

// startProbe runs an orchestrator without workers; the synchronous calls
// only need the transport.
func startProbe(cfg *config.Config, log *logger.Logger) (*engine.Orchestrator, error) {
	o := engine.New(transport.NewHTTP(cfg.Transport, log.With("transport")), nil, log.With("engine"), engine.Options{
		DigestMaxBytes: cfg.Transport.DigestMaxBytes,
	})
	if err := o.Start(0); err != nil {
		return nil, err
	}
	return o, nil
}
