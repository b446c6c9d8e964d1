package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/datallboy/godl/internal/app"
	"github.com/datallboy/godl/internal/delivery"
	"github.com/datallboy/godl/internal/domain"
	"github.com/datallboy/godl/internal/engine"
	"github.com/datallboy/godl/internal/infra/config"
	"github.com/datallboy/godl/internal/infra/logger"
	"github.com/datallboy/godl/internal/platform"
)

var runHelp = `
Runs the task list from the config file.

Download tasks are submitted to the worker pool and each outcome is appended
to the report (download.report_path, or stdout when unset). Fetch tasks are
run synchronously and their bodies printed. The command returns once every
accepted download has an outcome.

While running, stdin accepts:
- stop: cancel the oldest download task still outstanding
- exit: stop all workers and quit
`

type runOptions struct {
	reportPath string
	probeURL   string
}

func newRunCmd(root *rootOptions, out io.Writer, in io.Reader) *cobra.Command {
	o := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "download the configured task list",
		Long:  runHelp,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.setup()
			if err != nil {
				return err
			}
			defer log.Close()
			if o.reportPath != "" {
				cfg.Download.ReportPath = o.reportPath
			}
			return runBatch(cmd.Context(), cfg, log, out, in, o.probeURL)
		},
	}

	cmd.Flags().StringVar(&o.reportPath, "report", "", "override download.report_path")
	cmd.Flags().StringVar(&o.probeURL, "probe", "", "print the size of this URL before submitting")

	return cmd
}

func runBatch(ctx context.Context, cfg *config.Config, log *logger.Logger, out io.Writer, in io.Reader, probeURL string) error {
	if len(cfg.Tasks) == 0 && len(cfg.FetchTasks) == 0 && probeURL == "" {
		return errors.New("no tasks configured")
	}

	var report *delivery.ReportWriter
	if cfg.Download.ReportPath != "" {
		r, err := delivery.CreateReport(cfg.Download.ReportPath)
		if err != nil {
			return err
		}
		report = r
	} else {
		report = delivery.NewReportWriter(out)
	}
	defer report.Close()

	if cfg.Extraction.Enabled {
		platform.CheckExtractors(log, cfg.Extraction.NativeZip)
	}

	appCtx, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	if err := appCtx.Start(); err != nil {
		appCtx.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pending := newTracker()
	reportCh := delivery.NewChannel(delivery.Multi(
		report,
		delivery.ConsumerFunc(func(o domain.Outcome) { pending.finish(o.URL) }),
	), log)
	reportCh.Start()

	// Workers go first so no outcome lands on a closed report channel
	defer func() {
		appCtx.Close()
		reportCh.Close()
	}()

	if probeURL != "" {
		probeSize(runCtx, appCtx.Orchestrator, out, probeURL)
	}

	for _, task := range cfg.Tasks {
		req := task.Request()
		if !filepath.IsAbs(req.Destination) {
			req.Destination = filepath.Join(cfg.Download.OutDir, req.Destination)
		}
		req.Sink = reportCh

		// Tracked before Submit: the outcome may arrive before Submit returns
		pending.add(req)
		if err := appCtx.Submit(req); err != nil {
			pending.finish(req.URL)
			log.Warn("Task %s rejected: %v", req, err)
		}
	}
	pending.seal()

	for _, url := range cfg.FetchTasks {
		fetchTask(runCtx, appCtx.Orchestrator, out, url)
	}

	go readCommands(in, pending, appCtx.Orchestrator, cancel, log)

	select {
	case <-pending.done:
		log.Info("All download tasks finished")
	case <-runCtx.Done():
		log.Info("Run interrupted, stopping workers")
	}
	return nil
}

func probeSize(ctx context.Context, o *engine.Orchestrator, out io.Writer, url string) {
	size, _, err := o.FetchSize(ctx, url)
	if err != nil {
		fmt.Fprintf(out, "get file size failure: %v\n", err)
		return
	}
	fmt.Fprintf(out, "get file size success size(%d)\n", size)
}

func fetchTask(ctx context.Context, o *engine.Orchestrator, out io.Writer, url string) {
	var body bytes.Buffer
	if _, err := o.FetchBody(ctx, url, &body); err != nil {
		fmt.Fprintf(out, "request:\n\t%s\nfailure, response code:\n\t%s\n\n", url, domain.KindOf(err))
		return
	}
	fmt.Fprintf(out, "request:\n\t%s\nsuccess, response:\n\t%s\n\n", url, body.String())
}

// readCommands handles the interactive stop/exit commands until in is
// exhausted.
func readCommands(in io.Reader, pending *tracker, o *engine.Orchestrator, exit context.CancelFunc, log *logger.Logger) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "exit":
			exit()
			return
		case "stop":
			req, ok := pending.popOldest()
			if !ok {
				log.Info("Nothing left to stop")
				continue
			}
			o.Cancel(req)
		}
	}
}

// tracker counts the download tasks still waiting for an outcome. done is
// closed once the list is sealed and empty.
type tracker struct {
	mu          sync.Mutex
	outstanding []domain.DownloadRequest
	sealed      bool
	done        chan struct{}
	closed      bool
}

func newTracker() *tracker {
	return &tracker{done: make(chan struct{})}
}

func (t *tracker) add(req domain.DownloadRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outstanding = append(t.outstanding, req)
}

// finish drops the oldest outstanding task with url. Unknown urls are
// ignored; a task popped by stop may still report as stopped.
func (t *tracker) finish(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, req := range t.outstanding {
		if req.URL == url {
			t.outstanding = append(t.outstanding[:i], t.outstanding[i+1:]...)
			break
		}
	}
	t.check()
}

func (t *tracker) popOldest() (domain.DownloadRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.outstanding) == 0 {
		return domain.DownloadRequest{}, false
	}
	req := t.outstanding[0]
	t.outstanding = t.outstanding[1:]
	t.check()
	return req, true
}

func (t *tracker) seal() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sealed = true
	t.check()
}

func (t *tracker) check() {
	if t.sealed && !t.closed && len(t.outstanding) == 0 {
		t.closed = true
		close(t.done)
	}
}
