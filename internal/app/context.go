package app

import (
	"context"
	"fmt"

	"github.com/datallboy/godl/internal/delivery"
	"github.com/datallboy/godl/internal/domain"
	"github.com/datallboy/godl/internal/engine"
	"github.com/datallboy/godl/internal/extraction"
	"github.com/datallboy/godl/internal/infra/config"
	"github.com/datallboy/godl/internal/infra/logger"
	"github.com/datallboy/godl/internal/metrics"
	"github.com/datallboy/godl/internal/store"
	"github.com/datallboy/godl/internal/transport"
)

const metricsNamespace = "godl"

// Context hold the core environment and shared resources for godl.
// It acts as the "Single Source of Truth" for the application state.
type Context struct {
	Config *config.Config
	Logger *logger.Logger

	Store        store.Store
	Metrics      *metrics.Metrics
	Extractor    *extraction.Manager
	Orchestrator *engine.Orchestrator

	// Results fans every outcome out to the store, metrics and log.
	Results *delivery.Channel
}

// NewContext initializes the base environment.
func NewContext(cfg *config.Config, log *logger.Logger) *Context {
	return &Context{
		Config:  cfg,
		Logger:  log,
		Metrics: metrics.New(metricsNamespace),
	}
}

// Build wires the store, transport, extractor, orchestrator and result
// channel. Nothing is started; call Start for that.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Context, error) {
	appCtx := NewContext(cfg, log)

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	appCtx.Store = st

	var ext domain.Extractor
	if cfg.Extraction.Enabled {
		appCtx.Extractor = extraction.NewManager(cfg.Extraction, log.With("extract"))
		ext = appCtx.Extractor
	}

	tr := transport.NewHTTP(cfg.Transport, log.With("transport"))
	appCtx.Orchestrator = engine.New(tr, ext, log.With("engine"), engine.Options{
		DigestMaxBytes: cfg.Transport.DigestMaxBytes,
	})
	appCtx.Metrics.Watch(metricsNamespace, appCtx.Orchestrator)

	appCtx.Results = delivery.NewChannel(delivery.Multi(
		store.NewRecorder(st, log.With("store")),
		appCtx.Metrics,
		delivery.LogConsumer(log.With("outcome")),
	), log.With("results"))

	return appCtx, nil
}

// Start launches the result channel and the worker pool.
func (c *Context) Start() error {
	c.Results.Start()
	if err := c.Orchestrator.Start(c.Config.Download.Workers); err != nil {
		c.Results.Close()
		return err
	}
	return nil
}

// Submit routes req's outcome through the shared result channel, after any
// sink the caller already attached, and records the admission result.
func (c *Context) Submit(req domain.DownloadRequest) error {
	if req.Sink == nil {
		req.Sink = c.Results
	} else {
		own := req.Sink
		req.Sink = domain.SinkFunc(func(o domain.Outcome) {
			own.OnOutcome(o)
			c.Results.OnOutcome(o)
		})
	}

	err := c.Orchestrator.Submit(req)
	c.Metrics.RecordSubmit(err)
	return err
}

// Close stops the workers before the result channel. Outcomes still queued
// on the channel are discarded.
func (c *Context) Close() {
	if c.Orchestrator != nil {
		c.Orchestrator.Stop()
	}
	if c.Results != nil {
		c.Results.Close()
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			c.Logger.Warn("Failed to close history store: %v", err)
		}
	}
}
