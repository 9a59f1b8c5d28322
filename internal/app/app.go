// Package app wires a complete download run: discovery, manifest, worker pool
// and progress reporting.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/vaultdl/internal/clock/system"
	"github.com/JakeFAU/vaultdl/internal/config"
	"github.com/JakeFAU/vaultdl/internal/discovery"
	"github.com/JakeFAU/vaultdl/internal/dispatcher"
	"github.com/JakeFAU/vaultdl/internal/errlog"
	collyfetcher "github.com/JakeFAU/vaultdl/internal/fetcher/colly"
	"github.com/JakeFAU/vaultdl/internal/fetcher/stream"
	"github.com/JakeFAU/vaultdl/internal/filter"
	idgen "github.com/JakeFAU/vaultdl/internal/id/uuid"
	"github.com/JakeFAU/vaultdl/internal/manifest"
	"github.com/JakeFAU/vaultdl/internal/progress"
	"github.com/JakeFAU/vaultdl/internal/progress/sinks"
	"github.com/JakeFAU/vaultdl/internal/queue/memory"
	"github.com/JakeFAU/vaultdl/internal/storage/local"
	"github.com/JakeFAU/vaultdl/internal/vault"
	"github.com/JakeFAU/vaultdl/internal/worker"
)

const closeTimeout = 10 * time.Second

// Params describes one invocation. Fetchers, clock and registry are optional
// and default to the production implementations.
type Params struct {
	PageURL     string
	Destination string
	Config      config.Config
	Logger      *zap.Logger
	// ProgressOut receives the progress bar; nil disables it.
	ProgressOut io.Writer

	Documents vault.DocumentFetcher
	Streams   vault.StreamFetcher
	Clock     vault.Clock
	Registry  *prometheus.Registry
}

// Result reports what a completed run did.
type Result struct {
	RunID        uuid.UUID
	Site         vault.SiteInfo
	Summary      vault.Summary
	ErrorLogPath string
	// Dropped counts progress events lost to a full buffer.
	Dropped int64
}

// Run executes a download. Errors returned are fatal to the run; per-item
// failures are only counted in the summary.
func Run(ctx context.Context, p Params) (Result, error) {
	cfg := p.Config
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := p.Clock
	if clock == nil {
		clock = system.New()
	}

	runID, err := idgen.New().NewRunID()
	if err != nil {
		return Result{}, err
	}
	logger = logger.With(zap.Stringer("run_id", runID))
	result := Result{RunID: runID, ErrorLogPath: cfg.Download.ErrorLog}

	docs := p.Documents
	if docs == nil {
		docs = collyfetcher.New(collyfetcher.Config{
			UserAgent:   cfg.HTTP.UserAgent,
			Timeout:     cfg.RequestTimeout(),
			MaxBodySize: cfg.HTTP.MaxPageBytes,
		})
	}
	streams := p.Streams
	if streams == nil {
		streams = stream.New(stream.Config{
			UserAgent: cfg.HTTP.UserAgent,
			Timeout:   cfg.DownloadTimeout(),
			Transport: collyfetcher.NewHTTPTransport(),
		})
	}

	site, err := discovery.New(docs, logger.Named("discovery")).Discover(ctx, p.PageURL)
	if err != nil {
		return result, err
	}
	result.Site = site

	keys, err := manifest.New(docs, cfg.Download.Scheme, logger.Named("manifest")).Fetch(ctx, site)
	if err != nil {
		return result, err
	}
	logger.Info("manifest loaded",
		zap.String("host", site.Host),
		zap.Int("entries", len(keys)),
		zap.Int("threads", cfg.Download.Threads),
	)

	// Nothing touches the filesystem until the manifest is known good.
	errLog, err := errlog.Open(cfg.Download.ErrorLog)
	if err != nil {
		return result, err
	}
	defer func() {
		if cerr := errLog.Close(); cerr != nil {
			logger.Warn("close error log", zap.Error(cerr))
		}
	}()

	store, err := local.New(local.Config{BaseDir: p.Destination, ChunkSize: cfg.Download.ChunkSize})
	if err != nil {
		return result, fmt.Errorf("prepare destination %s: %w: %w", p.Destination, vault.ErrIO, err)
	}

	reg := p.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	promSink, err := sinks.NewPrometheusSink(reg)
	if err != nil {
		return result, err
	}
	progressSinks := []progress.Sink{sinks.NewLogSink(logger.Named("progress")), promSink}
	if p.ProgressOut != nil {
		progressSinks = append(progressSinks, sinks.NewBarSink(p.ProgressOut, "Downloading"))
	}
	hub := progress.NewHub(progress.Config{Logger: logger.Named("progress")}, progressSinks...)

	queue := memory.NewQueue(cfg.Download.Threads * 2)
	flt := filter.New(cfg.Filter)
	workerCfg := worker.Config{
		Endpoints: vault.Endpoints{Scheme: cfg.Download.Scheme, Site: site},
		Sanitizer: cfg.Sanitizer(),
	}
	runners := make([]dispatcher.Runner, 0, cfg.Download.Threads)
	for i := 0; i < cfg.Download.Threads; i++ {
		runners = append(runners, worker.New(
			queue,
			streams,
			store,
			flt,
			errLog,
			clock,
			workerCfg,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}

	result.Summary = dispatcher.New(queue, runners, hub, runID, clock, logger.Named("dispatcher")).Run(ctx, keys)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	if err := hub.Close(closeCtx); err != nil {
		logger.Warn("progress hub close", zap.Error(err))
	}
	result.Dropped = hub.Dropped()

	if path := cfg.Metrics.Textfile; path != "" {
		if err := prometheus.WriteToTextfile(path, reg); err != nil {
			logger.Warn("write metrics textfile", zap.String("path", path), zap.Error(err))
		}
	}

	if ctx.Err() != nil {
		logger.Warn("run interrupted", zap.Int("remaining", result.Summary.Remaining), zap.Error(ctx.Err()))
	}
	return result, nil
}
