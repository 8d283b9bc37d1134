package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"auroraqa/internal/analysis"
	"auroraqa/internal/config"
	"auroraqa/internal/corpus"
	"auroraqa/internal/extract"
	"auroraqa/internal/metrics"
	"auroraqa/internal/pipeline"
	"auroraqa/internal/refresh"
	"auroraqa/internal/retrieval"
	"auroraqa/internal/store"
	"auroraqa/internal/vocab"
)

// app holds every long-lived component built from one config.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	store    *store.Store // nil unless store.enabled
	metrics  *metrics.Collector
	corpus   *corpus.Corpus // serves questions
	upstream *corpus.Corpus // feeds sync; same as corpus unless serving from the store
	pipeline *pipeline.Pipeline
	file     *corpus.FileSource // set when corpus.source is file
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	if err := os.MkdirAll(cfg.General.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}

	if cfg.Store.Enabled {
		st, err := store.Open(cfg.Store.DBPath, logger)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.store = st
	}

	corpusCfg := corpus.Config{TTL: cfg.Corpus.CacheTTL(), Observer: a.metrics}
	switch cfg.Corpus.Source {
	case "store":
		a.corpus = corpus.New(a.store.Source(), corpusCfg, logger)
		if up := a.upstreamSource(); up != nil {
			a.upstream = corpus.New(up, corpusCfg, logger)
		}
	case "file":
		a.file = corpus.NewFileSource(cfg.Corpus.FilePath, logger)
		a.corpus = corpus.New(a.file, corpusCfg, logger)
		a.upstream = a.corpus
	default:
		a.corpus = corpus.New(a.httpSource(), corpusCfg, logger)
		a.upstream = a.corpus
	}

	v, err := vocab.Load(cfg.Vocab.Path, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}

	opts := pipeline.Options{Metrics: a.metrics}
	if a.store != nil {
		opts.QALog = a.store
	}
	a.pipeline = pipeline.New(
		analysis.New(v, logger),
		retrieval.New(a.corpus, retrieval.DefaultConfig(), logger),
		extract.New(v, logger),
		opts,
		logger,
	)
	return a, nil
}

func (a *app) httpSource() *corpus.HTTPSource {
	c := a.cfg.Corpus
	return corpus.NewHTTPSource(corpus.HTTPConfig{
		BaseURL:           c.BaseURL,
		PageSize:          c.PageSize,
		MaxRetries:        c.MaxRetries,
		Timeout:           c.Timeout(),
		RequestsPerSecond: c.RequestsPerSecond,
	}, a.logger)
}

// upstreamSource picks where a store-backed deployment syncs from.
func (a *app) upstreamSource() corpus.Source {
	switch {
	case a.cfg.Corpus.BaseURL != "":
		return a.httpSource()
	case a.cfg.Corpus.FilePath != "":
		return corpus.NewFileSource(a.cfg.Corpus.FilePath, a.logger)
	}
	return nil
}

// syncer builds the periodic corpus sync. It returns nil when there is no
// upstream to sync from.
func (a *app) syncer() (*refresh.Syncer, error) {
	if a.upstream == nil {
		return nil, nil
	}
	cfg := refresh.Config{
		Interval: a.cfg.Refresh.IntervalDuration(),
		Fetcher:  a.upstream,
		Timeout:  a.cfg.Corpus.Timeout() * 4,
		Logger:   a.logger,
	}
	if a.store != nil {
		cfg.Store = a.store
	}
	if a.upstream != a.corpus {
		cfg.AfterSync = a.corpus.Invalidate
	}
	return refresh.New(cfg)
}

// watch invalidates the corpus when the message file changes.
func (a *app) watch(ctx context.Context) {
	if a.file == nil || !a.cfg.Corpus.WatchFile {
		return
	}
	if err := a.file.Watch(ctx, a.corpus.Invalidate); err != nil {
		a.logger.Error("cannot watch corpus file", "err", err)
	}
}

func (a *app) ping() error {
	if a.store == nil {
		return nil
	}
	return a.store.Ping()
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close store", "err", err)
		}
	}
}
