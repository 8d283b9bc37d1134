// Package refresh keeps the message corpus warm by re-fetching it on a fixed
// interval and, when persistence is enabled, writing each snapshot to the
// store.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"auroraqa/internal/domain"

	"github.com/go-co-op/gocron/v2"
)

// Fetcher forces a full upstream load.
type Fetcher interface {
	FetchAll(ctx context.Context, force bool) ([]domain.Message, error)
}

// SnapshotWriter persists a full corpus snapshot.
type SnapshotWriter interface {
	ReplaceMessages(ctx context.Context, msgs []domain.Message) error
}

type Config struct {
	Interval time.Duration
	Fetcher  Fetcher
	Store    SnapshotWriter // optional
	// AfterSync runs after a successful sync, e.g. to invalidate a corpus
	// that serves from the store.
	AfterSync func()
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Result describes one sync run.
type Result struct {
	Messages int
	Stored   bool
	Took     time.Duration
}

type Syncer struct {
	interval  time.Duration
	timeout   time.Duration
	fetcher   Fetcher
	store     SnapshotWriter
	afterSync func()
	logger    *slog.Logger

	mu        sync.Mutex
	scheduler gocron.Scheduler
	last      Result
	lastErr   error
	lastRun   time.Time
}

func New(cfg Config) (*Syncer, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("refresh: fetcher is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Syncer{
		interval:  cfg.Interval,
		timeout:   cfg.Timeout,
		fetcher:   cfg.Fetcher,
		store:     cfg.Store,
		afterSync: cfg.AfterSync,
		logger:    cfg.Logger.With("component", "refresh"),
	}, nil
}

// RunOnce fetches the corpus and stores the snapshot.
func (s *Syncer) RunOnce(ctx context.Context) (Result, error) {
	start := time.Now()
	res, err := s.sync(ctx)
	res.Took = time.Since(start)

	s.mu.Lock()
	s.last, s.lastErr, s.lastRun = res, err, start
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("corpus sync failed", "err", err, "took", res.Took)
		return res, err
	}
	s.logger.Info("corpus synced", "messages", res.Messages, "stored", res.Stored, "took", res.Took)
	return res, nil
}

func (s *Syncer) sync(ctx context.Context) (Result, error) {
	msgs, err := s.fetcher.FetchAll(ctx, true)
	if err != nil {
		return Result{}, fmt.Errorf("fetch corpus: %w", err)
	}
	res := Result{Messages: len(msgs)}

	if s.store != nil {
		if err := s.store.ReplaceMessages(ctx, msgs); err != nil {
			return res, fmt.Errorf("store snapshot: %w", err)
		}
		res.Stored = true
	}
	if s.afterSync != nil {
		s.afterSync()
	}
	return res, nil
}

// Last reports the most recent run. The zero time means no run yet.
func (s *Syncer) Last() (Result, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.lastRun, s.lastErr
}

// Start schedules the sync job, running it once immediately. The job context
// is cancelled when ctx is done or Stop is called.
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduler != nil {
		return errors.New("refresh: already started")
	}

	sched, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(slogAdapter{s.logger}),
	)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	task := func() {
		runCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		s.RunOnce(runCtx)
	}

	job, err := sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(task),
		gocron.WithName("corpus-sync"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("schedule corpus sync: %w", err)
	}

	sched.Start()
	s.scheduler = sched

	attrs := []any{"interval", s.interval}
	if next, err := job.NextRun(); err == nil {
		attrs = append(attrs, "next_run", next.Format(time.RFC3339))
	}
	s.logger.Info("corpus sync scheduled", attrs...)
	return nil
}

// Stop shuts the scheduler down and waits for a running sync to finish.
func (s *Syncer) Stop() error {
	s.mu.Lock()
	sched := s.scheduler
	s.scheduler = nil
	s.mu.Unlock()

	if sched == nil {
		return nil
	}
	if err := sched.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	s.logger.Info("corpus sync stopped")
	return nil
}

// slogAdapter satisfies gocron.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }
func (a slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
