package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"auroraqa/internal/domain"

	"golang.org/x/sync/singleflight"
)

// FetchObserver is notified after every upstream load.
type FetchObserver interface {
	CorpusFetched(source string, count int, err error)
}

type Config struct {
	TTL      time.Duration
	Observer FetchObserver
	// Now is the clock; tests replace it.
	Now func() time.Time
}

// Corpus serves the member messages from a TTL cache in front of a Source.
// Concurrent misses share a single load. An expired snapshot is never served,
// even when reloading it fails.
type Corpus struct {
	source   Source
	ttl      time.Duration
	observer FetchObserver
	now      func() time.Time
	logger   *slog.Logger

	mu    sync.RWMutex
	cache Cache
	group singleflight.Group
}

var _ domain.MessageCorpus = (*Corpus)(nil)

func New(source Source, cfg Config, logger *slog.Logger) *Corpus {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Corpus{
		source:   source,
		ttl:      cfg.TTL,
		observer: cfg.Observer,
		now:      cfg.Now,
		logger:   logger.With("component", "corpus"),
	}
}

// FetchAll returns the cached snapshot while it is valid, otherwise loads a
// new one. force skips the validity check.
func (c *Corpus) FetchAll(ctx context.Context, force bool) ([]domain.Message, error) {
	if !force {
		if cache := c.Snapshot(); cache.IsValid(c.now()) {
			return cache.Entries(), nil
		}
	}

	ch := c.group.DoChan("load", func() (any, error) {
		return c.load(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.Message), nil
	}
}

func (c *Corpus) load(ctx context.Context) ([]domain.Message, error) {
	start := c.now()
	msgs, err := c.source.Load(ctx)
	if c.observer != nil {
		c.observer.CorpusFetched(c.source.Name(), len(msgs), err)
	}
	if err != nil {
		c.logger.Error("corpus load failed", "source", c.source.Name(), "err", err)
		return nil, fmt.Errorf("load corpus from %s: %w: %w", c.source.Name(), domain.ErrUpstreamUnavailable, err)
	}

	c.mu.Lock()
	c.cache = NewCache(msgs, c.now(), c.ttl)
	c.mu.Unlock()

	c.logger.Info("corpus loaded", "source", c.source.Name(), "messages", len(msgs), "took", c.now().Sub(start))
	return msgs, nil
}

// Search returns up to max messages whose sender name or body contains term,
// case-insensitively, in corpus order. max <= 0 means no cap.
func (c *Corpus) Search(ctx context.Context, term string, max int) ([]domain.Message, error) {
	msgs, err := c.FetchAll(ctx, false)
	if err != nil {
		return nil, err
	}

	term = strings.ToLower(term)
	var out []domain.Message
	for _, m := range msgs {
		if !strings.Contains(strings.ToLower(m.UserName), term) &&
			!strings.Contains(strings.ToLower(m.Message), term) {
			continue
		}
		out = append(out, m)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out, nil
}

// Invalidate drops the cached snapshot so the next read reloads.
func (c *Corpus) Invalidate() {
	c.mu.Lock()
	c.cache = Cache{}
	c.mu.Unlock()
	c.logger.Debug("corpus cache invalidated")
}

func (c *Corpus) Snapshot() Cache {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache
}

func (c *Corpus) SourceName() string { return c.source.Name() }
