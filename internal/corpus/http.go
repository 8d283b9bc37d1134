package corpus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"auroraqa/internal/domain"

	"golang.org/x/time/rate"
)

const maxPageBody = 16 << 20

type HTTPConfig struct {
	BaseURL           string
	PageSize          int
	MaxRetries        int
	Timeout           time.Duration
	RequestsPerSecond float64
	// Backoff overrides the delay before retry attempt n (1-based).
	Backoff func(attempt int) time.Duration
	Client  *http.Client
}

// HTTPSource pages through the upstream messages endpoint.
type HTTPSource struct {
	cfg     HTTPConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewHTTPSource(cfg HTTPConfig, logger *slog.Logger) *HTTPSource {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff == nil {
		cfg.Backoff = jitteredBackoff
	}
	client := cfg.Client
	if client == nil {
		client = NewHTTPClient(cfg.Timeout)
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &HTTPSource{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With("component", "corpus.http"),
	}
}

func (s *HTTPSource) Name() string { return "http" }

// Load fetches every page. Partial data is returned when the upstream stops
// cooperating midway.
func (s *HTTPSource) Load(ctx context.Context) ([]domain.Message, error) {
	state := newPageState(s.cfg.MaxRetries)

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		outcome := s.fetchPage(ctx, state.offset)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, action := advance(state, outcome, s.cfg.PageSize)
		switch action {
		case actionFetch:
			s.logger.Debug("page fetched", "offset", state.offset, "accumulated", len(next.accumulated))
		case actionRetry:
			backoff := s.cfg.Backoff(next.attempt())
			s.logger.Warn("page request failed, retrying",
				"offset", next.offset, "attempt", next.attempt(), "backoff", backoff,
				"status", outcome.status, "err", outcome.err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		case actionDone:
			if next.total >= 0 && len(next.accumulated) < next.total {
				s.logger.Warn("corpus fetch incomplete", "fetched", len(next.accumulated), "total", next.total)
			}
			return next.accumulated, nil
		case actionFail:
			return nil, next.err
		}
		state = next
	}
}

func (s *HTTPSource) fetchPage(ctx context.Context, offset int) pageOutcome {
	u, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return pageOutcome{err: fmt.Errorf("parse base url: %w", err), total: -1}
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(s.cfg.PageSize))
	q.Set("offset", strconv.Itoa(offset))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return pageOutcome{err: fmt.Errorf("build request: %w", err), total: -1}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return pageOutcome{err: err, total: -1}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPageBody))
		return pageOutcome{status: resp.StatusCode, total: -1}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBody))
	if err != nil {
		return pageOutcome{err: fmt.Errorf("read page: %w", err), total: -1}
	}
	items, total, err := decodeMessages(data)
	if err != nil {
		return pageOutcome{err: err, total: -1}
	}
	return pageOutcome{status: resp.StatusCode, items: items, total: total}
}

// jitteredBackoff waits attempt² seconds plus up to half that again.
func jitteredBackoff(attempt int) time.Duration {
	base := time.Duration(attempt*attempt) * time.Second
	return base + time.Duration(rand.Int64N(int64(base/2+1)))
}

// NewHTTPClient returns a pooled client for upstream calls.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}
