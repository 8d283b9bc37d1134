package refresh

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"auroraqa/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeFetcher struct {
	calls  atomic.Int32
	forced atomic.Bool
	msgs   []domain.Message
	err    error
}

func (f *fakeFetcher) FetchAll(_ context.Context, force bool) ([]domain.Message, error) {
	f.calls.Add(1)
	f.forced.Store(force)
	return f.msgs, f.err
}

type fakeStore struct {
	mu    sync.Mutex
	saved [][]domain.Message
	err   error
}

func (s *fakeStore) ReplaceMessages(_ context.Context, msgs []domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, msgs)
	return nil
}

func sampleMessages() []domain.Message {
	return []domain.Message{
		{ID: "1", UserName: "Layla Kawaguchi", Message: "Book a table for 2 at Nobu."},
		{ID: "2", UserName: "Vikram Desai", Message: "Need tickets to Lisbon."},
	}
}

func TestNew_RequiresFetcher(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestRunOnce_StoresSnapshot(t *testing.T) {
	f := &fakeFetcher{msgs: sampleMessages()}
	st := &fakeStore{}
	var after atomic.Int32

	s, err := New(Config{Fetcher: f, Store: st, AfterSync: func() { after.Add(1) }, Logger: testLogger()})
	require.NoError(t, err)

	res, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Messages)
	assert.True(t, res.Stored)
	assert.True(t, f.forced.Load(), "sync must bypass the cache")
	require.Len(t, st.saved, 1)
	assert.Len(t, st.saved[0], 2)
	assert.Equal(t, int32(1), after.Load())

	last, at, lastErr := s.Last()
	assert.Equal(t, 2, last.Messages)
	assert.False(t, at.IsZero())
	assert.NoError(t, lastErr)
}

func TestRunOnce_WithoutStore(t *testing.T) {
	s, err := New(Config{Fetcher: &fakeFetcher{msgs: sampleMessages()}, Logger: testLogger()})
	require.NoError(t, err)

	res, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Stored)
}

func TestRunOnce_FetchError(t *testing.T) {
	f := &fakeFetcher{err: domain.ErrUpstreamUnavailable}
	st := &fakeStore{}
	s, err := New(Config{Fetcher: f, Store: st, Logger: testLogger()})
	require.NoError(t, err)

	_, err = s.RunOnce(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))
	assert.Empty(t, st.saved)

	_, _, lastErr := s.Last()
	assert.Error(t, lastErr)
}

func TestRunOnce_StoreError(t *testing.T) {
	st := &fakeStore{err: errors.New("disk full")}
	var after atomic.Int32
	s, err := New(Config{
		Fetcher:   &fakeFetcher{msgs: sampleMessages()},
		Store:     st,
		AfterSync: func() { after.Add(1) },
		Logger:    testLogger(),
	})
	require.NoError(t, err)

	_, err = s.RunOnce(context.Background())
	assert.ErrorContains(t, err, "store snapshot")
	assert.Zero(t, after.Load())
}

func TestStart_RunsImmediatelyAndStops(t *testing.T) {
	f := &fakeFetcher{msgs: sampleMessages()}
	s, err := New(Config{Interval: time.Hour, Fetcher: f, Logger: testLogger()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	assert.Error(t, s.Start(ctx), "second start must fail")

	assert.Eventually(t, func() bool { return f.calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.NoError(t, s.Stop(), "stop is idempotent")
}
