package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"auroraqa/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	mu    sync.Mutex
	msgs  []domain.Message
	err   error
	loads atomic.Int32
	gate  chan struct{}
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Load(context.Context) ([]domain.Message, error) {
	s.loads.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.msgs, s.err
}

func (s *stubSource) set(msgs []domain.Message, err error) {
	s.mu.Lock()
	s.msgs, s.err = msgs, err
	s.mu.Unlock()
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type recordingObserver struct{ results []error }

func (o *recordingObserver) CorpusFetched(_ string, _ int, err error) {
	o.results = append(o.results, err)
}

func TestCache_IsValid(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, Cache{}.IsValid(now))

	c := NewCache(msgs("1"), now, 5*time.Minute)
	assert.True(t, c.IsValid(now))
	assert.True(t, c.IsValid(now.Add(299*time.Second)))
	assert.False(t, c.IsValid(now.Add(5*time.Minute)))
	assert.Equal(t, time.Minute, c.Age(now.Add(time.Minute)))
}

func TestCorpus_CachesWithinTTL(t *testing.T) {
	src := &stubSource{msgs: msgs("1", "2")}
	clock := &fakeClock{now: time.Now()}
	c := New(src, Config{TTL: time.Minute, Now: clock.Now}, testLogger())

	for range 3 {
		got, err := c.FetchAll(context.Background(), false)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	}
	assert.Equal(t, int32(1), src.loads.Load())

	clock.now = clock.now.Add(time.Minute)
	_, err := c.FetchAll(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.loads.Load())
}

func TestCorpus_ForceRefresh(t *testing.T) {
	src := &stubSource{msgs: msgs("1")}
	c := New(src, Config{TTL: time.Hour}, testLogger())

	_, err := c.FetchAll(context.Background(), false)
	require.NoError(t, err)

	src.set(msgs("1", "2"), nil)
	got, err := c.FetchAll(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int32(2), src.loads.Load())
}

func TestCorpus_ExpiredCacheNotServedOnFailure(t *testing.T) {
	src := &stubSource{msgs: msgs("1")}
	clock := &fakeClock{now: time.Now()}
	obs := &recordingObserver{}
	c := New(src, Config{TTL: time.Minute, Now: clock.Now, Observer: obs}, testLogger())

	_, err := c.FetchAll(context.Background(), false)
	require.NoError(t, err)

	src.set(nil, errors.New("dial tcp: connection refused"))
	clock.now = clock.now.Add(2 * time.Minute)

	_, err = c.FetchAll(context.Background(), false)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.ErrorContains(t, err, "connection refused")

	_, err = c.Search(context.Background(), "user", 10)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)

	require.Len(t, obs.results, 3)
	assert.NoError(t, obs.results[0])
	assert.Error(t, obs.results[1])
}

func TestCorpus_Invalidate(t *testing.T) {
	src := &stubSource{msgs: msgs("1")}
	c := New(src, Config{TTL: time.Hour}, testLogger())

	_, _ = c.FetchAll(context.Background(), false)
	c.Invalidate()
	assert.False(t, c.Snapshot().IsValid(time.Now()))

	_, _ = c.FetchAll(context.Background(), false)
	assert.Equal(t, int32(2), src.loads.Load())
}

func TestCorpus_ConcurrentMissesShareOneLoad(t *testing.T) {
	src := &stubSource{msgs: msgs("1"), gate: make(chan struct{})}
	c := New(src, Config{TTL: time.Hour}, testLogger())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.FetchAll(context.Background(), false)
			assert.NoError(t, err)
			assert.Len(t, got, 1)
		}()
	}

	require.Eventually(t, func() bool { return src.loads.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	assert.Equal(t, int32(1), src.loads.Load())
}

func TestCorpus_Search(t *testing.T) {
	src := &stubSource{msgs: []domain.Message{
		{ID: "1", UserName: "Sophia Al-Farsi", Message: "Book a jet to Paris"},
		{ID: "2", UserName: "Layla", Message: "I miss SOPHIA"},
		{ID: "3", UserName: "Kai", Message: "Nothing relevant"},
		{ID: "4", UserName: "sophia b", Message: "hello"},
	}}
	c := New(src, Config{}, testLogger())

	got, err := c.Search(context.Background(), "Sophia", 20)
	require.NoError(t, err)
	ids := []string{}
	for _, m := range got {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"1", "2", "4"}, ids)

	got, err = c.Search(context.Background(), "sophia", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = c.Search(context.Background(), "zebra", 20)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCorpus_Stats(t *testing.T) {
	src := &stubSource{msgs: []domain.Message{
		{ID: "1", UserName: "Kai", Timestamp: "2025-03-01T10:00:00Z"},
		{ID: "2", UserName: "Mia", Timestamp: "2024-12-24T08:30:00.123456+00:00"},
		{ID: "3", UserName: "Kai", Timestamp: "not a date"},
	}}
	c := New(src, Config{}, testLogger())

	st, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stub", st.Source)
	assert.Equal(t, 3, st.TotalMessages)
	assert.Equal(t, 2, st.UniqueSenders)
	assert.Equal(t, []string{"Kai", "Mia"}, st.Senders)
	assert.Equal(t, "2024-12-24T08:30:00Z", st.Earliest)
	assert.Equal(t, "2025-03-01T10:00:00Z", st.Latest)
}

func TestFileSource_Load(t *testing.T) {
	dir := t.TempDir()

	paged := filepath.Join(dir, "paged.json")
	require.NoError(t, os.WriteFile(paged, []byte(`{"total":1,"items":[{"id":"1","user_name":"Kai","message":"hi"}]}`), 0o644))
	got, err := NewFileSource(paged, testLogger()).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Message{{ID: "1", UserName: "Kai", Message: "hi"}}, got)

	bare := filepath.Join(dir, "bare.json")
	require.NoError(t, os.WriteFile(bare, []byte(` [{"id":"2","user_name":"Mia","message":"yo"}]`), 0o644))
	got, err = NewFileSource(bare, testLogger()).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Mia", got[0].UserName)

	_, err = NewFileSource(filepath.Join(dir, "missing.json"), testLogger()).Load(context.Background())
	assert.Error(t, err)
}

func TestFileSource_WatchInvalidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))

	src := NewFileSource(path, testLogger())
	var changes atomic.Int32

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, src.Watch(ctx, func() { changes.Add(1) }))

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.json"), []byte(`[]`), 0o644))
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"1"}]`), 0o644))

	require.Eventually(t, func() bool { return changes.Load() > 0 }, 2*time.Second, 10*time.Millisecond)
}
