package corpus

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
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

func noBackoff(int) time.Duration { return 0 }

// pagedServer serves all in pages using limit/offset.
func pagedServer(t *testing.T, all []domain.Message, hook func(offset int) int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if hook != nil {
			if status := hook(offset); status != http.StatusOK {
				w.WriteHeader(status)
				return
			}
		}
		end := min(offset+limit, len(all))
		page := []domain.Message{}
		if offset < len(all) {
			page = all[offset:end]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"total": len(all), "items": page})
	}))
}

func newTestHTTPSource(url string, retries int) *HTTPSource {
	return NewHTTPSource(HTTPConfig{
		BaseURL:    url,
		PageSize:   2,
		MaxRetries: retries,
		Backoff:    noBackoff,
	}, testLogger())
}

func TestHTTPSource_Paginates(t *testing.T) {
	all := msgs("1", "2", "3", "4", "5")
	srv := pagedServer(t, all, nil)
	defer srv.Close()

	got, err := newTestHTTPSource(srv.URL, 3).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, all, got)
}

func TestHTTPSource_ExactMultipleOfPageSize(t *testing.T) {
	all := msgs("1", "2", "3", "4")
	srv := pagedServer(t, all, nil)
	defer srv.Close()

	got, err := newTestHTTPSource(srv.URL, 3).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, all, got)
}

func TestHTTPSource_BareList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") != "0" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[{"id":"1","user_name":"Kai","message":"hi"},{"id":"2","user_name":"Mia","message":"yo"}]`))
	}))
	defer srv.Close()

	got, err := newTestHTTPSource(srv.URL, 3).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Kai", got[0].UserName)
}

func TestHTTPSource_RetriesServerErrors(t *testing.T) {
	var failures atomic.Int32
	all := msgs("1", "2", "3")
	srv := pagedServer(t, all, func(offset int) int {
		if offset == 2 && failures.Add(1) <= 2 {
			return http.StatusServiceUnavailable
		}
		return http.StatusOK
	})
	defer srv.Close()

	got, err := newTestHTTPSource(srv.URL, 3).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, all, got)
	assert.Equal(t, int32(3), failures.Load())
}

func TestHTTPSource_RateLimitedMidwayReturnsPartial(t *testing.T) {
	srv := pagedServer(t, msgs("1", "2", "3", "4", "5"), func(offset int) int {
		if offset >= 2 {
			return http.StatusTooManyRequests
		}
		return http.StatusOK
	})
	defer srv.Close()

	got, err := newTestHTTPSource(srv.URL, 3).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, msgs("1", "2"), got)
}

func TestHTTPSource_Forbidden(t *testing.T) {
	srv := pagedServer(t, nil, func(int) int { return http.StatusForbidden })
	defer srv.Close()

	_, err := newTestHTTPSource(srv.URL, 3).Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestHTTPSource_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := pagedServer(t, nil, func(int) int {
		calls.Add(1)
		return http.StatusInternalServerError
	})
	defer srv.Close()

	_, err := newTestHTTPSource(srv.URL, 2).Load(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPSource_ContextCancelled(t *testing.T) {
	srv := pagedServer(t, msgs("1"), nil)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestHTTPSource(srv.URL, 3).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
