package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"

	"auroraqa/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeCorpus does a case-insensitive substring search over a fixed slice and
// records every search term.
type fakeCorpus struct {
	messages []domain.Message
	err      error
	searches []string
}

func (f *fakeCorpus) FetchAll(context.Context, bool) ([]domain.Message, error) {
	return f.messages, f.err
}

func (f *fakeCorpus) Search(_ context.Context, term string, max int) ([]domain.Message, error) {
	f.searches = append(f.searches, term)
	if f.err != nil {
		return nil, f.err
	}
	term = strings.ToLower(term)
	var out []domain.Message
	for _, m := range f.messages {
		if strings.Contains(strings.ToLower(m.UserName), term) || strings.Contains(strings.ToLower(m.Message), term) {
			out = append(out, m)
			if len(out) == max {
				break
			}
		}
	}
	return out, nil
}

func TestEntityScore(t *testing.T) {
	m := domain.Message{UserName: "Sophia Al-Farsi", Message: "Please book a private jet to Paris for this Friday."}

	assert.InDelta(t, 2.3, EntityScore(m, "Sophia"), 1e-9)
	assert.InDelta(t, 0.3, EntityScore(m, "Paris"), 1e-9)
	assert.InDelta(t, 3.6, EntityScore(m, "Sophia Al-Farsi"), 1e-9)
	assert.InDelta(t, 0.0, EntityScore(m, "Milan"), 1e-9)
}

func TestKeywordScore(t *testing.T) {
	assert.InDelta(t, 1.3, KeywordScore(domain.Message{Message: "Jets and more jets"}, "jets"), 1e-9)
	assert.InDelta(t, 0.5, KeywordScore(domain.Message{Message: "private jets"}, "jet"), 1e-9)
	assert.InDelta(t, 0.0, KeywordScore(domain.Message{Message: "yacht"}, "jet"), 1e-9)
}

func TestRank_DedupKeepsHigherScore(t *testing.T) {
	low := domain.ScoredMessage{Message: domain.Message{ID: "m1"}, EntityScore: 1.2, MatchedEntity: "Opera"}
	high := domain.ScoredMessage{Message: domain.Message{ID: "m1"}, EntityScore: 2.0, MatchedEntity: "Kai"}

	for _, order := range [][]domain.ScoredMessage{{low, high}, {high, low}} {
		got := rank(order, 25)
		require.Len(t, got, 1)
		assert.Equal(t, 2.0, got[0].Score())
		assert.Equal(t, "Kai", got[0].MatchedEntity)
	}
}

func TestRank_DedupComparesKeywordScores(t *testing.T) {
	a := domain.ScoredMessage{Message: domain.Message{ID: "m1"}, KeywordScore: 0.5, MatchedKeyword: "jet"}
	b := domain.ScoredMessage{Message: domain.Message{ID: "m1"}, KeywordScore: 1.3, MatchedKeyword: "jets"}

	got := rank([]domain.ScoredMessage{a, b}, 25)
	require.Len(t, got, 1)
	assert.Equal(t, "jets", got[0].MatchedKeyword)
}

func TestRank_StableDescending(t *testing.T) {
	in := []domain.ScoredMessage{
		{Message: domain.Message{ID: "b"}, EntityScore: 1.0},
		{Message: domain.Message{ID: "a"}, EntityScore: 2.0},
		{Message: domain.Message{ID: "c"}, EntityScore: 1.0},
		{Message: domain.Message{ID: "d"}, KeywordScore: 1.5},
	}
	got := rank(in, 25)

	ids := make([]string, len(got))
	for i, m := range got {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"a", "d", "b", "c"}, ids)
}

func TestRank_Truncates(t *testing.T) {
	var in []domain.ScoredMessage
	for i := range 40 {
		in = append(in, domain.ScoredMessage{Message: domain.Message{ID: fmt.Sprint(i)}, EntityScore: float64(i)})
	}
	got := rank(in, 25)
	require.Len(t, got, 25)
	assert.Equal(t, "39", got[0].ID)
}

func TestRetrieve_EntitySearch(t *testing.T) {
	corpus := &fakeCorpus{messages: []domain.Message{
		{ID: "1", UserName: "Armand Dupont", Message: "Opera tickets for Milan please"},
		{ID: "2", UserName: "Sophia Al-Farsi", Message: "Please book a private jet to Paris for this Friday."},
		{ID: "3", UserName: "Layla", Message: "Sophia recommended the spa"},
	}}
	r := New(corpus, DefaultConfig(), testLogger())

	got, err := r.Retrieve(context.Background(), domain.QuestionAnalysis{
		TargetEntities: []string{"Sophia", "Paris"},
		Keywords:       []string{"sophia", "paris"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Sophia", "Paris"}, corpus.searches)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, "Sophia", got[0].MatchedEntity)
	assert.InDelta(t, 2.3, got[0].Score(), 1e-9)
	assert.Equal(t, "3", got[1].ID)
}

func TestRetrieve_KeywordFallback(t *testing.T) {
	corpus := &fakeCorpus{messages: []domain.Message{
		{ID: "1", UserName: "Hans", Message: "Charter jets."},
		{ID: "2", UserName: "Mia", Message: "I love jets"},
	}}
	r := New(corpus, DefaultConfig(), testLogger())

	got, err := r.Retrieve(context.Background(), domain.QuestionAnalysis{
		Keywords: []string{"tell", "jets", "private", "charter"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"tell", "jets", "private"}, corpus.searches)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID, "standalone word bonus ranks Mia first")
	assert.Equal(t, "jets", got[0].MatchedKeyword)
	assert.Equal(t, "1", got[1].ID)
}

func TestRetrieve_NoKeywordSearchWhenEntitiesMatch(t *testing.T) {
	corpus := &fakeCorpus{messages: []domain.Message{{ID: "1", UserName: "Hans", Message: "hello"}}}
	r := New(corpus, DefaultConfig(), testLogger())

	_, err := r.Retrieve(context.Background(), domain.QuestionAnalysis{
		TargetEntities: []string{"Hans"},
		Keywords:       []string{"hans", "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hans"}, corpus.searches)
}

func TestRetrieve_EmptyWhenNothingMatches(t *testing.T) {
	corpus := &fakeCorpus{}
	r := New(corpus, DefaultConfig(), testLogger())

	got, err := r.Retrieve(context.Background(), domain.QuestionAnalysis{
		TargetEntities: []string{"Nobody"},
		Keywords:       []string{"nobody"},
	})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, []string{"Nobody", "nobody"}, corpus.searches)
}

func TestRetrieve_SearchErrorDegradesToEmpty(t *testing.T) {
	corpus := &fakeCorpus{err: errors.New("boom")}
	r := New(corpus, DefaultConfig(), testLogger())

	got, err := r.Retrieve(context.Background(), domain.QuestionAnalysis{TargetEntities: []string{"Hans"}})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRetrieve_UpstreamUnavailablePropagates(t *testing.T) {
	corpus := &fakeCorpus{err: fmt.Errorf("fetch messages: %w", domain.ErrUpstreamUnavailable)}
	r := New(corpus, DefaultConfig(), testLogger())

	_, err := r.Retrieve(context.Background(), domain.QuestionAnalysis{TargetEntities: []string{"Hans"}})
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestRetrieve_Idempotent(t *testing.T) {
	corpus := &fakeCorpus{messages: []domain.Message{
		{ID: "1", UserName: "Kai", Message: "Kai and Mia at the opera"},
		{ID: "2", UserName: "Mia", Message: "Dinner with Kai"},
		{ID: "3", UserName: "Kai", Message: "Tickets sorted"},
	}}
	r := New(corpus, DefaultConfig(), testLogger())
	analysis := domain.QuestionAnalysis{TargetEntities: []string{"Kai", "Mia"}}

	first, err := r.Retrieve(context.Background(), analysis)
	require.NoError(t, err)
	second, err := r.Retrieve(context.Background(), analysis)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRetrieve_DoesNotMutateCorpus(t *testing.T) {
	msgs := []domain.Message{{ID: "1", UserName: "Kai", Message: "hello"}}
	corpus := &fakeCorpus{messages: msgs}
	r := New(corpus, DefaultConfig(), testLogger())

	got, err := r.Retrieve(context.Background(), domain.QuestionAnalysis{TargetEntities: []string{"Kai"}})
	require.NoError(t, err)
	require.Len(t, got, 1)

	got[0].UserName = "changed"
	assert.Equal(t, "Kai", corpus.messages[0].UserName)
}
