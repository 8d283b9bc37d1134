package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"auroraqa/internal/analysis"
	"auroraqa/internal/domain"
	"auroraqa/internal/extract"
	"auroraqa/internal/retrieval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type memCorpus struct {
	messages []domain.Message
	err      error
}

func (c *memCorpus) FetchAll(context.Context, bool) ([]domain.Message, error) { return c.messages, c.err }

func (c *memCorpus) Search(_ context.Context, term string, max int) ([]domain.Message, error) {
	if c.err != nil {
		return nil, c.err
	}
	term = strings.ToLower(term)
	var out []domain.Message
	for _, m := range c.messages {
		if strings.Contains(strings.ToLower(m.UserName), term) || strings.Contains(strings.ToLower(m.Message), term) {
			out = append(out, m)
			if len(out) == max {
				break
			}
		}
	}
	return out, nil
}

type memQALog struct {
	mu   sync.Mutex
	recs []domain.QARecord
}

func (l *memQALog) LogAnswer(_ context.Context, rec domain.QARecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recs = append(l.recs, rec)
	return nil
}

func (l *memQALog) QAStats(context.Context) (domain.QAStats, error) { return domain.QAStats{}, nil }

type countingRecorder struct {
	answered []string
	failed   []string
}

func (r *countingRecorder) ObserveAnswer(t string, _ int, _ time.Duration) { r.answered = append(r.answered, t) }
func (r *countingRecorder) AnswerFailed(reason string)                    { r.failed = append(r.failed, reason) }

type panickingExtractor struct{}

func (panickingExtractor) Extract(domain.QuestionAnalysis, []domain.ScoredMessage) string {
	panic("index out of range")
}

func newTestPipeline(corpus domain.MessageCorpus, opts Options) *Pipeline {
	logger := testLogger()
	return New(
		analysis.New(nil, logger),
		retrieval.New(corpus, retrieval.DefaultConfig(), logger),
		extract.New(nil, logger),
		opts,
		logger,
	)
}

func TestAnswerQuestion_WhenScenario(t *testing.T) {
	corpus := &memCorpus{messages: []domain.Message{
		{ID: "1", UserName: "Sophia Al-Farsi", Message: "Please book a private jet to Paris for this Friday."},
		{ID: "2", UserName: "Layla", Message: "Spa day next week"},
	}}
	p := newTestPipeline(corpus, Options{})

	got, err := p.AnswerQuestion(context.Background(), "When is Sophia going to Paris?")
	require.NoError(t, err)

	assert.Equal(t, domain.QuestionWhen, got.QuestionType)
	assert.Equal(t, 0.8, got.Confidence)
	assert.Contains(t, got.TargetEntities, "Sophia")
	assert.Contains(t, got.Answer, "this Friday")
	assert.Contains(t, got.Answer, "Sophia Al-Farsi")
	assert.Equal(t, 1, got.MessagesSearched)
	assert.Equal(t, "temporal_information", got.DebugInfo.Intent)
	assert.GreaterOrEqual(t, got.DebugInfo.ProcessingTimeMs, 0.0)
}

func TestAnswerQuestion_HowManyScenario(t *testing.T) {
	corpus := &memCorpus{messages: []domain.Message{
		{ID: "1", UserName: "Fatima", Message: "I need a table for four people tonight."},
	}}
	p := newTestPipeline(corpus, Options{})

	got, err := p.AnswerQuestion(context.Background(), "How many people does Fatima need dinner for?")
	require.NoError(t, err)

	assert.Equal(t, domain.QuestionHowMany, got.QuestionType)
	assert.Equal(t, []string{"Fatima"}, got.TargetEntities)
	assert.Contains(t, got.Answer, "4 people")
	assert.True(t, strings.HasPrefix(got.Answer, "Fatima"), got.Answer)
}

func TestAnswerQuestion_NothingFound(t *testing.T) {
	p := newTestPipeline(&memCorpus{}, Options{})

	got, err := p.AnswerQuestion(context.Background(), "When is Sophia going to Paris?")
	require.NoError(t, err)

	assert.Equal(t, "I couldn't find any information about Sophia, Paris in the member messages database.", got.Answer)
	assert.Equal(t, 0, got.MessagesSearched)
}

func TestAnswerQuestion_GeneralScenario(t *testing.T) {
	corpus := &memCorpus{messages: []domain.Message{
		{ID: "1", UserName: "Kai", Message: "Dinner at eight"},
		{ID: "2", UserName: "Hans", Message: "Chartering private jets for the summer"},
	}}
	p := newTestPipeline(corpus, Options{})

	got, err := p.AnswerQuestion(context.Background(), "Tell me about jets")
	require.NoError(t, err)

	assert.Equal(t, domain.QuestionGeneral, got.QuestionType)
	assert.Equal(t, 0.5, got.Confidence)
	assert.Equal(t, `Based on Hans's message: "Chartering private jets for the summer"`, got.Answer)
}

func TestAnswerQuestion_LowercaseQuestionUsesKeywords(t *testing.T) {
	corpus := &memCorpus{messages: []domain.Message{
		{ID: "1", UserName: "Vikram", Message: "Need two cars at the airport"},
	}}
	p := newTestPipeline(corpus, Options{})

	got, err := p.AnswerQuestion(context.Background(), "how many cars at the airport?")
	require.NoError(t, err)

	assert.Empty(t, got.TargetEntities)
	assert.Equal(t, 1, got.MessagesSearched)
	assert.Contains(t, got.Answer, "Vikram mentioned 2 cars.")
}

func TestAnswerQuestion_ExtractionPanicFallsBack(t *testing.T) {
	logger := testLogger()
	corpus := &memCorpus{messages: []domain.Message{{ID: "1", UserName: "Kai", Message: "Opera on Friday"}}}
	rec := &countingRecorder{}
	p := New(analysis.New(nil, logger), retrieval.New(corpus, retrieval.DefaultConfig(), logger),
		panickingExtractor{}, Options{Metrics: rec}, logger)

	got, err := p.AnswerQuestion(context.Background(), "When is Kai at the opera?")
	require.NoError(t, err)
	assert.Equal(t, `Based on Kai's message: "Opera on Friday"`, got.Answer)
	assert.Equal(t, []string{"extraction"}, rec.failed)
	assert.Equal(t, []string{"when"}, rec.answered)
}

func TestAnswerQuestion_UpstreamUnavailable(t *testing.T) {
	log := &memQALog{}
	rec := &countingRecorder{}
	corpus := &memCorpus{err: fmt.Errorf("load corpus: %w", domain.ErrUpstreamUnavailable)}
	p := newTestPipeline(corpus, Options{QALog: log, Metrics: rec})

	_, err := p.AnswerQuestion(WithChannel(context.Background(), "api"), "When is Sophia going to Paris?")
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, []string{"upstream"}, rec.failed)

	require.Len(t, log.recs, 1)
	assert.False(t, log.recs[0].Success)
	assert.Equal(t, "api", log.recs[0].Channel)
	assert.Equal(t, "When is Sophia going to Paris?", log.recs[0].Question)
}

func TestAnswerQuestion_GenericSearchErrorStillAnswers(t *testing.T) {
	corpus := &memCorpus{err: errors.New("index corrupted")}
	p := newTestPipeline(corpus, Options{})

	got, err := p.AnswerQuestion(context.Background(), "Who booked a private jet?")
	require.NoError(t, err)
	assert.Contains(t, got.Answer, "couldn't find any information")
}

func TestAnswerQuestion_RecordsQALog(t *testing.T) {
	log := &memQALog{}
	corpus := &memCorpus{messages: []domain.Message{{ID: "1", UserName: "Vikram", Message: "Booked the jet"}}}
	p := newTestPipeline(corpus, Options{QALog: log})

	_, err := p.AnswerQuestion(WithChannel(context.Background(), "telegram"), "Who booked the jet?")
	require.NoError(t, err)

	require.Len(t, log.recs, 1)
	r := log.recs[0]
	assert.True(t, r.Success)
	assert.Equal(t, "who", r.QuestionType)
	assert.Equal(t, "telegram", r.Channel)
	assert.Equal(t, 1, r.MessagesSearched)
	assert.Contains(t, r.Answer, "Vikram")
}

func TestChannelFrom_Default(t *testing.T) {
	assert.Equal(t, "unknown", ChannelFrom(context.Background()))
}

func TestValidateQuestion(t *testing.T) {
	q, err := ValidateQuestion("   When is Sophia going?  ")
	require.NoError(t, err)
	assert.Equal(t, "When is Sophia going?", q)

	_, err = ValidateQuestion("   ")
	assert.ErrorIs(t, err, domain.ErrEmptyQuestion)

	_, err = ValidateQuestion("Why")
	assert.ErrorIs(t, err, domain.ErrQuestionTooShort)

	_, err = ValidateQuestion(strings.Repeat("é", 501))
	assert.ErrorIs(t, err, domain.ErrQuestionTooLong)

	_, err = ValidateQuestion(strings.Repeat("é", 500))
	assert.NoError(t, err)
}
