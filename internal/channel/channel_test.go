package channel

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"auroraqa/internal/corpus"
	"auroraqa/internal/domain"
	"auroraqa/internal/pipeline"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeAnswerer struct {
	mu        sync.Mutex
	questions []string
	channels  []string
	result    *domain.AnswerResult
	err       error
}

func (f *fakeAnswerer) AnswerQuestion(ctx context.Context, q string) (*domain.AnswerResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions = append(f.questions, q)
	f.channels = append(f.channels, pipeline.ChannelFrom(ctx))
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func sampleResult() *domain.AnswerResult {
	return &domain.AnswerResult{
		Answer:           `Sophia Al-Farsi mentioned "this Friday". (From: "Please book a private jet to Paris for this Friday....")`,
		Confidence:       domain.ConfidenceMatched,
		MessagesSearched: 3,
		QuestionType:     domain.QuestionWhen,
		TargetEntities:   []string{"Sophia", "Paris"},
		DebugInfo: domain.DebugInfo{
			Keywords:           []string{"sophia", "planning", "trip", "paris"},
			Intent:             "temporal_information",
			TemporalIndicators: []string{},
			QuantityIndicators: []string{},
			LocationIndicators: []string{"paris"},
			ProcessingTimeMs:   1.25,
		},
	}
}

type fakeStats struct {
	st  corpus.Stats
	err error
}

func (f fakeStats) Stats(context.Context) (corpus.Stats, error) { return f.st, f.err }

func sampleStats() corpus.Stats {
	return corpus.Stats{
		Source:        "http",
		TotalMessages: 3349,
		UniqueSenders: 10,
		Earliest:      "2024-11-14T20:09:04Z",
		Latest:        "2025-11-08T11:16:04Z",
	}
}

type fakeHistory struct {
	stats  domain.QAStats
	recent []domain.QARecord
	err    error
}

func (f fakeHistory) QAStats(context.Context) (domain.QAStats, error) { return f.stats, f.err }
func (f fakeHistory) RecentAnswers(context.Context, int) ([]domain.QARecord, error) {
	return f.recent, f.err
}

var errBoom = errors.New("boom")
