// Package pipeline answers a question end to end: analysis, evidence
// retrieval, answer extraction and result assembly.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"auroraqa/internal/domain"
	"auroraqa/internal/extract"
)

type QuestionAnalyzer interface {
	Analyze(question string) domain.QuestionAnalysis
}

type EvidenceRetriever interface {
	Retrieve(ctx context.Context, analysis domain.QuestionAnalysis) ([]domain.ScoredMessage, error)
}

type AnswerExtractor interface {
	Extract(analysis domain.QuestionAnalysis, evidence []domain.ScoredMessage) string
}

// Recorder receives per-question metrics.
type Recorder interface {
	ObserveAnswer(questionType string, evidence int, took time.Duration)
	AnswerFailed(reason string)
}

type Options struct {
	QALog   domain.QALog // optional
	Metrics Recorder     // optional
}

// Pipeline runs one question at a time through the analysis stages. The
// stages hold no per-request state so one Pipeline serves all callers.
type Pipeline struct {
	analyzer  QuestionAnalyzer
	retriever EvidenceRetriever
	extractor AnswerExtractor
	qalog     domain.QALog
	metrics   Recorder
	logger    *slog.Logger
	now       func() time.Time
}

func New(analyzer QuestionAnalyzer, retriever EvidenceRetriever, extractor AnswerExtractor, opts Options, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		analyzer:  analyzer,
		retriever: retriever,
		extractor: extractor,
		qalog:     opts.QALog,
		metrics:   opts.Metrics,
		logger:    logger.With("component", "pipeline"),
		now:       time.Now,
	}
}

// AnswerQuestion always produces an answer unless the corpus is unreachable
// or ctx is cancelled.
func (p *Pipeline) AnswerQuestion(ctx context.Context, question string) (*domain.AnswerResult, error) {
	start := p.now()

	analysis := p.analyzer.Analyze(question)

	evidence, err := p.retriever.Retrieve(ctx, analysis)
	if err != nil {
		p.fail(ctx, analysis, start, err)
		return nil, fmt.Errorf("retrieve evidence: %w", err)
	}

	answer := p.extract(analysis, evidence)
	took := p.now().Sub(start)

	result := &domain.AnswerResult{
		Answer:           answer,
		Confidence:       analysis.Confidence,
		MessagesSearched: len(evidence),
		QuestionType:     analysis.QuestionType,
		TargetEntities:   analysis.TargetEntities,
		DebugInfo: domain.DebugInfo{
			Keywords:           analysis.Keywords,
			Intent:             analysis.Intent,
			TemporalIndicators: analysis.TemporalIndicators,
			QuantityIndicators: analysis.QuantityIndicators,
			LocationIndicators: analysis.LocationIndicators,
			ProcessingTimeMs:   float64(took.Microseconds()) / 1000,
		},
	}

	p.logger.Info("question answered",
		"type", analysis.QuestionType.String(),
		"entities", analysis.TargetEntities,
		"evidence", len(evidence),
		"took", took,
	)
	if p.metrics != nil {
		p.metrics.ObserveAnswer(analysis.QuestionType.String(), len(evidence), took)
	}
	p.record(ctx, domain.QARecord{
		Question:         question,
		Answer:           answer,
		QuestionType:     analysis.QuestionType.String(),
		Confidence:       analysis.Confidence,
		MessagesSearched: len(evidence),
		ProcessingMs:     result.DebugInfo.ProcessingTimeMs,
		Success:          true,
	})
	return result, nil
}

// extract runs the type-specific strategy; a panic inside it falls back to
// quoting the top message.
func (p *Pipeline) extract(analysis domain.QuestionAnalysis, evidence []domain.ScoredMessage) (answer string) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("answer extraction failed, using contextual answer",
				"type", analysis.QuestionType.String(), "panic", r)
			if p.metrics != nil {
				p.metrics.AnswerFailed("extraction")
			}
			if len(evidence) == 0 {
				answer = extract.NotFound(analysis.TargetEntities)
				return
			}
			answer = extract.Contextual(evidence[0])
		}
	}()
	return p.extractor.Extract(analysis, evidence)
}

func (p *Pipeline) fail(ctx context.Context, analysis domain.QuestionAnalysis, start time.Time, err error) {
	reason := "upstream"
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		reason = "canceled"
	}
	p.logger.Error("question failed", "reason", reason, "err", err)
	if p.metrics != nil {
		p.metrics.AnswerFailed(reason)
	}
	p.record(context.WithoutCancel(ctx), domain.QARecord{
		Question:     analysis.Question,
		QuestionType: analysis.QuestionType.String(),
		Confidence:   analysis.Confidence,
		ProcessingMs: float64(p.now().Sub(start).Microseconds()) / 1000,
		Success:      false,
		Error:        err.Error(),
	})
}

func (p *Pipeline) record(ctx context.Context, rec domain.QARecord) {
	if p.qalog == nil {
		return
	}
	rec.Channel = ChannelFrom(ctx)
	if err := p.qalog.LogAnswer(ctx, rec); err != nil {
		p.logger.Warn("cannot write qa log", "err", err)
	}
}
