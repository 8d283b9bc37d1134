// Package analysis turns a raw question into a typed QuestionAnalysis:
// question type, candidate entities, keywords and indicator tokens.
package analysis

import (
	"log/slog"
	"strings"

	"auroraqa/internal/domain"
	"auroraqa/internal/vocab"
)

// Analyzer runs the rule-based question analysis. It is safe for concurrent use.
type Analyzer struct {
	vocab  *vocab.Vocabulary
	logger *slog.Logger
}

func New(v *vocab.Vocabulary, logger *slog.Logger) *Analyzer {
	if v == nil {
		v = vocab.Default()
	}
	return &Analyzer{vocab: v, logger: logger.With("component", "analysis")}
}

// Analyze classifies the question and extracts every signal the retriever
// and answer extractor need.
func (a *Analyzer) Analyze(question string) domain.QuestionAnalysis {
	lower := strings.ToLower(strings.TrimSpace(question))

	qType, confidence := a.Classify(question)
	entities := a.Entities(question)
	keywords := a.Keywords(lower)

	analysis := domain.QuestionAnalysis{
		Question:           question,
		QuestionType:       qType,
		TargetEntities:     entities,
		Keywords:           keywords,
		TemporalIndicators: a.TemporalIndicators(lower),
		QuantityIndicators: a.QuantityIndicators(lower),
		LocationIndicators: a.LocationIndicators(lower),
		Intent:             a.Intent(qType, keywords),
		Confidence:         confidence,
	}

	a.logger.Debug("question analyzed",
		"type", qType.String(),
		"entities", entities,
		"keywords", len(keywords),
		"intent", analysis.Intent,
	)
	return analysis
}
