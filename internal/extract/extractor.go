// Package extract turns ranked evidence into a literal answer string using
// one strategy per question type.
package extract

import (
	"fmt"
	"log/slog"
	"strings"

	"auroraqa/internal/domain"
	"auroraqa/internal/vocab"
)

const (
	scanDepth      = 3 // messages inspected by most strategies
	whoScanDepth   = 5
	excerptLen     = 100
	fallbackLen    = 150
	notFoundTopic  = "this topic"
	notFoundFormat = "I couldn't find any information about %s in the member messages database."
)

// Extractor picks an answer out of ranked evidence. It holds no per-request
// state and is safe for concurrent use.
type Extractor struct {
	vocab  *vocab.Vocabulary
	logger *slog.Logger
}

func New(v *vocab.Vocabulary, logger *slog.Logger) *Extractor {
	if v == nil {
		v = vocab.Default()
	}
	return &Extractor{vocab: v, logger: logger.With("component", "extract")}
}

// Extract answers the analysed question from evidence. Every path returns a
// string: no evidence gives a not-found message, and a strategy that finds
// nothing falls back to a prefix of the top message.
func (e *Extractor) Extract(analysis domain.QuestionAnalysis, evidence []domain.ScoredMessage) string {
	if len(evidence) == 0 {
		return NotFound(analysis.TargetEntities)
	}

	if answer, ok := e.byType(analysis, evidence); ok {
		return answer
	}

	e.logger.Debug("no strategy match, using fallback", "type", analysis.QuestionType.String())
	return Fallback(evidence[0])
}

func (e *Extractor) byType(analysis domain.QuestionAnalysis, evidence []domain.ScoredMessage) (string, bool) {
	top := head(evidence, scanDepth)

	switch analysis.QuestionType {
	case domain.QuestionHowMany:
		return e.quantity(top)
	case domain.QuestionWhere:
		return e.location(top)
	case domain.QuestionWhen:
		return e.temporal(top)
	case domain.QuestionWho:
		return e.person(head(evidence, whoScanDepth))
	case domain.QuestionWhat:
		if e.asksForVenue(analysis.Keywords) {
			return e.venue(top)
		}
		return Contextual(evidence[0]), true
	case domain.QuestionWhy, domain.QuestionHow, domain.QuestionGeneral:
		return Contextual(evidence[0]), true
	default:
		return Contextual(evidence[0]), true
	}
}

// NotFound is the answer when no evidence was retrieved.
func NotFound(entities []string) string {
	topic := notFoundTopic
	if len(entities) > 0 {
		topic = strings.Join(entities, ", ")
	}
	return fmt.Sprintf(notFoundFormat, topic)
}

// Contextual quotes the top message in full.
func Contextual(top domain.ScoredMessage) string {
	return fmt.Sprintf("Based on %s's message: \"%s\"", top.UserName, top.Body())
}

// Fallback quotes a prefix of the top message.
func Fallback(top domain.ScoredMessage) string {
	return fmt.Sprintf("Based on %s's message: \"%s...\"", top.UserName, truncate(top.Body(), fallbackLen))
}

// mentioned formats a literal finding attributed to the message sender.
func mentioned(m domain.ScoredMessage, finding string) string {
	return fmt.Sprintf("%s mentioned \"%s\". (From: \"%s...\")", m.UserName, finding, truncate(m.Body(), excerptLen))
}

func head(evidence []domain.ScoredMessage, n int) []domain.ScoredMessage {
	return evidence[:min(n, len(evidence))]
}
