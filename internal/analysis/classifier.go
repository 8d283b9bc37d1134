package analysis

import (
	"strings"

	"auroraqa/internal/domain"
)

// Classify returns the first question type, in priority order, whose cue
// phrase occurs in the lower-cased question.
func (a *Analyzer) Classify(question string) (domain.QuestionType, float64) {
	lower := strings.ToLower(strings.TrimSpace(question))
	for _, t := range domain.ClassifiedTypes {
		for _, cue := range a.vocab.Cues(t) {
			if strings.Contains(lower, cue) {
				return t, domain.ConfidenceMatched
			}
		}
	}
	return domain.QuestionGeneral, domain.ConfidenceFallback
}

var baseIntents = map[domain.QuestionType]string{
	domain.QuestionWhen:    "temporal_information",
	domain.QuestionHowMany: "quantity_information",
	domain.QuestionWhat:    "descriptive_information",
	domain.QuestionWhere:   "location_information",
	domain.QuestionWho:     "identity_information",
	domain.QuestionWhy:     "explanatory_information",
	domain.QuestionHow:     "procedural_information",
}

// Intent derives the intent label from the question type, refined by
// preference or booking keywords.
func (a *Analyzer) Intent(t domain.QuestionType, keywords []string) string {
	base, ok := baseIntents[t]
	if !ok {
		base = "general_information"
	}
	switch {
	case containsAny(keywords, a.vocab.PreferenceWords):
		return base + "_preferences"
	case containsAny(keywords, a.vocab.BookingWords):
		return base + "_booking"
	}
	return base
}

func containsAny(haystack, needles []string) bool {
	for _, h := range haystack {
		for _, n := range needles {
			if h == n {
				return true
			}
		}
	}
	return false
}
