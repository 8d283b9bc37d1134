package domain

import (
	"encoding/json"
	"fmt"
)

// QuestionType is the closed set of question categories the classifier emits.
type QuestionType int

const (
	QuestionGeneral QuestionType = iota
	QuestionWhen
	QuestionHowMany
	QuestionWhat
	QuestionWhere
	QuestionWho
	QuestionWhy
	QuestionHow
)

// ClassifiedTypes lists the matchable types in classification priority order.
// QuestionGeneral is the fallback and never appears here.
var ClassifiedTypes = []QuestionType{
	QuestionWhen,
	QuestionHowMany,
	QuestionWhat,
	QuestionWhere,
	QuestionWho,
	QuestionWhy,
	QuestionHow,
}

func (t QuestionType) String() string {
	switch t {
	case QuestionWhen:
		return "when"
	case QuestionHowMany:
		return "how_many"
	case QuestionWhat:
		return "what"
	case QuestionWhere:
		return "where"
	case QuestionWho:
		return "who"
	case QuestionWhy:
		return "why"
	case QuestionHow:
		return "how"
	default:
		return "general"
	}
}

// ParseQuestionType maps a tag back to its QuestionType.
func ParseQuestionType(s string) (QuestionType, error) {
	if s == "general" {
		return QuestionGeneral, nil
	}
	for _, t := range ClassifiedTypes {
		if t.String() == s {
			return t, nil
		}
	}
	return QuestionGeneral, fmt.Errorf("unknown question type %q", s)
}

func (t QuestionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *QuestionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseQuestionType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Classification confidences. No other values are ever produced.
const (
	ConfidenceMatched  = 0.8
	ConfidenceFallback = 0.5
)

// QuestionAnalysis is the typed analysis of one question.
type QuestionAnalysis struct {
	Question           string
	QuestionType       QuestionType
	TargetEntities     []string
	Keywords           []string
	TemporalIndicators []string
	QuantityIndicators []string
	LocationIndicators []string
	Intent             string
	Confidence         float64
}

// AnswerResult is the externally visible outcome of answering a question.
type AnswerResult struct {
	Answer           string       `json:"answer"`
	Confidence       float64      `json:"confidence"`
	MessagesSearched int          `json:"messages_searched"`
	QuestionType     QuestionType `json:"question_type"`
	TargetEntities   []string     `json:"target_entities"`
	DebugInfo        DebugInfo    `json:"debug_info"`
}

type DebugInfo struct {
	Keywords           []string `json:"keywords"`
	Intent             string   `json:"intent"`
	TemporalIndicators []string `json:"temporal_indicators"`
	QuantityIndicators []string `json:"quantity_indicators"`
	LocationIndicators []string `json:"location_indicators"`
	ProcessingTimeMs   float64  `json:"processing_time_ms"`
}
