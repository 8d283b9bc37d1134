package pipeline

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"auroraqa/internal/domain"
)

const (
	MinQuestionLen = 5
	MaxQuestionLen = 500
)

// ValidateQuestion trims the question and checks its length in runes.
func ValidateQuestion(q string) (string, error) {
	q = strings.TrimSpace(q)
	n := utf8.RuneCountInString(q)
	switch {
	case n == 0:
		return "", domain.ErrEmptyQuestion
	case n > MaxQuestionLen:
		return "", fmt.Errorf("%w: limit is %d characters", domain.ErrQuestionTooLong, MaxQuestionLen)
	case n < MinQuestionLen:
		return "", fmt.Errorf("%w: need at least %d characters", domain.ErrQuestionTooShort, MinQuestionLen)
	}
	return q, nil
}
