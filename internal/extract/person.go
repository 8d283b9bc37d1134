package extract

import (
	"fmt"
	"slices"
	"strings"

	"auroraqa/internal/domain"
)

// person names the distinct senders among the top messages.
func (e *Extractor) person(top []domain.ScoredMessage) (string, bool) {
	var senders []string
	for _, m := range top {
		if m.UserName != "" && !slices.Contains(senders, m.UserName) {
			senders = append(senders, m.UserName)
		}
	}

	best := top[0]
	excerpt := truncate(best.Body(), excerptLen)
	switch len(senders) {
	case 0:
		return "", false
	case 1:
		return fmt.Sprintf("%s (based on their message: \"%s...\")", senders[0], excerpt), true
	default:
		return fmt.Sprintf("Multiple people mentioned: %s. Most relevant: %s (message: \"%s...\")",
			strings.Join(senders, ", "), best.UserName, excerpt), true
	}
}
