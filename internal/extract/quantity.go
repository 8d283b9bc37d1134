package extract

import (
	"fmt"
	"strconv"

	"auroraqa/internal/domain"
)

const quantityWindow = 3

// quantity finds a number with a unit word within three tokens of it. The
// window is searched nearest-first so "table for four people" pairs four with
// people.
func (e *Extractor) quantity(top []domain.ScoredMessage) (string, bool) {
	for _, m := range top {
		words := tokenize(m.Body())
		for i, w := range words {
			number, ok := e.number(w.lower)
			if !ok {
				continue
			}
			if unit, ok := e.unitNear(words, i); ok {
				return fmt.Sprintf("%s mentioned %s %s. (From: \"%s...\")",
					m.UserName, number, unit, truncate(m.Body(), excerptLen)), true
			}
		}
	}
	return "", false
}

func (e *Extractor) number(w string) (string, bool) {
	if isDigits(w) {
		return w, true
	}
	if n, ok := e.vocab.NumberValue(w); ok {
		return strconv.Itoa(n), true
	}
	return "", false
}

func (e *Extractor) unitNear(words []token, i int) (string, bool) {
	for d := 1; d <= quantityWindow; d++ {
		for _, j := range [2]int{i + d, i - d} {
			if j < 0 || j >= len(words) {
				continue
			}
			if e.vocab.IsUnit(words[j].lower) {
				return words[j].lower, true
			}
		}
	}
	return "", false
}
