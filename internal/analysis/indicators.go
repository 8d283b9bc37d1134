package analysis

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxKeywords = 15

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Keywords returns the non-stopword tokens of a lower-cased question, capped
// at fifteen.
func (a *Analyzer) Keywords(lower string) []string {
	keywords := []string{}
	for _, w := range wordPattern.FindAllString(lower, -1) {
		if utf8.RuneCountInString(w) <= 2 || a.vocab.IsStopWord(w) || isDigits(w) {
			continue
		}
		keywords = append(keywords, w)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

func (a *Analyzer) TemporalIndicators(lower string) []string {
	return filterTokens(lower, lettersOnly, a.vocab.IsTemporal)
}

// QuantityIndicators keeps number words and bare digit tokens.
func (a *Analyzer) QuantityIndicators(lower string) []string {
	return filterTokens(lower, alnumOnly, func(w string) bool {
		return a.vocab.IsQuantity(w) || isDigits(w)
	})
}

func (a *Analyzer) LocationIndicators(lower string) []string {
	return filterTokens(lower, lettersOnly, a.vocab.IsLocation)
}

func filterTokens(lower string, clean func(string) string, keep func(string) bool) []string {
	out := []string{}
	for _, w := range strings.Fields(lower) {
		if c := clean(w); keep(c) {
			out = append(out, c)
		}
	}
	return out
}
