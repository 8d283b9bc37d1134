package extract

import (
	"strings"
	"unicode/utf8"

	"auroraqa/internal/domain"
)

// location looks for a capitalised word after a location preposition, then
// for any known city name. Candidate words are reduced to their letters, so
// "O'Hare" reads as "OHare".
func (e *Extractor) location(top []domain.ScoredMessage) (string, bool) {
	for _, m := range top {
		words := tokenize(m.Body())
		for i := 0; i+1 < len(words); i++ {
			if !e.vocab.IsPreposition(words[i].lower) {
				continue
			}
			next := lettersOnly(words[i+1].text)
			if startsUpper(next) &&
				utf8.RuneCountInString(next) > 2 &&
				!e.vocab.IsLocationExcluded(strings.ToLower(next)) {
				return mentioned(m, next), true
			}
		}
	}

	// Cities are tried in list order, each against every word of the message.
	for _, m := range top {
		words := tokenize(m.Body())
		for _, city := range e.vocab.KnownCities {
			city = strings.ToLower(city)
			for _, w := range words {
				if clean := lettersOnly(w.text); strings.ToLower(clean) == city {
					return mentioned(m, clean), true
				}
			}
		}
	}
	return "", false
}
