package extract

import (
	"slices"
	"strings"
	"unicode/utf8"

	"auroraqa/internal/domain"
)

const (
	venueLookBehind = 3
	venueLookAhead  = 5
	venueMaxMerge   = 3
)

// asksForVenue reports whether a what question is about a restaurant, place
// or venue.
func (e *Extractor) asksForVenue(keywords []string) bool {
	return slices.ContainsFunc(e.vocab.VenueKeywords, func(k string) bool {
		return slices.Contains(keywords, k)
	})
}

// venue pulls a capitalised place name from around a booking cue word.
func (e *Extractor) venue(top []domain.ScoredMessage) (string, bool) {
	for _, m := range top {
		words := tokenize(m.Body())
		for i, w := range words {
			if !e.hasVenueCue(w.lower) {
				continue
			}
			lo := max(0, i-venueLookBehind)
			hi := min(len(words)-1, i+venueLookAhead)
			for j := lo; j <= hi; j++ {
				if name, ok := e.venueName(words, j); ok {
					return mentioned(m, name), true
				}
			}
		}
	}
	return "", false
}

func (e *Extractor) hasVenueCue(w string) bool {
	for _, cue := range e.vocab.VenueCues {
		if strings.Contains(w, cue) {
			return true
		}
	}
	return false
}

func (e *Extractor) venueName(words []token, j int) (string, bool) {
	first := words[j]
	if !startsUpper(first.text) || e.vocab.IsVenueSkip(first.lower) {
		return "", false
	}

	parts := []string{first.text}
	for k := j + 1; k < len(words) && len(parts) <= venueMaxMerge; k++ {
		if !startsUpper(words[k].text) || e.vocab.IsVenueStop(words[k].lower) {
			break
		}
		parts = append(parts, words[k].text)
	}

	name := strings.Join(parts, " ")
	return name, utf8.RuneCountInString(name) > 2
}
