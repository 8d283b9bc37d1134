package analysis

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxEntityExtension = 2

// Entities finds capitalised runs that look like names or places.
//
// Scanning resumes at the token after each seed rather than after the whole
// run, so a three-word name also yields its two-word tail as an entity.
func (a *Analyzer) Entities(question string) []string {
	words := strings.Fields(question)
	entities := []string{}

	for i, word := range words {
		clean := lettersOnly(word)
		if !a.isEntitySeed(clean) {
			continue
		}

		parts := []string{clean}
		for j := i + 1; j < len(words) && j <= i+maxEntityExtension; j++ {
			next := lettersOnly(words[j])
			if !a.isEntityExtension(next) {
				break
			}
			parts = append(parts, next)
		}

		entity := strings.Join(parts, " ")
		if !slices.Contains(entities, entity) {
			entities = append(entities, entity)
		}
	}
	return entities
}

func (a *Analyzer) isEntitySeed(w string) bool {
	return utf8.RuneCountInString(w) > 2 &&
		startsUpper(w) &&
		!a.vocab.IsStopWord(strings.ToLower(w)) &&
		!isDigits(w)
}

func (a *Analyzer) isEntityExtension(w string) bool {
	return utf8.RuneCountInString(w) > 1 &&
		startsUpper(w) &&
		!a.vocab.IsStopWord(strings.ToLower(w))
}

func startsUpper(w string) bool {
	r, _ := utf8.DecodeRuneInString(w)
	return r != utf8.RuneError && unicode.IsUpper(r)
}

func lettersOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return -1
	}, s)
}

func alnumOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
