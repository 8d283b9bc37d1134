package extract

import "auroraqa/internal/domain"

// temporal returns the first weekday, with its this/next/last modifier when
// present, or the first relative day word.
func (e *Extractor) temporal(top []domain.ScoredMessage) (string, bool) {
	for _, m := range top {
		words := tokenize(m.Body())
		for i, w := range words {
			switch {
			case e.vocab.IsWeekday(w.lower):
				if i > 0 && e.vocab.IsModifier(words[i-1].lower) {
					return mentioned(m, words[i-1].text+" "+w.text), true
				}
				return mentioned(m, w.text), true
			case e.vocab.IsRelativeTime(w.lower):
				return mentioned(m, w.text), true
			}
		}
	}
	return "", false
}
