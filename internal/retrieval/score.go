package retrieval

import (
	"strings"

	"auroraqa/internal/domain"
)

// EntityScore rates how well a message matches an entity: sender name
// equality or containment, plus per-part bonuses for name and body hits.
func EntityScore(m domain.Message, entity string) float64 {
	entity = strings.ToLower(entity)
	name := strings.ToLower(m.UserName)
	body := strings.ToLower(m.Message)

	var score float64
	if entity == name {
		score += 2.0
	} else if strings.Contains(name, entity) {
		score += 1.5
	}

	for _, part := range strings.Fields(entity) {
		if strings.Contains(name, part) {
			score += 0.8
		}
		if strings.Contains(body, part) {
			score += 0.3
		}
	}
	return score
}

// KeywordScore counts keyword occurrences in the body, with a bonus when the
// keyword stands alone between spaces.
func KeywordScore(m domain.Message, keyword string) float64 {
	keyword = strings.ToLower(keyword)
	body := strings.ToLower(m.Message)

	score := 0.5 * float64(strings.Count(body, keyword))
	if strings.Contains(" "+body+" ", " "+keyword+" ") {
		score += 0.3
	}
	return score
}
