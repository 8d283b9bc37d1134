package domain

import "context"

// Message is a single member message as served by the upstream corpus.
type Message struct {
	ID        string `json:"id" db:"id"`
	UserID    string `json:"user_id" db:"user_id"`
	UserName  string `json:"user_name" db:"user_name"`
	Message   string `json:"message" db:"message"`
	Timestamp string `json:"timestamp,omitempty" db:"timestamp"`
}

// MessageCorpus is the read-only view of the member message store.
type MessageCorpus interface {
	// FetchAll returns the full snapshot in source order. force bypasses the cache.
	FetchAll(ctx context.Context, force bool) ([]Message, error)
	// Search returns up to max messages whose sender or body contains term,
	// case-insensitively, in corpus order.
	Search(ctx context.Context, term string, max int) ([]Message, error)
}

// ScoredMessage is a retrieval-pass copy of a Message with its match scores.
// It is created per request and never written back to the corpus.
type ScoredMessage struct {
	Message
	EntityScore    float64 `json:"entity_match_score,omitempty"`
	KeywordScore   float64 `json:"keyword_match_score,omitempty"`
	MatchedEntity  string  `json:"matched_entity,omitempty"`
	MatchedKeyword string  `json:"matched_keyword,omitempty"`
}

// Body is the message text. The embedded Message shadows its own Message
// field, so callers holding a ScoredMessage read the text through here.
func (m ScoredMessage) Body() string {
	return m.Message.Message
}

// Score is the ranking key: the larger of the entity and keyword scores.
func (m ScoredMessage) Score() float64 {
	return max(m.EntityScore, m.KeywordScore)
}
