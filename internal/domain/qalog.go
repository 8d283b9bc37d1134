package domain

import (
	"context"
	"time"
)

// QARecord is one answered (or failed) question as kept in the QA log.
type QARecord struct {
	ID               string    `json:"id" db:"id"`
	Question         string    `json:"question" db:"question"`
	Answer           string    `json:"answer" db:"answer"`
	QuestionType     string    `json:"question_type" db:"question_type"`
	Confidence       float64   `json:"confidence" db:"confidence"`
	MessagesSearched int       `json:"messages_searched" db:"messages_searched"`
	ProcessingMs     float64   `json:"processing_ms" db:"processing_ms"`
	Success          bool      `json:"success" db:"success"`
	Error            string    `json:"error,omitempty" db:"error"`
	Channel          string    `json:"channel" db:"channel"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// QAStats summarises the QA log.
type QAStats struct {
	Total           int            `json:"total"`
	Failures        int            `json:"failures"`
	AvgProcessingMs float64        `json:"avg_processing_ms"`
	ByType          map[string]int `json:"by_type"`
}

// QALog persists QA records.
type QALog interface {
	LogAnswer(ctx context.Context, rec QARecord) error
	QAStats(ctx context.Context) (QAStats, error)
}
