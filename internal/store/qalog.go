package store

import (
	"context"
	"fmt"
	"time"

	"auroraqa/internal/domain"

	"github.com/google/uuid"
)

var _ domain.QALog = (*Store)(nil)

func (s *Store) LogAnswer(ctx context.Context, rec domain.QARecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO qa_log (id, question, answer, question_type, confidence, messages_searched,
			processing_ms, success, error, channel, created_at)
		VALUES (:id, :question, :answer, :question_type, :confidence, :messages_searched,
			:processing_ms, :success, :error, :channel, :created_at)`, rec)
	if err != nil {
		return fmt.Errorf("log answer: %w", err)
	}
	return nil
}

// RecentAnswers returns the newest records first.
func (s *Store) RecentAnswers(ctx context.Context, limit int) ([]domain.QARecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var recs []domain.QARecord
	err := s.db.SelectContext(ctx, &recs, `
		SELECT id, question, answer, question_type, confidence, messages_searched,
			processing_ms, success, error, channel, created_at
		FROM qa_log ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent answers: %w", err)
	}
	return recs, nil
}

func (s *Store) QAStats(ctx context.Context) (domain.QAStats, error) {
	var totals struct {
		Total    int     `db:"total"`
		Failures int     `db:"failures"`
		AvgMs    float64 `db:"avg_ms"`
	}
	err := s.db.GetContext(ctx, &totals, `
		SELECT COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN success THEN 0 ELSE 1 END), 0) AS failures,
			COALESCE(AVG(processing_ms), 0) AS avg_ms
		FROM qa_log`)
	if err != nil {
		return domain.QAStats{}, fmt.Errorf("qa totals: %w", err)
	}

	var byType []struct {
		Type  string `db:"question_type"`
		Count int    `db:"n"`
	}
	err = s.db.SelectContext(ctx, &byType, `
		SELECT question_type, COUNT(*) AS n FROM qa_log
		WHERE question_type != '' GROUP BY question_type`)
	if err != nil {
		return domain.QAStats{}, fmt.Errorf("qa by type: %w", err)
	}

	stats := domain.QAStats{
		Total:           totals.Total,
		Failures:        totals.Failures,
		AvgProcessingMs: totals.AvgMs,
		ByType:          make(map[string]int, len(byType)),
	}
	for _, row := range byType {
		stats.ByType[row.Type] = row.Count
	}
	return stats, nil
}
