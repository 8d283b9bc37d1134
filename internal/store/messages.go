package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"auroraqa/internal/domain"
)

type messageRow struct {
	domain.Message
	Seq      int       `db:"seq"`
	SyncedAt time.Time `db:"synced_at"`
}

// ReplaceMessages swaps the stored snapshot for msgs in one transaction.
func (s *Store) ReplaceMessages(ctx context.Context, msgs []domain.Message) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.logger.Warn("rollback failed", "err", err)
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT OR REPLACE INTO messages (id, seq, user_id, user_name, message, timestamp, synced_at)
		VALUES (:id, :seq, :user_id, :user_name, :message, :timestamp, :synced_at)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, m := range msgs {
		if _, err := stmt.ExecContext(ctx, messageRow{Message: m, Seq: i, SyncedAt: now}); err != nil {
			return fmt.Errorf("insert message %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	s.logger.Info("corpus snapshot stored", "messages", len(msgs))
	return nil
}

// LoadMessages returns the stored snapshot in its original order.
func (s *Store) LoadMessages(ctx context.Context) ([]domain.Message, error) {
	var rows []messageRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, seq, user_id, user_name, message, timestamp, synced_at
		FROM messages ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	msgs := make([]domain.Message, len(rows))
	for i, r := range rows {
		msgs[i] = r.Message
	}
	return msgs, nil
}

func (s *Store) MessageCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM messages`); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// SnapshotSource serves the stored snapshot as a corpus source.
type SnapshotSource struct {
	store *Store
}

func (s *Store) Source() SnapshotSource { return SnapshotSource{store: s} }

func (s SnapshotSource) Name() string { return "store" }

func (s SnapshotSource) Load(ctx context.Context) ([]domain.Message, error) {
	msgs, err := s.store.LoadMessages(ctx)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, errors.New("no stored snapshot, run sync first")
	}
	return msgs, nil
}
