package corpus

import (
	"time"

	"auroraqa/internal/domain"
)

// Cache is an immutable corpus snapshot with the time it was fetched.
type Cache struct {
	entries   []domain.Message
	fetchedAt time.Time
	ttl       time.Duration
}

func NewCache(entries []domain.Message, fetchedAt time.Time, ttl time.Duration) Cache {
	return Cache{entries: entries, fetchedAt: fetchedAt, ttl: ttl}
}

// IsValid reports whether the snapshot may still be served at now.
func (c Cache) IsValid(now time.Time) bool {
	if c.fetchedAt.IsZero() {
		return false
	}
	return now.Sub(c.fetchedAt) < c.ttl
}

func (c Cache) Entries() []domain.Message { return c.entries }

func (c Cache) FetchedAt() time.Time { return c.fetchedAt }

// Age is zero for a cache that was never filled.
func (c Cache) Age(now time.Time) time.Duration {
	if c.fetchedAt.IsZero() {
		return 0
	}
	return now.Sub(c.fetchedAt)
}
