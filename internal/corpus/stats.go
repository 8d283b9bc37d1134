package corpus

import (
	"context"
	"sort"
	"time"
)

// Stats describes the current corpus snapshot.
type Stats struct {
	Source          string   `json:"source"`
	TotalMessages   int      `json:"total_messages"`
	UniqueSenders   int      `json:"unique_senders"`
	Senders         []string `json:"senders"`
	Earliest        string   `json:"earliest,omitempty"`
	Latest          string   `json:"latest,omitempty"`
	CacheAgeSeconds float64  `json:"cache_age_seconds"`
}

func (c *Corpus) Stats(ctx context.Context) (Stats, error) {
	msgs, err := c.FetchAll(ctx, false)
	if err != nil {
		return Stats{}, err
	}

	seen := make(map[string]struct{})
	var earliest, latest time.Time
	for _, m := range msgs {
		if m.UserName != "" {
			seen[m.UserName] = struct{}{}
		}
		ts, ok := parseTimestamp(m.Timestamp)
		if !ok {
			continue
		}
		if earliest.IsZero() || ts.Before(earliest) {
			earliest = ts
		}
		if latest.IsZero() || ts.After(latest) {
			latest = ts
		}
	}

	senders := make([]string, 0, len(seen))
	for s := range seen {
		senders = append(senders, s)
	}
	sort.Strings(senders)

	st := Stats{
		Source:          c.source.Name(),
		TotalMessages:   len(msgs),
		UniqueSenders:   len(senders),
		Senders:         senders,
		CacheAgeSeconds: c.Snapshot().Age(c.now()).Seconds(),
	}
	if !earliest.IsZero() {
		st.Earliest = earliest.UTC().Format(time.RFC3339)
		st.Latest = latest.UTC().Format(time.RFC3339)
	}
	return st, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
