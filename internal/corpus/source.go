// Package corpus adapts the member message store: it loads snapshots from a
// source, caches them with a TTL and answers substring searches.
package corpus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"auroraqa/internal/domain"
)

// Source loads a full corpus snapshot.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]domain.Message, error)
}

type pageBody struct {
	Total *int             `json:"total"`
	Items []domain.Message `json:"items"`
}

// decodeMessages accepts either {"total": N, "items": [...]} or a bare array.
// total is -1 when absent.
func decodeMessages(data []byte) ([]domain.Message, int, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []domain.Message
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, -1, fmt.Errorf("decode message list: %w", err)
		}
		return items, -1, nil
	}

	var body pageBody
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, -1, fmt.Errorf("decode message page: %w", err)
	}
	total := -1
	if body.Total != nil {
		total = *body.Total
	}
	return body.Items, total, nil
}
