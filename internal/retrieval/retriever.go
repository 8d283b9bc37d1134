// Package retrieval gathers and ranks the corpus messages relevant to an
// analysed question.
package retrieval

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"

	"auroraqa/internal/domain"
)

type Config struct {
	EntityLimit  int // max messages per entity search
	KeywordLimit int // max messages per keyword search
	KeywordTerms int // how many keywords to search when no entity matched
	MaxEvidence  int
}

func DefaultConfig() Config {
	return Config{
		EntityLimit:  20,
		KeywordLimit: 15,
		KeywordTerms: 3,
		MaxEvidence:  25,
	}
}

// Retriever searches the corpus for entities, falling back to keywords, and
// returns deduplicated evidence ranked by match score.
type Retriever struct {
	corpus domain.MessageCorpus
	cfg    Config
	logger *slog.Logger
}

func New(corpus domain.MessageCorpus, cfg Config, logger *slog.Logger) *Retriever {
	def := DefaultConfig()
	if cfg.EntityLimit <= 0 {
		cfg.EntityLimit = def.EntityLimit
	}
	if cfg.KeywordLimit <= 0 {
		cfg.KeywordLimit = def.KeywordLimit
	}
	if cfg.KeywordTerms <= 0 {
		cfg.KeywordTerms = def.KeywordTerms
	}
	if cfg.MaxEvidence <= 0 {
		cfg.MaxEvidence = def.MaxEvidence
	}
	return &Retriever{corpus: corpus, cfg: cfg, logger: logger.With("component", "retrieval")}
}

// Retrieve returns ranked evidence for the analysis. Search failures degrade
// to empty evidence; only an unreachable corpus or a cancelled context is
// returned as an error.
func (r *Retriever) Retrieve(ctx context.Context, analysis domain.QuestionAnalysis) ([]domain.ScoredMessage, error) {
	candidates, err := r.collect(ctx, analysis)
	if err != nil {
		if errors.Is(err, domain.ErrUpstreamUnavailable) || ctx.Err() != nil {
			return nil, err
		}
		r.logger.Error("evidence retrieval failed", "err", err)
		return []domain.ScoredMessage{}, nil
	}

	ranked := rank(candidates, r.cfg.MaxEvidence)
	r.logger.Debug("evidence ranked", "candidates", len(candidates), "unique", len(ranked))
	return ranked, nil
}

func (r *Retriever) collect(ctx context.Context, analysis domain.QuestionAnalysis) ([]domain.ScoredMessage, error) {
	var candidates []domain.ScoredMessage

	for _, entity := range analysis.TargetEntities {
		msgs, err := r.corpus.Search(ctx, entity, r.cfg.EntityLimit)
		if err != nil {
			return nil, err
		}
		for _, m := range msgs {
			candidates = append(candidates, domain.ScoredMessage{
				Message:       m,
				EntityScore:   EntityScore(m, entity),
				MatchedEntity: entity,
			})
		}
	}

	if len(candidates) > 0 || len(analysis.Keywords) == 0 {
		return candidates, nil
	}

	r.logger.Debug("no entity matches, searching keywords")
	keywords := analysis.Keywords[:min(r.cfg.KeywordTerms, len(analysis.Keywords))]
	for _, kw := range keywords {
		msgs, err := r.corpus.Search(ctx, kw, r.cfg.KeywordLimit)
		if err != nil {
			return nil, err
		}
		for _, m := range msgs {
			candidates = append(candidates, domain.ScoredMessage{
				Message:        m,
				KeywordScore:   KeywordScore(m, kw),
				MatchedKeyword: kw,
			})
		}
	}
	return candidates, nil
}

// rank keeps the best-scoring occurrence of each message id, at the position
// of its first occurrence, then stable-sorts descending and truncates.
func rank(candidates []domain.ScoredMessage, limit int) []domain.ScoredMessage {
	unique := make([]domain.ScoredMessage, 0, len(candidates))
	index := make(map[string]int, len(candidates))

	for _, c := range candidates {
		i, seen := index[c.ID]
		if !seen {
			index[c.ID] = len(unique)
			unique = append(unique, c)
			continue
		}
		if c.Score() > unique[i].Score() {
			unique[i] = c
		}
	}

	slices.SortStableFunc(unique, func(a, b domain.ScoredMessage) int {
		return cmp.Compare(b.Score(), a.Score())
	})

	if len(unique) > limit {
		unique = unique[:limit]
	}
	return unique
}
