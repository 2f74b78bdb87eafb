package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"caseassist/internal/domain"
	"caseassist/internal/store"
)

// Options carries the per-engine retrieval defaults. The threshold and
// over-fetch factor are empirically chosen; callers may override them
// per query via Query.
type Options struct {
	TopK            int
	Threshold       float64
	OverFetchFactor int
	EmbedTimeout    time.Duration
	ExcerptRunes    int
}

// DefaultOptions returns the stock retrieval settings.
func DefaultOptions() Options {
	return Options{
		TopK:            5,
		Threshold:       0.7,
		OverFetchFactor: 3,
		EmbedTimeout:    10 * time.Second,
		ExcerptRunes:    240,
	}
}

// Query is one retrieval request. Zero values fall back to the engine's
// Options; OutcomeFilter nil means no outcome filtering.
type Query struct {
	Text          string
	K             int
	Threshold     *float64
	OutcomeFilter *domain.Outcome
}

// Engine turns a free-text query into a ranked list of similar
// historical cases. It owns no records: the store and index are built
// by ingestion and passed in, so independent knowledge bases can
// coexist in one process.
type Engine struct {
	embedder domain.Embedder
	store    *store.Store
	index    domain.Index
	opts     Options
}

// New assembles an engine over an already-populated store and index.
func New(embedder domain.Embedder, st *store.Store, idx domain.Index, opts Options) *Engine {
	def := DefaultOptions()
	if opts.TopK <= 0 {
		opts.TopK = def.TopK
	}
	if opts.Threshold == 0 {
		opts.Threshold = def.Threshold
	}
	if opts.OverFetchFactor <= 0 {
		opts.OverFetchFactor = def.OverFetchFactor
	}
	if opts.EmbedTimeout <= 0 {
		opts.EmbedTimeout = def.EmbedTimeout
	}
	if opts.ExcerptRunes <= 0 {
		opts.ExcerptRunes = def.ExcerptRunes
	}
	return &Engine{embedder: embedder, store: st, index: idx, opts: opts}
}

// FindSimilar embeds the query text, ranks stored cases by cosine
// similarity, and applies the threshold and optional outcome filter.
// An empty result is a valid outcome, not an error: it means no
// sufficiently similar case exists.
func (e *Engine) FindSimilar(ctx context.Context, q Query) ([]domain.CaseSummary, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("%w: query text is empty", domain.ErrInvalidArgument)
	}
	k := q.K
	if k == 0 {
		k = e.opts.TopK
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be >= 1, got %d", domain.ErrInvalidArgument, k)
	}
	if q.OutcomeFilter != nil && !q.OutcomeFilter.Valid() {
		return nil, fmt.Errorf("%w: unknown outcome %q", domain.ErrInvalidArgument, *q.OutcomeFilter)
	}
	threshold := e.opts.Threshold
	if q.Threshold != nil {
		threshold = *q.Threshold
	}

	vec, err := e.embed(ctx, q.Text)
	if err != nil {
		return nil, err
	}
	if !normalize(vec) {
		return nil, fmt.Errorf("%w: query embeds to the zero vector", domain.ErrInvalidArgument)
	}

	// Over-fetch so post-similarity filtering cannot starve the result
	// set; rank order from the unfiltered query is preserved.
	hits, err := e.index.Query(vec, k*e.opts.OverFetchFactor)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.CaseSummary, 0, k)
	for _, h := range hits {
		if h.Score < threshold {
			// hits are sorted descending, everything after is below too
			break
		}
		rec, err := e.store.Get(h.ID)
		if err != nil {
			return nil, fmt.Errorf("index returned id missing from store: %w", err)
		}
		if q.OutcomeFilter != nil && rec.Outcome != *q.OutcomeFilter {
			continue
		}
		summaries = append(summaries, domain.CaseSummary{
			ID:      rec.ID,
			Topic:   rec.Topic,
			Outcome: rec.Outcome,
			Score:   h.Score,
			Excerpt: excerpt(rec.Text, e.opts.ExcerptRunes),
		})
		if len(summaries) == k {
			break
		}
	}
	return summaries, nil
}

// embed calls the provider with the engine timeout, retrying once on a
// transient provider failure. Every other error propagates immediately.
func (e *Engine) embed(ctx context.Context, text string) ([]float64, error) {
	vec, err := e.embedOnce(ctx, text)
	if err == nil {
		return vec, nil
	}
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) || ctx.Err() != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, ctx.Err())
	case <-time.After(250 * time.Millisecond):
	}
	return e.embedOnce(ctx, text)
}

func (e *Engine) embedOnce(ctx context.Context, text string) ([]float64, error) {
	cctx, cancel := context.WithTimeout(ctx, e.opts.EmbedTimeout)
	defer cancel()
	vec, err := e.embedder.Embed(cctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: provider returned empty vector", domain.ErrEmbeddingUnavailable)
	}
	return vec, nil
}

// normalize scales vec to unit length in place. It reports false for
// the zero vector, which cannot be normalized.
func normalize(vec []float64) bool {
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return false
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return true
}

func excerpt(text string, maxRunes int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return strings.TrimSpace(string(runes[:maxRunes])) + "…"
}
