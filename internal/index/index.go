package index

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"caseassist/internal/domain"
)

// Flat is a brute-force cosine-similarity index. Vectors are stored
// L2-normalized so scoring reduces to a dot product. Build constructs a
// complete replacement snapshot before swapping it in, so concurrent
// queries observe either the old or the new contents, never a mix.
type Flat struct {
	mu   sync.RWMutex
	snap *flatSnapshot
}

type flatSnapshot struct {
	dimension  int
	ids        []string
	vectors    [][]float64
	timestamps []time.Time
}

// NewFlat creates an empty flat index. Query fails with ErrEmptyIndex
// until Build has populated it.
func NewFlat() *Flat { return &Flat{} }

// Build replaces the index contents with the given records' embeddings.
func (f *Flat) Build(records []domain.CaseRecord) error {
	if len(records) == 0 {
		return fmt.Errorf("%w: no records to build from", domain.ErrInvalidArgument)
	}
	dim := len(records[0].Embedding)
	snap := &flatSnapshot{
		dimension:  dim,
		ids:        make([]string, len(records)),
		vectors:    make([][]float64, len(records)),
		timestamps: make([]time.Time, len(records)),
	}
	for i, rec := range records {
		if len(rec.Embedding) != dim {
			return fmt.Errorf("%w: record %s has dimension %d, expected %d",
				domain.ErrDimensionMismatch, rec.ID, len(rec.Embedding), dim)
		}
		snap.ids[i] = rec.ID
		snap.vectors[i] = rec.Embedding
		snap.timestamps[i] = rec.Timestamp
	}
	f.mu.Lock()
	f.snap = snap
	f.mu.Unlock()
	return nil
}

// Query returns the k nearest records by cosine similarity, descending.
// Ties are broken by most-recent timestamp first, then by id ascending,
// so results are deterministic. Fewer than k records returns all of them.
func (f *Flat) Query(vector []float64, k int) ([]domain.Hit, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be >= 1, got %d", domain.ErrInvalidArgument, k)
	}
	f.mu.RLock()
	snap := f.snap
	f.mu.RUnlock()
	if snap == nil || len(snap.ids) == 0 {
		return nil, domain.ErrEmptyIndex
	}
	if len(vector) != snap.dimension {
		return nil, fmt.Errorf("%w: query vector has dimension %d, index expects %d",
			domain.ErrInvalidArgument, len(vector), snap.dimension)
	}
	scores := make([]float64, len(snap.vectors))
	for i, v := range snap.vectors {
		scores[i] = dot(v, vector)
	}
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		i, j := order[a], order[b]
		if scores[i] != scores[j] {
			return scores[i] > scores[j]
		}
		if !snap.timestamps[i].Equal(snap.timestamps[j]) {
			return snap.timestamps[i].After(snap.timestamps[j])
		}
		return snap.ids[i] < snap.ids[j]
	})
	if k > len(order) {
		k = len(order)
	}
	hits := make([]domain.Hit, 0, k)
	for _, i := range order[:k] {
		hits = append(hits, domain.Hit{ID: snap.ids[i], Score: scores[i]})
	}
	return hits, nil
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
