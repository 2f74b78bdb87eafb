package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseassist/internal/domain"
)

func rec(id string, ts time.Time, embedding ...float64) domain.CaseRecord {
	return domain.CaseRecord{ID: id, Embedding: embedding, Timestamp: ts}
}

var baseTime = time.Date(2024, 8, 14, 10, 0, 0, 0, time.UTC)

func TestQueryOrdersByDescendingScore(t *testing.T) {
	idx := NewFlat()
	require.NoError(t, idx.Build([]domain.CaseRecord{
		rec("far", baseTime, 0, 1),
		rec("near", baseTime, 1, 0),
		rec("mid", baseTime, 0.7071, 0.7071),
	}))

	hits, err := idx.Query([]float64{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "near", hits[0].ID)
	assert.Equal(t, "mid", hits[1].ID)
	assert.Equal(t, "far", hits[2].ID)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestQueryLimitAndNoDuplicates(t *testing.T) {
	idx := NewFlat()
	records := []domain.CaseRecord{
		rec("a", baseTime, 1, 0),
		rec("b", baseTime, 0.9, 0.1),
		rec("c", baseTime, 0.8, 0.2),
		rec("d", baseTime, 0.7, 0.3),
	}
	require.NoError(t, idx.Build(records))

	for k := 1; k <= 6; k++ {
		hits, err := idx.Query([]float64{1, 0}, k)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(hits), k)
		seen := make(map[string]struct{})
		for _, h := range hits {
			_, dup := seen[h.ID]
			assert.False(t, dup, "duplicate id %s", h.ID)
			seen[h.ID] = struct{}{}
		}
	}
}

func TestQueryTieBreaksByRecencyThenID(t *testing.T) {
	idx := NewFlat()
	require.NoError(t, idx.Build([]domain.CaseRecord{
		rec("old", baseTime.Add(-time.Hour), 1, 0),
		rec("new", baseTime, 1, 0),
		rec("b-same", baseTime, 1, 0),
	}))

	hits, err := idx.Query([]float64{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	// identical scores: most recent first, then id ascending
	assert.Equal(t, "b-same", hits[0].ID)
	assert.Equal(t, "new", hits[1].ID)
	assert.Equal(t, "old", hits[2].ID)
}

func TestQueryEmptyIndex(t *testing.T) {
	idx := NewFlat()
	_, err := idx.Query([]float64{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrEmptyIndex)
}

func TestQueryInvalidK(t *testing.T) {
	idx := NewFlat()
	require.NoError(t, idx.Build([]domain.CaseRecord{rec("a", baseTime, 1, 0)}))
	_, err := idx.Query([]float64{1, 0}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = idx.Query([]float64{1, 0}, -3)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestQueryFewerRecordsThanK(t *testing.T) {
	idx := NewFlat()
	require.NoError(t, idx.Build([]domain.CaseRecord{
		rec("a", baseTime, 1, 0),
		rec("b", baseTime, 0, 1),
	}))
	hits, err := idx.Query([]float64{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestQueryDimensionMismatch(t *testing.T) {
	idx := NewFlat()
	require.NoError(t, idx.Build([]domain.CaseRecord{rec("a", baseTime, 1, 0)}))
	_, err := idx.Query([]float64{1, 0, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestBuildRejectsMixedDimensions(t *testing.T) {
	idx := NewFlat()
	err := idx.Build([]domain.CaseRecord{
		rec("a", baseTime, 1, 0),
		rec("b", baseTime, 1, 0, 0),
	})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestBuildReplacesContents(t *testing.T) {
	idx := NewFlat()
	require.NoError(t, idx.Build([]domain.CaseRecord{rec("a", baseTime, 1, 0)}))
	require.NoError(t, idx.Build([]domain.CaseRecord{rec("b", baseTime, 1, 0)}))

	hits, err := idx.Query([]float64{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].ID)
}
