package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/websearch/indexd/internal/index"
)

func TestCandidatesScansDistanceArrays(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), 2.0, "%coffee%", "example.com").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "url", "title", "description", "dense_distances", "sparse_distances", "keyword_match",
		}).
			AddRow(int64(1), "https://example.com/a", "A", "desc", []float64{0.2, 0.7}, []float64{0.4}, true).
			AddRow(int64(2), "https://example.com/b", "B", "", []float64{}, []float64{}, true))

	store := NewSearchStore(mock, 128)
	candidates, err := store.Candidates(context.Background(), index.CandidateQuery{
		Query:       "coffee",
		Dense:       []float32{1, 0},
		Sparse:      index.SparseVector{3: 1},
		MaxDistance: 2.0,
		Site:        "Example.com",
	})
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	require.Equal(t, []float64{0.2, 0.7}, candidates[0].DenseDistances)
	require.True(t, candidates[0].KeywordMatch)
	require.Empty(t, candidates[1].DenseDistances)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCandidatesNoSiteFilter(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), 1.5, "%tea%", "").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "url", "title", "description", "dense_distances", "sparse_distances", "keyword_match",
		}))

	store := NewSearchStore(mock, 128)
	candidates, err := store.Candidates(context.Background(), index.CandidateQuery{
		Query:       "tea",
		Dense:       []float32{1},
		Sparse:      index.SparseVector{},
		MaxDistance: 1.5,
	})
	require.NoError(t, err)
	require.Empty(t, candidates)
	require.NoError(t, mock.ExpectationsWereMet())
}
