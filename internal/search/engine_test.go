package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/websearch/indexd/internal/index"
)

type stubSearchStore struct {
	candidates []index.Candidate
	gotQuery   index.CandidateQuery
}

func (s *stubSearchStore) Candidates(_ context.Context, q index.CandidateQuery) ([]index.Candidate, error) {
	s.gotQuery = q
	return s.candidates, nil
}

type stubEmbedder struct{}

func (stubEmbedder) EmbedDense(_ context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, index.ErrEmptyEmbedInput
	}
	return []float32{1, 0, 0}, nil
}

func (stubEmbedder) EmbedSparse(_ context.Context, text string) (index.SparseVector, error) {
	if text == "" {
		return nil, index.ErrEmptyEmbedInput
	}
	return index.SparseVector{3: 1}, nil
}

func newEngine(store *stubSearchStore) *Engine {
	return New(store, stubEmbedder{}, Config{}, nil)
}

func TestValidateQuery(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, ValidateQuery(""), index.ErrEmptyQuery)
	require.ErrorIs(t, ValidateQuery("   "), index.ErrEmptyQuery)
	require.ErrorIs(t, ValidateQuery("drop; table"), index.ErrInvalidQuery)
	require.ErrorIs(t, ValidateQuery("query <script>"), index.ErrInvalidQuery)
	require.NoError(t, ValidateQuery("what's new, doc?"))
	require.NoError(t, ValidateQuery("go 1.22 release-notes!"))
}

func TestSearchRejectsInvalidQueries(t *testing.T) {
	t.Parallel()

	e := newEngine(&stubSearchStore{})
	_, err := e.Search(context.Background(), Request{Query: ""})
	require.ErrorIs(t, err, index.ErrEmptyQuery)

	_, err = e.Search(context.Background(), Request{Query: "%%%"})
	require.ErrorIs(t, err, index.ErrInvalidQuery)
}

func TestSearchCompositeScoreOrdering(t *testing.T) {
	t.Parallel()

	store := &stubSearchStore{candidates: []index.Candidate{
		// Vector-close on both signals, no keyword: 0.2*0.3 + 0.4*0.3 + 0.4 = 0.58
		{PageID: 1, DenseDistances: []float64{0.2, 1.5}, SparseDistances: []float64{0.4}},
		// Keyword match with middling vectors: 1.0*0.3 + 1.0*0.3 + 0 = 0.6
		{PageID: 2, DenseDistances: []float64{1.0}, SparseDistances: []float64{1.0}, KeywordMatch: true},
		// Keyword match and close vectors wins: 0.1*0.3 + 0.2*0.3 + 0 = 0.09
		{PageID: 3, DenseDistances: []float64{0.1}, SparseDistances: []float64{0.2}, KeywordMatch: true},
	}}
	e := newEngine(store)

	resp, err := e.Search(context.Background(), Request{Query: "espresso machines"})
	require.NoError(t, err)
	require.Equal(t, 3, resp.TotalHits)

	ids := []int64{resp.Results[0].PageID, resp.Results[1].PageID, resp.Results[2].PageID}
	require.Equal(t, []int64{3, 1, 2}, ids)
	require.InDelta(t, 0.09, resp.Results[0].Score, 1e-9)
	require.InDelta(t, 0.58, resp.Results[1].Score, 1e-9)
	require.InDelta(t, 0.60, resp.Results[2].Score, 1e-9)
}

func TestSearchMissingDistancesUseSentinel(t *testing.T) {
	t.Parallel()

	store := &stubSearchStore{candidates: []index.Candidate{
		// Keyword-only candidate: both vector signals charged the sentinel.
		// 2.0*0.3 + 2.0*0.3 + 0 = 1.2
		{PageID: 1, KeywordMatch: true},
		// Dense-only candidate: 0.5*0.3 + 2.0*0.3 + 0.4 = 1.15
		{PageID: 2, DenseDistances: []float64{0.5}},
	}}
	e := newEngine(store)

	resp, err := e.Search(context.Background(), Request{Query: "rare term"})
	require.NoError(t, err)
	require.Equal(t, int64(2), resp.Results[0].PageID)
	require.InDelta(t, 1.15, resp.Results[0].Score, 1e-9)
	require.InDelta(t, 1.2, resp.Results[1].Score, 1e-9)
}

func TestSearchTieBreaksOnDenseDistance(t *testing.T) {
	t.Parallel()

	store := &stubSearchStore{candidates: []index.Candidate{
		{PageID: 1, DenseDistances: []float64{0.6}, SparseDistances: []float64{0.2}},
		{PageID: 2, DenseDistances: []float64{0.2}, SparseDistances: []float64{0.6}},
	}}
	e := newEngine(store)

	resp, err := e.Search(context.Background(), Request{Query: "tied"})
	require.NoError(t, err)
	require.InDelta(t, resp.Results[0].Score, resp.Results[1].Score, 1e-9)
	require.Equal(t, int64(2), resp.Results[0].PageID)
}

func TestSearchPagination(t *testing.T) {
	t.Parallel()

	candidates := make([]index.Candidate, 0, 7)
	for i := 1; i <= 7; i++ {
		candidates = append(candidates, index.Candidate{
			PageID:         int64(i),
			DenseDistances: []float64{float64(i) * 0.1},
			SparseDistances: []float64{float64(i) * 0.1},
		})
	}
	e := newEngine(&stubSearchStore{candidates: candidates})

	resp, err := e.Search(context.Background(), Request{Query: "paged", PageSize: 3, Page: 2})
	require.NoError(t, err)
	require.Equal(t, 7, resp.TotalHits)
	require.Equal(t, 3, resp.TotalPages)
	require.Equal(t, 2, resp.Page)
	require.Len(t, resp.Results, 3)
	require.Equal(t, int64(4), resp.Results[0].PageID)

	// Past the last page: empty results, same totals.
	resp, err = e.Search(context.Background(), Request{Query: "paged", PageSize: 3, Page: 5})
	require.NoError(t, err)
	require.Empty(t, resp.Results)
	require.Equal(t, 7, resp.TotalHits)
}

func TestSearchDefaultsAndSiteFilterPassthrough(t *testing.T) {
	t.Parallel()

	store := &stubSearchStore{}
	e := newEngine(store)

	resp, err := e.Search(context.Background(), Request{Query: "anything", Site: "Example.COM"})
	require.NoError(t, err)
	require.Equal(t, 25, resp.PageSize)
	require.Equal(t, 1, resp.Page)
	require.Equal(t, "Example.COM", store.gotQuery.Site)
	require.Equal(t, 2.0, store.gotQuery.MaxDistance)
	require.NotEmpty(t, store.gotQuery.Dense)
	require.NotEmpty(t, store.gotQuery.Sparse)
}

func TestSearchCustomWeights(t *testing.T) {
	t.Parallel()

	store := &stubSearchStore{candidates: []index.Candidate{
		{PageID: 1, DenseDistances: []float64{1.0}, SparseDistances: []float64{1.0}, KeywordMatch: false},
	}}
	e := New(store, stubEmbedder{}, Config{
		Weights: Weights{Dense: 0.3, Sparse: 0.4, Keyword: 0.3},
	}, nil)

	resp, err := e.Search(context.Background(), Request{Query: "weighted"})
	require.NoError(t, err)
	require.InDelta(t, 1.0, resp.Results[0].Score, 1e-9)
}
