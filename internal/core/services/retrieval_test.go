package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsync-labs/finsync-server/internal/adapters/driven/storage/memory"
	"github.com/finsync-labs/finsync-server/internal/core/domain"
	"github.com/finsync-labs/finsync-server/internal/core/ports/driven"
)

func newRetrievalHarness(t *testing.T) (*memory.DocumentStore, *mockEngine, *mockVectors, *RetrievalService) {
	t.Helper()
	store := memory.NewDocumentStore()
	engine := &mockEngine{}
	vectors := newMockVectors()
	svc := NewRetrievalService(store, engine, vectors, &mockEmbedder{}, DefaultFusionConfig())
	return store, engine, vectors, svc
}

func seedFragments(t *testing.T, store *memory.DocumentStore, ids ...string) {
	t.Helper()
	fragments := make([]domain.Fragment, 0, len(ids))
	for i, id := range ids {
		fragments = append(fragments, domain.Fragment{
			ID:         id,
			DocumentID: "doc-1",
			Text:       "text " + id,
			Ordinal:    i,
		})
	}
	require.NoError(t, store.SaveFragments(context.Background(), fragments))
}

func TestFusionConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultFusionConfig().Validate())
	assert.ErrorIs(t, FusionConfig{SemanticWeight: 0.7, LexicalWeight: 0.7, RRFK: 60}.Validate(), domain.ErrInvalidInput)
	assert.ErrorIs(t, FusionConfig{SemanticWeight: 0.5, LexicalWeight: 0.5, RRFK: 0}.Validate(), domain.ErrInvalidInput)
	assert.NoError(t, FusionConfig{SemanticWeight: 0.7, LexicalWeight: 0.3, RRFK: 30}.Validate())
}

func TestRetrieve_BlankQueryOrZeroK(t *testing.T) {
	_, _, _, svc := newRetrievalHarness(t)

	results, err := svc.Retrieve(context.Background(), "   ", 4)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = svc.Retrieve(context.Background(), "query", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieve_LexicalOnlyScores(t *testing.T) {
	store, engine, _, svc := newRetrievalHarness(t)
	seedFragments(t, store, "f1", "f2", "f3")

	// Vector index is empty: the lexical ranking passes through
	// unchanged, each score keeping its configured 0.5 weight.
	engine.hits = []driven.SearchHit{
		{FragmentID: "f1", Score: 3.0},
		{FragmentID: "f2", Score: 2.0},
		{FragmentID: "f3", Score: 1.0},
	}

	results, err := svc.Retrieve(context.Background(), "query", 4)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "f1", results[0].Fragment.ID)
	assert.InDelta(t, 0.5/61.0, results[0].Score, 1e-9)
	assert.InDelta(t, 0.5/62.0, results[1].Score, 1e-9)
	assert.InDelta(t, 0.5/63.0, results[2].Score, 1e-9)
	assert.Equal(t, []string{"lexical"}, results[0].Sources)
}

func TestRetrieve_BothSourcesBoostSharedFragments(t *testing.T) {
	store, engine, vectors, svc := newRetrievalHarness(t)
	seedFragments(t, store, "shared", "semantic-only", "lexical-only")

	vectors.hits = []driven.VectorHit{
		{FragmentID: "semantic-only", Similarity: 0.9},
		{FragmentID: "shared", Similarity: 0.8},
	}
	engine.hits = []driven.SearchHit{
		{FragmentID: "lexical-only", Score: 5.0},
		{FragmentID: "shared", Score: 4.0},
	}

	results, err := svc.Retrieve(context.Background(), "query", 4)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// shared sits at rank 2 in both lists: 0.5/62 + 0.5/62 beats
	// either rank-1 single-source contribution of 0.5/61.
	assert.Equal(t, "shared", results[0].Fragment.ID)
	assert.InDelta(t, 0.5/62.0+0.5/62.0, results[0].Score, 1e-9)
	assert.Equal(t, []string{"lexical", "semantic"}, results[0].Sources)
}

func TestRetrieve_TieBreakKeepsFirstObserved(t *testing.T) {
	store, engine, vectors, svc := newRetrievalHarness(t)
	seedFragments(t, store, "aaa", "bbb")

	// Equal scores: one fragment at rank 1 semantic, the other at
	// rank 1 lexical. The tie keeps first-observed order, and the
	// semantic list is consumed first.
	vectors.hits = []driven.VectorHit{{FragmentID: "bbb", Similarity: 0.9}}
	engine.hits = []driven.SearchHit{{FragmentID: "aaa", Score: 1.0}}

	results, err := svc.Retrieve(context.Background(), "query", 4)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "bbb", results[0].Fragment.ID)
	assert.Equal(t, "aaa", results[1].Fragment.ID)
	assert.Equal(t, results[0].Score, results[1].Score)
}

func TestRetrieve_RespectsK(t *testing.T) {
	store, engine, _, svc := newRetrievalHarness(t)
	seedFragments(t, store, "f1", "f2", "f3")
	engine.hits = []driven.SearchHit{
		{FragmentID: "f1", Score: 3.0},
		{FragmentID: "f2", Score: 2.0},
		{FragmentID: "f3", Score: 1.0},
	}

	results, err := svc.Retrieve(context.Background(), "query", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRetrieve_DegradesWhenOneSourceFails(t *testing.T) {
	store := memory.NewDocumentStore()
	seedFragments(t, store, "f1")

	engine := &mockEngine{hits: []driven.SearchHit{{FragmentID: "f1", Score: 1.0}}}
	vectors := newMockVectors()
	vectors.count = 1
	vectors.err = errors.New("index corrupted")

	svc := NewRetrievalService(store, engine, vectors, &mockEmbedder{}, DefaultFusionConfig())

	results, err := svc.Retrieve(context.Background(), "query", 4)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "f1", results[0].Fragment.ID)
	assert.InDelta(t, 0.5/61.0, results[0].Score, 1e-9)
}

func TestRetrieve_ErrorsWhenBothSourcesFail(t *testing.T) {
	store := memory.NewDocumentStore()
	engine := &mockEngine{err: errors.New("engine down")}
	vectors := newMockVectors()
	vectors.count = 1
	vectors.err = errors.New("vectors down")

	svc := NewRetrievalService(store, engine, vectors, &mockEmbedder{}, DefaultFusionConfig())

	_, err := svc.Retrieve(context.Background(), "query", 4)
	assert.Error(t, err)
}

func TestRetrieve_SkipsFragmentsMissingFromStore(t *testing.T) {
	store, engine, _, svc := newRetrievalHarness(t)
	seedFragments(t, store, "present")
	engine.hits = []driven.SearchHit{
		{FragmentID: "ghost", Score: 2.0},
		{FragmentID: "present", Score: 1.0},
	}

	results, err := svc.Retrieve(context.Background(), "query", 4)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "present", results[0].Fragment.ID)
}

func TestFuse_OrderIndependence(t *testing.T) {
	cfg := DefaultFusionConfig()
	semantic := []string{"a", "b", "c"}
	lexical := []string{"c", "a"}

	first := fuse(semantic, lexical, cfg)

	// Swapping the input order must not change the ranking for equal
	// weights.
	second := fuse(lexical, semantic, cfg)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].fragmentID, second[i].fragmentID)
		assert.InDelta(t, first[i].score, second[i].score, 1e-12)
	}
}

func TestFuse_WeightsShiftRanking(t *testing.T) {
	cfg := FusionConfig{SemanticWeight: 0.9, LexicalWeight: 0.1, RRFK: 60}

	// Lexical rank 1 loses to semantic rank 2 under a 0.9 semantic
	// weight: 0.9/62 > 0.1/61.
	results := fuse([]string{"s1", "s2"}, []string{"l1"}, cfg)
	require.Len(t, results, 3)
	assert.Equal(t, "s1", results[0].fragmentID)
	assert.Equal(t, "s2", results[1].fragmentID)
	assert.Equal(t, "l1", results[2].fragmentID)
}
