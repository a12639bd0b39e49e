package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/finsync-labs/finsync-server/internal/core/domain"
	"github.com/finsync-labs/finsync-server/internal/core/ports/driven"
	"github.com/finsync-labs/finsync-server/internal/core/ports/driving"
	"github.com/finsync-labs/finsync-server/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// Fusion defaults.
const (
	// DefaultRRFK is the reciprocal-rank smoothing constant. It damps
	// the gap between rank 1 and rank 2 contributions.
	DefaultRRFK = 60

	// DefaultSemanticWeight and DefaultLexicalWeight are the source
	// weights; they must sum to 1.0.
	DefaultSemanticWeight = 0.5
	DefaultLexicalWeight  = 0.5
)

// Source kind labels attached to fused results.
const (
	sourceSemantic = "semantic"
	sourceLexical  = "lexical"
)

// FusionConfig tunes the reciprocal-rank fusion.
type FusionConfig struct {
	// SemanticWeight and LexicalWeight must sum to 1.0.
	SemanticWeight float64
	LexicalWeight  float64

	// RRFK is the rank smoothing constant.
	RRFK int
}

// Validate checks weight and constant sanity.
func (c FusionConfig) Validate() error {
	sum := c.SemanticWeight + c.LexicalWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("%w: fusion weights must sum to 1.0, got %.3f", domain.ErrInvalidInput, sum)
	}
	if c.RRFK <= 0 {
		return fmt.Errorf("%w: rrf constant must be positive", domain.ErrInvalidInput)
	}
	return nil
}

// DefaultFusionConfig returns the standard 0.5/0.5 weighting with K=60.
func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		SemanticWeight: DefaultSemanticWeight,
		LexicalWeight:  DefaultLexicalWeight,
		RRFK:           DefaultRRFK,
	}
}

// rankedRef is an intermediate per-source result before hydration.
type rankedRef struct {
	fragmentID string
	score      float64
	sources    []string
}

// RetrievalService fuses the semantic and lexical indexes into one
// ranked result list.
type RetrievalService struct {
	docStore driven.DocumentStore
	engine   driven.SearchEngine
	vectors  driven.VectorIndex
	embedder driven.EmbeddingService
	cfg      FusionConfig
}

// NewRetrievalService creates the hybrid retrieval service.
func NewRetrievalService(
	docStore driven.DocumentStore,
	engine driven.SearchEngine,
	vectors driven.VectorIndex,
	embedder driven.EmbeddingService,
	cfg FusionConfig,
) *RetrievalService {
	return &RetrievalService{
		docStore: docStore,
		engine:   engine,
		vectors:  vectors,
		embedder: embedder,
		cfg:      cfg,
	}
}

// Retrieve runs both index lookups and fuses their rankings with
// weighted reciprocal-rank fusion. A source that returns nothing simply
// contributes nothing; both sources empty yields an empty result.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, k int) ([]driving.RetrievedFragment, error) {
	logger.Section("Hybrid Retrieval")
	query = strings.TrimSpace(query)
	if query == "" || k <= 0 {
		return []driving.RetrievedFragment{}, nil
	}

	var semanticIDs, lexicalIDs []string
	var semanticErr, lexicalErr error

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		semanticIDs, semanticErr = s.semanticLookup(ctx, query, k)
	}()

	go func() {
		defer wg.Done()
		lexicalIDs, lexicalErr = s.lexicalLookup(ctx, query, k)
	}()

	wg.Wait()

	if semanticErr != nil && lexicalErr != nil {
		return nil, fmt.Errorf("retrieve: semantic=%w, lexical=%w", semanticErr, lexicalErr)
	}
	if semanticErr != nil {
		logger.Warn("Semantic lookup failed, using lexical ranking only: %v", semanticErr)
		semanticIDs = nil
	}
	if lexicalErr != nil {
		logger.Warn("Lexical lookup failed, using semantic ranking only: %v", lexicalErr)
		lexicalIDs = nil
	}

	logger.Debug("Fusing %d semantic + %d lexical results", len(semanticIDs), len(lexicalIDs))
	fused := fuse(semanticIDs, lexicalIDs, s.cfg)
	if len(fused) > k {
		fused = fused[:k]
	}

	return s.hydrate(ctx, fused)
}

// semanticLookup embeds the query and searches the vector index.
func (s *RetrievalService) semanticLookup(ctx context.Context, query string, k int) ([]string, error) {
	if s.vectors == nil || s.embedder == nil {
		return nil, nil
	}
	if s.vectors.Count() == 0 {
		return nil, nil
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.vectors.Search(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	ids := make([]string, len(hits))
	for i, hit := range hits {
		ids[i] = hit.FragmentID
	}
	return ids, nil
}

// lexicalLookup runs the keyword search.
func (s *RetrievalService) lexicalLookup(ctx context.Context, query string, k int) ([]string, error) {
	if s.engine == nil {
		return nil, nil
	}

	hits, err := s.engine.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	ids := make([]string, len(hits))
	for i, hit := range hits {
		ids[i] = hit.FragmentID
	}
	return ids, nil
}

// fuse merges the two rankings with weighted reciprocal-rank fusion.
// A fragment at 1-based rank r in a source list contributes
// weight/(rrfK + r); contributions sum across lists, so a fragment in
// both lists outranks one in a single list at comparable positions.
// When one list is empty the output degrades to the other list's
// ranking unchanged, each score keeping its configured weight. Ties
// keep the order in which a fragment was first observed.
func fuse(semanticIDs, lexicalIDs []string, cfg FusionConfig) []rankedRef {
	type accum struct {
		score   float64
		sources []string
	}
	scores := make(map[string]*accum)
	var observed []string

	accumulate := func(ids []string, weight float64, source string) {
		for i, id := range ids {
			a, ok := scores[id]
			if !ok {
				a = &accum{}
				scores[id] = a
				observed = append(observed, id)
			}
			a.score += weight / float64(cfg.RRFK+i+1)
			a.sources = append(a.sources, source)
		}
	}

	accumulate(semanticIDs, cfg.SemanticWeight, sourceSemantic)
	accumulate(lexicalIDs, cfg.LexicalWeight, sourceLexical)

	results := make([]rankedRef, 0, len(observed))
	for _, id := range observed {
		a := scores[id]
		sort.Strings(a.sources)
		results = append(results, rankedRef{
			fragmentID: id,
			score:      a.score,
			sources:    a.sources,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	return results
}

// hydrate resolves fragment IDs into full fragments.
func (s *RetrievalService) hydrate(ctx context.Context, refs []rankedRef) ([]driving.RetrievedFragment, error) {
	if s.docStore == nil {
		return nil, errors.New("document store unavailable")
	}

	results := make([]driving.RetrievedFragment, 0, len(refs))
	for _, ref := range refs {
		fragment, err := s.docStore.GetFragment(ctx, ref.fragmentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.Warn("Fragment %s in index but not in store, skipping", ref.fragmentID)
				continue
			}
			return nil, fmt.Errorf("hydrate fragment %s: %w", ref.fragmentID, err)
		}
		results = append(results, driving.RetrievedFragment{
			Fragment: *fragment,
			Score:    ref.score,
			Sources:  ref.sources,
		})
	}

	return results, nil
}
