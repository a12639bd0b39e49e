// Package bleve implements keyword search over fragment text using an
// in-memory Bleve index. The index is rebuilt from the durable fragment
// store on startup.
package bleve

import (
	"context"
	"fmt"

	bleveidx "github.com/blevesearch/bleve/v2"

	"github.com/finsync-labs/finsync-server/internal/core/domain"
	"github.com/finsync-labs/finsync-server/internal/core/ports/driven"
)

var _ driven.SearchEngine = (*Engine)(nil)

// fragmentDoc is the shape indexed per fragment.
type fragmentDoc struct {
	Text string `json:"text"`
}

// Engine is a Bleve-backed keyword search engine.
type Engine struct {
	index bleveidx.Index
}

// NewEngine creates an empty in-memory keyword index.
func NewEngine() (*Engine, error) {
	mapping := bleveidx.NewIndexMapping()
	index, err := bleveidx.NewMemOnly(mapping)
	if err != nil {
		return nil, fmt.Errorf("creating keyword index: %w", err)
	}
	return &Engine{index: index}, nil
}

// Index adds a fragment to the keyword index, replacing any previous
// entry with the same fragment ID.
func (e *Engine) Index(ctx context.Context, fragment domain.Fragment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.index.Index(fragment.ID, fragmentDoc{Text: fragment.Text}); err != nil {
		return fmt.Errorf("indexing fragment %s: %w", fragment.ID, err)
	}
	return nil
}

// Search runs a match query against fragment text and returns up to
// limit hits ranked by relevance score.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]driven.SearchHit, error) {
	if limit <= 0 {
		return nil, nil
	}

	matchQuery := bleveidx.NewMatchQuery(query)
	request := bleveidx.NewSearchRequestOptions(matchQuery, limit, 0, false)

	result, err := e.index.SearchInContext(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("searching keyword index: %w", err)
	}

	hits := make([]driven.SearchHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		hits = append(hits, driven.SearchHit{
			FragmentID: hit.ID,
			Score:      hit.Score,
		})
	}
	return hits, nil
}

// Count returns the number of indexed fragments.
func (e *Engine) Count() int {
	count, err := e.index.DocCount()
	if err != nil {
		return 0
	}
	return int(count)
}

// Close releases the index.
func (e *Engine) Close() error {
	return e.index.Close()
}
