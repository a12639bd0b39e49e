package driven

import (
	"context"

	"github.com/finsync-labs/finsync-server/internal/core/domain"
)

// SearchEngine provides keyword search over fragment text.
// Backed by bleve. The engine holds its index in memory and is rebuilt
// from the durable fragment corpus on startup.
type SearchEngine interface {
	// Index adds a fragment to the search index.
	Index(ctx context.Context, fragment domain.Fragment) error

	// Search returns the top matching fragment IDs with scores,
	// highest first. An empty corpus yields an empty result.
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)

	// Count returns the number of indexed fragments.
	Count() int

	// Close releases resources.
	Close() error
}

// SearchHit represents a search result from the engine.
type SearchHit struct {
	// FragmentID is the matched fragment.
	FragmentID string

	// Score is the relevance score (term-overlap based).
	Score float64
}
