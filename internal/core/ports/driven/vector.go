package driven

import "context"

// VectorIndex provides semantic similarity search operations over
// fragment embeddings. Implementations persist their state so the index
// survives process restarts (load-or-create semantics).
type VectorIndex interface {
	// Add inserts a vector for the given fragment ID and persists the
	// updated index.
	Add(ctx context.Context, fragmentID string, embedding []float32) error

	// Search finds the k nearest neighbours to the query vector,
	// most similar first. An empty index yields an empty result,
	// never an error.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Count returns the number of indexed vectors.
	Count() int

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// FragmentID is the matched fragment.
	FragmentID string

	// Similarity is the cosine similarity score (0-1).
	Similarity float64
}
