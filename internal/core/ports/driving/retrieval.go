package driving

import (
	"context"

	"github.com/finsync-labs/finsync-server/internal/core/domain"
)

// RetrievedFragment is one fused search result.
type RetrievedFragment struct {
	// Fragment is the matched fragment.
	Fragment domain.Fragment

	// Score is the fused relevance score.
	Score float64

	// Sources lists the index kinds that surfaced this fragment
	// ("semantic", "lexical").
	Sources []string
}

// RetrievalService performs hybrid search over indexed fragments.
type RetrievalService interface {
	// Retrieve returns up to k fragments ranked by weighted
	// reciprocal-rank fusion of the semantic and lexical indexes.
	// Empty indexes yield an empty result, never an error.
	Retrieve(ctx context.Context, query string, k int) ([]RetrievedFragment, error)
}
