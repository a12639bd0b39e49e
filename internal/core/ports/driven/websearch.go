package driven

import (
	"context"

	"github.com/finsync-labs/finsync-server/internal/core/domain"
)

// WebSearcher performs live web search. This is an optional service -
// when nil the web_search tool reports its absence to the model.
//
// Implementations may include:
//   - Tavily (api.tavily.com)
type WebSearcher interface {
	// Search returns up to maxResults items for the query, in
	// provider ranking order.
	Search(ctx context.Context, query string, maxResults int) ([]domain.WebResult, error)

	// ProviderName is the display name used in citations.
	ProviderName() string
}
