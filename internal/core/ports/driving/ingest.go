package driving

import (
	"context"

	"github.com/finsync-labs/finsync-server/internal/core/domain"
)

// IngestService turns uploaded document bytes into indexed fragments.
type IngestService interface {
	// Ingest extracts, splits, embeds and indexes a document. The
	// returned record is in the ready state on success. Re-ingesting
	// identical bytes produces a new document; no deduplication.
	Ingest(ctx context.Context, data []byte, filename string) (*domain.DocumentRecord, error)
}

// DocumentService exposes document records to external actors.
type DocumentService interface {
	// Get retrieves a document record by ID.
	// Returns domain.ErrNotFound for unknown IDs.
	Get(ctx context.Context, id string) (*domain.DocumentRecord, error)

	// List returns all document records, newest first.
	List(ctx context.Context) ([]domain.DocumentRecord, error)
}
