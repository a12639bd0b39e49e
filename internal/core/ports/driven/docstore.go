package driven

import (
	"context"

	"github.com/finsync-labs/finsync-server/internal/core/domain"
)

// DocumentStore persists document records and fragments.
// Backed by SQLite. Fragments are durable so the in-memory keyword
// index can be rebuilt after a restart.
type DocumentStore interface {
	// SaveRecord stores or updates a document record.
	SaveRecord(ctx context.Context, record *domain.DocumentRecord) error

	// GetRecord retrieves a document record by ID.
	// Returns domain.ErrNotFound for unknown IDs.
	GetRecord(ctx context.Context, id string) (*domain.DocumentRecord, error)

	// ListRecords returns all document records, newest first.
	ListRecords(ctx context.Context) ([]domain.DocumentRecord, error)

	// SaveFragments stores fragments for a document atomically.
	SaveFragments(ctx context.Context, fragments []domain.Fragment) error

	// GetFragment retrieves a fragment by ID.
	// Returns domain.ErrNotFound for unknown IDs.
	GetFragment(ctx context.Context, id string) (*domain.Fragment, error)

	// ListFragments returns every stored fragment, ordered by document
	// and ordinal. Used to rebuild the keyword index on startup.
	ListFragments(ctx context.Context) ([]domain.Fragment, error)
}
