package services

import (
	"context"

	"github.com/finsync-labs/finsync-server/internal/core/domain"
	"github.com/finsync-labs/finsync-server/internal/core/ports/driven"
	"github.com/finsync-labs/finsync-server/internal/core/ports/driving"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService exposes document records to external actors.
type DocumentService struct {
	docStore driven.DocumentStore
}

// NewDocumentService creates a new document service.
func NewDocumentService(docStore driven.DocumentStore) *DocumentService {
	return &DocumentService{docStore: docStore}
}

// Get retrieves a document record by ID.
func (s *DocumentService) Get(ctx context.Context, id string) (*domain.DocumentRecord, error) {
	return s.docStore.GetRecord(ctx, id)
}

// List returns all document records, newest first.
func (s *DocumentService) List(ctx context.Context) ([]domain.DocumentRecord, error) {
	return s.docStore.ListRecords(ctx)
}
