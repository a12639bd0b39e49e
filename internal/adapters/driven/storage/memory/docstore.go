// Package memory provides in-memory store implementations, used in
// tests and as a fallback when no data directory is configured.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/finsync-labs/finsync-server/internal/core/domain"
	"github.com/finsync-labs/finsync-server/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	records   map[string]domain.DocumentRecord
	fragments map[string]domain.Fragment
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		records:   make(map[string]domain.DocumentRecord),
		fragments: make(map[string]domain.Fragment),
	}
}

// SaveRecord stores or updates a document record.
func (s *DocumentStore) SaveRecord(_ context.Context, record *domain.DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = *record
	return nil
}

// GetRecord retrieves a document record by ID.
func (s *DocumentStore) GetRecord(_ context.Context, id string) (*domain.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

// ListRecords returns all document records, newest first.
func (s *DocumentStore) ListRecords(_ context.Context) ([]domain.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]domain.DocumentRecord, 0, len(s.records))
	for id := range s.records {
		records = append(records, s.records[id])
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

// SaveFragments stores fragments for a document.
func (s *DocumentStore) SaveFragments(_ context.Context, fragments []domain.Fragment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fragment := range fragments {
		s.fragments[fragment.ID] = fragment
	}
	return nil
}

// GetFragment retrieves a fragment by ID.
func (s *DocumentStore) GetFragment(_ context.Context, id string) (*domain.Fragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fragment, ok := s.fragments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &fragment, nil
}

// ListFragments returns every fragment ordered by document and ordinal.
func (s *DocumentStore) ListFragments(_ context.Context) ([]domain.Fragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fragments := make([]domain.Fragment, 0, len(s.fragments))
	for id := range s.fragments {
		fragments = append(fragments, s.fragments[id])
	}
	sort.Slice(fragments, func(i, j int) bool {
		if fragments[i].DocumentID != fragments[j].DocumentID {
			return fragments[i].DocumentID < fragments[j].DocumentID
		}
		return fragments[i].Ordinal < fragments[j].Ordinal
	})
	return fragments, nil
}
