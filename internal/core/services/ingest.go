package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/finsync-labs/finsync-server/internal/core/domain"
	"github.com/finsync-labs/finsync-server/internal/core/ports/driven"
	"github.com/finsync-labs/finsync-server/internal/core/ports/driving"
	"github.com/finsync-labs/finsync-server/internal/logger"
	"github.com/finsync-labs/finsync-server/internal/splitter"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService runs the upload pipeline: extract per-page text, split
// into overlapping fragments, embed, and insert into both indexes.
type IngestService struct {
	docStore   driven.DocumentStore
	engine     driven.SearchEngine
	vectors    driven.VectorIndex
	embedder   driven.EmbeddingService
	extractors []driven.TextExtractor
	split      *splitter.Splitter
}

// NewIngestService creates the ingestion service. Extractors are tried
// in order; the first one that supports the filename wins.
func NewIngestService(
	docStore driven.DocumentStore,
	engine driven.SearchEngine,
	vectors driven.VectorIndex,
	embedder driven.EmbeddingService,
	extractors []driven.TextExtractor,
	split *splitter.Splitter,
) *IngestService {
	if split == nil {
		split = splitter.New()
	}
	return &IngestService{
		docStore:   docStore,
		engine:     engine,
		vectors:    vectors,
		embedder:   embedder,
		extractors: extractors,
		split:      split,
	}
}

// Ingest processes one uploaded document. The document record moves
// from processing to exactly one of ready or error. On any failure no
// fragment reaches either index.
func (s *IngestService) Ingest(ctx context.Context, data []byte, filename string) (*domain.DocumentRecord, error) {
	logger.Section("Document Ingestion")
	logger.Debug("Filename: %q, %d bytes", filename, len(data))

	extractor := s.extractorFor(filename)
	if extractor == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedType, filename)
	}

	now := time.Now().UTC()
	record := &domain.DocumentRecord{
		ID:        uuid.New().String(),
		Filename:  filename,
		Status:    domain.StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.docStore.SaveRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("save record: %w", err)
	}

	fragments, err := s.buildFragments(ctx, record.ID, data, filename, extractor)
	if err != nil {
		return record, s.fail(ctx, record, err)
	}

	logger.Info("Document %s: %d fragments", record.ID, len(fragments))

	if err := s.index(ctx, fragments); err != nil {
		return record, s.fail(ctx, record, err)
	}

	record.Status = domain.StatusReady
	record.FragmentCount = len(fragments)
	record.UpdatedAt = time.Now().UTC()
	if err := s.docStore.SaveRecord(ctx, record); err != nil {
		return record, fmt.Errorf("save record: %w", err)
	}

	return record, nil
}

// buildFragments extracts pages and splits them, assigning ordinals
// that increase across the whole document, not per page.
func (s *IngestService) buildFragments(
	ctx context.Context,
	documentID string,
	data []byte,
	filename string,
	extractor driven.TextExtractor,
) ([]domain.Fragment, error) {
	pages, err := extractor.Extract(ctx, data, filename)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	var fragments []domain.Fragment
	ordinal := 0
	for _, page := range pages {
		for _, piece := range s.split.Split(page.Text) {
			fragments = append(fragments, domain.Fragment{
				ID:         uuid.New().String(),
				DocumentID: documentID,
				Text:       piece,
				Page:       page.Number,
				Ordinal:    ordinal,
			})
			ordinal++
		}
	}

	if len(fragments) == 0 {
		return nil, domain.ErrNoExtractableText
	}
	return fragments, nil
}

// index embeds all fragments, persists them, and inserts them into the
// vector and keyword indexes. Embedding runs first so an embedding
// failure leaves no partial state anywhere.
func (s *IngestService) index(ctx context.Context, fragments []domain.Fragment) error {
	texts := make([]string, len(fragments))
	for i := range fragments {
		texts[i] = fragments[i].Text
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrEmbeddingFailed, err)
	}
	if len(embeddings) != len(fragments) {
		return fmt.Errorf("%w: got %d embeddings for %d fragments",
			domain.ErrEmbeddingFailed, len(embeddings), len(fragments))
	}
	for i := range fragments {
		fragments[i].Embedding = embeddings[i]
	}

	if err := s.docStore.SaveFragments(ctx, fragments); err != nil {
		return fmt.Errorf("save fragments: %w", err)
	}

	for i := range fragments {
		if err := s.vectors.Add(ctx, fragments[i].ID, fragments[i].Embedding); err != nil {
			return fmt.Errorf("vector index add: %w", err)
		}
		if err := s.engine.Index(ctx, fragments[i]); err != nil {
			return fmt.Errorf("keyword index add: %w", err)
		}
	}

	return nil
}

// fail flips the record to the error state, once.
func (s *IngestService) fail(ctx context.Context, record *domain.DocumentRecord, cause error) error {
	logger.Warn("Ingestion of %s failed: %v", record.ID, cause)
	record.Status = domain.StatusError
	record.Error = cause.Error()
	record.UpdatedAt = time.Now().UTC()
	if err := s.docStore.SaveRecord(ctx, record); err != nil {
		logger.Warn("Could not persist error status for %s: %v", record.ID, err)
	}
	return cause
}

func (s *IngestService) extractorFor(filename string) driven.TextExtractor {
	for _, e := range s.extractors {
		if e.Supports(filename) {
			return e
		}
	}
	return nil
}
