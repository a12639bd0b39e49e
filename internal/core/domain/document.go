package domain

import "time"

// DocumentStatus tracks a document through the ingestion pipeline.
type DocumentStatus string

// Document lifecycle states.
const (
	// StatusProcessing means ingestion has started but not finished.
	StatusProcessing DocumentStatus = "processing"

	// StatusReady means the document is fully indexed and searchable.
	StatusReady DocumentStatus = "ready"

	// StatusError means ingestion failed; Error holds the reason.
	StatusError DocumentStatus = "error"
)

// DocumentRecord describes an uploaded document and its ingestion state.
// It is created when an upload is accepted and mutated exactly once
// afterwards, to ready or error.
type DocumentRecord struct {
	// ID is the unique identifier assigned at upload.
	ID string

	// Filename is the original name of the uploaded file.
	Filename string

	// Status is the current lifecycle state.
	Status DocumentStatus

	// FragmentCount is the number of indexed fragments (valid once ready).
	FragmentCount int

	// Error holds the failure reason when Status is StatusError.
	Error string

	// CreatedAt is when the upload was accepted.
	CreatedAt time.Time

	// UpdatedAt is when the record last changed state.
	UpdatedAt time.Time
}

// Fragment is an immutable slice of a document's text with positional
// metadata. Fragments are the unit of indexing and retrieval; both the
// semantic and lexical indexes reference them by ID.
type Fragment struct {
	// ID is the unique identifier for the fragment.
	ID string

	// DocumentID links to the parent DocumentRecord.
	DocumentID string

	// Text is the fragment content.
	Text string

	// Page is the 1-based page the text came from. Zero means the
	// source had no page structure (plain text uploads).
	Page int

	// Ordinal is the fragment's position within the whole document.
	// Ordinals are strictly increasing and contiguous from 0; they are
	// not reset per page.
	Ordinal int

	// Embedding is the vector representation for semantic search.
	Embedding []float32
}
