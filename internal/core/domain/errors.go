package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an upload with a content type no
	// extractor can handle. Rejected before a record is created.
	ErrUnsupportedType = errors.New("unsupported document type")

	// ErrNoExtractableText indicates a document contained no text.
	// Surfaced as an error status on that document, not fatal to the
	// service.
	ErrNoExtractableText = errors.New("no extractable text")

	// ErrEmbeddingFailed indicates the embedding backend rejected or
	// could not process a request. No fragment is indexed when this
	// occurs; the upload fails as a whole.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrLLMUnavailable indicates the language model backend is not
	// configured or unreachable. This is the one failure a chat turn
	// cannot recover from.
	ErrLLMUnavailable = errors.New("LLM service unavailable")
)
