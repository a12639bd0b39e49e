// Package domain defines the core business entities for FinSync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - DocumentRecord: a document's ingestion lifecycle and metadata
//   - Fragment: a bounded slice of document text, the unit of retrieval
//   - Citation: provenance attached to retrieved evidence
//   - Turn: one user/assistant exchange in a conversation
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
