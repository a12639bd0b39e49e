// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentStore: document record and fragment persistence
//   - SearchEngine: keyword search over fragment text (bleve)
//   - VectorIndex: similarity search over fragment embeddings
//   - EmbeddingService: generates vector embeddings
//   - LLMService: drives the agent loop via tool calling
//   - TextExtractor: turns uploaded bytes into per-page text
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - WebSearcher: live web search. Without it, the web_search tool
//     reports failure to the model and document search carries the query.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
