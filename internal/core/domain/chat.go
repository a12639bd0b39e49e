package domain

// Tool category labels surfaced in the chat trace. One label appears per
// distinct tool kind invoked while answering a query, regardless of how
// many times the tool fired.
const (
	TraceVectorStore = "Vector Store"
	TraceWebSearch   = "Web Search"
)

// Citation is a provenance record for one piece of retrieved evidence.
// Citations live for a single response and are never persisted.
type Citation struct {
	// Source is the display name: the document filename for indexed
	// fragments, or the search provider name for web results.
	Source string `json:"source"`

	// Page is the 1-based page number for PDF fragments, nil otherwise.
	Page *int `json:"page"`

	// URL is set for web results, nil for document fragments.
	URL *string `json:"url"`

	// Text is the evidence snippet shown to the user.
	Text string `json:"text"`

	// DocumentID links back to the cited document, nil for web results.
	DocumentID *string `json:"doc_id"`

	// FragmentOrdinal is the cited fragment's position within its
	// document, nil for web results.
	FragmentOrdinal *int `json:"chunk_index"`
}

// Turn is one completed user/assistant exchange in a session.
type Turn struct {
	// UserText is what the user asked.
	UserText string

	// AssistantText is the answer that was returned.
	AssistantText string
}

// ChatAnswer is the result of running one query through the agent loop.
type ChatAnswer struct {
	// Answer is the final answer text. Always non-empty: when the loop
	// hits its round cap a best-effort or fallback text is used.
	Answer string

	// Trace lists the distinct tool categories consulted, sorted.
	Trace []string

	// Citations lists provenance for every piece of evidence surfaced
	// during the loop, in retrieval order. Duplicates are allowed when
	// the same fragment is retrieved by separate tool calls.
	Citations []Citation

	// SessionID identifies the conversation for follow-up queries.
	SessionID string
}

// WebResult is one item returned by the web-search collaborator.
type WebResult struct {
	// Title is the result headline, may be empty.
	Title string

	// URL is the source address.
	URL string

	// Content is the extracted snippet.
	Content string
}
