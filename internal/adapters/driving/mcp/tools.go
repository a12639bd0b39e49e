package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SearchInput is the input schema for the document_search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query to run against the knowledge base"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of fragments to return (default 4)"`
}

// SearchOutput is the output schema for the document_search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single retrieved fragment.
type SearchResultOutput struct {
	DocumentID string   `json:"document_id"`
	Page       int      `json:"page,omitempty"`
	Ordinal    int      `json:"chunk_index"`
	Score      float64  `json:"score"`
	Sources    []string `json:"sources"`
	Text       string   `json:"text"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct{}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput represents one document record.
type DocumentOutput struct {
	ID            string `json:"id"`
	Filename      string `json:"filename"`
	Status        string `json:"status"`
	FragmentCount int    `json:"chunk_count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "document_search",
		Description: "Search the indexed document knowledge base with hybrid semantic and keyword retrieval",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List all documents in the knowledge base with their processing status",
	}, s.handleListDocuments)
}

// handleSearch handles the document_search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 4
	}

	results, err := s.ports.Retrieval.Retrieve(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = SearchResultOutput{
			DocumentID: results[i].Fragment.DocumentID,
			Page:       results[i].Fragment.Page,
			Ordinal:    results[i].Fragment.Ordinal,
			Score:      results[i].Score,
			Sources:    results[i].Sources,
			Text:       results[i].Fragment.Text,
		}
	}

	return nil, output, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	records, err := s.ports.Documents.List(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	output := ListDocumentsOutput{
		Documents: make([]DocumentOutput, len(records)),
		Count:     len(records),
	}
	for i := range records {
		output.Documents[i] = DocumentOutput{
			ID:            records[i].ID,
			Filename:      records[i].Filename,
			Status:        string(records[i].Status),
			FragmentCount: records[i].FragmentCount,
		}
	}

	return nil, output, nil
}
