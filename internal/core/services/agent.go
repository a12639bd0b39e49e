package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/finsync-labs/finsync-server/internal/core/domain"
	"github.com/finsync-labs/finsync-server/internal/core/ports/driven"
	"github.com/finsync-labs/finsync-server/internal/core/ports/driving"
	"github.com/finsync-labs/finsync-server/internal/logger"
)

// Ensure AgentService implements the interface.
var _ driving.ChatService = (*AgentService)(nil)

// Agent loop defaults.
const (
	// DefaultMaxRounds bounds the number of model consultations per
	// query. Hitting the cap is a degraded success, not a failure.
	DefaultMaxRounds = 5

	// DefaultRetrievalK is how many fragments document_search returns.
	DefaultRetrievalK = 4

	// DefaultWebResults is how many items web_search returns.
	DefaultWebResults = 5
)

// Tool names form a closed set; anything else is rejected with a
// non-fatal observation.
const (
	toolDocumentSearch = "document_search"
	toolWebSearch      = "web_search"
)

// citationSnippetLen bounds document citation snippets.
const citationSnippetLen = 300

// webSnippetLen bounds web citation snippets.
const webSnippetLen = 500

// fallbackAnswer is returned when the round cap is hit and the model
// never produced usable text.
const fallbackAnswer = "I found some information but couldn't formulate a complete answer. " +
	"Please check the sources above."

const systemPrompt = `You are FinSync, a fast financial assistant.

Tools:
- document_search: Search the user's uploaded documents and policies
- web_search: Get real-time web data (stocks, news, rates)

RULES:
1. Use document_search for "my policy", "my document"
2. Use web_search for live/current data
3. Give SHORT, DIRECT answers (1-2 sentences max)
4. No fluff, no explanations unless asked
5. Just state the fact/number`

// AgentService drives the model through a bounded think/call/observe
// loop, collecting a tool trace and citations along the way.
type AgentService struct {
	llm       driven.LLMService
	retrieval driving.RetrievalService
	web       driven.WebSearcher
	docStore  driven.DocumentStore
	memory    *SessionMemory

	maxRounds  int
	retrievalK int
	webResults int
}

// AgentOption configures the agent service.
type AgentOption func(*AgentService)

// WithMaxRounds caps the number of model consultations per query.
func WithMaxRounds(n int) AgentOption {
	return func(s *AgentService) {
		if n > 0 {
			s.maxRounds = n
		}
	}
}

// WithRetrievalK sets how many fragments document_search returns.
func WithRetrievalK(k int) AgentOption {
	return func(s *AgentService) {
		if k > 0 {
			s.retrievalK = k
		}
	}
}

// NewAgentService creates the chat agent. web may be nil; the
// web_search tool then reports its absence to the model.
func NewAgentService(
	llm driven.LLMService,
	retrieval driving.RetrievalService,
	web driven.WebSearcher,
	docStore driven.DocumentStore,
	memory *SessionMemory,
	opts ...AgentOption,
) *AgentService {
	s := &AgentService{
		llm:        llm,
		retrieval:  retrieval,
		web:        web,
		docStore:   docStore,
		memory:     memory,
		maxRounds:  DefaultMaxRounds,
		retrievalK: DefaultRetrievalK,
		webResults: DefaultWebResults,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// loopState accumulates the side effects of one query's loop.
type loopState struct {
	trace     map[string]struct{}
	citations []domain.Citation
	// filenames caches document ID to filename lookups for citations.
	filenames map[string]string
}

// Chat answers one query. An empty sessionID starts a new session; the
// assigned ID comes back in the answer. Tool failures are recovered
// inside the loop; only an unreachable model surfaces as an error.
func (s *AgentService) Chat(ctx context.Context, query, sessionID string) (*domain.ChatAnswer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	logger.Section("Agent Loop")
	logger.Debug("Query: %q, session: %s", query, sessionID)

	messages := s.buildContext(query, sessionID)
	state := &loopState{
		trace:     make(map[string]struct{}),
		filenames: make(map[string]string),
	}

	answer := ""
	lastContent := ""

	for round := 1; round <= s.maxRounds; round++ {
		resp, err := s.llm.Chat(ctx, messages, toolSpecs(), driven.ChatOptions{Temperature: 0})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrLLMUnavailable, err)
		}

		if len(resp.ToolCalls) == 0 {
			answer = resp.Content
			logger.Debug("Round %d: final answer", round)
			break
		}

		logger.Debug("Round %d: %d tool calls", round, len(resp.ToolCalls))
		if resp.Content != "" {
			lastContent = resp.Content
		}

		messages = append(messages, driven.ChatMessage{
			Role:      driven.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		// Every requested call produces an observation, in request
		// order, before the model is consulted again.
		for _, call := range resp.ToolCalls {
			observation := s.execute(ctx, call, state)
			messages = append(messages, driven.ChatMessage{
				Role:       driven.RoleTool,
				Content:    observation,
				ToolCallID: call.ID,
			})
		}
	}

	if answer == "" {
		logger.Info("Round cap reached, returning best-effort answer")
		answer = lastContent
		if answer == "" {
			answer = fallbackAnswer
		}
	}

	s.memory.AppendTurn(sessionID, query, answer)

	return &domain.ChatAnswer{
		Answer:    answer,
		Trace:     sortedTrace(state.trace),
		Citations: state.citations,
		SessionID: sessionID,
	}, nil
}

// buildContext assembles system instructions, the bounded session
// history, and the current query.
func (s *AgentService) buildContext(query, sessionID string) []driven.ChatMessage {
	history := s.memory.Load(sessionID)

	messages := make([]driven.ChatMessage, 0, 2+2*len(history))
	messages = append(messages, driven.ChatMessage{
		Role:    driven.RoleSystem,
		Content: systemPrompt,
	})
	for _, turn := range history {
		messages = append(messages,
			driven.ChatMessage{Role: driven.RoleUser, Content: turn.UserText},
			driven.ChatMessage{Role: driven.RoleAssistant, Content: turn.AssistantText},
		)
	}
	return append(messages, driven.ChatMessage{Role: driven.RoleUser, Content: query})
}

// execute dispatches one tool call and converts any failure into an
// observation string. The loop never aborts on a tool error.
func (s *AgentService) execute(ctx context.Context, call driven.ToolCall, state *loopState) string {
	query := toolQuery(call.Arguments)

	switch call.Name {
	case toolDocumentSearch:
		state.trace[domain.TraceVectorStore] = struct{}{}
		observation, err := s.documentSearch(ctx, query, state)
		if err != nil {
			logger.Warn("document_search failed: %v", err)
			return fmt.Sprintf("Error executing tool: %v", err)
		}
		return observation

	case toolWebSearch:
		state.trace[domain.TraceWebSearch] = struct{}{}
		observation, err := s.webSearch(ctx, query, state)
		if err != nil {
			logger.Warn("web_search failed: %v", err)
			return fmt.Sprintf("Error executing tool: %v", err)
		}
		return observation

	default:
		logger.Warn("Unknown tool requested: %q", call.Name)
		return fmt.Sprintf("Tool %s not found.", call.Name)
	}
}

// documentSearch runs hybrid retrieval and records one citation per
// returned fragment.
func (s *AgentService) documentSearch(ctx context.Context, query string, state *loopState) (string, error) {
	results, err := s.retrieval.Retrieve(ctx, query, s.retrievalK)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No relevant documents found in the knowledge base.", nil
	}

	var b strings.Builder
	for i, result := range results {
		fragment := result.Fragment
		source := s.filename(ctx, fragment.DocumentID, state)

		if i > 0 {
			b.WriteString("\n\n")
		}
		if fragment.Page > 0 {
			fmt.Fprintf(&b, "[%d] From %s (Page %d):\n%s", i+1, source, fragment.Page, fragment.Text)
		} else {
			fmt.Fprintf(&b, "[%d] From %s:\n%s", i+1, source, fragment.Text)
		}

		citation := domain.Citation{
			Source:          source,
			Text:            truncate(fragment.Text, citationSnippetLen),
			DocumentID:      ptr(fragment.DocumentID),
			FragmentOrdinal: ptr(fragment.Ordinal),
		}
		if fragment.Page > 0 {
			citation.Page = ptr(fragment.Page)
		}
		state.citations = append(state.citations, citation)
	}

	return b.String(), nil
}

// webSearch queries the live web collaborator and records one citation
// per item, URL populated.
func (s *AgentService) webSearch(ctx context.Context, query string, state *loopState) (string, error) {
	if s.web == nil {
		return "Web search is not configured.", nil
	}

	results, err := s.web.Search(ctx, query, s.webResults)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No results found.", nil
	}

	var b strings.Builder
	for i, result := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if result.Title != "" {
			fmt.Fprintf(&b, "[%d] %s (%s)\n%s", i+1, result.Title, result.URL, result.Content)
		} else {
			fmt.Fprintf(&b, "[%d] %s\n%s", i+1, result.URL, result.Content)
		}

		url := result.URL
		state.citations = append(state.citations, domain.Citation{
			Source: s.web.ProviderName(),
			URL:    &url,
			Text:   truncate(result.Content, webSnippetLen),
		})
	}

	return b.String(), nil
}

// filename resolves a document ID to its display name, caching per loop.
func (s *AgentService) filename(ctx context.Context, documentID string, state *loopState) string {
	if name, ok := state.filenames[documentID]; ok {
		return name
	}
	name := "Unknown"
	if record, err := s.docStore.GetRecord(ctx, documentID); err == nil {
		name = record.Filename
	}
	state.filenames[documentID] = name
	return name
}

// toolSpecs describes the closed tool set offered to the model.
func toolSpecs() []driven.ToolSpec {
	queryParams := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query",
			},
		},
		"required": []string{"query"},
	}

	return []driven.ToolSpec{
		{
			Name: toolDocumentSearch,
			Description: "Search through UPLOADED DOCUMENTS in the knowledge base. " +
				"Use for questions about the user's documents, policies, or files.",
			Parameters: queryParams,
		},
		{
			Name: toolWebSearch,
			Description: "Search for CURRENT, LIVE, or REAL-TIME information: " +
				"news, stock prices, market data, regulations.",
			Parameters: queryParams,
		},
	}
}

// toolQuery extracts the query argument from a tool call's raw JSON,
// falling back to the raw string for models that skip the object form.
func toolQuery(arguments string) string {
	var parsed struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(arguments), &parsed); err == nil && parsed.Query != "" {
		return parsed.Query
	}
	return strings.TrimSpace(arguments)
}

func sortedTrace(set map[string]struct{}) []string {
	trace := make([]string, 0, len(set))
	for label := range set {
		trace = append(trace, label)
	}
	sort.Strings(trace)
	return trace
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

func ptr[T any](v T) *T {
	return &v
}
