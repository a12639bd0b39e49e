package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsync-labs/finsync-server/internal/adapters/driven/storage/memory"
	"github.com/finsync-labs/finsync-server/internal/core/domain"
	"github.com/finsync-labs/finsync-server/internal/core/ports/driven"
	"github.com/finsync-labs/finsync-server/internal/core/ports/driving"
)

func toolCallResponse(id, name, arguments string) *driven.ChatResponse {
	return &driven.ChatResponse{
		ToolCalls: []driven.ToolCall{{ID: id, Name: name, Arguments: arguments}},
	}
}

func answerResponse(text string) *driven.ChatResponse {
	return &driven.ChatResponse{Content: text}
}

func newAgentHarness(llm *scriptedLLM, retrieval driving.RetrievalService, web driven.WebSearcher, opts ...AgentOption) (*memory.DocumentStore, *SessionMemory, *AgentService) {
	store := memory.NewDocumentStore()
	sessions := NewSessionMemory(DefaultMemoryWindow)
	agent := NewAgentService(llm, retrieval, web, store, sessions, opts...)
	return store, sessions, agent
}

func TestChat_EmptyQuery(t *testing.T) {
	_, _, agent := newAgentHarness(&scriptedLLM{}, &staticRetrieval{}, nil)

	_, err := agent.Chat(context.Background(), "   ", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChat_DirectAnswerWithoutTools(t *testing.T) {
	llm := &scriptedLLM{responses: []*driven.ChatResponse{answerResponse("Hello! How can I help?")}}
	_, sessions, agent := newAgentHarness(llm, &staticRetrieval{}, nil)

	answer, err := agent.Chat(context.Background(), "hi", "")
	require.NoError(t, err)

	assert.Equal(t, "Hello! How can I help?", answer.Answer)
	assert.Empty(t, answer.Trace)
	assert.Empty(t, answer.Citations)
	assert.NotEmpty(t, answer.SessionID)
	assert.Equal(t, 1, llm.calls)

	// The turn was recorded under the assigned session.
	turns := sessions.Load(answer.SessionID)
	require.Len(t, turns, 1)
	assert.Equal(t, "hi", turns[0].UserText)
}

func TestChat_DocumentSearchFlow(t *testing.T) {
	llm := &scriptedLLM{responses: []*driven.ChatResponse{
		toolCallResponse("call_1", "document_search", `{"query":"deductible"}`),
		answerResponse("Your deductible is $500."),
	}}
	retrieval := &staticRetrieval{results: []driving.RetrievedFragment{
		{
			Fragment: domain.Fragment{ID: "f1", DocumentID: "doc-1", Text: "The deductible is $500.", Page: 4, Ordinal: 1},
			Score:    0.016,
			Sources:  []string{"lexical", "semantic"},
		},
	}}
	store, _, agent := newAgentHarness(llm, retrieval, nil)
	require.NoError(t, store.SaveRecord(context.Background(), &domain.DocumentRecord{ID: "doc-1", Filename: "policy.pdf"}))

	answer, err := agent.Chat(context.Background(), "what is my deductible?", "s-1")
	require.NoError(t, err)

	assert.Equal(t, "Your deductible is $500.", answer.Answer)
	assert.Equal(t, []string{domain.TraceVectorStore}, answer.Trace)
	assert.Equal(t, []string{"deductible"}, retrieval.queries)

	require.Len(t, answer.Citations, 1)
	citation := answer.Citations[0]
	assert.Equal(t, "policy.pdf", citation.Source)
	require.NotNil(t, citation.Page)
	assert.Equal(t, 4, *citation.Page)
	require.NotNil(t, citation.DocumentID)
	assert.Equal(t, "doc-1", *citation.DocumentID)
	require.NotNil(t, citation.FragmentOrdinal)
	assert.Equal(t, 1, *citation.FragmentOrdinal)
	assert.Nil(t, citation.URL)

	// Observation went back as a tool message linked to the call.
	require.Equal(t, 2, llm.calls)
	secondCall := llm.seen[1]
	last := secondCall[len(secondCall)-1]
	assert.Equal(t, driven.RoleTool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)
	assert.Contains(t, last.Content, "From policy.pdf (Page 4)")
}

func TestChat_WebSearchFlow(t *testing.T) {
	llm := &scriptedLLM{responses: []*driven.ChatResponse{
		toolCallResponse("call_1", "web_search", `{"query":"prime rate"}`),
		answerResponse("The prime rate is 7.5%."),
	}}
	web := &mockWeb{results: []domain.WebResult{
		{Title: "Rates Today", URL: "https://example.com/rates", Content: "Prime rate 7.5%"},
	}}
	_, _, agent := newAgentHarness(llm, &staticRetrieval{}, web)

	answer, err := agent.Chat(context.Background(), "what is the prime rate?", "")
	require.NoError(t, err)

	assert.Equal(t, []string{domain.TraceWebSearch}, answer.Trace)
	require.Len(t, answer.Citations, 1)
	assert.Equal(t, "MockSearch", answer.Citations[0].Source)
	require.NotNil(t, answer.Citations[0].URL)
	assert.Equal(t, "https://example.com/rates", *answer.Citations[0].URL)
	assert.Nil(t, answer.Citations[0].Page)
}

func TestChat_WebSearchNotConfigured(t *testing.T) {
	llm := &scriptedLLM{responses: []*driven.ChatResponse{
		toolCallResponse("call_1", "web_search", `{"query":"anything"}`),
		answerResponse("I cannot search the web right now."),
	}}
	_, _, agent := newAgentHarness(llm, &staticRetrieval{}, nil)

	answer, err := agent.Chat(context.Background(), "latest news?", "")
	require.NoError(t, err)

	// The tool reported its absence; the category still appears in
	// the trace because the tool was invoked.
	assert.Equal(t, []string{domain.TraceWebSearch}, answer.Trace)
	secondCall := llm.seen[1]
	last := secondCall[len(secondCall)-1]
	assert.Equal(t, "Web search is not configured.", last.Content)
}

func TestChat_ToolErrorRecovered(t *testing.T) {
	llm := &scriptedLLM{responses: []*driven.ChatResponse{
		toolCallResponse("call_1", "document_search", `{"query":"q"}`),
		answerResponse("I could not search the documents."),
	}}
	retrieval := &staticRetrieval{err: errors.New("index offline")}
	_, _, agent := newAgentHarness(llm, retrieval, nil)

	answer, err := agent.Chat(context.Background(), "question", "")
	require.NoError(t, err)
	assert.Equal(t, "I could not search the documents.", answer.Answer)

	secondCall := llm.seen[1]
	last := secondCall[len(secondCall)-1]
	assert.Contains(t, last.Content, "Error executing tool")
	assert.Contains(t, last.Content, "index offline")
}

func TestChat_UnknownToolRejected(t *testing.T) {
	llm := &scriptedLLM{responses: []*driven.ChatResponse{
		toolCallResponse("call_1", "delete_everything", `{}`),
		answerResponse("done"),
	}}
	_, _, agent := newAgentHarness(llm, &staticRetrieval{}, nil)

	answer, err := agent.Chat(context.Background(), "question", "")
	require.NoError(t, err)
	assert.Empty(t, answer.Trace)

	secondCall := llm.seen[1]
	last := secondCall[len(secondCall)-1]
	assert.Equal(t, "Tool delete_everything not found.", last.Content)
}

func TestChat_RoundCapWithBestEffortContent(t *testing.T) {
	// The model keeps calling tools forever; the scripted response
	// repeats. Content on a tool round becomes the best-effort answer.
	resp := toolCallResponse("call_x", "document_search", `{"query":"q"}`)
	resp.Content = "Still looking into it."
	llm := &scriptedLLM{responses: []*driven.ChatResponse{resp}}
	_, _, agent := newAgentHarness(llm, &staticRetrieval{}, nil, WithMaxRounds(3))

	answer, err := agent.Chat(context.Background(), "question", "")
	require.NoError(t, err)

	assert.Equal(t, 3, llm.calls)
	assert.Equal(t, "Still looking into it.", answer.Answer)
}

func TestChat_RoundCapFallbackAnswer(t *testing.T) {
	llm := &scriptedLLM{responses: []*driven.ChatResponse{
		toolCallResponse("call_x", "document_search", `{"query":"q"}`),
	}}
	_, _, agent := newAgentHarness(llm, &staticRetrieval{}, nil)

	answer, err := agent.Chat(context.Background(), "question", "")
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxRounds, llm.calls)
	assert.Equal(t, fallbackAnswer, answer.Answer)
	assert.NotEmpty(t, answer.Answer)
}

func TestChat_LLMFailure(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("connection refused")}
	_, _, agent := newAgentHarness(llm, &staticRetrieval{}, nil)

	_, err := agent.Chat(context.Background(), "question", "")
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestChat_HistoryInContext(t *testing.T) {
	llm := &scriptedLLM{responses: []*driven.ChatResponse{answerResponse("answer")}}
	_, sessions, agent := newAgentHarness(llm, &staticRetrieval{}, nil)

	sessions.AppendTurn("s-1", "earlier question", "earlier answer")

	_, err := agent.Chat(context.Background(), "follow-up", "s-1")
	require.NoError(t, err)

	messages := llm.seen[0]
	require.Len(t, messages, 4)
	assert.Equal(t, driven.RoleSystem, messages[0].Role)
	assert.Equal(t, "earlier question", messages[1].Content)
	assert.Equal(t, "earlier answer", messages[2].Content)
	assert.Equal(t, "follow-up", messages[3].Content)
}

func TestChat_MultipleToolKindsSortedTrace(t *testing.T) {
	llm := &scriptedLLM{responses: []*driven.ChatResponse{
		{ToolCalls: []driven.ToolCall{
			{ID: "call_1", Name: "web_search", Arguments: `{"query":"rates"}`},
			{ID: "call_2", Name: "document_search", Arguments: `{"query":"policy"}`},
		}},
		answerResponse("combined answer"),
	}}
	retrieval := &staticRetrieval{results: []driving.RetrievedFragment{
		{Fragment: domain.Fragment{ID: "f1", DocumentID: "doc-1", Text: "policy text"}},
	}}
	web := &mockWeb{results: []domain.WebResult{{URL: "https://example.com", Content: "rate info"}}}
	_, _, agent := newAgentHarness(llm, retrieval, web)

	answer, err := agent.Chat(context.Background(), "question", "")
	require.NoError(t, err)

	// Sorted alphabetically, one label per kind.
	assert.Equal(t, []string{domain.TraceVectorStore, domain.TraceWebSearch}, answer.Trace)
	assert.Len(t, answer.Citations, 2)
}

func TestChat_NoResultsObservation(t *testing.T) {
	llm := &scriptedLLM{responses: []*driven.ChatResponse{
		toolCallResponse("call_1", "document_search", `{"query":"q"}`),
		answerResponse("Nothing found."),
	}}
	_, _, agent := newAgentHarness(llm, &staticRetrieval{}, nil)

	answer, err := agent.Chat(context.Background(), "question", "")
	require.NoError(t, err)

	assert.Empty(t, answer.Citations)
	secondCall := llm.seen[1]
	last := secondCall[len(secondCall)-1]
	assert.Equal(t, "No relevant documents found in the knowledge base.", last.Content)
}

func TestToolQuery(t *testing.T) {
	assert.Equal(t, "deductible", toolQuery(`{"query":"deductible"}`))
	assert.Equal(t, "raw text", toolQuery("raw text"))
	assert.Equal(t, "{}", toolQuery("{}"))
}
