package services

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/finsync-labs/finsync-server/internal/core/domain"
	"github.com/finsync-labs/finsync-server/internal/core/ports/driven"
	"github.com/finsync-labs/finsync-server/internal/core/ports/driving"
	"github.com/finsync-labs/finsync-server/internal/logger"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// mockEngine returns scripted keyword search hits.
type mockEngine struct {
	mu      sync.Mutex
	hits    []driven.SearchHit
	indexed []domain.Fragment
	err     error
}

func (m *mockEngine) Index(_ context.Context, fragment domain.Fragment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexed = append(m.indexed, fragment)
	return m.err
}

func (m *mockEngine) Search(_ context.Context, _ string, limit int) ([]driven.SearchHit, error) {
	if m.err != nil {
		return nil, m.err
	}
	hits := m.hits
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (m *mockEngine) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.indexed)
}

func (m *mockEngine) Close() error { return nil }

// mockVectors returns scripted vector search hits.
type mockVectors struct {
	mu    sync.Mutex
	hits  []driven.VectorHit
	added map[string][]float32
	count int
	err   error
}

func newMockVectors() *mockVectors {
	return &mockVectors{added: make(map[string][]float32)}
}

func (m *mockVectors) Add(_ context.Context, fragmentID string, embedding []float32) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.added[fragmentID] = embedding
	return nil
}

func (m *mockVectors) Search(_ context.Context, _ []float32, k int) ([]driven.VectorHit, error) {
	if m.err != nil {
		return nil, m.err
	}
	hits := m.hits
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *mockVectors) Count() int {
	if m.count > 0 {
		return m.count
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.added) + len(m.hits)
}

func (m *mockVectors) Close() error { return nil }

// mockEmbedder returns fixed-length zero vectors.
type mockEmbedder struct {
	dimensions int
	err        error
	batches    int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.batches++
	dims := m.dimensions
	if dims == 0 {
		dims = 4
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, dims)
	}
	return vectors, nil
}

func (m *mockEmbedder) Dimensions() int {
	if m.dimensions == 0 {
		return 4
	}
	return m.dimensions
}

func (m *mockEmbedder) ModelName() string { return "mock-embedder" }
func (m *mockEmbedder) Close() error      { return nil }

// mockWeb returns scripted web results.
type mockWeb struct {
	results []domain.WebResult
	err     error
	queries []string
}

func (m *mockWeb) Search(_ context.Context, query string, _ int) ([]domain.WebResult, error) {
	m.queries = append(m.queries, query)
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func (m *mockWeb) ProviderName() string { return "MockSearch" }

// scriptedLLM replays a fixed sequence of responses. If the script runs
// out the last response repeats, which lets tests model a model that
// never stops calling tools.
type scriptedLLM struct {
	responses []*driven.ChatResponse
	err       error
	calls     int
	seen      [][]driven.ChatMessage
}

func (m *scriptedLLM) Chat(_ context.Context, messages []driven.ChatMessage, _ []driven.ToolSpec, _ driven.ChatOptions) (*driven.ChatResponse, error) {
	m.seen = append(m.seen, messages)
	if m.err != nil {
		return nil, m.err
	}
	i := m.calls
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	m.calls++
	return m.responses[i], nil
}

func (m *scriptedLLM) ModelName() string { return "mock-llm" }
func (m *scriptedLLM) Close() error      { return nil }

// staticRetrieval returns the same fragments for every query.
type staticRetrieval struct {
	results []driving.RetrievedFragment
	err     error
	queries []string
}

func (m *staticRetrieval) Retrieve(_ context.Context, query string, _ int) ([]driving.RetrievedFragment, error) {
	m.queries = append(m.queries, query)
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}
