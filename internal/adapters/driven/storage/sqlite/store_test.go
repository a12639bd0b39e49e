package sqlite

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsync-labs/finsync-server/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "finsync-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

func testRecord(id string) *domain.DocumentRecord {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.DocumentRecord{
		ID:        id,
		Filename:  "report-" + id + ".pdf",
		Status:    domain.StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestStore_SaveAndGetRecord(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	record := testRecord("doc-1")
	require.NoError(t, store.SaveRecord(ctx, record))

	got, err := store.GetRecord(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, record.Filename, got.Filename)
	assert.Equal(t, domain.StatusProcessing, got.Status)
	assert.Equal(t, 0, got.FragmentCount)
}

func TestStore_GetRecord_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.GetRecord(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_SaveRecord_Upsert(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	record := testRecord("doc-1")
	require.NoError(t, store.SaveRecord(ctx, record))

	record.Status = domain.StatusReady
	record.FragmentCount = 12
	record.UpdatedAt = record.UpdatedAt.Add(time.Minute)
	require.NoError(t, store.SaveRecord(ctx, record))

	got, err := store.GetRecord(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, got.Status)
	assert.Equal(t, 12, got.FragmentCount)
}

func TestStore_ListRecords_NewestFirst(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	older := testRecord("doc-old")
	older.CreatedAt = older.CreatedAt.Add(-time.Hour)
	newer := testRecord("doc-new")

	require.NoError(t, store.SaveRecord(ctx, older))
	require.NoError(t, store.SaveRecord(ctx, newer))

	records, err := store.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "doc-new", records[0].ID)
	assert.Equal(t, "doc-old", records[1].ID)
}

func TestStore_SaveAndGetFragments(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.SaveRecord(ctx, testRecord("doc-1")))

	fragments := []domain.Fragment{
		{ID: "frag-1", DocumentID: "doc-1", Text: "first piece", Page: 1, Ordinal: 0, Embedding: []float32{0.1, 0.2, 0.3}},
		{ID: "frag-2", DocumentID: "doc-1", Text: "second piece", Page: 2, Ordinal: 1, Embedding: []float32{0.4, 0.5, 0.6}},
	}
	require.NoError(t, store.SaveFragments(ctx, fragments))

	got, err := store.GetFragment(ctx, "frag-2")
	require.NoError(t, err)
	assert.Equal(t, "second piece", got.Text)
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, 1, got.Ordinal)
	assert.InDeltaSlice(t, []float32{0.4, 0.5, 0.6}, got.Embedding, 1e-6)
}

func TestStore_GetFragment_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.GetFragment(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ListFragments_OrderedByOrdinal(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.SaveRecord(ctx, testRecord("doc-1")))

	// Insert out of order; listing should come back sorted.
	fragments := []domain.Fragment{
		{ID: "frag-3", DocumentID: "doc-1", Text: "third", Page: 2, Ordinal: 2},
		{ID: "frag-1", DocumentID: "doc-1", Text: "first", Page: 1, Ordinal: 0},
		{ID: "frag-2", DocumentID: "doc-1", Text: "second", Page: 1, Ordinal: 1},
	}
	require.NoError(t, store.SaveFragments(ctx, fragments))

	got, err := store.ListFragments(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Text)
	assert.Equal(t, "second", got[1].Text)
	assert.Equal(t, "third", got[2].Text)
}

func TestStore_SaveFragments_Empty(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	assert.NoError(t, store.SaveFragments(context.Background(), nil))
}

func TestStore_PersistenceAcrossReopen(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "finsync-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)
	ctx := context.Background()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NoError(t, store.SaveRecord(ctx, testRecord("doc-1")))
	require.NoError(t, store.Close())

	reopened, err := NewStore(tempDir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetRecord(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got.ID)
}

func TestFloat32RoundTrip(t *testing.T) {
	original := []float32{-1.5, 0, 0.25, 3.14159}
	assert.Equal(t, original, bytesToFloat32Slice(float32SliceToBytes(original)))

	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}
