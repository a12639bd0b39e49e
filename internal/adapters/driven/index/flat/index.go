// Package flat implements a flat cosine-similarity vector index with
// exhaustive search. Vectors are normalised on insert so a search is a
// single dot product per stored vector. The index persists to a gob
// file alongside a JSON metadata sidecar.
package flat

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/finsync-labs/finsync-server/internal/core/domain"
	"github.com/finsync-labs/finsync-server/internal/core/ports/driven"
)

var _ driven.VectorIndex = (*Index)(nil)

const (
	indexFileName    = "vectors.gob"
	metadataFileName = "vectors.meta.json"
)

// entry is a single stored vector, kept normalised.
type entry struct {
	ID     string
	Vector []float32
}

// metadata is the sidecar describing the persisted index.
type metadata struct {
	Dimensions int    `json:"dimensions"`
	Count      int    `json:"count"`
	Model      string `json:"model"`
}

// Index is a flat in-memory vector index backed by files on disk.
type Index struct {
	mu         sync.RWMutex
	dir        string
	dimensions int
	model      string
	entries    []entry
	positions  map[string]int
}

// NewIndex opens or creates a flat index in dir. If a persisted index
// exists with a different dimensionality or embedding model, it is
// discarded and the index starts empty.
func NewIndex(dir string, dimensions int, model string) (*Index, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	idx := &Index{
		dir:        dir,
		dimensions: dimensions,
		model:      model,
		positions:  make(map[string]int),
	}

	if err := idx.load(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Add inserts or replaces a vector. The embedding must match the index
// dimensionality.
func (idx *Index) Add(ctx context.Context, fragmentID string, embedding []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(embedding) != idx.dimensions {
		return fmt.Errorf("%w: embedding has %d dimensions, index expects %d",
			domain.ErrInvalidInput, len(embedding), idx.dimensions)
	}

	normalised := normalise(embedding)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if pos, ok := idx.positions[fragmentID]; ok {
		idx.entries[pos].Vector = normalised
	} else {
		idx.positions[fragmentID] = len(idx.entries)
		idx.entries = append(idx.entries, entry{ID: fragmentID, Vector: normalised})
	}

	return idx.persistLocked()
}

// Search returns the k nearest vectors by cosine similarity.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(query) != idx.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index expects %d",
			domain.ErrInvalidInput, len(query), idx.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}

	normalised := normalise(query)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	hits := make([]driven.VectorHit, 0, len(idx.entries))
	for _, e := range idx.entries {
		hits = append(hits, driven.VectorHit{
			FragmentID: e.ID,
			Similarity: dot(normalised, e.Vector),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].FragmentID < hits[j].FragmentID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of stored vectors.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Close flushes the index to disk.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.persistLocked()
}

// load restores entries from the index file if the sidecar matches the
// configured dimensionality and model.
func (idx *Index) load() error {
	metaPath := filepath.Join(idx.dir, metadataFileName)
	metaData, err := os.ReadFile(metaPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading index metadata: %w", err)
	}

	var meta metadata
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return fmt.Errorf("parsing index metadata: %w", err)
	}
	if meta.Dimensions != idx.dimensions || meta.Model != idx.model {
		// Embedding model changed, stored vectors are unusable.
		return nil
	}

	file, err := os.Open(filepath.Join(idx.dir, indexFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening index file: %w", err)
	}
	defer file.Close()

	var entries []entry
	if err := gob.NewDecoder(file).Decode(&entries); err != nil {
		return fmt.Errorf("decoding index file: %w", err)
	}

	idx.entries = entries
	for i, e := range entries {
		idx.positions[e.ID] = i
	}
	return nil
}

// persistLocked writes the index file then the sidecar. Callers must
// hold the write lock.
func (idx *Index) persistLocked() error {
	indexPath := filepath.Join(idx.dir, indexFileName)
	tmpPath := indexPath + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating index file: %w", err)
	}
	if err := gob.NewEncoder(file).Encode(idx.entries); err != nil {
		file.Close()
		return fmt.Errorf("encoding index file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing index file: %w", err)
	}
	if err := os.Rename(tmpPath, indexPath); err != nil {
		return fmt.Errorf("replacing index file: %w", err)
	}

	meta := metadata{
		Dimensions: idx.dimensions,
		Count:      len(idx.entries),
		Model:      idx.model,
	}
	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding index metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(idx.dir, metadataFileName), metaData, 0600); err != nil {
		return fmt.Errorf("writing index metadata: %w", err)
	}
	return nil
}

// normalise returns a unit-length copy of v. Zero vectors are returned
// unchanged.
func normalise(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	if norm == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
