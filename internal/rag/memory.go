package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/hunterwarburton/fva/internal/core"
	"github.com/hunterwarburton/fva/internal/logger"
)

type memoryEntry struct {
	chunk  core.DocumentChunk
	vector core.EmbeddingVector
}

// MemoryIndex is an in-process Index scored by cosine similarity. Each
// namespace must be created with Add before it can be searched, the same way
// a Milvus partition must exist.
type MemoryIndex struct {
	mu         sync.RWMutex
	namespaces map[string][]memoryEntry
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{namespaces: make(map[string][]memoryEntry)}
}

// Add stores a chunk and its vector in namespace.
func (m *MemoryIndex) Add(namespace string, chunk core.DocumentChunk, vector core.EmbeddingVector) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make(core.EmbeddingVector, len(vector))
	copy(v, vector)
	m.namespaces[namespace] = append(m.namespaces[namespace], memoryEntry{chunk: chunk, vector: v})
}

// Search ranks the namespace's chunks against vector and returns the top k.
func (m *MemoryIndex) Search(ctx context.Context, vector core.EmbeddingVector, namespace string, k int) ([]core.DocumentChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.NewError("search index", core.ErrIndexUnavailable, err)
	}
	if k <= 0 {
		k = DefaultK
	}

	m.mu.RLock()
	entries, ok := m.namespaces[namespace]
	m.mu.RUnlock()
	if !ok {
		return nil, core.NewError("search index", core.ErrIndexUnavailable, fmt.Errorf("namespace %q does not exist", namespace))
	}

	out := make([]core.DocumentChunk, 0, len(entries))
	for _, e := range entries {
		if len(e.vector) != len(vector) {
			return nil, core.NewError("search index", core.ErrIndexUnavailable,
				fmt.Errorf("vector dimension %d does not match index dimension %d", len(vector), len(e.vector)))
		}
		c := e.chunk
		c.Score = cosine(vector, e.vector)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	logger.Debug("Memory index: %d hits in namespace %q", len(out), namespace)
	return out, nil
}

// ListSources returns the distinct source IDs in insertion order.
func (m *MemoryIndex) ListSources(ctx context.Context, namespace string, max int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries, ok := m.namespaces[namespace]
	if !ok {
		return nil, core.NewError("list sources", core.ErrIndexUnavailable, fmt.Errorf("namespace %q does not exist", namespace))
	}
	seen := make(map[string]struct{})
	var out []string
	for _, e := range entries {
		if _, dup := seen[e.chunk.SourceID]; dup || e.chunk.SourceID == "" {
			continue
		}
		seen[e.chunk.SourceID] = struct{}{}
		out = append(out, e.chunk.SourceID)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out, nil
}

func cosine(a, b core.EmbeddingVector) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
