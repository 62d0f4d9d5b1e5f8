package vectordb

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/entities"
	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/ports"
)

// MemoryStore is an in-memory vector store. Nothing survives a restart; it
// exists for tests and throwaway sessions.
type MemoryStore struct {
	mu         sync.RWMutex
	namespaces map[string]*memoryNamespace
}

type memoryNamespace struct {
	meta   ports.NamespaceMeta
	chunks map[string]entities.EmbeddedChunk
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{namespaces: make(map[string]*memoryNamespace)}
}

// Upsert inserts chunks, overwriting entries with the same id.
func (s *MemoryStore) Upsert(ctx context.Context, namespace string, meta ports.NamespaceMeta, chunks []entities.EmbeddedChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		ns = &memoryNamespace{meta: meta, chunks: make(map[string]entities.EmbeddedChunk)}
		s.namespaces[namespace] = ns
	}
	ns.meta = meta
	return ns.insert(meta, chunks)
}

// Replace swaps the namespace's full contents.
func (s *MemoryStore) Replace(ctx context.Context, namespace string, meta ports.NamespaceMeta, chunks []entities.EmbeddedChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns := &memoryNamespace{meta: meta, chunks: make(map[string]entities.EmbeddedChunk)}
	if err := ns.insert(meta, chunks); err != nil {
		return err
	}
	s.namespaces[namespace] = ns
	return nil
}

func (ns *memoryNamespace) insert(meta ports.NamespaceMeta, chunks []entities.EmbeddedChunk) error {
	for _, c := range chunks {
		if len(c.Vector) != meta.Dimensions {
			return fmt.Errorf("%w: chunk %s has %d dimensions, namespace expects %d",
				entities.ErrDimensionMismatch, c.ID, len(c.Vector), meta.Dimensions)
		}
		ns.chunks[c.ID] = c
	}
	return nil
}

// Search ranks the namespace's chunks by cosine similarity, descending, ties
// broken by id.
func (s *MemoryStore) Search(ctx context.Context, namespace string, vector []float32, k int) ([]entities.RetrievalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		return nil, nil
	}
	if len(vector) != ns.meta.Dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, namespace expects %d",
			entities.ErrDimensionMismatch, len(vector), ns.meta.Dimensions)
	}

	results := make([]entities.RetrievalResult, 0, len(ns.chunks))
	for _, c := range ns.chunks {
		results = append(results, entities.RetrievalResult{
			Chunk: c.Chunk,
			Score: cosineSimilarity(vector, c.Vector),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// DropNamespace removes the namespace entirely.
func (s *MemoryStore) DropNamespace(ctx context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.namespaces, namespace)
	return nil
}

// Meta reports the namespace's embedding configuration.
func (s *MemoryStore) Meta(ctx context.Context, namespace string) (ports.NamespaceMeta, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.namespaces[namespace]
	if !ok {
		return ports.NamespaceMeta{}, false, nil
	}
	return ns.meta, true, nil
}

// ChunkCount returns the number of chunks stored for the namespace.
func (s *MemoryStore) ChunkCount(ctx context.Context, namespace string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.namespaces[namespace]
	if !ok {
		return 0, nil
	}
	return len(ns.chunks), nil
}
