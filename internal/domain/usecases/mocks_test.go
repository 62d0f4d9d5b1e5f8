package usecases

import (
	"context"
	"sort"
	"sync"

	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/entities"
	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/ports"
)

// mockSource serves a fixed file set, optionally failing the first calls.
type mockSource struct {
	files     []entities.RepoFile
	err       error
	failFirst int // fail this many calls with err before succeeding
	calls     int
}

func (m *mockSource) ListFiles(ctx context.Context, repo entities.RepoRef, credential string) ([]entities.RepoFile, error) {
	m.calls++
	if m.err != nil && (m.failFirst == 0 || m.calls <= m.failFirst) {
		return nil, m.err
	}
	return m.files, nil
}

// mockEmbedder produces deterministic unit-ish vectors from text length.
type mockEmbedder struct {
	model string
	dims  int
	err   error
	calls int
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{model: "mock-embedder", dims: 3}
}

func (m *mockEmbedder) vector(text string) []float32 {
	v := make([]float32, m.dims)
	for i, r := range text {
		v[i%m.dims] += float32(r)
	}
	return v
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.vector(text), nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *mockEmbedder) Model() string   { return m.model }
func (m *mockEmbedder) Dimensions() int { return m.dims }

// mockStore is an in-memory vector store that records its write calls.
type mockStore struct {
	mu         sync.Mutex
	namespaces map[string]map[string]entities.EmbeddedChunk
	metas      map[string]ports.NamespaceMeta

	replaceCalls int
	dropped      []string
	searchErr    error
	replaceErr   error
}

func newMockStore() *mockStore {
	return &mockStore{
		namespaces: make(map[string]map[string]entities.EmbeddedChunk),
		metas:      make(map[string]ports.NamespaceMeta),
	}
}

func (m *mockStore) Upsert(ctx context.Context, namespace string, meta ports.NamespaceMeta, chunks []entities.EmbeddedChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.namespaces[namespace]
	if !ok {
		ns = make(map[string]entities.EmbeddedChunk)
		m.namespaces[namespace] = ns
	}
	m.metas[namespace] = meta
	for _, c := range chunks {
		ns[c.ID] = c
	}
	return nil
}

func (m *mockStore) Replace(ctx context.Context, namespace string, meta ports.NamespaceMeta, chunks []entities.EmbeddedChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceCalls++
	if m.replaceErr != nil {
		return m.replaceErr
	}
	ns := make(map[string]entities.EmbeddedChunk)
	for _, c := range chunks {
		ns[c.ID] = c
	}
	m.namespaces[namespace] = ns
	m.metas[namespace] = meta
	return nil
}

func (m *mockStore) Search(ctx context.Context, namespace string, vector []float32, k int) ([]entities.RetrievalResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	ns := m.namespaces[namespace]
	results := make([]entities.RetrievalResult, 0, len(ns))
	for _, c := range ns {
		results = append(results, entities.RetrievalResult{Chunk: c.Chunk, Score: 1})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Chunk.ID < results[j].Chunk.ID })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (m *mockStore) DropNamespace(ctx context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped = append(m.dropped, namespace)
	delete(m.namespaces, namespace)
	delete(m.metas, namespace)
	return nil
}

func (m *mockStore) Meta(ctx context.Context, namespace string) (ports.NamespaceMeta, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.metas[namespace]
	return meta, ok, nil
}

func (m *mockStore) count(namespace string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.namespaces[namespace])
}

// mockLLM echoes a canned answer and records the prompts it saw.
type mockLLM struct {
	answer  string
	err     error
	systems []string
	prompts []string
}

func (m *mockLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.systems = append(m.systems, systemPrompt)
	m.prompts = append(m.prompts, userPrompt)
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}
