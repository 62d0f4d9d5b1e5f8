package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/entities"
	"github.com/BenLus/Github-Repo-Chatbot/internal/retry"
)

func testProcess(t *testing.T, source *mockSource, store *mockStore) *ProcessUseCase {
	t.Helper()
	chunker, err := NewChunker(newWordTokenizer(), 100, 10)
	if err != nil {
		t.Fatal(err)
	}
	uc := NewProcessUseCase(source, chunker, newMockEmbedder(), store, "", nil)
	uc.crawlRetry = retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	return uc
}

func TestCrawlRetriesTransientFailure(t *testing.T) {
	source := &mockSource{
		files:     []entities.RepoFile{{Path: "main.go", Content: "package main"}},
		err:       errors.New("503 service unavailable"),
		failFirst: 2,
	}
	uc := testProcess(t, source, newMockStore())

	repo, _ := entities.ParseRepoURL("https://github.com/acme/widgets")
	files, err := uc.Crawl(context.Background(), repo)
	if err != nil {
		t.Fatalf("Crawl after transient failures: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("got %d files, want 1", len(files))
	}
	if source.calls != 3 {
		t.Errorf("source called %d times, want 3", source.calls)
	}
}

func TestCrawlExhaustsRetryBudget(t *testing.T) {
	source := &mockSource{err: errors.New("503 service unavailable")}
	uc := testProcess(t, source, newMockStore())

	repo, _ := entities.ParseRepoURL("https://github.com/acme/widgets")
	_, err := uc.Crawl(context.Background(), repo)
	if !errors.Is(err, entities.ErrCrawl) {
		t.Errorf("error = %v, want ErrCrawl", err)
	}
	if source.calls != 3 {
		t.Errorf("source called %d times, want 3", source.calls)
	}
}

func TestCrawlDoesNotRetryPermanentFailure(t *testing.T) {
	source := &mockSource{err: errors.New("404 Not Found")}
	uc := testProcess(t, source, newMockStore())

	repo, _ := entities.ParseRepoURL("https://github.com/acme/widgets")
	_, err := uc.Crawl(context.Background(), repo)
	if !errors.Is(err, entities.ErrCrawl) {
		t.Fatalf("error = %v, want ErrCrawl", err)
	}
	if source.calls != 1 {
		t.Errorf("source called %d times, want 1", source.calls)
	}
}

func TestCrawlEmptyRepository(t *testing.T) {
	uc := testProcess(t, &mockSource{}, newMockStore())
	repo, _ := entities.ParseRepoURL("https://github.com/acme/empty")
	files, err := uc.Crawl(context.Background(), repo)
	if err != nil {
		t.Fatalf("empty repository should crawl cleanly: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("got %d files, want 0", len(files))
	}
}

func TestChunkFilesProducesStableIDs(t *testing.T) {
	uc := testProcess(t, &mockSource{}, newMockStore())
	files := []entities.RepoFile{
		{Path: "a.go", Content: "package a\nfunc A() {}"},
		{Path: "b.go", Content: "package b"},
	}

	first := uc.ChunkFiles("ns", files)
	second := uc.ChunkFiles("ns", files)
	if len(first) == 0 || len(first) != len(second) {
		t.Fatalf("chunk counts: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("chunk %d id changed between runs", i)
		}
	}
}

func TestEmbedChunksPairsVectors(t *testing.T) {
	uc := testProcess(t, &mockSource{}, newMockStore())
	chunks := []entities.Chunk{
		{ID: "1", Text: "alpha"},
		{ID: "2", Text: "beta"},
	}

	embedded, err := uc.EmbedChunks(context.Background(), chunks)
	if err != nil {
		t.Fatal(err)
	}
	if len(embedded) != 2 {
		t.Fatalf("got %d embedded chunks, want 2", len(embedded))
	}
	for i, e := range embedded {
		if e.Chunk.ID != chunks[i].ID {
			t.Errorf("embedded %d paired with chunk %s, want %s", i, e.Chunk.ID, chunks[i].ID)
		}
		if len(e.Vector) != 3 {
			t.Errorf("embedded %d has %d dimensions, want 3", i, len(e.Vector))
		}
	}
}

func TestEmbedChunksEmpty(t *testing.T) {
	uc := testProcess(t, &mockSource{}, newMockStore())
	embedded, err := uc.EmbedChunks(context.Background(), nil)
	if err != nil || embedded != nil {
		t.Errorf("empty input: embedded=%v err=%v", embedded, err)
	}
}

func TestIndexReplacesNamespace(t *testing.T) {
	store := newMockStore()
	uc := testProcess(t, &mockSource{}, store)

	old := []entities.EmbeddedChunk{{Chunk: entities.Chunk{ID: "stale"}, Vector: []float32{1, 2, 3}}}
	if err := uc.Index(context.Background(), "ns", "", old); err != nil {
		t.Fatal(err)
	}

	fresh := []entities.EmbeddedChunk{
		{Chunk: entities.Chunk{ID: "a"}, Vector: []float32{1, 2, 3}},
		{Chunk: entities.Chunk{ID: "b"}, Vector: []float32{4, 5, 6}},
	}
	if err := uc.Index(context.Background(), "ns", "ns", fresh); err != nil {
		t.Fatal(err)
	}

	if store.count("ns") != 2 {
		t.Errorf("namespace holds %d chunks after replace, want 2", store.count("ns"))
	}
	if len(store.dropped) != 0 {
		t.Errorf("same-namespace reindex dropped %v", store.dropped)
	}
	meta, ok, _ := store.Meta(context.Background(), "ns")
	if !ok || meta.Model != "mock-embedder" || meta.Dimensions != 3 {
		t.Errorf("namespace meta = %+v ok=%v", meta, ok)
	}
}

func TestIndexDropsStaleNamespaceOnSwitch(t *testing.T) {
	store := newMockStore()
	uc := testProcess(t, &mockSource{}, store)

	if err := uc.Index(context.Background(), "old_ns", "", []entities.EmbeddedChunk{
		{Chunk: entities.Chunk{ID: "x"}, Vector: []float32{1, 2, 3}},
	}); err != nil {
		t.Fatal(err)
	}

	if err := uc.Index(context.Background(), "new_ns", "old_ns", nil); err != nil {
		t.Fatal(err)
	}
	if len(store.dropped) != 1 || store.dropped[0] != "old_ns" {
		t.Errorf("dropped namespaces %v, want [old_ns]", store.dropped)
	}
	if store.count("old_ns") != 0 {
		t.Error("old namespace still holds chunks")
	}
}

func TestIndexWrapsStoreFailure(t *testing.T) {
	store := newMockStore()
	store.replaceErr = errors.New("disk full")
	uc := testProcess(t, &mockSource{}, store)

	err := uc.Index(context.Background(), "ns", "", nil)
	if !errors.Is(err, entities.ErrIndex) {
		t.Errorf("error = %v, want ErrIndex", err)
	}
}
