package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/entities"
	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/ports"
	"github.com/BenLus/Github-Repo-Chatbot/internal/retry"
)

// ProcessUseCase runs the ingestion stages for one repository: crawl, chunk,
// embed, index. The orchestrator drives the stages so it can report state
// between them.
type ProcessUseCase struct {
	source     ports.RepositorySource
	chunker    *Chunker
	embedder   ports.EmbeddingService
	store      ports.VectorStore
	credential string
	crawlRetry retry.Policy
	logger     *slog.Logger
}

// NewProcessUseCase creates a ProcessUseCase with injected collaborators.
func NewProcessUseCase(
	source ports.RepositorySource,
	chunker *Chunker,
	embedder ports.EmbeddingService,
	store ports.VectorStore,
	credential string,
	logger *slog.Logger,
) *ProcessUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessUseCase{
		source:     source,
		chunker:    chunker,
		embedder:   embedder,
		store:      store,
		credential: credential,
		crawlRetry: retry.DefaultPolicy(),
		logger:     logger,
	}
}

// Crawl lists the repository's files, retrying transient fetch failures.
// A repository with zero processable files is not an error; chat then runs
// against an empty namespace.
func (uc *ProcessUseCase) Crawl(ctx context.Context, repo entities.RepoRef) ([]entities.RepoFile, error) {
	var files []entities.RepoFile
	err := uc.crawlRetry.Do(ctx, func(ctx context.Context) error {
		var err error
		files, err = uc.source.ListFiles(ctx, repo, uc.credential)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", entities.ErrCrawl, repo, err)
	}

	uc.logger.Info("crawled repository", "repo", repo.String(), "files", len(files))
	return files, nil
}

// ChunkFiles splits every file into chunks for the repository's namespace.
func (uc *ProcessUseCase) ChunkFiles(namespace string, files []entities.RepoFile) []entities.Chunk {
	var chunks []entities.Chunk
	for _, file := range files {
		for chunk := range uc.chunker.Chunks(namespace, file.Path, file.Content) {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// EmbedChunks generates one vector per chunk, preserving order. The embedding
// adapter owns its retry budget; a failure here is already terminal.
func (uc *ProcessUseCase) EmbedChunks(ctx context.Context, chunks []entities.Chunk) ([]entities.EmbeddedChunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := uc.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", entities.ErrEmbeddingUnavailable, len(vectors), len(chunks))
	}

	embedded := make([]entities.EmbeddedChunk, len(chunks))
	for i, chunk := range chunks {
		embedded[i] = entities.EmbeddedChunk{Chunk: chunk, Vector: vectors[i]}
	}
	return embedded, nil
}

// Index replaces the namespace's contents atomically. When the session is
// switching repositories, the stale previous namespace is dropped first. The
// previous contents of namespace itself stay visible until Replace commits.
func (uc *ProcessUseCase) Index(ctx context.Context, namespace, staleNamespace string, embedded []entities.EmbeddedChunk) error {
	if staleNamespace != "" && staleNamespace != namespace {
		if err := uc.store.DropNamespace(ctx, staleNamespace); err != nil {
			return fmt.Errorf("%w: dropping stale namespace %s: %v", entities.ErrIndex, staleNamespace, err)
		}
	}

	meta := ports.NamespaceMeta{Model: uc.embedder.Model(), Dimensions: uc.embedder.Dimensions()}
	if err := uc.store.Replace(ctx, namespace, meta, embedded); err != nil {
		return fmt.Errorf("%w: %v", entities.ErrIndex, err)
	}

	uc.logger.Info("indexed repository", "namespace", namespace, "chunks", len(embedded))
	return nil
}
