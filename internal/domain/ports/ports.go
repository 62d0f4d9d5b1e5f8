// Package ports defines the interfaces for external collaborators.
// Usecases depend on these abstractions; adapters implement them.
package ports

import (
	"context"

	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/entities"
)

// EmbeddingService converts text into fixed-dimension vectors.
type EmbeddingService interface {
	// Embed generates a vector for a single text (query path).
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates one vector per input, in input order. Inputs
	// larger than the provider's batch limit are split and rejoined
	// transparently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model identifies the embedding model configuration. Indexing and
	// querying a namespace must use the same model.
	Model() string

	// Dimensions is the fixed vector dimensionality this service produces.
	Dimensions() int
}

// GenerationService produces an answer from an assembled prompt.
type GenerationService interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// NamespaceMeta records the embedding configuration a namespace was indexed
// with. All vectors in a namespace share one model and one dimensionality.
type NamespaceMeta struct {
	Model      string
	Dimensions int
}

// VectorStore persists embedded chunks per repository namespace and answers
// nearest-neighbor queries. Implementations must be safe for concurrent use
// across namespaces; Upsert/Replace/DropNamespace for the same namespace are
// mutually exclusive with each other.
type VectorStore interface {
	// Upsert inserts chunks, overwriting any existing chunk with the same id.
	Upsert(ctx context.Context, namespace string, meta NamespaceMeta, chunks []entities.EmbeddedChunk) error

	// Replace atomically swaps the namespace's full contents for chunks.
	// A concurrent Search sees the old contents or the new, never a mix.
	Replace(ctx context.Context, namespace string, meta NamespaceMeta, chunks []entities.EmbeddedChunk) error

	// Search returns up to k chunks ranked by cosine similarity, descending,
	// ties broken by chunk id.
	Search(ctx context.Context, namespace string, vector []float32, k int) ([]entities.RetrievalResult, error)

	// DropNamespace removes every vector in the namespace.
	DropNamespace(ctx context.Context, namespace string) error

	// Meta reports the namespace's embedding configuration. ok is false when
	// the namespace has never been written.
	Meta(ctx context.Context, namespace string) (meta NamespaceMeta, ok bool, err error)
}

// RepositorySource lists the files of a repository.
type RepositorySource interface {
	// ListFiles fetches every processable file. credential is passed through
	// to the backing API when non-empty.
	ListFiles(ctx context.Context, repo entities.RepoRef, credential string) ([]entities.RepoFile, error)
}

// Tokenizer counts and splits text with the generation model's tokenization
// scheme, keeping chunk sizes meaningful for context-window budgeting.
type Tokenizer interface {
	Count(text string) int
	Encode(text string) []int
	Decode(tokens []int) string
}

// FileWatcher monitors a local repository checkout for changes.
type FileWatcher interface {
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)
	Stop() error
}

// FileEvent is a file system change under a watched directory.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
