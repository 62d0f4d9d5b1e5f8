package entities

import "errors"

// Error taxonomy for the pipeline. Adapters and usecases wrap these with
// fmt.Errorf("...: %w", ...) so callers can classify with errors.Is.
var (
	// ErrInvalidURL: malformed repository URL. Local, never retried.
	ErrInvalidURL = errors.New("invalid repository URL")

	// ErrCrawl: remote fetch failure after the retry budget.
	ErrCrawl = errors.New("repository crawl failed")

	// ErrEmbeddingUnavailable: embedding service failure after the retry
	// budget. Aborts the current stage only.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrIndex: local vector storage fault. Not retryable without operator
	// intervention.
	ErrIndex = errors.New("vector index error")

	// ErrGeneration: answer generation failed for one turn. The failed turn
	// is not recorded in conversation history.
	ErrGeneration = errors.New("generation failed")

	// ErrNotReady: the requested action is invalid for the current pipeline
	// state. Advisory only.
	ErrNotReady = errors.New("no repository is ready for questions")

	// ErrModelMismatch: the query-time embedding model differs from the model
	// the namespace was indexed with.
	ErrModelMismatch = errors.New("embedding model mismatch for namespace")

	// ErrDimensionMismatch: vector dimensionality differs from the
	// namespace's fixed dimensionality. Never truncated or padded.
	ErrDimensionMismatch = errors.New("embedding dimensionality mismatch")
)
