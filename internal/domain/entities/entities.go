// Package entities contains the core domain types of the pipeline.
// Pure domain objects with no knowledge of storage or external services.
package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Chunk is a bounded, positioned slice of one source file prepared for
// embedding. Immutable once created.
type Chunk struct {
	ID         string
	Path       string
	StartLine  int // 1-based, inclusive
	EndLine    int // 1-based, inclusive
	Text       string
	TokenCount int
}

// EmbeddedChunk is a Chunk plus its vector representation.
type EmbeddedChunk struct {
	Chunk
	Vector []float32
}

// RetrievalResult is a retrieved chunk with its similarity score.
type RetrievalResult struct {
	Chunk Chunk
	Score float64
}

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is a single message in a chat session.
type ConversationTurn struct {
	Role string
	Text string
	At   time.Time
}

// RepoFile is one file fetched from a repository source.
type RepoFile struct {
	Path    string
	Content string
}

// RepoRef identifies a repository by owner and name.
type RepoRef struct {
	Owner string
	Name  string
	URL   string
}

var repoURLPattern = regexp.MustCompile(`^https://github\.com/([^/\s]+)/([^/\s]+?)(?:\.git)?/?$`)

// ParseRepoURL validates a repository URL and extracts owner/name.
// Returns ErrInvalidURL for anything that is not a github.com repository URL.
func ParseRepoURL(url string) (RepoRef, error) {
	trimmed := strings.TrimSpace(url)
	if path, ok := strings.CutPrefix(trimmed, "file://"); ok && path != "" {
		return LocalRepoRef(path), nil
	}
	m := repoURLPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return RepoRef{}, fmt.Errorf("%w: %q", ErrInvalidURL, url)
	}
	return RepoRef{Owner: m[1], Name: m[2], URL: trimmed}, nil
}

// LocalRepoRef builds a RepoRef for a local directory source.
// The path stands in for both name and URL so namespacing stays deterministic.
func LocalRepoRef(path string) RepoRef {
	return RepoRef{Owner: "local", Name: strings.Trim(path, "/"), URL: "file://" + path}
}

var namespaceStrip = regexp.MustCompile(`[^a-z0-9_]+`)

// Namespace derives the vector-index partition for this repository.
// Deterministic for a given URL, so re-processing reuses the same partition.
func (r RepoRef) Namespace() string {
	raw := strings.ToLower(r.Owner + "_" + r.Name)
	raw = namespaceStrip.ReplaceAllString(raw, "_")
	raw = strings.Trim(raw, "_")
	if len(raw) > 48 {
		raw = raw[:48]
	}
	sum := sha256.Sum256([]byte(r.URL))
	return raw + "_" + hex.EncodeToString(sum[:4])
}

func (r RepoRef) String() string {
	return r.Owner + "/" + r.Name
}

// ChunkID computes the deterministic identifier for a chunk: a stable hash of
// (namespace, path, position). span describes the chunk's position within the
// file, e.g. "L10:42" for a line range or "T2:900:1900" for a token range
// inside one line. Identical content re-processed lands on the same id, which
// makes upserts idempotent.
func ChunkID(namespace, path, span string) string {
	sum := sha256.Sum256([]byte(namespace + ":" + path + ":" + span))
	return hex.EncodeToString(sum[:16])
}
