// Package vectordb provides vector store adapters implementing
// ports.VectorStore.
package vectordb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/entities"
	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/ports"
)

// SQLiteStore persists embedded chunks per namespace in a SQLite database
// under a configured data directory. Similarity search is brute force, which
// is fine at single-repository scale.
type SQLiteStore struct {
	db *sql.DB

	// locks serializes writers per namespace; searches in other namespaces
	// are unaffected.
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// NewSQLiteStore opens (or creates) the store at dataPath/vectors.db.
func NewSQLiteStore(dataPath string) (*SQLiteStore, error) {
	if dataPath == "" {
		dataPath = "./data"
	}
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataPath, "vectors.db"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := &SQLiteStore{
		db:    db,
		locks: make(map[string]*sync.RWMutex),
	}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		namespace   TEXT NOT NULL,
		id          TEXT NOT NULL,
		path        TEXT NOT NULL,
		start_line  INTEGER NOT NULL,
		end_line    INTEGER NOT NULL,
		content     TEXT NOT NULL,
		token_count INTEGER NOT NULL,
		embedding   BLOB NOT NULL,
		PRIMARY KEY (namespace, id)
	);
	CREATE TABLE IF NOT EXISTS namespaces (
		namespace  TEXT PRIMARY KEY,
		model      TEXT NOT NULL,
		dimensions INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) lock(namespace string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[namespace]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[namespace] = l
	}
	return l
}

// Upsert inserts chunks, overwriting rows with the same id.
func (s *SQLiteStore) Upsert(ctx context.Context, namespace string, meta ports.NamespaceMeta, chunks []entities.EmbeddedChunk) error {
	l := s.lock(namespace)
	l.Lock()
	defer l.Unlock()
	return s.write(ctx, namespace, meta, chunks, false)
}

// Replace swaps the namespace's full contents in one transaction. Searches
// see the old contents or the new, never a mix.
func (s *SQLiteStore) Replace(ctx context.Context, namespace string, meta ports.NamespaceMeta, chunks []entities.EmbeddedChunk) error {
	l := s.lock(namespace)
	l.Lock()
	defer l.Unlock()
	return s.write(ctx, namespace, meta, chunks, true)
}

func (s *SQLiteStore) write(ctx context.Context, namespace string, meta ports.NamespaceMeta, chunks []entities.EmbeddedChunk, replace bool) error {
	for _, c := range chunks {
		if len(c.Vector) != meta.Dimensions {
			return fmt.Errorf("%w: chunk %s has %d dimensions, namespace expects %d",
				entities.ErrDimensionMismatch, c.ID, len(c.Vector), meta.Dimensions)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if replace {
		if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE namespace = ?", namespace); err != nil {
			return fmt.Errorf("clearing namespace: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO namespaces (namespace, model, dimensions) VALUES (?, ?, ?)
		ON CONFLICT(namespace) DO UPDATE SET model = excluded.model, dimensions = excluded.dimensions
	`, namespace, meta.Model, meta.Dimensions); err != nil {
		return fmt.Errorf("recording namespace meta: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks (namespace, id, path, start_line, end_line, content, token_count, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		embeddingJSON, err := json.Marshal(c.Vector)
		if err != nil {
			return fmt.Errorf("encoding embedding: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			namespace, c.ID, c.Path, c.StartLine, c.EndLine, c.Text, c.TokenCount, embeddingJSON,
		); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// Search ranks the namespace's chunks by cosine similarity, descending, ties
// broken by id. A namespace that was never written yields no results.
func (s *SQLiteStore) Search(ctx context.Context, namespace string, vector []float32, k int) ([]entities.RetrievalResult, error) {
	l := s.lock(namespace)
	l.RLock()
	defer l.RUnlock()

	meta, ok, err := s.metaLocked(ctx, namespace)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if len(vector) != meta.Dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, namespace expects %d",
			entities.ErrDimensionMismatch, len(vector), meta.Dimensions)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, start_line, end_line, content, token_count, embedding
		FROM chunks WHERE namespace = ?
	`, namespace)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var results []entities.RetrievalResult
	for rows.Next() {
		var chunk entities.Chunk
		var embeddingJSON []byte
		if err := rows.Scan(&chunk.ID, &chunk.Path, &chunk.StartLine, &chunk.EndLine,
			&chunk.Text, &chunk.TokenCount, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		var stored []float32
		if err := json.Unmarshal(embeddingJSON, &stored); err != nil {
			continue // skip corrupted embeddings
		}
		results = append(results, entities.RetrievalResult{
			Chunk: chunk,
			Score: cosineSimilarity(vector, stored),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
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

// DropNamespace removes every vector in the namespace and its metadata.
func (s *SQLiteStore) DropNamespace(ctx context.Context, namespace string) error {
	l := s.lock(namespace)
	l.Lock()
	defer l.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE namespace = ?", namespace); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM namespaces WHERE namespace = ?", namespace); err != nil {
		return err
	}
	return tx.Commit()
}

// Meta reports the namespace's recorded embedding configuration.
func (s *SQLiteStore) Meta(ctx context.Context, namespace string) (ports.NamespaceMeta, bool, error) {
	l := s.lock(namespace)
	l.RLock()
	defer l.RUnlock()
	return s.metaLocked(ctx, namespace)
}

func (s *SQLiteStore) metaLocked(ctx context.Context, namespace string) (ports.NamespaceMeta, bool, error) {
	var meta ports.NamespaceMeta
	err := s.db.QueryRowContext(ctx,
		"SELECT model, dimensions FROM namespaces WHERE namespace = ?", namespace,
	).Scan(&meta.Model, &meta.Dimensions)
	if err == sql.ErrNoRows {
		return ports.NamespaceMeta{}, false, nil
	}
	if err != nil {
		return ports.NamespaceMeta{}, false, err
	}
	return meta, true, nil
}

// ChunkCount returns the number of chunks stored for the namespace.
func (s *SQLiteStore) ChunkCount(ctx context.Context, namespace string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE namespace = ?", namespace,
	).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// cosineSimilarity calculates cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
