package crawler

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/entities"
)

// LocalCrawler walks a directory on disk, treating it as a repository.
// Used for file:// repositories and the watch mode.
type LocalCrawler struct {
	logger *slog.Logger
}

// NewLocalCrawler creates a directory-backed repository source.
func NewLocalCrawler(logger *slog.Logger) *LocalCrawler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalCrawler{logger: logger}
}

// ListFiles reads every source file under the repository's directory.
// credential is ignored for local sources.
func (c *LocalCrawler) ListFiles(ctx context.Context, repo entities.RepoRef, credential string) ([]entities.RepoFile, error) {
	root := strings.TrimPrefix(repo.URL, "file://")

	var files []entities.RepoFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" || strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsSourceFile(path) {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		files = append(files, entities.RepoFile{
			Path:    filepath.ToSlash(rel),
			Content: string(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
