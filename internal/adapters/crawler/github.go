package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/entities"
)

const (
	defaultAPIBase = "https://api.github.com"
	defaultRawBase = "https://raw.githubusercontent.com"

	// maxFileBytes skips files too large to be useful context.
	maxFileBytes = 1 << 20
)

// tryBranches lists files from "main" first, falling back to "master" for
// older repositories.
var tryBranches = []string{"main", "master"}

// GitHubCrawler lists and fetches repository files through the GitHub API.
type GitHubCrawler struct {
	client  *http.Client
	apiBase string
	rawBase string
	logger  *slog.Logger
}

// NewGitHubCrawler creates a crawler against the public GitHub API.
func NewGitHubCrawler(logger *slog.Logger) *GitHubCrawler {
	return NewGitHubCrawlerWithBase(defaultAPIBase, defaultRawBase, logger)
}

// NewGitHubCrawlerWithBase creates a crawler with custom endpoints (used by
// tests).
func NewGitHubCrawlerWithBase(apiBase, rawBase string, logger *slog.Logger) *GitHubCrawler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitHubCrawler{
		client:  &http.Client{Timeout: 30 * time.Second},
		apiBase: apiBase,
		rawBase: rawBase,
		logger:  logger,
	}
}

type treeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int    `json:"size"`
}

type treeResponse struct {
	Tree      []treeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

// ListFiles fetches every source file reachable from the repository's default
// branch. credential is a personal access token; empty means anonymous.
func (c *GitHubCrawler) ListFiles(ctx context.Context, repo entities.RepoRef, credential string) ([]entities.RepoFile, error) {
	var tree *treeResponse
	var branch string
	var lastErr error
	for _, b := range tryBranches {
		t, err := c.fetchTree(ctx, repo, b, credential)
		if err != nil {
			lastErr = err
			continue
		}
		tree, branch = t, b
		break
	}
	if tree == nil {
		return nil, lastErr
	}
	if tree.Truncated {
		c.logger.Warn("repository tree truncated by API", "repo", repo.String(), "branch", branch)
	}

	var files []entities.RepoFile
	for _, entry := range tree.Tree {
		if entry.Type != "blob" || !IsSourceFile(entry.Path) {
			continue
		}
		if entry.Size > maxFileBytes {
			c.logger.Debug("skipping oversized file", "path", entry.Path, "size", entry.Size)
			continue
		}
		content, err := c.fetchContent(ctx, repo, branch, entry.Path, credential)
		if err != nil {
			return nil, err
		}
		files = append(files, entities.RepoFile{Path: entry.Path, Content: content})
	}
	return files, nil
}

func (c *GitHubCrawler) fetchTree(ctx context.Context, repo entities.RepoRef, branch, credential string) (*treeResponse, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1", c.apiBase, repo.Owner, repo.Name, branch)
	body, err := c.get(ctx, url, credential)
	if err != nil {
		return nil, err
	}
	var tree treeResponse
	if err := json.Unmarshal(body, &tree); err != nil {
		return nil, fmt.Errorf("decoding tree for %s@%s: %w", repo.String(), branch, err)
	}
	return &tree, nil
}

func (c *GitHubCrawler) fetchContent(ctx context.Context, repo entities.RepoRef, branch, path, credential string) (string, error) {
	url := fmt.Sprintf("%s/%s/%s/%s/%s", c.rawBase, repo.Owner, repo.Name, branch, path)
	body, err := c.get(ctx, url, credential)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *GitHubCrawler) get(ctx context.Context, url, credential string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if credential != "" {
		req.Header.Set("Authorization", "token "+credential)
	}

	rsp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer rsp.Body.Close()

	if rsp.StatusCode != http.StatusOK {
		// Include the status text so the retry classifier can spot rate
		// limits and server faults.
		return nil, fmt.Errorf("GET %s: %d %s", url, rsp.StatusCode, http.StatusText(rsp.StatusCode))
	}
	return io.ReadAll(rsp.Body)
}
