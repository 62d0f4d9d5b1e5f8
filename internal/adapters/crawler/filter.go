// Package crawler provides repository source adapters implementing
// ports.RepositorySource.
package crawler

import (
	"path/filepath"
	"strings"
)

// sourceExtensions are the file types worth indexing.
var sourceExtensions = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".java": true,
	".cpp": true, ".c": true, ".h": true, ".cs": true,
	".php": true, ".rb": true, ".go": true, ".rs": true,
	".swift": true, ".kt": true, ".scala": true, ".r": true,
	".sh": true, ".html": true, ".css": true, ".json": true,
	".yaml": true, ".yml": true, ".sql": true,
	".md": true, ".txt": true,
}

// IsSourceFile reports whether a path looks like indexable source or docs.
func IsSourceFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	if strings.HasPrefix(base, "readme") {
		return true
	}
	return sourceExtensions[strings.ToLower(filepath.Ext(path))]
}
