// Package filewatcher provides file system monitoring for local repository
// sources, implementing ports.FileWatcher.
package filewatcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/BenLus/Github-Repo-Chatbot/internal/adapters/crawler"
	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/ports"
)

// FSNotifyWatcher watches a local repository tree and emits change events for
// source files, so a watching session can re-index on edit.
type FSNotifyWatcher struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger
}

// NewFSNotifyWatcher creates a watcher.
func NewFSNotifyWatcher(logger *slog.Logger) (*FSNotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FSNotifyWatcher{watcher: w, logger: logger}, nil
}

// Watch recursively registers every directory under root (skipping hidden
// ones) and emits events for source files until ctx is cancelled.
func (w *FSNotifyWatcher) Watch(ctx context.Context, root string) (<-chan ports.FileEvent, error) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
	if err != nil {
		return nil, err
	}

	events := make(chan ports.FileEvent, 100)

	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				// New subdirectories need their own watch.
				if event.Op.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						if err := w.watcher.Add(event.Name); err != nil {
							w.logger.Warn("cannot watch new directory", "path", event.Name, "error", err)
						}
						continue
					}
				}
				if !crawler.IsSourceFile(event.Name) {
					continue
				}

				var op ports.FileOperation
				switch {
				case event.Op.Has(fsnotify.Create):
					op = ports.FileCreated
				case event.Op.Has(fsnotify.Write):
					op = ports.FileModified
				case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
					op = ports.FileDeleted
				default:
					continue
				}

				select {
				case events <- ports.FileEvent{Path: event.Name, Operation: op}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("file watcher error", "error", err)
			}
		}
	}()

	return events, nil
}

// Stop closes the watcher and its event channel.
func (w *FSNotifyWatcher) Stop() error {
	return w.watcher.Close()
}
