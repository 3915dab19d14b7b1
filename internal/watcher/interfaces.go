package watcher

import (
	"context"

	"github.com/mvp-joe/symtree/internal/symtree"
)

// FileWatcher monitors source files for changes with debouncing and pause/resume support.
type FileWatcher interface {
	// Start begins watching source directories, calling callback with debounced file changes.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the file watcher and cleans up resources.
	Stop() error

	// Pause stops firing callbacks but continues accumulating events.
	Pause()

	// Resume resumes firing callbacks. If events accumulated during pause, fires immediately.
	Resume()
}

// UnitWriter persists re-parsed units. *storage.Store implements it.
type UnitWriter interface {
	WriteUnit(ctx context.Context, path string, res *symtree.ParseResult) error
	DeleteUnit(ctx context.Context, path string) (bool, error)
}
