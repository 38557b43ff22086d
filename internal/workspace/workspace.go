// Package workspace manages per-request temporary directories.
// Every file a request touches (downloaded assets, intermediates, the final
// output) lives under one Workspace, and deleting the Workspace is the single
// terminal event for all of them.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Workspace is a uniquely-named temporary directory owning all files
// created for one request. Release is idempotent: whichever exit path
// triggers it first wins, later calls are no-ops.
type Workspace struct {
	dir  string
	once sync.Once
}

// New creates a workspace directory under root using the given filename
// prefix. If root is empty, os.TempDir() is used.
func New(root, prefix string) (*Workspace, error) {
	if root == "" {
		root = os.TempDir()
	}

	dir := filepath.Join(root, prefix+uuid.NewString())
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create workspace directory: %w", err)
	}

	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory path.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path returns the path for a named file inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// Release deletes the workspace directory and everything in it.
// Safe to call multiple times and from multiple goroutines; only the
// first call removes anything.
func (w *Workspace) Release() {
	w.once.Do(func() {
		_ = os.RemoveAll(w.dir)
	})
}
