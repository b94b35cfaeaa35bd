package probe

import (
	"errors"
	"fmt"
	"os"
)

// ErrWorkspace is fatal to the run: a scratch workspace could not be created or
// populated, which means the host is out of disk or otherwise broken.
var ErrWorkspace = errors.New("scratch workspace unavailable")

const workspacePattern = "horizons-trial-"

// workspace is one disposable trial directory.
type workspace struct {
	dir string
}

// newWorkspace creates a fresh directory under root (the OS temp dir when empty).
func newWorkspace(root string) (*workspace, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrWorkspace, err)
		}
	}
	dir, err := os.MkdirTemp(root, workspacePattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkspace, err)
	}
	return &workspace{dir: dir}, nil
}

func (w *workspace) remove() error {
	return os.RemoveAll(w.dir)
}

// setupErr wraps a failure to populate the workspace.
func setupErr(what string, err error) error {
	return fmt.Errorf("%w: writing %s: %w", ErrWorkspace, what, err)
}
