package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"autoimport/internal/core/ports"
	"autoimport/internal/engine/imports"
	"autoimport/internal/shared/util"
)

// FileHost serves documents straight from disk. Edits are rejected when the
// file changed since it was last read through the host.
type FileHost struct {
	mu     sync.Mutex
	hashes map[string]string
}

var _ ports.DocumentHost = (*FileHost)(nil)

func NewFileHost() *FileHost {
	return &FileHost{hashes: make(map[string]string)}
}

func (h *FileHost) DocumentText(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path = filepath.Clean(path)
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	h.mu.Lock()
	h.hashes[path] = util.ContentHash(content)
	h.mu.Unlock()
	return string(content), nil
}

func (h *FileHost) ApplyEdits(ctx context.Context, path string, edits []ports.TextEdit) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path = filepath.Clean(path)

	h.mu.Lock()
	defer h.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	if known, ok := h.hashes[path]; ok && known != util.ContentHash(content) {
		return false, nil
	}

	next, err := imports.ApplyEdits(string(content), edits)
	if err != nil {
		return false, fmt.Errorf("apply edits to %s: %w", path, err)
	}
	if err := util.WriteFileAtomic(path, []byte(next), info.Mode().Perm()); err != nil {
		return false, err
	}
	h.hashes[path] = util.ContentHash([]byte(next))
	return true, nil
}

// Forget drops what the host knows about path.
func (h *FileHost) Forget(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.hashes, filepath.Clean(path))
}
