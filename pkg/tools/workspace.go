package tools

import (
	"fmt"
	"path/filepath"
	"strings"
)

const defaultMaxReadBytes = 1 << 20

// Workspace confines file tools to a root directory.
type Workspace struct {
	Root         string
	MaxReadBytes int64
}

// resolve maps a relative or absolute path onto the workspace root and
// rejects anything that escapes it.
func (w Workspace) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path must not be empty")
	}
	root, err := filepath.Abs(w.Root)
	if err != nil {
		return "", fmt.Errorf("invalid workspace root %s: %w", w.Root, err)
	}

	full := path
	if !filepath.IsAbs(path) {
		full = filepath.Join(root, path)
	}
	full = filepath.Clean(full)

	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside the workspace", path)
	}
	return full, nil
}

func (w Workspace) maxRead() int64 {
	if w.MaxReadBytes <= 0 {
		return defaultMaxReadBytes
	}
	return w.MaxReadBytes
}
