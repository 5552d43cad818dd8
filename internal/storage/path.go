package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator confines logical object paths to a root directory.
type PathValidator struct {
	root string
}

// NewPathValidator creates a new path validator for the given root
func NewPathValidator(root string) (*PathValidator, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	return &PathValidator{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute storage root.
func (v *PathValidator) Root() string {
	return v.root
}

// Resolve maps a logical path such as "<id>/<id>.pdf" to a file under the root.
func (v *PathValidator) Resolve(logical string) (string, error) {
	logical = strings.ReplaceAll(logical, "\x00", "")
	if logical == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if filepath.IsAbs(logical) || strings.HasPrefix(logical, "/") {
		return "", fmt.Errorf("logical path must be relative: %s", logical)
	}

	full := filepath.Join(v.root, filepath.FromSlash(logical))
	within, err := v.IsWithinRoot(full)
	if err != nil {
		return "", fmt.Errorf("path validation failed: %w", err)
	}
	if !within || full == v.root {
		return "", fmt.Errorf("path is outside storage root: %s", logical)
	}
	return full, nil
}

// IsWithinRoot reports whether path, after cleaning and resolving symlinks,
// stays inside the root.
func (v *PathValidator) IsWithinRoot(path string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}
	cleanPath := filepath.Clean(absPath)

	realPath := cleanPath
	if info, err := os.Lstat(cleanPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		if resolved, err := filepath.EvalSymlinks(cleanPath); err == nil {
			realPath = resolved
		}
	}

	realRoot := v.root
	if resolved, err := filepath.EvalSymlinks(v.root); err == nil {
		realRoot = resolved
	}

	within := func(p string) bool {
		for _, dir := range []string{v.root, realRoot} {
			if p == dir || strings.HasPrefix(p, dir+string(filepath.Separator)) {
				return true
			}
		}
		return false
	}

	return within(cleanPath) && within(realPath), nil
}
