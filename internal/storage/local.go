// Package storage keeps sheet files on the local disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	pdferrors "github.com/a3tai/mcp-sheet-actions/internal/pdf/errors"
)

const workDirName = ".work"

// LocalStorage stores sheets under a root directory. Read hands out a private
// working copy; Write publishes a working copy back atomically.
type LocalStorage struct {
	paths *PathValidator
	debug bool
}

// NewLocalStorage creates the root directory if needed.
func NewLocalStorage(root string, debug bool) (*LocalStorage, error) {
	paths, err := NewPathValidator(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(paths.Root(), workDirName), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalStorage{paths: paths, debug: debug}, nil
}

// Root returns the storage root directory.
func (s *LocalStorage) Root() string {
	return s.paths.Root()
}

// Create stores the content of src under logical. Existing objects are not replaced.
func (s *LocalStorage) Create(ctx context.Context, src io.Reader, logical string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.paths.Resolve(logical)
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeStorage, "invalid storage path", err)
	}
	if _, err := os.Stat(target); err == nil {
		return pdferrors.Newf(pdferrors.ErrorTypeStorage, "object already exists: %s", logical)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeStorage, "failed to create object directory", err)
	}
	if err := WriteFileAtomic(target, 0o644, copyFrom(src)); err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeStorage, "failed to store object", err)
	}
	return nil
}

// Read copies the object into a working file and returns its local path.
// Callers release it with Discard.
func (s *LocalStorage) Read(ctx context.Context, logical string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	source, err := s.paths.Resolve(logical)
	if err != nil {
		return "", pdferrors.Wrap(pdferrors.ErrorTypeStorage, "invalid storage path", err)
	}

	in, err := os.Open(source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", pdferrors.Wrap(pdferrors.ErrorTypeStorage, "stored object is missing", err).WithContext(logical)
		}
		return "", pdferrors.Wrap(pdferrors.ErrorTypeStorage, "failed to open stored object", err)
	}
	defer in.Close()

	work, err := os.CreateTemp(filepath.Join(s.paths.Root(), workDirName), "sheet-*"+filepath.Ext(source))
	if err != nil {
		return "", pdferrors.Wrap(pdferrors.ErrorTypeStorage, "failed to create working copy", err)
	}
	if _, err := io.Copy(work, in); err != nil {
		work.Close()
		os.Remove(work.Name())
		return "", pdferrors.Wrap(pdferrors.ErrorTypeStorage, "failed to copy stored object", err)
	}
	if err := work.Close(); err != nil {
		os.Remove(work.Name())
		return "", pdferrors.Wrap(pdferrors.ErrorTypeStorage, "failed to close working copy", err)
	}
	return work.Name(), nil
}

// Write replaces the object at logical with the content of localPath.
func (s *LocalStorage) Write(ctx context.Context, localPath, logical string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.paths.Resolve(logical)
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeStorage, "invalid storage path", err)
	}

	in, err := os.Open(localPath)
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeStorage, "failed to open working copy", err)
	}
	defer in.Close()

	if err := WriteFileAtomic(target, 0o644, copyFrom(in)); err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeStorage, "failed to write back object", err)
	}
	return nil
}

// Discard removes a working copy handed out by Read.
func (s *LocalStorage) Discard(localPath string) error {
	within, err := s.paths.IsWithinRoot(localPath)
	if err != nil || !within || filepath.Dir(localPath) != filepath.Join(s.paths.Root(), workDirName) {
		return fmt.Errorf("not a working copy: %s", localPath)
	}
	if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Delete removes the object and its directory when it becomes empty.
func (s *LocalStorage) Delete(ctx context.Context, logical string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.paths.Resolve(logical)
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeStorage, "invalid storage path", err)
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return pdferrors.Wrap(pdferrors.ErrorTypeStorage, "failed to delete object", err)
	}
	if dir := filepath.Dir(target); dir != s.paths.Root() {
		_ = os.Remove(dir)
	}
	return nil
}

func copyFrom(src io.Reader) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.Copy(w, src)
		return err
	}
}
