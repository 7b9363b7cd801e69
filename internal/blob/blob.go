// Package blob stores uploaded file bytes under a flat directory.
package blob

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// ErrBlobNotFound is returned when no blob has the requested name.
var ErrBlobNotFound = errors.New("blob not found")

// ErrInvalidName is returned for names that would escape the blob directory.
var ErrInvalidName = errors.New("invalid blob name")

// Store keeps blobs as files below a root directory of an afero filesystem.
type Store struct {
	fs   afero.Fs
	root string
}

// NewStore creates a blob store rooted at root on fs. Use afero.NewOsFs for
// disk storage and afero.NewMemMapFs in tests.
func NewStore(fs afero.Fs, root string) *Store {
	return &Store{fs: fs, root: root}
}

// NewDiskStore creates a blob store in dir on the local disk.
func NewDiskStore(dir string) *Store {
	return NewStore(afero.NewOsFs(), dir)
}

func (s *Store) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	return path.Join(s.root, name), nil
}

// Write stores data under name, replacing any existing blob.
func (s *Store) Write(name string, data io.Reader) (int64, error) {
	p, err := s.path(name)
	if err != nil {
		return 0, err
	}

	if err := s.fs.MkdirAll(s.root, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create blob directory: %w", err)
	}

	f, err := s.fs.Create(p)
	if err != nil {
		return 0, fmt.Errorf("failed to create blob: %w", err)
	}

	n, err := io.Copy(f, data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = s.fs.Remove(p)

		return 0, fmt.Errorf("failed to write blob: %w", err)
	}

	return n, nil
}

// Rename moves a blob to a new name.
func (s *Store) Rename(oldName, newName string) error {
	from, err := s.path(oldName)
	if err != nil {
		return err
	}

	to, err := s.path(newName)
	if err != nil {
		return err
	}

	if err := s.fs.Rename(from, to); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrBlobNotFound
		}

		return fmt.Errorf("failed to rename blob: %w", err)
	}

	return nil
}

// Remove deletes a blob. Removing a missing blob is not an error.
func (s *Store) Remove(name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}

	if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove blob: %w", err)
	}

	return nil
}

// Open returns a reader for a blob. The caller must close it.
func (s *Store) Open(name string) (io.ReadSeekCloser, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}

	f, err := s.fs.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrBlobNotFound
		}

		return nil, fmt.Errorf("failed to open blob: %w", err)
	}

	return f, nil
}

// Exists reports whether a blob is present.
func (s *Store) Exists(name string) (bool, error) {
	p, err := s.path(name)
	if err != nil {
		return false, err
	}

	ok, err := afero.Exists(s.fs, p)
	if err != nil {
		return false, fmt.Errorf("failed to stat blob: %w", err)
	}

	return ok, nil
}
