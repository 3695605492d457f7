package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jingelab/pathreview/internal/domain/review"
)

// FSStore implements review.ArtifactStore over a local directory tree.
// Storage keys map to paths under root; prefixes become subdirectories.
type FSStore struct {
	root string
}

func NewFS(root string) (*FSStore, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage root %q is not a directory", root)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) List(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, filepath.FromSlash(prefix)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		keys = append(keys, prefix+e.Name())
	}
	return keys, nil
}

// Stage returns the blob's real path. Nothing is copied, so the result is
// not transient and must never be reclaimed.
func (s *FSStore) Stage(_ context.Context, key, _ string) (review.Staged, error) {
	path := s.abs(key)
	if _, err := os.Stat(path); err != nil {
		return review.Staged{}, mapFSErr(err, key)
	}
	return review.Staged{Path: path, Transient: false}, nil
}

func (s *FSStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.abs(key))
	if err != nil {
		return nil, mapFSErr(err, key)
	}
	return data, nil
}

// Put writes to a temp file in the destination directory and renames it over
// the target, so readers observe either the old or the new content.
func (s *FSStore) Put(_ context.Context, key string, data []byte, _ string) error {
	path := s.abs(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Check reports whether the storage root is still readable.
func (s *FSStore) Check(_ context.Context) error {
	_, err := os.Stat(s.root)
	return err
}

func (s *FSStore) abs(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func mapFSErr(err error, key string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", review.ErrNotFound, key)
	}
	return err
}
