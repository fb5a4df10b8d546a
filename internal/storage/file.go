package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// FileStore keeps one file per key under a directory. Writes go through a
// temp file and rename so a crash never leaves a half-written value.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, &ConfigError{Backend: "file", Message: "data directory is required"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the root directory
func (f *FileStore) Dir() string {
	return f.dir
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, url.QueryEscape(key)+".json")
}

// Get implements Store
func (f *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &Error{Backend: "file", Op: "get", Key: key, Cause: err}
	}
	return data, nil
}

// Set implements Store
func (f *FileStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validKey(key) {
		return &Error{Backend: "file", Op: "set", Key: key, Cause: fmt.Errorf("invalid key")}
	}

	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return &Error{Backend: "file", Op: "set", Key: key, Cause: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return &Error{Backend: "file", Op: "set", Key: key, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return &Error{Backend: "file", Op: "set", Key: key, Cause: err}
	}
	if err := os.Rename(tmpName, f.path(key)); err != nil {
		return &Error{Backend: "file", Op: "set", Key: key, Cause: err}
	}
	return nil
}

// Delete implements Store
func (f *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return &Error{Backend: "file", Op: "delete", Key: key, Cause: err}
	}
	return nil
}
