package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes objects below a directory served at URLPrefix.
type LocalStore struct {
	root      string
	urlPrefix string
}

// NewLocal prepares root (creating it if needed) and returns a LocalStore
// whose locations look like urlPrefix + "/" + key.
func NewLocal(root, urlPrefix string) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("storage: empty root directory")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	prefix := "/" + strings.Trim(urlPrefix, "/")
	return &LocalStore{root: root, urlPrefix: prefix}, nil
}

// Root returns the directory backing the store.
func (s *LocalStore) Root() string {
	return s.root
}

// Put writes body to disk atomically via a temporary file.
func (s *LocalStore) Put(ctx context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dest := filepath.Join(s.root, filepath.FromSlash(cleaned))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("commit object: %w", err)
	}
	return s.urlPrefix + "/" + cleaned, nil
}

// Delete removes the file behind a location returned by Put.
func (s *LocalStore) Delete(_ context.Context, location string) error {
	key := strings.TrimPrefix(location, s.urlPrefix+"/")
	if key == location {
		return ErrInvalidKey
	}
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(cleaned)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}
