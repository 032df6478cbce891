package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iliyamo/service-marketplace/internal/model"
)

// Local stores files below a root directory that the HTTP server exposes
// under baseURL.
type Local struct {
	root    string
	baseURL string
}

func NewLocal(root, baseURL string) (*Local, error) {
	if root == "" {
		return nil, errors.New("storage: empty local path")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &Local{root: root, baseURL: baseURL}, nil
}

// Root is the directory served for URL.
func (l *Local) Root() string { return l.root }

// Put writes to a temp file and renames it into place, so a key never
// points at a partial file.
func (l *Local) Put(ctx context.Context, f model.FileInput) (model.FileRef, error) {
	if err := ctx.Err(); err != nil {
		return model.FileRef{}, err
	}
	now := time.Now().UTC()
	key := objectKey(f.Filename, now)
	full, err := l.path(key)
	if err != nil {
		return model.FileRef{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return model.FileRef{}, fmt.Errorf("storage: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return model.FileRef{}, fmt.Errorf("storage: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(f.Data); err != nil {
		tmp.Close()
		return model.FileRef{}, fmt.Errorf("storage: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return model.FileRef{}, fmt.Errorf("storage: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return model.FileRef{}, fmt.Errorf("storage: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return model.FileRef{}, fmt.Errorf("storage: rename: %w", err)
	}
	return model.FileRef{Key: key, URL: l.URL(key), UploadedAt: now.Truncate(time.Second)}, nil
}

// Delete removes the file. Missing files are not an error.
func (l *Local) Delete(_ context.Context, key string) error {
	full, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: delete: %w", err)
	}
	return nil
}

func (l *Local) URL(key string) string { return joinURL(l.baseURL, key) }

// path resolves key below root and rejects anything escaping it.
func (l *Local) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return filepath.Join(l.root, clean), nil
}
