package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/FocuswithJustin/Linegra/core/errors"
	"github.com/FocuswithJustin/Linegra/internal/validation"
)

// Local stores blobs as files under a directory.
type Local struct {
	root string
}

// NewLocal creates root if needed.
func NewLocal(root string) (*Local, error) {
	if root == "" {
		return nil, errors.NewValidation("storage.dir", "directory is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.NewIO("mkdir", root, err)
	}
	return &Local{root: root}, nil
}

// Root returns the store directory.
func (l *Local) Root() string {
	return l.root
}

func (l *Local) path(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	rel, err := validation.SanitizePath(l.root, filepath.FromSlash(key))
	if err != nil {
		return "", errors.NewValidation("key", err.Error())
	}
	return filepath.Join(l.root, rel), nil
}

// Put writes data under key, replacing any previous blob.
func (l *Local) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := l.path(key)
	if err != nil {
		return err
	}
	if err := writeAtomic(path, data); err != nil {
		return errors.NewIO("write", path, err)
	}
	return nil
}

// Get reads the blob stored under key.
func (l *Local) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := l.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.NewNotFound("blob", key)
	}
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	return data, nil
}

// Exists reports whether a blob is stored under key.
func (l *Local) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := l.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, errors.NewIO("stat", path, err)
	}
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".bundle-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
