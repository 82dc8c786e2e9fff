// Package storage keeps import bundles in a local directory or an
// S3-compatible bucket.
package storage

import (
	"context"
	"strings"

	"github.com/FocuswithJustin/Linegra/core/errors"
	"github.com/FocuswithJustin/Linegra/internal/config"
)

// BlobStore stores opaque blobs under slash-separated keys.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// New returns the store selected by cfg.Provider.
func New(ctx context.Context, cfg config.StorageConfig) (BlobStore, error) {
	switch cfg.Provider {
	case "local", "":
		return NewLocal(cfg.Dir)
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, errors.NewUnsupported("storage provider "+cfg.Provider, "use local or s3")
	}
}

// BundleKey names the bundle of one import.
func BundleKey(treeID, importID, ext string) string {
	return treeID + "/" + importID + ext
}

// checkKey rejects empty keys and keys that climb out of the store.
func checkKey(key string) error {
	if key == "" {
		return errors.NewValidation("key", "object key is required")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return errors.NewValidation("key", "object key must be relative: "+key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return errors.NewValidation("key", "invalid object key: "+key)
		}
	}
	return nil
}
