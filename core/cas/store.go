// Package cas keeps imported documents in a content-addressed layout.
//
// Each document is written once under its SHA-256 digest; a BLAKE3 index
// maps the faster BLAKE3 fingerprint (used as the parse cache key) back to
// the SHA-256 blob.
//
//	<root>/blobs/sha256/<ab>/<sha256>
//	<root>/blobs/blake3/<cd>/<blake3>   (contains the sha256 hex)
package cas

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/zeebo/blake3"
)

// ErrBlobNotFound is returned when no blob matches a digest.
var ErrBlobNotFound = errors.New("blob not found")

// ErrInvalidHash is returned for a digest that is not 64 lowercase hex chars.
var ErrInvalidHash = errors.New("invalid hash format")

var hexDigest = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Digest identifies a document by both of its hashes.
type Digest struct {
	SHA256 string `json:"sha256"`
	BLAKE3 string `json:"blake3"`
}

// Fingerprint hashes data without storing it.
func Fingerprint(data []byte) Digest {
	s := sha256.Sum256(data)
	b := blake3.Sum256(data)
	return Digest{
		SHA256: hex.EncodeToString(s[:]),
		BLAKE3: hex.EncodeToString(b[:]),
	}
}

// Store is a content-addressed document store rooted at a directory.
type Store struct {
	root string
}

// NewStore creates the store layout under root if needed.
func NewStore(root string) (*Store, error) {
	for _, dir := range []string{"sha256", "blake3"} {
		if err := os.MkdirAll(filepath.Join(root, "blobs", dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create blob directory: %w", err)
		}
	}
	return &Store{root: root}, nil
}

// Root returns the store directory.
func (s *Store) Root() string {
	return s.root
}

// Put stores data and indexes its BLAKE3 fingerprint. Storing the same
// content twice is a no-op.
func (s *Store) Put(data []byte) (Digest, error) {
	d := Fingerprint(data)

	blobPath := s.path("sha256", d.SHA256)
	if _, err := os.Stat(blobPath); err != nil {
		if err := writeAtomic(blobPath, data); err != nil {
			return Digest{}, fmt.Errorf("failed to write blob: %w", err)
		}
	}

	indexPath := s.path("blake3", d.BLAKE3)
	if _, err := os.Stat(indexPath); err != nil {
		if err := writeAtomic(indexPath, []byte(d.SHA256)); err != nil {
			return Digest{}, fmt.Errorf("failed to write blake3 index: %w", err)
		}
	}

	return d, nil
}

// Get returns the blob with the given SHA-256 digest.
func (s *Store) Get(sha string) ([]byte, error) {
	if !hexDigest.MatchString(sha) {
		return nil, ErrInvalidHash
	}
	data, err := os.ReadFile(s.path("sha256", sha))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

// Resolve maps a BLAKE3 fingerprint to the SHA-256 digest of its blob.
func (s *Store) Resolve(b3 string) (string, error) {
	if !hexDigest.MatchString(b3) {
		return "", ErrInvalidHash
	}
	data, err := os.ReadFile(s.path("blake3", b3))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrBlobNotFound
		}
		return "", fmt.Errorf("failed to read blake3 index: %w", err)
	}
	sha := strings.TrimSpace(string(data))
	if !hexDigest.MatchString(sha) {
		return "", fmt.Errorf("corrupt blake3 index for %s", b3)
	}
	return sha, nil
}

// GetByBlake3 returns the blob with the given BLAKE3 fingerprint.
func (s *Store) GetByBlake3(b3 string) ([]byte, error) {
	sha, err := s.Resolve(b3)
	if err != nil {
		return nil, err
	}
	return s.Get(sha)
}

// Exists reports whether a blob with the SHA-256 digest is stored.
func (s *Store) Exists(sha string) bool {
	if !hexDigest.MatchString(sha) {
		return false
	}
	_, err := os.Stat(s.path("sha256", sha))
	return err == nil
}

func (s *Store) path(kind, digest string) string {
	return filepath.Join(s.root, "blobs", kind, digest[:2], digest)
}

// writeAtomic writes data to a temp file beside path and renames it into
// place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".blob-*")
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
		return err
	}
	return nil
}
