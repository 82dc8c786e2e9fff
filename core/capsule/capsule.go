package capsule

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/Linegra/core/cas"
	"github.com/FocuswithJustin/Linegra/core/errors"
	"github.com/FocuswithJustin/Linegra/core/gedcom"
)

// Injectable functions for testing
var (
	nowFunc            = time.Now
	xzNewWriter        = func(w io.Writer) (io.WriteCloser, error) { return xz.NewWriter(w) }
	gzipNewWriterLevel = func(w io.Writer, level int) (io.WriteCloser, error) { return gzip.NewWriterLevel(w, level) }
	jsonMarshalResult  = func(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }
)

// Fixed paths inside a bundle.
const (
	ManifestPath = "manifest.json"
	ResultPath   = "result.json"
	WarningsPath = "warnings.log"
	documentDir  = "document"
)

// maxEntrySize bounds a single decompressed entry.
const maxEntrySize = 512 << 20

// CompressionType specifies the outer compression of a bundle.
type CompressionType string

const (
	// CompressionXZ uses XZ compression (default, better ratio).
	CompressionXZ CompressionType = "xz"
	// CompressionGzip uses gzip compression (faster, wider tooling).
	CompressionGzip CompressionType = "gzip"
)

// Extension returns the conventional file suffix for the compression.
func (c CompressionType) Extension() string {
	if c == CompressionGzip {
		return ".tar.gz"
	}
	return ".tar.xz"
}

// ParseCompression maps a configuration string to a CompressionType.
// The empty string selects XZ.
func ParseCompression(s string) (CompressionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "xz":
		return CompressionXZ, nil
	case "gzip", "gz":
		return CompressionGzip, nil
	}
	return "", errors.NewUnsupported("compression "+s, "use xz or gzip")
}

// PackOptions configures how a bundle is written.
type PackOptions struct {
	Compression CompressionType
}

// DefaultPackOptions returns the default pack options (XZ compression).
func DefaultPackOptions() *PackOptions {
	return &PackOptions{Compression: CompressionXZ}
}

// Capsule is an import bundle held in memory.
type Capsule struct {
	Manifest *Manifest
	files    map[string][]byte
}

// New builds a bundle from a document and its parse result. The result is
// stored as produced; the document bytes are kept verbatim.
func New(name string, document []byte, result *gedcom.Result) (*Capsule, error) {
	if result == nil {
		return nil, errors.NewValidation("result", "parse result is required")
	}
	name = documentName(name)

	c := &Capsule{Manifest: NewManifest(), files: make(map[string][]byte)}
	digest := cas.Fingerprint(document)
	docPath := path.Join(documentDir, name)
	c.Manifest.Document = DocumentInfo{
		Name:      name,
		Path:      docPath,
		SizeBytes: int64(len(document)),
		SHA256:    digest.SHA256,
		BLAKE3:    digest.BLAKE3,
	}
	c.Manifest.Stats = result.Stats()

	resultData, err := jsonMarshalResult(result)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize result: %w", err)
	}

	c.add(docPath, KindDocument, "text/plain", document)
	c.add(ResultPath, KindResult, "application/json", resultData)
	c.add(WarningsPath, KindWarnings, "text/plain", warningsLog(result.Warnings))
	return c, nil
}

func (c *Capsule) add(p, kind, mime string, data []byte) {
	sum := sha256.Sum256(data)
	c.files[p] = data
	c.Manifest.Entries[p] = &Entry{
		Path:      p,
		Kind:      kind,
		SHA256:    hex.EncodeToString(sum[:]),
		SizeBytes: int64(len(data)),
		MIME:      mime,
	}
}

func documentName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "document.ged"
	}
	return name
}

func warningsLog(warnings []string) []byte {
	if len(warnings) == 0 {
		return []byte{}
	}
	return []byte(strings.Join(warnings, "\n") + "\n")
}

// Document returns the original document bytes.
func (c *Capsule) Document() []byte {
	return c.files[c.Manifest.Document.Path]
}

// Result decodes the stored parse result.
func (c *Capsule) Result() (*gedcom.Result, error) {
	data, ok := c.files[ResultPath]
	if !ok {
		return nil, errors.NewNotFound("entry", ResultPath)
	}
	var r gedcom.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.NewParse("json", ResultPath, err.Error())
	}
	return &r, nil
}

// Warnings returns the lines of the warnings log.
func (c *Capsule) Warnings() []string {
	data := strings.TrimRight(string(c.files[WarningsPath]), "\n")
	if data == "" {
		return []string{}
	}
	return strings.Split(data, "\n")
}

// Paths lists the stored entries in sorted order.
func (c *Capsule) Paths() []string {
	paths := make([]string, 0, len(c.files))
	for p := range c.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Verify checks every manifest entry against the stored bytes.
func (c *Capsule) Verify() error {
	for p, entry := range c.Manifest.Entries {
		data, ok := c.files[p]
		if !ok {
			return errors.NewNotFound("entry", p)
		}
		sum := sha256.Sum256(data)
		if got := hex.EncodeToString(sum[:]); got != entry.SHA256 {
			return errors.NewValidation(p, fmt.Sprintf("hash mismatch: manifest %s, content %s", entry.SHA256, got))
		}
	}
	if _, ok := c.Manifest.Entries[c.Manifest.Document.Path]; !ok {
		return errors.NewNotFound("entry", c.Manifest.Document.Path)
	}
	if cas.Fingerprint(c.Document()).SHA256 != c.Manifest.Document.SHA256 {
		return errors.NewValidation("document", "digest does not match manifest")
	}
	return nil
}

// StoreDocument writes the original document into a content-addressed store.
func (c *Capsule) StoreDocument(store *cas.Store) (cas.Digest, error) {
	return store.Put(c.Document())
}

// Pack writes the bundle as a compressed tar stream. The manifest is always
// the first entry.
func (c *Capsule) Pack(w io.Writer, opts *PackOptions) error {
	if opts == nil {
		opts = DefaultPackOptions()
	}

	var compressWriter io.WriteCloser
	var err error
	switch opts.Compression {
	case CompressionGzip:
		compressWriter, err = gzipNewWriterLevel(w, gzip.BestCompression)
		if err != nil {
			return fmt.Errorf("failed to create gzip writer: %w", err)
		}
	case CompressionXZ, "":
		compressWriter, err = xzNewWriter(w)
		if err != nil {
			return fmt.Errorf("failed to create xz writer: %w", err)
		}
	default:
		return errors.NewUnsupported("compression "+string(opts.Compression), "use xz or gzip")
	}

	tarWriter := tar.NewWriter(compressWriter)

	manifestData, err := c.Manifest.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize manifest: %w", err)
	}
	modTime := c.createdAt()
	if err := writeToTar(tarWriter, ManifestPath, manifestData, modTime); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	for _, p := range c.Paths() {
		if err := writeToTar(tarWriter, p, c.files[p], modTime); err != nil {
			return fmt.Errorf("failed to write %s: %w", p, err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish tar: %w", err)
	}
	if err := compressWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish compression: %w", err)
	}
	return nil
}

// Bytes packs the bundle into memory.
func (c *Capsule) Bytes(opts *PackOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Pack(&buf, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PackFile packs the bundle into a file.
func (c *Capsule) PackFile(archivePath string, opts *PackOptions) error {
	file, err := os.Create(archivePath)
	if err != nil {
		return errors.NewIO("create", archivePath, err)
	}
	if err := c.Pack(file, opts); err != nil {
		file.Close()
		os.Remove(archivePath)
		return err
	}
	if err := file.Close(); err != nil {
		return errors.NewIO("close", archivePath, err)
	}
	return nil
}

func (c *Capsule) createdAt() time.Time {
	if t, err := time.Parse(time.RFC3339, c.Manifest.CreatedAt); err == nil {
		return t
	}
	return nowFunc().UTC()
}

func writeToTar(tw *tar.Writer, name string, data []byte, modTime time.Time) error {
	header := &tar.Header{
		Name:    name,
		Mode:    0644,
		Size:    int64(len(data)),
		ModTime: modTime,
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}

// Detect reports the compression of a bundle stream from its magic bytes
// without consuming them.
func Detect(r *bufio.Reader) (CompressionType, error) {
	magic, err := r.Peek(6)
	if len(magic) < 2 {
		if err == nil || err == io.EOF {
			return "", errors.NewValidation("archive", "file too small to detect compression")
		}
		return "", errors.NewIO("read magic bytes", "", err)
	}
	if magic[0] == 0x1f && magic[1] == 0x8b {
		return CompressionGzip, nil
	}
	if len(magic) == 6 && bytes.Equal(magic, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}) {
		return CompressionXZ, nil
	}
	return "", errors.NewUnsupported("compression format", "unknown magic bytes")
}

// DetectCompression detects the compression type of a bundle file.
func DetectCompression(archivePath string) (CompressionType, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return "", errors.NewIO("open", archivePath, err)
	}
	defer file.Close()
	return Detect(bufio.NewReader(file))
}

// Unpack reads a bundle stream. Compression is detected automatically and
// the contents are verified against the manifest.
func Unpack(r io.Reader) (*Capsule, error) {
	br := bufio.NewReader(r)
	compression, err := Detect(br)
	if err != nil {
		return nil, fmt.Errorf("failed to detect compression: %w", err)
	}

	var decompressReader io.Reader
	switch compression {
	case CompressionGzip:
		gzReader, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzReader.Close()
		decompressReader = gzReader
	default:
		xzReader, err := xz.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		decompressReader = xzReader
	}

	files := make(map[string][]byte)
	var manifestData []byte
	tarReader := tar.NewReader(decompressReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read tar: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		name, err := cleanEntryName(header.Name)
		if err != nil {
			return nil, err
		}
		if header.Size > maxEntrySize {
			return nil, errors.NewValidation(name, "entry too large")
		}
		data, err := io.ReadAll(io.LimitReader(tarReader, maxEntrySize))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		if name == ManifestPath {
			manifestData = data
			continue
		}
		files[name] = data
	}

	if manifestData == nil {
		return nil, errors.NewNotFound("entry", ManifestPath)
	}
	manifest, err := ParseManifest(manifestData)
	if err != nil {
		return nil, err
	}
	c := &Capsule{Manifest: manifest, files: files}
	if err := c.Verify(); err != nil {
		return nil, err
	}
	return c, nil
}

// Open reads a bundle file.
func Open(archivePath string) (*Capsule, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return nil, errors.NewIO("open", archivePath, err)
	}
	defer file.Close()
	return Unpack(file)
}

func cleanEntryName(name string) (string, error) {
	clean := path.Clean(strings.TrimPrefix(name, "./"))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", errors.NewValidation("archive", fmt.Sprintf("entry %q escapes the bundle", name))
	}
	return clean, nil
}
