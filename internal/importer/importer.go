// Package importer turns a document into a persisted tree import: it
// hashes and parses the document (with a result cache), writes the import
// bundle to blob storage, and persists the result.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/FocuswithJustin/Linegra/core/cache"
	"github.com/FocuswithJustin/Linegra/core/capsule"
	"github.com/FocuswithJustin/Linegra/core/cas"
	"github.com/FocuswithJustin/Linegra/core/errors"
	"github.com/FocuswithJustin/Linegra/core/gedcom"
	"github.com/FocuswithJustin/Linegra/internal/archive"
	"github.com/FocuswithJustin/Linegra/internal/config"
	"github.com/FocuswithJustin/Linegra/internal/logging"
	"github.com/FocuswithJustin/Linegra/internal/storage"
	"github.com/FocuswithJustin/Linegra/internal/validation"
)

// Import stages, in order.
const (
	StageHash    = "hash"
	StageParse   = "parse"
	StageBundle  = "bundle"
	StageStore   = "store"
	StagePersist = "persist"
)

var stagePercent = map[string]int{
	StageHash:    10,
	StageParse:   50,
	StageBundle:  70,
	StageStore:   85,
	StagePersist: 100,
}

// Progress is reported after each finished stage.
type Progress struct {
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// ProgressFunc receives progress updates. It may be nil.
type ProgressFunc func(Progress)

// Request is one document to import into a tree.
type Request struct {
	TreeID string
	Name   string
	Data   []byte
	Actor  string
}

// Outcome is what a finished import produced.
type Outcome struct {
	Summary   archive.ImportSummary `json:"summary"`
	Digest    cas.Digest            `json:"digest"`
	BundleKey string                `json:"bundleKey"`
	Stats     gedcom.Stats          `json:"stats"`
	Warnings  []string              `json:"warnings"`
	Cached    bool                  `json:"cached"`
}

// Service runs imports against an archive and a blob store.
type Service struct {
	archive     *archive.Store
	blobs       storage.BlobStore
	results     *cache.ResultCache
	compression capsule.CompressionType
	actor       string
	now         func() time.Time
}

// New creates a service from the import configuration.
func New(store *archive.Store, blobs storage.BlobStore, cfg config.ImportConfig) (*Service, error) {
	compression, err := capsule.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	cacheCfg := cache.DefaultConfig()
	if cfg.CacheSize > 0 {
		cacheCfg.MaxSize = cfg.CacheSize
	}
	return &Service{
		archive:     store,
		blobs:       blobs,
		results:     cache.NewResultCache(cacheCfg),
		compression: compression,
		actor:       cfg.Actor,
		now:         time.Now,
	}, nil
}

// Archive returns the archive the service persists into.
func (s *Service) Archive() *archive.Store {
	return s.archive
}

// CacheStats reports parse cache statistics.
func (s *Service) CacheStats() cache.Stats {
	return s.results.Stats()
}

// Parse fingerprints data and parses it, reusing the cached result of an
// identical earlier document. Results are shared and must not be modified.
func (s *Service) Parse(data []byte) (*gedcom.Result, cas.Digest, bool) {
	digest := cas.Fingerprint(data)
	r, cached := s.parse(digest, data)
	return r, digest, cached
}

func (s *Service) parse(digest cas.Digest, data []byte) (*gedcom.Result, bool) {
	if r, ok := s.results.Get(digest.BLAKE3); ok {
		return r, true
	}
	r := gedcom.ParseBytes(data)
	s.results.Put(digest.BLAKE3, r)
	return r, false
}

// Import runs every stage for req. Cancellation is checked between stages;
// a stage that has started always runs to completion.
func (s *Service) Import(ctx context.Context, req Request, progress ProgressFunc) (*Outcome, error) {
	if req.TreeID == "" {
		return nil, errors.NewValidation("tree", "tree id is required")
	}
	if len(req.Data) == 0 {
		return nil, errors.NewValidation("document", "document is empty")
	}
	if req.Name != "" {
		name, err := validation.SanitizeFilename(req.Name)
		if err != nil {
			return nil, errors.NewValidation("name", err.Error())
		}
		req.Name = name
	}
	actor := req.Actor
	if actor == "" {
		actor = s.actor
	}
	start := s.now()
	logging.ImportStarted(ctx, req.TreeID, req.Name, len(req.Data))

	report := func(stage, msg string) {
		logging.DebugContext(ctx, "import stage finished", "tree_id", req.TreeID, "stage", stage, "detail", msg)
		if progress != nil {
			progress(Progress{Stage: stage, Percent: stagePercent[stage], Message: msg})
		}
	}
	fail := func(stage string, err error) (*Outcome, error) {
		logging.ImportFailed(ctx, req.TreeID, stage, err)
		return nil, errors.Wrapf(err, "import %s", stage)
	}
	checkpoint := func(stage string) error {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w before %s stage: %v", errors.ErrCanceled, stage, err)
		}
		return nil
	}

	out := &Outcome{}

	if err := checkpoint(StageHash); err != nil {
		return fail(StageHash, err)
	}
	out.Digest = cas.Fingerprint(req.Data)
	report(StageHash, "blake3 "+out.Digest.BLAKE3[:12])

	if err := checkpoint(StageParse); err != nil {
		return fail(StageParse, err)
	}
	result, cached := s.parse(out.Digest, req.Data)
	out.Cached = cached
	out.Stats = result.Stats()
	out.Warnings = result.Warnings
	report(StageParse, fmt.Sprintf("%d people, %d relationships, %d warnings",
		out.Stats.People, out.Stats.Relationships, out.Stats.Warnings))

	if err := checkpoint(StageBundle); err != nil {
		return fail(StageBundle, err)
	}
	bundle, err := capsule.New(req.Name, req.Data, result)
	if err != nil {
		return fail(StageBundle, err)
	}
	packed, err := bundle.Bytes(&capsule.PackOptions{Compression: s.compression})
	if err != nil {
		return fail(StageBundle, err)
	}
	report(StageBundle, fmt.Sprintf("%d bytes", len(packed)))

	if err := checkpoint(StageStore); err != nil {
		return fail(StageStore, err)
	}
	out.BundleKey = storage.BundleKey(req.TreeID, out.Digest.BLAKE3, s.compression.Extension())
	exists, err := s.blobs.Exists(ctx, out.BundleKey)
	if err != nil {
		return fail(StageStore, err)
	}
	if !exists {
		if err := s.blobs.Put(ctx, out.BundleKey, packed); err != nil {
			return fail(StageStore, err)
		}
	}
	report(StageStore, out.BundleKey)

	if err := checkpoint(StagePersist); err != nil {
		return fail(StagePersist, err)
	}
	summary, err := s.archive.ImportResult(ctx, req.TreeID, result, archive.ImportMeta{
		FileName:  req.Name,
		Actor:     actor,
		SHA256:    out.Digest.SHA256,
		BLAKE3:    out.Digest.BLAKE3,
		BundleKey: out.BundleKey,
	})
	if err != nil {
		return fail(StagePersist, err)
	}
	out.Summary = summary
	report(StagePersist, fmt.Sprintf("import %s", summary.ImportID))

	logging.ImportCompleted(ctx, req.TreeID, summary.ImportID, summary.People, summary.Relationships,
		summary.Warnings, s.now().Sub(start), "skipped_relationships", summary.SkippedRelationships)
	return out, nil
}

// ReadDocument reads and checks a document file from disk.
func ReadDocument(path string, max int64) ([]byte, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	data, err := validation.ReadUpload(f, max)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	if err := validation.ValidateDocument(filepath.Base(path), data, max); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return data, nil
}
