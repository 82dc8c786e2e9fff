// Package capsule packs one import into a portable archive: the original
// document, the parse result, the warnings log, and a manifest describing
// all of them.
//
//	manifest.json
//	document/<name>
//	result.json
//	warnings.log
package capsule

import (
	"encoding/json"
	"fmt"

	"github.com/FocuswithJustin/Linegra/core/errors"
	"github.com/FocuswithJustin/Linegra/core/gedcom"
)

// Version is the current bundle format version.
const Version = "1.0.0"

// ToolName identifies the writer in every manifest.
const ToolName = "linegra"

// ToolVersion is stamped into new manifests. The CLI overrides it at link time.
var ToolVersion = "dev"

// Entry kinds.
const (
	KindDocument = "document"
	KindResult   = "result"
	KindWarnings = "warnings"
)

// Manifest describes the contents of a bundle (manifest.json).
type Manifest struct {
	CapsuleVersion string            `json:"capsule_version"`
	CreatedAt      string            `json:"created_at"`
	Tool           ToolInfo          `json:"tool"`
	Document       DocumentInfo      `json:"document"`
	Stats          gedcom.Stats      `json:"stats"`
	Entries        map[string]*Entry `json:"entries"`
}

// ToolInfo describes the tool that wrote the bundle.
type ToolInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// DocumentInfo identifies the imported document.
type DocumentInfo struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	SHA256    string `json:"sha256"`
	BLAKE3    string `json:"blake3"`
}

// Entry is one file stored in the bundle.
type Entry struct {
	Path      string `json:"path"`
	Kind      string `json:"kind"`
	SHA256    string `json:"sha256"`
	SizeBytes int64  `json:"size_bytes"`
	MIME      string `json:"mime,omitempty"`
}

// NewManifest returns an empty manifest stamped with the current time.
func NewManifest() *Manifest {
	return &Manifest{
		CapsuleVersion: Version,
		CreatedAt:      nowFunc().UTC().Format("2006-01-02T15:04:05Z07:00"),
		Tool:           ToolInfo{Name: ToolName, Version: ToolVersion},
		Entries:        make(map[string]*Entry),
	}
}

// ToJSON serializes the manifest with indentation.
func (m *Manifest) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// ParseManifest decodes and checks a manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.NewParse("manifest", "manifest.json", err.Error())
	}
	if m.CapsuleVersion == "" {
		return nil, errors.NewValidation("capsule_version", "missing")
	}
	if m.CapsuleVersion != Version {
		return nil, errors.NewUnsupported("capsule version "+m.CapsuleVersion, fmt.Sprintf("this build reads %s", Version))
	}
	if m.Document.Path == "" {
		return nil, errors.NewValidation("document.path", "missing")
	}
	if m.Entries == nil {
		m.Entries = make(map[string]*Entry)
	}
	return &m, nil
}
