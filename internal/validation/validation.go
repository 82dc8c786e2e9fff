// Package validation checks user-supplied paths, file names, and uploads
// before they reach the importer.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
)

// Security limits to prevent DoS attacks (CWE-400).
const (
	// MaxFileSize is the largest document or bundle accepted (256 MB).
	MaxFileSize = 256 << 20
	// MaxFilenameLength is the maximum allowed filename length.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrPathTraversal    = errors.New("path traversal detected")
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrPathTooLong      = errors.New("path too long")
	ErrFilenameTooLong  = errors.New("filename too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrTooLarge         = errors.New("upload exceeds size limit")
	ErrEmptyUpload      = errors.New("upload is empty")
	ErrNotDocument      = errors.New("content is not a lineage-linked document")
)

// SanitizePath validates and sanitizes a user-supplied path to prevent path traversal attacks.
// It ensures the path does not escape the provided base directory.
// Returns the cleaned path relative to the base directory, or an error if invalid.
func SanitizePath(baseDir, userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}

	// Check path length
	if len(userPath) > MaxPathLength {
		return "", ErrPathTooLong
	}

	// Clean the path to remove redundant separators and resolve . and ..
	cleanPath := filepath.Clean(userPath)

	// Reject paths that try to escape the base directory
	if strings.Contains(cleanPath, "..") {
		return "", ErrPathTraversal
	}

	// Reject absolute paths (should be relative to baseDir)
	if filepath.IsAbs(cleanPath) {
		return "", fmt.Errorf("%w: absolute path not allowed", ErrPathTraversal)
	}

	// Build full path and verify it's within baseDir
	fullPath := filepath.Join(baseDir, cleanPath)
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}

	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	// Ensure the resolved path is within the base directory
	relPath, err := filepath.Rel(absBase, absPath)
	if err != nil || strings.HasPrefix(relPath, "..") {
		return "", ErrPathTraversal
	}

	return cleanPath, nil
}

// ValidateFilename checks if a filename is safe and does not contain malicious characters.
// It rejects filenames with path separators, control characters, and dangerous patterns.
func ValidateFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}

	// Check length
	if len(filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}

	// Reject dangerous filenames
	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	}

	// Check for path separators
	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidFilename)
	}

	// Check for null bytes (common injection attack)
	if strings.Contains(filename, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidFilename)
	}

	// Check for control characters
	for _, r := range filename {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidFilename)
		}
	}

	// Reject filenames starting with hyphen (can be confused with command flags)
	if strings.HasPrefix(filename, "-") {
		return fmt.Errorf("%w: filename cannot start with hyphen", ErrInvalidFilename)
	}

	return nil
}

// ValidatePath performs comprehensive path validation without requiring a base directory.
// It checks for dangerous patterns, length limits, and invalid characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	// Check length
	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}

	// Check for null bytes
	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}

	// Check for control characters
	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}

	return nil
}

// SanitizeFilename sanitizes a filename by removing or replacing invalid characters.
// This is useful when generating filenames from user input.
// Returns a safe filename or an error if the filename cannot be sanitized.
func SanitizeFilename(filename string) (string, error) {
	if filename == "" {
		return "", ErrInvalidFilename
	}

	// Remove leading/trailing whitespace
	filename = strings.TrimSpace(filename)

	// Replace path separators with underscores
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")

	// Remove null bytes
	filename = strings.ReplaceAll(filename, "\x00", "")

	// Remove control characters
	var cleaned strings.Builder
	for _, r := range filename {
		if !unicode.IsControl(r) {
			cleaned.WriteRune(r)
		}
	}
	filename = cleaned.String()

	// Remove leading hyphens
	filename = strings.TrimLeft(filename, "-")

	// Final validation
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}

	return filename, nil
}

// FileType is the kind of file a user handed in.
type FileType string

const (
	// FileTypeDocument is a line-oriented lineage-linked document.
	FileTypeDocument FileType = "document"
	// FileTypeBundleXZ is an import bundle compressed with XZ.
	FileTypeBundleXZ FileType = "tar.xz"
	// FileTypeBundleGZ is an import bundle compressed with gzip.
	FileTypeBundleGZ FileType = "tar.gz"
	// FileTypeUnknown is anything else.
	FileTypeUnknown FileType = "unknown"
)

var (
	magicXZ   = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
	magicGzip = []byte{0x1f, 0x8b}
	utf8BOM   = []byte{0xef, 0xbb, 0xbf}
)

// DetectFileType classifies the first bytes of a file.
func DetectFileType(head []byte) FileType {
	switch {
	case bytes.HasPrefix(head, magicXZ):
		return FileTypeBundleXZ
	case bytes.HasPrefix(head, magicGzip):
		return FileTypeBundleGZ
	case LooksLikeDocument(head):
		return FileTypeDocument
	}
	return FileTypeUnknown
}

// LooksLikeDocument reports whether buf begins like a lineage-linked
// document: optional byte-order mark and blank lines, then a line whose
// first token is a level number.
func LooksLikeDocument(buf []byte) bool {
	buf = bytes.TrimPrefix(buf, utf8BOM)
	if !isLikelyText(buf) {
		return false
	}
	for _, line := range bytes.Split(buf, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		i := 0
		for i < len(line) && line[i] >= '0' && line[i] <= '9' {
			i++
		}
		return i > 0 && (i == len(line) || line[i] == ' ' || line[i] == '\t')
	}
	return false
}

// ReadUpload reads at most max bytes from r. It fails with ErrTooLarge
// when more is available and ErrEmptyUpload when nothing is.
func ReadUpload(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		max = MaxFileSize
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, max)
	}
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}
	return data, nil
}

// ValidateDocument checks an uploaded document: size, a safe file name,
// and content that looks like a lineage-linked document.
func ValidateDocument(filename string, data []byte, max int64) error {
	if max <= 0 {
		max = MaxFileSize
	}
	if len(data) == 0 {
		return ErrEmptyUpload
	}
	if int64(len(data)) > max {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}
	if filename != "" {
		if err := ValidateFilename(filename); err != nil {
			return err
		}
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	switch t := DetectFileType(head); t {
	case FileTypeDocument:
	case FileTypeBundleXZ, FileTypeBundleGZ:
		return fmt.Errorf("%w: got a %s bundle", ErrNotDocument, t)
	default:
		return ErrNotDocument
	}
	return nil
}

// isLikelyText checks if the buffer contains likely text content.
// Returns true if the buffer appears to be text (UTF-8, ASCII).
func isLikelyText(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}

	// Null bytes mean binary content.
	if bytes.IndexByte(buf, 0) != -1 {
		return false
	}

	printable := 0
	control := 0
	for _, b := range buf {
		if b >= 0x20 && b <= 0x7e || b == '\t' || b == '\n' || b == '\r' {
			printable++
		} else if b < 0x20 {
			control++
		}
		// UTF-8 continuation bytes (0x80-0xBF) and start bytes (0xC0-0xFD) are neutral
	}

	return printable > 0 && float64(printable)/float64(printable+control) > 0.95
}
