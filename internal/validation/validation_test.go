package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizePath(t *testing.T) {
	baseDir := "/tmp/test"

	tests := []struct {
		name      string
		baseDir   string
		userPath  string
		want      string
		wantError error
	}{
		{
			name:      "simple valid path",
			baseDir:   baseDir,
			userPath:  "file.txt",
			want:      "file.txt",
			wantError: nil,
		},
		{
			name:      "nested valid path",
			baseDir:   baseDir,
			userPath:  "subdir/file.txt",
			want:      filepath.Join("subdir", "file.txt"),
			wantError: nil,
		},
		{
			name:      "path with redundant separators",
			baseDir:   baseDir,
			userPath:  "subdir//file.txt",
			want:      filepath.Join("subdir", "file.txt"),
			wantError: nil,
		},
		{
			name:      "path with dot component",
			baseDir:   baseDir,
			userPath:  "./file.txt",
			want:      "file.txt",
			wantError: nil,
		},
		{
			name:      "path traversal with dotdot",
			baseDir:   baseDir,
			userPath:  "../etc/passwd",
			want:      "",
			wantError: ErrPathTraversal,
		},
		{
			name:      "path traversal in middle",
			baseDir:   baseDir,
			userPath:  "subdir/../../etc/passwd",
			want:      "",
			wantError: ErrPathTraversal,
		},
		{
			name:      "absolute path",
			baseDir:   baseDir,
			userPath:  "/etc/passwd",
			want:      "",
			wantError: ErrPathTraversal,
		},
		{
			name:      "empty path",
			baseDir:   baseDir,
			userPath:  "",
			want:      "",
			wantError: ErrEmptyPath,
		},
		{
			name:      "very long path",
			baseDir:   baseDir,
			userPath:  strings.Repeat("a/", 2048) + "file.txt",
			want:      "",
			wantError: ErrPathTooLong,
		},
		{
			name:      "path that would escape after resolution",
			baseDir:   "/tmp/base/subdir",
			userPath:  "a/b/../../../etc/passwd",
			want:      "",
			wantError: ErrPathTraversal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizePath(tt.baseDir, tt.userPath)

			if tt.wantError != nil {
				if err == nil {
					t.Errorf("SanitizePath() expected error %v, got nil", tt.wantError)
					return
				}
				if !errors.Is(err, tt.wantError) && !strings.Contains(err.Error(), tt.wantError.Error()) {
					t.Errorf("SanitizePath() error = %v, want %v", err, tt.wantError)
				}
				return
			}

			if err != nil {
				t.Errorf("SanitizePath() unexpected error: %v", err)
				return
			}

			if got != tt.want {
				t.Errorf("SanitizePath() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		wantError error
	}{
		{
			name:      "valid simple filename",
			filename:  "file.txt",
			wantError: nil,
		},
		{
			name:      "valid filename with spaces",
			filename:  "my file.txt",
			wantError: nil,
		},
		{
			name:      "valid filename with special chars",
			filename:  "file_name-2024.tar.gz",
			wantError: nil,
		},
		{
			name:      "empty filename",
			filename:  "",
			wantError: ErrInvalidFilename,
		},
		{
			name:      "dot filename",
			filename:  ".",
			wantError: ErrInvalidFilename,
		},
		{
			name:      "dotdot filename",
			filename:  "..",
			wantError: ErrInvalidFilename,
		},
		{
			name:      "filename with slash",
			filename:  "dir/file.txt",
			wantError: ErrInvalidFilename,
		},
		{
			name:      "filename with backslash",
			filename:  "dir\\file.txt",
			wantError: ErrInvalidFilename,
		},
		{
			name:      "filename with null byte",
			filename:  "file\x00.txt",
			wantError: ErrInvalidFilename,
		},
		{
			name:      "filename with control character",
			filename:  "file\n.txt",
			wantError: ErrInvalidFilename,
		},
		{
			name:      "filename starting with hyphen",
			filename:  "-file.txt",
			wantError: ErrInvalidFilename,
		},
		{
			name:      "too long filename",
			filename:  strings.Repeat("a", 256),
			wantError: ErrFilenameTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.filename)

			if tt.wantError != nil {
				if err == nil {
					t.Errorf("ValidateFilename() expected error %v, got nil", tt.wantError)
					return
				}
				if !errors.Is(err, tt.wantError) && !strings.Contains(err.Error(), tt.wantError.Error()) {
					t.Errorf("ValidateFilename() error = %v, want %v", err, tt.wantError)
				}
				return
			}

			if err != nil {
				t.Errorf("ValidateFilename() unexpected error: %v", err)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantError error
	}{
		{
			name:      "valid relative path",
			path:      "file.txt",
			wantError: nil,
		},
		{
			name:      "valid absolute path",
			path:      "/tmp/file.txt",
			wantError: nil,
		},
		{
			name:      "valid nested path",
			path:      "dir/subdir/file.txt",
			wantError: nil,
		},
		{
			name:      "empty path",
			path:      "",
			wantError: ErrEmptyPath,
		},
		{
			name:      "path with null byte",
			path:      "file\x00.txt",
			wantError: ErrInvalidCharacter,
		},
		{
			name:      "path with control character",
			path:      "dir/file\n.txt",
			wantError: ErrInvalidCharacter,
		},
		{
			name:      "very long path",
			path:      strings.Repeat("a/", 2048) + "file.txt",
			wantError: ErrPathTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)

			if tt.wantError != nil {
				if err == nil {
					t.Errorf("ValidatePath() expected error %v, got nil", tt.wantError)
					return
				}
				if !errors.Is(err, tt.wantError) && !strings.Contains(err.Error(), tt.wantError.Error()) {
					t.Errorf("ValidatePath() error = %v, want %v", err, tt.wantError)
				}
				return
			}

			if err != nil {
				t.Errorf("ValidatePath() unexpected error: %v", err)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		want      string
		wantError error
	}{
		{
			name:      "valid filename unchanged",
			filename:  "file.txt",
			want:      "file.txt",
			wantError: nil,
		},
		{
			name:      "filename with leading/trailing spaces",
			filename:  "  file.txt  ",
			want:      "file.txt",
			wantError: nil,
		},
		{
			name:      "filename with slashes replaced",
			filename:  "dir/file.txt",
			want:      "dir_file.txt",
			wantError: nil,
		},
		{
			name:      "filename with backslashes replaced",
			filename:  "dir\\file.txt",
			want:      "dir_file.txt",
			wantError: nil,
		},
		{
			name:      "filename with null byte removed",
			filename:  "file\x00name.txt",
			want:      "filename.txt",
			wantError: nil,
		},
		{
			name:      "filename with control characters removed",
			filename:  "file\nname\r.txt",
			want:      "filename.txt",
			wantError: nil,
		},
		{
			name:      "filename with leading hyphen removed",
			filename:  "-file.txt",
			want:      "file.txt",
			wantError: nil,
		},
		{
			name:      "empty filename",
			filename:  "",
			want:      "",
			wantError: ErrInvalidFilename,
		},
		{
			name:      "filename that becomes empty after sanitization",
			filename:  "---",
			want:      "",
			wantError: ErrInvalidFilename,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeFilename(tt.filename)

			if tt.wantError != nil {
				if err == nil {
					t.Errorf("SanitizeFilename() expected error %v, got nil", tt.wantError)
					return
				}
				if !errors.Is(err, tt.wantError) && !strings.Contains(err.Error(), tt.wantError.Error()) {
					t.Errorf("SanitizeFilename() error = %v, want %v", err, tt.wantError)
				}
				return
			}

			if err != nil {
				t.Errorf("SanitizeFilename() unexpected error: %v", err)
				return
			}

			if got != tt.want {
				t.Errorf("SanitizeFilename() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		want FileType
	}{
		{"xz bundle", []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00, 0x01}, FileTypeBundleXZ},
		{"gzip bundle", []byte{0x1f, 0x8b, 0x08}, FileTypeBundleGZ},
		{"document", []byte("0 HEAD\n1 CHAR UTF-8\n"), FileTypeDocument},
		{"document with bom", []byte("\ufeff0 HEAD\n"), FileTypeDocument},
		{"document with leading blank", []byte("\r\n\n0 HEAD\n"), FileTypeDocument},
		{"json", []byte(`{"people": []}`), FileTypeUnknown},
		{"binary", []byte{0x00, 0x01, 0x02}, FileTypeUnknown},
		{"empty", nil, FileTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFileType(tt.head); got != tt.want {
				t.Errorf("DetectFileType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLooksLikeDocument(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0 HEAD", true},
		{"0", true},
		{"12\tTAG", true},
		{"HEAD 0", false},
		{"0HEAD", false},
		{"   \n  \n", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := LooksLikeDocument([]byte(tt.in)); got != tt.want {
			t.Errorf("LooksLikeDocument(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestReadUpload(t *testing.T) {
	data, err := ReadUpload(strings.NewReader("0 HEAD\n"), 64)
	if err != nil {
		t.Fatalf("ReadUpload() error = %v", err)
	}
	if string(data) != "0 HEAD\n" {
		t.Errorf("ReadUpload() = %q", data)
	}

	if _, err := ReadUpload(strings.NewReader(strings.Repeat("x", 65)), 64); !errors.Is(err, ErrTooLarge) {
		t.Errorf("ReadUpload(oversized) error = %v, want ErrTooLarge", err)
	}
	if _, err := ReadUpload(strings.NewReader(strings.Repeat("x", 64)), 64); err != nil {
		t.Errorf("ReadUpload(exact limit) error = %v", err)
	}
	if _, err := ReadUpload(strings.NewReader(""), 64); !errors.Is(err, ErrEmptyUpload) {
		t.Errorf("ReadUpload(empty) error = %v, want ErrEmptyUpload", err)
	}
}

type errorReader struct{}

func (errorReader) Read(p []byte) (int, error) {
	return 0, fmt.Errorf("simulated read error")
}

func TestReadUploadReadError(t *testing.T) {
	if _, err := ReadUpload(errorReader{}, 10); err == nil {
		t.Error("expected error from failing reader")
	}
}

func TestValidateDocument(t *testing.T) {
	doc := []byte("0 HEAD\n0 @I1@ INDI\n0 TRLR\n")
	tests := []struct {
		name     string
		filename string
		data     []byte
		max      int64
		wantErr  error
	}{
		{"valid", "family.ged", doc, 0, nil},
		{"no name", "", doc, 0, nil},
		{"empty", "family.ged", nil, 0, ErrEmptyUpload},
		{"too large", "family.ged", doc, 4, ErrTooLarge},
		{"bad name", "../family.ged", doc, 0, ErrInvalidFilename},
		{"not a document", "family.ged", []byte("<xml/>"), 0, ErrNotDocument},
		{"bundle", "family.ged", []byte{0x1f, 0x8b, 0x08, 0x00}, 0, ErrNotDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.filename, tt.data, tt.max)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	err := ValidateDocument("family.tar.gz", []byte{0x1f, 0x8b, 0x08, 0x00}, 0)
	if err == nil || !strings.Contains(err.Error(), "tar.gz bundle") {
		t.Errorf("bundle upload error = %v, want it to name the bundle kind", err)
	}
}

func TestIsLikelyText(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    bool
	}{
		{
			name:    "plain ascii text",
			content: []byte("This is plain ASCII text."),
			want:    true,
		},
		{
			name:    "text with newlines",
			content: []byte("Line 1\nLine 2\nLine 3"),
			want:    true,
		},
		{
			name:    "text with tabs",
			content: []byte("Column1\tColumn2\tColumn3"),
			want:    true,
		},
		{
			name:    "text with carriage returns",
			content: []byte("Windows\r\nLine\r\nEndings"),
			want:    true,
		},
		{
			name:    "text with mixed whitespace",
			content: []byte("Text\t\twith\n\r\nspaces"),
			want:    true,
		},
		{
			name:    "xml content",
			content: []byte("<?xml version=\"1.0\"?>\n<root></root>"),
			want:    true,
		},
		{
			name:    "json content",
			content: []byte(`{"key": "value", "number": 123}`),
			want:    true,
		},
		{
			name:    "utf-8 text",
			content: []byte("Hello 世界 🌍"),
			want:    true,
		},
		{
			name:    "binary with null bytes",
			content: []byte{0x00, 0x01, 0x02, 0x03},
			want:    false,
		},
		{
			name:    "binary with control characters",
			content: []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
			want:    false,
		},
		{
			name:    "mixed binary and text",
			content: append([]byte("Text"), 0x00, 0x01, 0x02),
			want:    false,
		},
		{
			name:    "empty buffer",
			content: []byte{},
			want:    false,
		},
		{
			name:    "mostly printable with few control chars - above threshold",
			content: append([]byte(strings.Repeat("a", 96)), []byte{0x01, 0x02, 0x03, 0x04}...),
			want:    true,
		},
		{
			name:    "mostly printable but below 95% threshold",
			content: append([]byte(strings.Repeat("a", 94)), []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}...),
			want:    false,
		},
		{
			name:    "utf-8 continuation bytes",
			content: []byte("Test UTF-8: \xc3\xa9\xc3\xa8\xc3\xa0"),
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isLikelyText(tt.content)
			if got != tt.want {
				t.Errorf("isLikelyText() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Benchmark tests
func BenchmarkSanitizePath(b *testing.B) {
	baseDir := "/tmp/test"
	userPath := "subdir/file.txt"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SanitizePath(baseDir, userPath)
	}
}

func BenchmarkValidateFilename(b *testing.B) {
	filename := "valid_filename.txt"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ValidateFilename(filename)
	}
}

func BenchmarkSanitizeFilename(b *testing.B) {
	filename := "file-with-special_chars.txt"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SanitizeFilename(filename)
	}
}
