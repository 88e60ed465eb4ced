// Package extract turns uploaded document bytes into plain text.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/lexsy/internal/models"
)

// SupportedExtensions lists the accepted file extensions, lower case with
// the leading dot.
var SupportedExtensions = []string{".pdf", ".docx", ".txt"}

// Extractor extracts plain text from pdf, docx and txt content.
type Extractor struct {
	tempDir string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTempDir sets the directory used for scoped temporary files. Empty
// means the system default.
func WithTempDir(dir string) Option {
	return func(e *Extractor) {
		e.tempDir = dir
	}
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NormalizeExt lower-cases ext and ensures it has a leading dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Supported reports whether ext (with or without dot, any case) is accepted.
func Supported(ext string) bool {
	ext = NormalizeExt(ext)
	for _, s := range SupportedExtensions {
		if s == ext {
			return true
		}
	}
	return false
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	ext := filepath.Ext(path)
	if !Supported(ext) {
		return "", unsupported(ext)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// The extension is matched case-insensitively, with or without the leading
// dot. Unsupported extensions fail with models.ErrUnsupportedFormat and a
// result that is blank after trimming fails with models.ErrEmptyContent.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	var (
		text string
		err  error
	)
	switch ext = NormalizeExt(ext); ext {
	case ".pdf":
		text, err = e.withTempFile(content, ext, readPDFFile)
	case ".docx":
		text, err = e.withTempFile(content, ext, readDOCXFile)
	case ".txt":
		text, err = extractPlain(content)
	default:
		return "", unsupported(ext)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", models.ErrEmptyContent
	}
	return text, nil
}

func unsupported(ext string) error {
	if ext == "" {
		return models.Errorf(models.KindUnsupportedFormat, "file has no extension; supported: %s", strings.Join(SupportedExtensions, ", "))
	}
	return models.Errorf(models.KindUnsupportedFormat, "unsupported file format %q; supported: %s", ext, strings.Join(SupportedExtensions, ", "))
}
