package extract

import (
	"fmt"
	"os"
)

// withTempFile writes content to a temporary file, runs read on its path and
// removes the file before returning, whatever read does.
func (e *Extractor) withTempFile(content []byte, ext string, read func(path string) (string, error)) (string, error) {
	f, err := os.CreateTemp(e.tempDir, "lexsy-upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return read(path)
}
