// Package fileid fingerprints files so unchanged inbox files are ingested once.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"
)

const prefix = "file:"

// Fingerprint returns a stable identifier for the file at absolutePath in
// the state described by info. It changes when the file's size or
// modification time changes.
func Fingerprint(absolutePath string, info os.FileInfo) string {
	h := sha256.New()
	h.Write([]byte(filepath.Clean(absolutePath)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(info.Size(), 10)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(info.ModTime().UnixNano(), 10)))
	return prefix + hex.EncodeToString(h.Sum(nil))
}

// Of stats path and returns its fingerprint.
func Of(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	return Fingerprint(abs, info), nil
}
