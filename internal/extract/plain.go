package extract

import (
	"unicode/utf8"

	"github.com/hyperjump/lexsy/internal/models"
)

// extractPlain returns content verbatim. Content that is not valid UTF-8 is
// rejected rather than repaired.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return "", models.Errorf(models.KindDecode, "text file is not valid UTF-8")
	}
	return string(content), nil
}
