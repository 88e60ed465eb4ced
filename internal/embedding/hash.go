package embedding

import (
	"context"
	"strings"

	"github.com/hyperjump/lexsy/internal/vector"
)

// HashEmbedder is a deterministic, offline embedder based on feature
// hashing of words. Texts sharing words get similar vectors, which is
// enough for local runs and tests; it has no notion of meaning.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns a HashEmbedder producing vectors of the given length.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed returns the unit-length hashed word vector of text. Text without
// letters or digits is hashed by character so that it still embeds to a
// non-zero vector.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tokens := SplitWords(text)
	if len(tokens) == 0 {
		for _, r := range strings.TrimSpace(text) {
			tokens = append(tokens, string(r))
		}
	}
	emb := make([]float32, e.dimensions)
	for _, tok := range tokens {
		h := HashString(tok)
		sign := float32(1)
		if (h/e.dimensions)%2 == 1 {
			sign = -1
		}
		emb[h%e.dimensions] += sign
	}
	return vector.Normalize(emb), nil
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Name identifies the embedder in logs and cache keys.
func (e *HashEmbedder) Name() string {
	return "hash"
}
