// Package embedding turns text into vectors through an embedding provider.
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations return
// vectors of the same length for every call.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Name() string
}
