package embedding

import (
	"context"
	"time"

	"github.com/hyperjump/lexsy/internal/capability"
	"github.com/hyperjump/lexsy/internal/models"
)

type guardedEmbedder struct {
	next    Embedder
	timeout time.Duration
}

// WithTimeout bounds every Embed call by timeout and classifies failures:
// deadline errors become models.ErrTimeout and unclassified errors
// models.ErrProvider. An empty vector from the provider is a provider error.
func WithTimeout(e Embedder, timeout time.Duration) Embedder {
	return &guardedEmbedder{next: e, timeout: timeout}
}

func (g *guardedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return capability.Call(ctx, g.timeout, "embedding", func(ctx context.Context) ([]float32, error) {
		emb, err := g.next.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		if len(emb) == 0 {
			return nil, models.Errorf(models.KindProvider, "%s returned an empty embedding", g.next.Name())
		}
		return emb, nil
	})
}

func (g *guardedEmbedder) Dimensions() int {
	return g.next.Dimensions()
}

func (g *guardedEmbedder) Name() string {
	return g.next.Name()
}
