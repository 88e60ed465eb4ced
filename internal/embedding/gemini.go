package embedding

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"github.com/hyperjump/lexsy/internal/capability"
	"github.com/hyperjump/lexsy/internal/models"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "text-embedding-004"

// GeminiConfig configures a GeminiEmbedder.
type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

// GeminiEmbedder embeds text with the Gemini API.
type GeminiEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewGeminiEmbedder returns an embedder for cfg. An API key is required.
func NewGeminiEmbedder(ctx context.Context, cfg GeminiConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, models.NewError(models.KindAuth, "gemini embedding: api key is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, models.Wrap(models.KindProvider, "gemini embedding: create client", err)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiEmbedder{client: client, model: model, dimensions: cfg.Dimensions}, nil
}

// Embed calls EmbedContent for a single input.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	cfg := &genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY"}
	if e.dimensions > 0 {
		d := int32(e.dimensions)
		cfg.OutputDimensionality = &d
	}
	resp, err := e.client.Models.EmbedContent(
		ctx,
		e.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		cfg,
	)
	if err != nil {
		return nil, capability.Classify(ctx, "gemini embedding", 0, err)
	}
	if resp == nil || len(resp.Embeddings) == 0 {
		return nil, models.Wrap(models.KindProvider, "gemini embedding", errors.New("no embedding values returned"))
	}
	emb := resp.Embeddings[0].Values
	if e.dimensions > 0 && len(emb) != e.dimensions {
		return nil, models.Errorf(models.KindDimensionMismatch, "gemini embedding has %d dimensions, expected %d", len(emb), e.dimensions)
	}
	return emb, nil
}

// Dimensions returns the configured embedding dimension.
func (e *GeminiEmbedder) Dimensions() int {
	return e.dimensions
}

// Name identifies the embedder in logs and cache keys.
func (e *GeminiEmbedder) Name() string {
	return "gemini:" + e.model
}
