package embedding

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperjump/lexsy/internal/capability"
	"github.com/hyperjump/lexsy/internal/models"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = openai.SmallEmbedding3

// OpenAIConfig configures an OpenAIEmbedder. BaseURL overrides the API
// endpoint (proxies, compatible servers).
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

// OpenAIEmbedder embeds text with the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// NewOpenAIEmbedder returns an embedder for cfg. An API key is required.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, models.NewError(models.KindAuth, "openai embedding: api key is not set")
	}
	model := openai.EmbeddingModel(cfg.Model)
	if model == "" {
		model = DefaultOpenAIModel
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed calls the embeddings endpoint for a single input.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	}
	// ada-002 rejects the dimensions parameter.
	if e.dimensions > 0 && e.model != openai.AdaEmbeddingV2 {
		req.Dimensions = e.dimensions
	}
	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, capability.Classify(ctx, "openai embedding", 0, err)
	}
	if len(resp.Data) == 0 {
		return nil, models.Wrap(models.KindProvider, "openai embedding", errors.New("no embedding data returned"))
	}
	emb := resp.Data[0].Embedding
	if e.dimensions > 0 && len(emb) != e.dimensions {
		return nil, models.Errorf(models.KindDimensionMismatch, "openai embedding has %d dimensions, expected %d", len(emb), e.dimensions)
	}
	return emb, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Name identifies the embedder in logs and cache keys.
func (e *OpenAIEmbedder) Name() string {
	return "openai:" + string(e.model)
}
