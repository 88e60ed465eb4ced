package llm

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"github.com/hyperjump/lexsy/internal/capability"
	"github.com/hyperjump/lexsy/internal/models"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiConfig configures a GeminiCompleter.
type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
}

// GeminiCompleter answers with the Gemini API.
type GeminiCompleter struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiCompleter returns a completer for cfg. An API key is required.
func NewGeminiCompleter(ctx context.Context, cfg GeminiConfig) (*GeminiCompleter, error) {
	if cfg.APIKey == "" {
		return nil, models.NewError(models.KindAuth, "gemini answer: api key is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, models.Wrap(models.KindProvider, "gemini answer: create client", err)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiCompleter{client: client, model: model, temperature: cfg.Temperature}, nil
}

// Complete sends userPrompt with systemPrompt as the system instruction.
func (c *GeminiCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	temp := c.temperature
	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	if systemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}}
	}
	resp, err := c.client.Models.GenerateContent(
		ctx,
		c.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: userPrompt}}}},
		cfg,
	)
	if err != nil {
		return "", capability.Classify(ctx, "gemini answer", 0, err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// Name identifies the completer in logs.
func (c *GeminiCompleter) Name() string {
	return "gemini:" + c.model
}
