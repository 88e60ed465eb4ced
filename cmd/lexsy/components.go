package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/lexsy/internal/config"
	"github.com/hyperjump/lexsy/internal/embedding"
	"github.com/hyperjump/lexsy/internal/extract"
	"github.com/hyperjump/lexsy/internal/ingest"
	"github.com/hyperjump/lexsy/internal/knowledge"
	"github.com/hyperjump/lexsy/internal/llm"
	"github.com/hyperjump/lexsy/internal/mail"
	"github.com/hyperjump/lexsy/internal/qa"
)

// Components holds initialized services.
type Components struct {
	Store     *knowledge.Store
	Embedder  embedding.Embedder
	Completer llm.Completer
	Mail      mail.Provider
	Ingest    *ingest.Pipeline
	QA        *qa.Pipeline
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	repo, err := newRepository(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	embedder, err := newEmbedder(ctx, cfg.Embedding)
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	completer, err := newCompleter(ctx, cfg.Answer)
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("failed to initialize answer provider: %w", err)
	}
	provider := newMailProvider(cfg.Mail)

	logger.Info("components initialized",
		zap.String("storage", cfg.Storage.Backend),
		zap.String("embedder", embedder.Name()),
		zap.Int("dimensions", embedder.Dimensions()),
		zap.String("completer", completer.Name()),
		zap.String("mail", cfg.Mail.Provider),
	)

	store := knowledge.NewStore(repo, embedder, knowledge.WithLogger(logger))
	extractor := extract.NewExtractor(extract.WithTempDir(cfg.Storage.TempDir))
	return &Components{
		Store:     store,
		Embedder:  embedder,
		Completer: completer,
		Mail:      provider,
		Ingest:    ingest.NewPipeline(store, extractor, ingest.WithLogger(logger)),
		QA:        qa.NewPipeline(store, completer, qa.WithTopK(cfg.Retrieval.TopK), qa.WithLogger(logger)),
	}, nil
}

func newRepository(cfg config.StorageConfig) (knowledge.Repository, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return knowledge.NewMemoryRepository(), nil
	case config.BackendSQLite, "":
		return knowledge.NewSQLiteRepository(cfg.DatabasePath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// newEmbedder builds the configured embedder. Remote providers get a
// per-call timeout and an expiring cache in front.
func newEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (embedding.Embedder, error) {
	var remote embedding.Embedder
	switch cfg.Provider {
	case config.ProviderHash:
		return embedding.NewHashEmbedder(cfg.Dimensions), nil
	case config.ProviderOpenAI:
		e, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		remote = e
	case config.ProviderGemini:
		e, err := embedding.NewGeminiEmbedder(ctx, embedding.GeminiConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		remote = e
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	guarded := embedding.WithTimeout(remote, cfg.Timeout())
	if cfg.CacheSize > 0 {
		return embedding.WithCache(guarded, cfg.CacheSize, cfg.CacheTTL()), nil
	}
	return guarded, nil
}

func newCompleter(ctx context.Context, cfg config.AnswerConfig) (llm.Completer, error) {
	switch cfg.Provider {
	case config.ProviderExtractive:
		return llm.NewExtractiveCompleter(), nil
	case config.ProviderOpenAI:
		c, err := llm.NewOpenAICompleter(llm.OpenAIConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		})
		if err != nil {
			return nil, err
		}
		return llm.WithTimeout(c, cfg.Timeout()), nil
	case config.ProviderGemini:
		c, err := llm.NewGeminiCompleter(ctx, llm.GeminiConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		})
		if err != nil {
			return nil, err
		}
		return llm.WithTimeout(c, cfg.Timeout()), nil
	default:
		return nil, fmt.Errorf("unknown answer provider %q", cfg.Provider)
	}
}

// newMailProvider returns nil when mail is disabled, which makes thread
// ingestion use the demonstration thread.
func newMailProvider(cfg config.MailConfig) mail.Provider {
	if cfg.Provider != config.ProviderGmail {
		return nil
	}
	return mail.NewGmailProvider(mail.GmailConfig{
		AccessToken: cfg.AccessToken,
		UserID:      cfg.UserID,
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.Timeout(),
	})
}
