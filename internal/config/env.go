package config

import (
	"fmt"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override. Each variable is also
// read without the prefix, so OPENAI_API_KEY works as well as
// LEXSY_OPENAI_API_KEY.
const EnvPrefix = "LEXSY"

type envOverrides struct {
	Debug             string `envconfig:"DEBUG"`
	Host              string `envconfig:"HOST"`
	Port              string `envconfig:"PORT"`
	StorageBackend    string `envconfig:"STORAGE_BACKEND"`
	DatabasePath      string `envconfig:"DATABASE_PATH"`
	EmbeddingProvider string `envconfig:"EMBEDDING_PROVIDER"`
	EmbeddingModel    string `envconfig:"EMBEDDING_MODEL"`
	AnswerProvider    string `envconfig:"ANSWER_PROVIDER"`
	AnswerModel       string `envconfig:"ANSWER_MODEL"`
	OpenAIAPIKey      string `envconfig:"OPENAI_API_KEY"`
	GeminiAPIKey      string `envconfig:"GEMINI_API_KEY"`
	GmailAccessToken  string `envconfig:"GMAIL_ACCESS_TOKEN"`
	InboxDir          string `envconfig:"INBOX_DIR"`
	SentryDSN         string `envconfig:"SENTRY_DSN"`
	SentryEnvironment string `envconfig:"SENTRY_ENVIRONMENT"`
}

// applyEnv loads .env when present and overlays set variables onto cfg.
func applyEnv(cfg *Config) error {
	_ = godotenv.Load()

	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to process environment: %w", err)
	}

	if env.Debug != "" {
		debug, err := strconv.ParseBool(env.Debug)
		if err != nil {
			return fmt.Errorf("invalid %s_DEBUG: %w", EnvPrefix, err)
		}
		cfg.Debug = debug
	}
	if env.Port != "" {
		port, err := strconv.Atoi(env.Port)
		if err != nil {
			return fmt.Errorf("invalid %s_PORT: %w", EnvPrefix, err)
		}
		cfg.Server.Port = port
	}
	setIfPresent(&cfg.Server.Host, env.Host)
	setIfPresent(&cfg.Storage.Backend, env.StorageBackend)
	setIfPresent(&cfg.Storage.DatabasePath, env.DatabasePath)
	setIfPresent(&cfg.Embedding.Provider, env.EmbeddingProvider)
	setIfPresent(&cfg.Embedding.Model, env.EmbeddingModel)
	setIfPresent(&cfg.Answer.Provider, env.AnswerProvider)
	setIfPresent(&cfg.Answer.Model, env.AnswerModel)
	setIfPresent(&cfg.Mail.AccessToken, env.GmailAccessToken)
	setIfPresent(&cfg.Inbox.Directory, env.InboxDir)
	setIfPresent(&cfg.Sentry.DSN, env.SentryDSN)
	setIfPresent(&cfg.Sentry.Environment, env.SentryEnvironment)

	// Provider keys fill in only where the file left the key empty.
	cfg.Embedding.APIKey = keyFor(cfg.Embedding.Provider, cfg.Embedding.APIKey, env)
	cfg.Answer.APIKey = keyFor(cfg.Answer.Provider, cfg.Answer.APIKey, env)
	return nil
}

func setIfPresent(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// keyFor picks the environment key matching provider. An unset provider
// takes the OpenAI key, since ApplyDefaults selects OpenAI when one exists.
func keyFor(provider, current string, env envOverrides) string {
	if current != "" {
		return current
	}
	switch provider {
	case ProviderGemini:
		return env.GeminiAPIKey
	case ProviderOpenAI, "":
		return env.OpenAIAPIKey
	}
	return ""
}
