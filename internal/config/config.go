// Package config provides configuration loading and structs for the Lexsy server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Answer    AnswerConfig    `yaml:"answer"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Mail      MailConfig      `yaml:"mail"`
	Inbox     InboxConfig     `yaml:"inbox"`
	Sentry    SentryConfig    `yaml:"sentry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	MaxUploadMB        int    `yaml:"max_upload_mb"`
	RequestTimeoutSecs int    `yaml:"request_timeout_secs"`
}

// RequestTimeout returns the per-request timeout.
func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSecs) * time.Second
}

// MaxUploadBytes returns the upload size limit in bytes.
func (s ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// StorageConfig selects where client knowledge is kept.
type StorageConfig struct {
	Backend      string `yaml:"backend"`
	DatabasePath string `yaml:"database_path"`
	// TempDir holds the scoped files used during document extraction.
	TempDir string `yaml:"temp_dir"`
}

// Provider names shared by the embedding and answer sections.
const (
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderHash       = "hash"
	ProviderExtractive = "extractive"
	ProviderGmail      = "gmail"
	ProviderNone       = "none"
)

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider     string `yaml:"provider"`
	Model        string `yaml:"model"`
	Dimensions   int    `yaml:"dimensions"`
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	TimeoutSecs  int    `yaml:"timeout_secs"`
	CacheSize    int    `yaml:"cache_size"`
	CacheTTLSecs int    `yaml:"cache_ttl_secs"`
}

// Timeout returns the per-call embedding timeout.
func (e EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSecs) * time.Second
}

// CacheTTL returns how long cached embeddings stay valid.
func (e EmbeddingConfig) CacheTTL() time.Duration {
	return time.Duration(e.CacheTTLSecs) * time.Second
}

// AnswerConfig holds answer provider settings.
type AnswerConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// Timeout returns the per-call answer timeout.
func (a AnswerConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSecs) * time.Second
}

// RetrievalConfig holds question answering settings.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// MailConfig holds mail provider settings. AccessToken is an OAuth bearer
// token obtained outside this program.
type MailConfig struct {
	Provider    string `yaml:"provider"`
	AccessToken string `yaml:"access_token"`
	UserID      string `yaml:"user_id"`
	BaseURL     string `yaml:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// Timeout returns the per-call mail provider timeout.
func (m MailConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSecs) * time.Second
}

// InboxConfig holds the drop-folder watcher settings. An empty Directory
// disables the watcher.
type InboxConfig struct {
	Directory  string   `yaml:"directory"`
	Extensions []string `yaml:"extensions"`
}

// SentryConfig holds error reporting settings. An empty DSN disables reporting.
type SentryConfig struct {
	DSN              string  `yaml:"dsn"`
	Environment      string  `yaml:"environment"`
	TracesSampleRate float64 `yaml:"traces_sample_rate"`
}

// Load reads and parses the config file at path, overlays environment
// variables, applies defaults and expands paths. An empty path skips the
// file and uses environment and defaults only.
func Load(path string) (*Config, error) {
	var cfg Config
	configDir := "."
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		configDir = filepath.Dir(path)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)

	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	if cfg.Storage.TempDir != "" {
		cfg.Storage.TempDir = expandPath(cfg.Storage.TempDir, configDir)
	}
	if cfg.Inbox.Directory != "" {
		cfg.Inbox.Directory = expandPath(cfg.Inbox.Directory, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate reports the first unsupported setting.
func (c *Config) Validate() error {
	if err := oneOf("storage.backend", c.Storage.Backend, BackendSQLite, BackendMemory); err != nil {
		return err
	}
	if err := oneOf("embedding.provider", c.Embedding.Provider, ProviderOpenAI, ProviderGemini, ProviderHash); err != nil {
		return err
	}
	if err := oneOf("answer.provider", c.Answer.Provider, ProviderOpenAI, ProviderGemini, ProviderExtractive); err != nil {
		return err
	}
	if err := oneOf("mail.provider", c.Mail.Provider, ProviderGmail, ProviderNone); err != nil {
		return err
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("invalid config: retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	return nil
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid config: %s must be one of %s, got %q", field, strings.Join(allowed, ", "), value)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
