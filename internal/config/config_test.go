package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// clearEnv unsets every override so tests do not see the caller's environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"DEBUG", "HOST", "PORT", "STORAGE_BACKEND", "DATABASE_PATH", "EMBEDDING_PROVIDER",
		"EMBEDDING_MODEL", "ANSWER_PROVIDER", "ANSWER_MODEL", "OPENAI_API_KEY", "GEMINI_API_KEY",
		"GMAIL_ACCESS_TOKEN", "INBOX_DIR", "SENTRY_DSN", "SENTRY_ENVIRONMENT",
	} {
		for _, key := range []string{name, EnvPrefix + "_" + name} {
			if v, ok := os.LookupEnv(key); ok {
				t.Setenv(key, v)
				os.Unsetenv(key)
			}
		}
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_defaultsWithoutKeysAreOffline(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Embedding.Provider != ProviderHash {
		t.Errorf("embedding provider = %q", cfg.Embedding.Provider)
	}
	if cfg.Answer.Provider != ProviderExtractive {
		t.Errorf("answer provider = %q", cfg.Answer.Provider)
	}
	if cfg.Mail.Provider != ProviderNone {
		t.Errorf("mail provider = %q", cfg.Mail.Provider)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("top_k = %d", cfg.Retrieval.TopK)
	}
	if cfg.Storage.Backend != BackendSQLite {
		t.Errorf("backend = %q", cfg.Storage.Backend)
	}
}

func TestLoad_openAIKeyFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Embedding.Provider != ProviderOpenAI || cfg.Embedding.APIKey != "sk-test" {
		t.Errorf("embedding = %+v", cfg.Embedding)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" || cfg.Embedding.Dimensions != 1536 {
		t.Errorf("embedding model = %q dims = %d", cfg.Embedding.Model, cfg.Embedding.Dimensions)
	}
	if cfg.Answer.Provider != ProviderOpenAI || cfg.Answer.Model != "gpt-3.5-turbo" {
		t.Errorf("answer = %+v", cfg.Answer)
	}
}

func TestLoad_prefixedEnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: 9000
storage:
  backend: sqlite
`)
	t.Setenv("LEXSY_PORT", "9100")
	t.Setenv("LEXSY_STORAGE_BACKEND", "memory")
	t.Setenv("LEXSY_DEBUG", "true")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Storage.Backend != BackendMemory {
		t.Errorf("backend = %q", cfg.Storage.Backend)
	}
	if !cfg.Debug {
		t.Error("debug should be true from environment")
	}
}

func TestLoad_geminiKey(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
embedding:
  provider: gemini
answer:
  provider: gemini
`)
	t.Setenv("GEMINI_API_KEY", "g-key")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Embedding.APIKey != "g-key" || cfg.Answer.APIKey != "g-key" {
		t.Errorf("keys not applied: %q %q", cfg.Embedding.APIKey, cfg.Answer.APIKey)
	}
	if cfg.Embedding.Dimensions != 768 || cfg.Answer.Model != "gemini-2.0-flash" {
		t.Errorf("gemini defaults not applied: %+v %+v", cfg.Embedding, cfg.Answer)
	}
}

func TestLoad_invalidProvider(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
embedding:
  provider: onnx
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "embedding.provider") {
		t.Fatalf("expected embedding.provider error, got %v", err)
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
storage:
  database_path: "./data/db/knowledge.db"
inbox:
  directory: "./inbox"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Dir(path)
	if want := filepath.Join(dir, "data", "db", "knowledge.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %q, want %q", cfg.Storage.DatabasePath, want)
	}
	if want := filepath.Join(dir, "inbox"); cfg.Inbox.Directory != want {
		t.Errorf("inbox = %q, want %q", cfg.Inbox.Directory, want)
	}
}

func TestLoad_missingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Server.Port = 9500
	path := filepath.Join(t.TempDir(), "saved.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9500 {
		t.Errorf("port = %d", loaded.Server.Port)
	}
}
