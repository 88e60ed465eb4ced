package config

// ApplyDefaults sets default values for any zero values in cfg. Providers
// left unset resolve to OpenAI when an API key is configured and to the
// offline providers otherwise.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 25
	}
	if cfg.Server.RequestTimeoutSecs == 0 {
		cfg.Server.RequestTimeoutSecs = 120
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendSQLite
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = ".lexsy/knowledge.db"
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderHash
		if cfg.Embedding.APIKey != "" {
			cfg.Embedding.Provider = ProviderOpenAI
		}
	}
	if cfg.Embedding.Model == "" {
		switch cfg.Embedding.Provider {
		case ProviderOpenAI:
			cfg.Embedding.Model = "text-embedding-3-small"
		case ProviderGemini:
			cfg.Embedding.Model = "text-embedding-004"
		}
	}
	if cfg.Embedding.Dimensions == 0 {
		switch cfg.Embedding.Provider {
		case ProviderOpenAI:
			cfg.Embedding.Dimensions = 1536
		case ProviderGemini:
			cfg.Embedding.Dimensions = 768
		default:
			cfg.Embedding.Dimensions = 384
		}
	}
	if cfg.Embedding.TimeoutSecs == 0 {
		cfg.Embedding.TimeoutSecs = 30
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.CacheTTLSecs == 0 {
		cfg.Embedding.CacheTTLSecs = 3600
	}

	if cfg.Answer.Provider == "" {
		cfg.Answer.Provider = ProviderExtractive
		if cfg.Answer.APIKey != "" {
			cfg.Answer.Provider = ProviderOpenAI
		}
	}
	if cfg.Answer.Model == "" {
		switch cfg.Answer.Provider {
		case ProviderOpenAI:
			cfg.Answer.Model = "gpt-3.5-turbo"
		case ProviderGemini:
			cfg.Answer.Model = "gemini-2.0-flash"
		}
	}
	if cfg.Answer.TimeoutSecs == 0 {
		cfg.Answer.TimeoutSecs = 60
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}

	if cfg.Mail.Provider == "" {
		cfg.Mail.Provider = ProviderNone
		if cfg.Mail.AccessToken != "" {
			cfg.Mail.Provider = ProviderGmail
		}
	}
	if cfg.Mail.UserID == "" {
		cfg.Mail.UserID = "me"
	}
	if cfg.Mail.BaseURL == "" {
		cfg.Mail.BaseURL = "https://gmail.googleapis.com"
	}
	if cfg.Mail.TimeoutSecs == 0 {
		cfg.Mail.TimeoutSecs = 15
	}

	if cfg.Inbox.Extensions == nil {
		cfg.Inbox.Extensions = []string{".pdf", ".docx", ".txt"}
	}
	if cfg.Sentry.Environment == "" {
		cfg.Sentry.Environment = "development"
	}
}
