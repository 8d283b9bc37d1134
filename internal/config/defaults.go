package config

// DefaultBaseURL is the public member messages API.
const DefaultBaseURL = "https://november7-730026606190.europe-west1.run.app/messages"

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:  "info",
			LogFormat: "text",
			DataDir:   "~/.auroraqa",
		},
		Corpus: CorpusConfig{
			Source:            "http",
			BaseURL:           DefaultBaseURL,
			PageSize:          100,
			MaxRetries:        3,
			CacheTTLSeconds:   300,
			TimeoutSeconds:    30,
			RequestsPerSecond: 5,
		},
		Store: StoreConfig{
			Enabled: false,
			DBPath:  "~/.auroraqa/auroraqa.db",
		},
		Refresh: RefreshConfig{
			Enabled:  false,
			Interval: "5m",
		},
		API: APIConfig{
			Enabled:            true,
			Host:               "127.0.0.1",
			Port:               8000,
			RateLimitPerMinute: 60,
		},
		Telegram: TelegramConfig{
			Enabled: false,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
