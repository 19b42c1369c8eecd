package config

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "dev",
		Server: ServerConfig{
			Port: 4310,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Backend: "badger",
			Badger: BadgerConfig{
				Path: "./data/stockscout",
			},
			File: FileConfig{
				Path: "./data/stockscout.json",
			},
		},
		Blob: BlobConfig{
			Dir:          "./data/blobs",
			Container:    "reports",
			SignedTTLHrs: 48,
		},
		Search: SearchConfig{
			Endpoint: "https://api.bing.microsoft.com",
			TopK:     6,
		},
		OpenAI: OpenAIConfig{
			Model:       "gpt-4o-mini",
			PollSeconds: 2,
			MaxPolls:    60,
			DeepPolls:   1200,
		},
		Prices: PricesConfig{
			Endpoint: "https://stooq.com",
		},
		Email: EmailConfig{
			SMTPPort: 587,
		},
		Scheduler: SchedulerConfig{
			SweepSpec:     "@every 1m",
			DueLimit:      50,
			RetentionSpec: "@daily",
			RetentionDays: 0,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Outputs: []string{"console", "file"},
		},
	}
}
