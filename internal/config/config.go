// Package config loads stockscout configuration from TOML files,
// environment variables, and CLI flags.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Blob        BlobConfig      `toml:"blob"`
	Search      SearchConfig    `toml:"search"`
	OpenAI      OpenAIConfig    `toml:"openai"`
	Prices      PricesConfig    `toml:"prices"`
	Email       EmailConfig     `toml:"email"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// StorageConfig contains document-store settings.
// Backend selects the implementation once at process start:
// "badger" (durable embedded store) or "file" (single-writer JSON,
// dev use only).
type StorageConfig struct {
	Backend string       `toml:"backend"`
	Badger  BadgerConfig `toml:"badger"`
	File    FileConfig   `toml:"file"`
}

// BadgerConfig contains BadgerDB-specific settings.
type BadgerConfig struct {
	Path string `toml:"path"`
}

// FileConfig contains the JSON file store settings.
type FileConfig struct {
	Path string `toml:"path"`
}

// BlobConfig contains object-store settings for report artifacts.
type BlobConfig struct {
	Dir           string `toml:"dir"`             // root directory for blob containers
	Container     string `toml:"container"`       // container name for report artifacts
	SigningKey    string `toml:"signing_key"`     // HMAC key for signed read URLs
	SignedTTLHrs  int    `toml:"signed_ttl_hrs"`  // signed URL lifetime (default 48)
	PublicBaseURL string `toml:"public_base_url"` // base URL embedded in signed links
}

// SearchConfig contains web-search API settings (Bing v7-compatible).
// Empty key disables search: fetch-context returns no sources.
type SearchConfig struct {
	Endpoint string `toml:"endpoint"`
	Key      string `toml:"key"`
	TopK     int    `toml:"top_k"`
}

// OpenAIConfig contains text-generation service settings.
type OpenAIConfig struct {
	Endpoint    string `toml:"endpoint"`
	APIKey      string `toml:"api_key"`
	Model       string `toml:"model"`
	AgentID     string `toml:"agent_id"`       // optional agent/assistant run surface
	DeepModel   string `toml:"deep_model"`     // optional deep-research model
	PollSeconds int    `toml:"poll_seconds"`   // sleep between agent-run polls
	MaxPolls    int    `toml:"max_polls"`      // poll iterations for agent runs
	DeepPolls   int    `toml:"deep_max_polls"` // poll iterations for deep-research runs
}

// PricesConfig contains market price feed settings.
type PricesConfig struct {
	Endpoint string `toml:"endpoint"`
}

// EmailConfig contains SMTP settings. Empty host disables email.
type EmailConfig struct {
	SMTPHost string `toml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port"`
	SMTPUser string `toml:"smtp_user"`
	SMTPPass string `toml:"smtp_pass"`
	Sender   string `toml:"sender"`
}

// SchedulerConfig contains sweep settings.
type SchedulerConfig struct {
	SweepSpec     string `toml:"sweep_spec"`     // cron spec for the due-schedule sweep
	DueLimit      int    `toml:"due_limit"`      // max schedules serviced per sweep
	RetentionSpec string `toml:"retention_spec"` // cron spec for the retention sweep
	RetentionDays int    `toml:"retention_days"` // <=0 disables the retention sweep
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// IsDevMode reports whether the service runs with dev defaults.
func (c *Config) IsDevMode() bool {
	return c.Environment == "dev" || c.Environment == ""
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies SCOUT_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("SCOUT_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SCOUT_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if backend := os.Getenv("SCOUT_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = backend
	}
	if badgerPath := os.Getenv("SCOUT_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if filePath := os.Getenv("SCOUT_FILE_STORE_PATH"); filePath != "" {
		config.Storage.File.Path = filePath
	}
	if blobDir := os.Getenv("SCOUT_BLOB_DIR"); blobDir != "" {
		config.Blob.Dir = blobDir
	}
	if key := os.Getenv("SCOUT_SEARCH_KEY"); key != "" {
		config.Search.Key = key
	}
	if endpoint := os.Getenv("SCOUT_OPENAI_ENDPOINT"); endpoint != "" {
		config.OpenAI.Endpoint = endpoint
	}
	if key := os.Getenv("SCOUT_OPENAI_API_KEY"); key != "" {
		config.OpenAI.APIKey = key
	}
	if pass := os.Getenv("SCOUT_SMTP_PASS"); pass != "" {
		config.Email.SMTPPass = pass
	}
	if days := os.Getenv("SCOUT_RETENTION_DAYS"); days != "" {
		if d, err := strconv.Atoi(days); err == nil {
			config.Scheduler.RetentionDays = d
		}
	}
	if level := os.Getenv("SCOUT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks mandatory fields and returns a list of issues.
// The document store is the only collaborator that is fatal when
// misconfigured; every other service degrades to a documented fallback.
func (c *Config) Validate() []string {
	var issues []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}

	switch c.Storage.Backend {
	case "badger":
		if c.Storage.Badger.Path == "" {
			issues = append(issues, "storage.badger.path is required for the badger backend")
		}
	case "file":
		if c.Storage.File.Path == "" {
			issues = append(issues, "storage.file.path is required for the file backend")
		}
	default:
		issues = append(issues, fmt.Sprintf("storage.backend must be \"badger\" or \"file\", got %q", c.Storage.Backend))
	}

	if c.Blob.Dir == "" {
		issues = append(issues, "blob.dir is required")
	}
	if c.Blob.Container == "" {
		issues = append(issues, "blob.container is required")
	}

	return issues
}
