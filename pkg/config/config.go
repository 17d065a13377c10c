package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for seo-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (API keys, database password) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// External data sources queried during enrichment
	Enrichment EnrichmentConfig `yaml:"enrichment"`

	// Content generation endpoint (OpenAI-compatible, e.g. Perplexity)
	Generation GenerationConfig `yaml:"generation"`

	// QA review endpoint (Anthropic)
	Review ReviewConfig `yaml:"review"`

	// Pipeline batch/poll behavior
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"seo_engine"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"seo_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// EnrichmentConfig holds endpoints for the public regulatory data sources.
// Defaults point at the production openFDA and ClinicalTrials.gov APIs;
// tests override them with httptest servers.
type EnrichmentConfig struct {
	OpenFDABaseURL        string        `yaml:"openfda_base_url" env:"OPENFDA_BASE_URL" env-default:"https://api.fda.gov"`
	ClinicalTrialsBaseURL string        `yaml:"clinicaltrials_base_url" env:"CLINICALTRIALS_BASE_URL" env-default:"https://clinicaltrials.gov/api/v2"`
	RequestTimeout        time.Duration `yaml:"request_timeout" env:"ENRICHMENT_REQUEST_TIMEOUT" env-default:"15s"`
	MaxConcurrent         int           `yaml:"max_concurrent" env:"ENRICHMENT_MAX_CONCURRENT" env-default:"5"`
}

// GenerationConfig holds the chat-completion endpoint used for SEO content.
type GenerationConfig struct {
	Endpoint    string  `yaml:"endpoint" env:"GENERATION_ENDPOINT" env-default:"https://api.perplexity.ai"`
	Model       string  `yaml:"model" env:"GENERATION_MODEL" env-default:"sonar"`
	APIKey      string  `yaml:"-" env:"GENERATION_API_KEY"` // Secret - not in YAML
	Temperature float64 `yaml:"temperature" env:"GENERATION_TEMPERATURE" env-default:"0.7"`
	MaxTokens   int     `yaml:"max_tokens" env:"GENERATION_MAX_TOKENS" env-default:"2000"`
}

// ReviewConfig holds the Anthropic endpoint used for compliance QA review.
type ReviewConfig struct {
	Model     string `yaml:"model" env:"REVIEW_MODEL" env-default:"claude-3-5-haiku-20241022"`
	APIKey    string `yaml:"-" env:"REVIEW_API_KEY"` // Secret - not in YAML
	MaxTokens int    `yaml:"max_tokens" env:"REVIEW_MAX_TOKENS" env-default:"1500"`
}

// PipelineConfig holds batch reprocessing and status polling settings.
type PipelineConfig struct {
	// BatchSize is the number of stuck submissions reprocessed per batch.
	BatchSize int `yaml:"batch_size" env:"PIPELINE_BATCH_SIZE" env-default:"5"`
	// BatchDelay is the pause between batches to avoid overwhelming providers.
	BatchDelay time.Duration `yaml:"batch_delay" env:"PIPELINE_BATCH_DELAY" env-default:"2s"`
	// PollInterval is the fixed interval between status poll attempts.
	PollInterval time.Duration `yaml:"poll_interval" env:"PIPELINE_POLL_INTERVAL" env-default:"3s"`
	// PollMaxAttempts bounds the status poller before it reports timeout.
	PollMaxAttempts int `yaml:"poll_max_attempts" env:"PIPELINE_POLL_MAX_ATTEMPTS" env-default:"20"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// When config.yaml does not exist, everything comes from the environment; that
// is the normal shape in containerized deployments where no file is shipped.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	if _, err := os.Stat("config.yaml"); os.IsNotExist(err) {
		return LoadFromEnv(version)
	}

	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv reads configuration from environment variables only.
// Load falls back to this when no config.yaml is present.
func LoadFromEnv(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Pipeline.BatchSize < 1 {
		return fmt.Errorf("pipeline batch_size must be at least 1, got %d", c.Pipeline.BatchSize)
	}
	if c.Pipeline.PollMaxAttempts < 1 {
		return fmt.Errorf("pipeline poll_max_attempts must be at least 1, got %d", c.Pipeline.PollMaxAttempts)
	}
	if c.Enrichment.MaxConcurrent < 1 {
		return fmt.Errorf("enrichment max_concurrent must be at least 1, got %d", c.Enrichment.MaxConcurrent)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
