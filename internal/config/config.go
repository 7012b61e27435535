package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all server configuration loaded from environment variables,
// optionally overlaid by a YAML file (PHASEFLOW_CONFIG_FILE).
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development" yaml:"environment"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" yaml:"log_level"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080" yaml:"listen_addr"`

	// Generation backend: "gateway" (OpenAI-style chat completions) or "gemini"
	// (direct Google GenAI SDK).
	GenerationBackend string        `envconfig:"GENERATION_BACKEND" default:"gateway" yaml:"generation_backend"`
	GatewayURL        string        `envconfig:"GATEWAY_URL" default:"https://ai.gateway.lovable.dev/v1/chat/completions" yaml:"gateway_url"`
	GatewayAPIKey     string        `envconfig:"GATEWAY_API_KEY" yaml:"gateway_api_key"`
	GeminiAPIKey      string        `envconfig:"GEMINI_API_KEY" yaml:"gemini_api_key"`
	Model             string        `envconfig:"MODEL" default:"google/gemini-2.5-flash" yaml:"model"`
	GenerationTimeout time.Duration `envconfig:"GENERATION_TIMEOUT" default:"90s" yaml:"generation_timeout"`

	// Retry policy for generation calls
	RetryMaxAttempts int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3" yaml:"retry_max_attempts"`
	RetryBaseDelay   time.Duration `envconfig:"RETRY_BASE_DELAY" default:"1s" yaml:"retry_base_delay"`
	RetryMaxDelay    time.Duration `envconfig:"RETRY_MAX_DELAY" default:"10s" yaml:"retry_max_delay"`
	RetryJitter      bool          `envconfig:"RETRY_JITTER" default:"true" yaml:"retry_jitter"`

	// Input ceilings (characters). Oversized inputs are rejected before any
	// generation call is made.
	MaxProfileChars     int `envconfig:"MAX_PROFILE_CHARS" default:"10000" yaml:"max_profile_chars"`
	MaxDescriptionChars int `envconfig:"MAX_DESCRIPTION_CHARS" default:"10000" yaml:"max_description_chars"`
	MaxArtifactChars    int `envconfig:"MAX_ARTIFACT_CHARS" default:"10000" yaml:"max_artifact_chars"`
	MaxRefinementChars  int `envconfig:"MAX_REFINEMENT_CHARS" default:"5000" yaml:"max_refinement_chars"`

	// Response cache (identical prompts are byte-identical, so responses are
	// cacheable). 0 disables caching.
	CacheCapacity int           `envconfig:"CACHE_CAPACITY" default:"0" yaml:"cache_capacity"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"10m" yaml:"cache_ttl"`

	// Store
	DBPath string `envconfig:"DB_PATH" default:"phaseflow.db" yaml:"db_path"`

	// Sessions
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"12h" yaml:"session_ttl"`
	SessionSecret string        `envconfig:"SESSION_SECRET" yaml:"session_secret"`

	// API
	AuthMode       string `envconfig:"AUTH_MODE" default:"session" yaml:"auth_mode"` // "session", "api-key", "none"
	APIKey         string `envconfig:"API_KEY" yaml:"api_key"`
	RateLimitRPS   int    `envconfig:"RATE_LIMIT_RPS" default:"20" yaml:"rate_limit_rps"`
	RateLimitBurst int    `envconfig:"RATE_LIMIT_BURST" default:"40" yaml:"rate_limit_burst"`
	CORSOrigins    string `envconfig:"CORS_ORIGINS" yaml:"cors_origins"`
}

// GatewayEnabled returns true if the OpenAI-style gateway backend is selected.
func (c *Config) GatewayEnabled() bool {
	return c.GenerationBackend == "gateway"
}

// GeminiEnabled returns true if the direct Gemini backend is selected.
func (c *Config) GeminiEnabled() bool {
	return c.GenerationBackend == "gemini"
}

// Validate checks cross-field constraints that envconfig defaults cannot.
func (c *Config) Validate() error {
	switch c.GenerationBackend {
	case "gateway":
		if c.GatewayAPIKey == "" {
			return fmt.Errorf("GATEWAY_API_KEY is required when GENERATION_BACKEND=gateway")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when GENERATION_BACKEND=gemini")
		}
	default:
		return fmt.Errorf("unknown GENERATION_BACKEND %q", c.GenerationBackend)
	}
	if c.AuthMode == "api-key" && c.APIKey == "" {
		return fmt.Errorf("API_KEY is required when AUTH_MODE=api-key")
	}
	if c.AuthMode == "session" && c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required when AUTH_MODE=session")
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be >= 1")
	}
	return nil
}

// Load reads configuration from environment variables. If PHASEFLOW_CONFIG_FILE
// is set, the YAML file is applied on top of the env-derived values.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("PHASEFLOW", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if path := os.Getenv("PHASEFLOW_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}
