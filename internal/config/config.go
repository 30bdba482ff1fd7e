package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultListenAddr      = ":3000"
	DefaultDBPath          = "database/zork.db"
	DefaultRunPollInterval = 1 * time.Second
	DefaultRunWaitTimeout  = 2 * time.Minute
	DefaultRateLimitWindow = 15 * time.Minute
	DefaultRateLimitMax    = 100
)

// Config holds everything the gateway needs to run.
//
// Values come from an optional YAML file, overridden by environment
// variables. The OpenAI key is a secret: keep config files chmod 0600.
type Config struct {
	ListenAddr string `yaml:"listen_addr,omitempty"`

	OpenAIAPIKey string `yaml:"openai_api_key,omitempty"`
	AssistantID  string `yaml:"assistant_id,omitempty"`

	DBPath string `yaml:"db_path,omitempty"`

	// AllowedOrigins is the CORS allowlist. Empty means "*" (the public
	// endpoints are meant to be reachable from any origin).
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`

	RateLimitWindow time.Duration `yaml:"rate_limit_window,omitempty"`
	RateLimitMax    int           `yaml:"rate_limit_max,omitempty"`

	// RunPollInterval is the initial delay between run status polls.
	RunPollInterval time.Duration `yaml:"run_poll_interval,omitempty"`
	// RunWaitTimeout bounds the total time spent waiting for a run.
	RunWaitTimeout time.Duration `yaml:"run_wait_timeout,omitempty"`

	// Environment is "development" or "production". Development responses
	// include upstream error detail.
	Environment string `yaml:"environment,omitempty"`

	// LogFormat is "json" or "text".
	LogFormat string `yaml:"log_format,omitempty"`
	// LogLevel is "debug|info|warn|error".
	LogLevel string `yaml:"log_level,omitempty"`
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		return errors.New("missing openai_api_key (OPENAI_API_KEY)")
	}
	if strings.TrimSpace(c.AssistantID) == "" {
		return errors.New("missing assistant_id (OPENAI_ASSISTANT_ID)")
	}
	if c.RateLimitMax < 0 {
		return errors.New("rate_limit_max must be >= 0")
	}
	if c.RunPollInterval < 0 || c.RunWaitTimeout < 0 {
		return errors.New("run poll interval/timeout must be >= 0")
	}
	return nil
}

func (c *Config) Production() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// Load reads the optional YAML file at path, applies environment variable
// overrides, fills defaults and validates. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	path = strings.TrimSpace(path)
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("invalid config yaml: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.ListenAddr = ":" + v
	}
	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_ASSISTANT_ID")); v != "" {
		cfg.AssistantID = v
	}
	if v := strings.TrimSpace(os.Getenv("DB_PATH")); v != "" {
		cfg.DBPath = v
	}
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		cfg.AllowedOrigins = splitOrigins(v)
	}
	if ms, ok := envInt("RATE_LIMIT_WINDOW_MS"); ok {
		cfg.RateLimitWindow = time.Duration(ms) * time.Millisecond
	}
	if n, ok := envInt("RATE_LIMIT_MAX_REQUESTS"); ok {
		cfg.RateLimitMax = int(n)
	}
	if ms, ok := envInt("RUN_POLL_INTERVAL_MS"); ok {
		cfg.RunPollInterval = time.Duration(ms) * time.Millisecond
	}
	if ms, ok := envInt("RUN_WAIT_TIMEOUT_MS"); ok {
		cfg.RunWaitTimeout = time.Duration(ms) * time.Millisecond
	}
	if v := strings.TrimSpace(os.Getenv("NODE_ENV")); v != "" {
		cfg.Environment = v
	}
	if v := strings.TrimSpace(os.Getenv("ENVIRONMENT")); v != "" {
		cfg.Environment = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		cfg.LogFormat = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = DefaultDBPath
	}
	if cfg.RateLimitWindow == 0 {
		cfg.RateLimitWindow = DefaultRateLimitWindow
	}
	if cfg.RateLimitMax == 0 {
		cfg.RateLimitMax = DefaultRateLimitMax
	}
	if cfg.RunPollInterval == 0 {
		cfg.RunPollInterval = DefaultRunPollInterval
	}
	if cfg.RunWaitTimeout == 0 {
		cfg.RunWaitTimeout = DefaultRunWaitTimeout
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "development"
	}
	if strings.TrimSpace(cfg.LogFormat) == "" {
		cfg.LogFormat = "text"
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
}

func envInt(name string) (int64, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
