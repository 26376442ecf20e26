// Package config loads, validates, and serves the application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"parley/internal/domain"
	"parley/internal/infra/logger"
	"parley/internal/infra/tracer"
)

// Config is the top-level application configuration.
type Config struct {
	AI     AIConfig      `yaml:"ai"`
	Proxy  ProxyConfig   `yaml:"proxy"`
	Logger logger.Config `yaml:"logger"`
	Tracer tracer.Config `yaml:"tracer"`
}

// AIConfig holds the active backend mode and generation parameters.
type AIConfig struct {
	Mode            string  `yaml:"mode"` // "online" or "offline"
	Temperature     float64 `yaml:"temperature"`
	TopK            int     `yaml:"top_k"`
	TopP            float64 `yaml:"top_p"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
}

// ToDomain converts the section to a validated domain.AiConfiguration.
func (c AIConfig) ToDomain() (domain.AiConfiguration, error) {
	params, err := domain.NewModelParameters(c.Temperature, c.TopK, c.TopP, c.MaxOutputTokens)
	if err != nil {
		return domain.AiConfiguration{}, err
	}
	cfg := domain.AiConfiguration{Mode: domain.Mode(c.Mode), Params: params}
	if err := cfg.Validate(); err != nil {
		return domain.AiConfiguration{}, err
	}
	return cfg, nil
}

// CircuitBreakerConfig holds the proxy circuit breaker settings.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// ProxyConfig holds remote AI proxy settings.
type ProxyConfig struct {
	BaseURL        string               `yaml:"base_url"`
	APIKey         string               `yaml:"api_key"` // supports ${ENV_VAR} expansion
	DefaultModel   string               `yaml:"default_model"`
	ConnTimeout    time.Duration        `yaml:"conn_timeout"`
	RespTimeout    time.Duration        `yaml:"resp_timeout"`
	RequestsPerMin int                  `yaml:"requests_per_min"` // 0 disables rate limiting
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		AI: AIConfig{
			Mode:            string(domain.ModeOnline),
			Temperature:     0.7,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 1024,
		},
		Proxy: ProxyConfig{
			DefaultModel: "gemini-2.0-flash",
			CircuitBreaker: CircuitBreakerConfig{
				Enabled: true,
			},
		},
		Logger: logger.Config{Level: "info", Format: "text", Output: "stderr"},
	}
}

// Load reads the YAML file at path over the defaults. A missing file yields
// the defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.Proxy.APIKey = os.ExpandEnv(cfg.Proxy.APIKey)
	return cfg, nil
}

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness, reporting every problem
// at once.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateAI(cfg, ve)
	validateProxy(cfg, ve)
	validateLogger(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateAI(cfg *Config, ve *ValidationError) {
	if !domain.Mode(cfg.AI.Mode).Valid() {
		ve.Add("ai.mode must be %q or %q, got %q", domain.ModeOnline, domain.ModeOffline, cfg.AI.Mode)
	}
	if cfg.AI.Temperature < 0 || cfg.AI.Temperature > 2 {
		ve.Add("ai.temperature must be in [0, 2]")
	}
	if cfg.AI.TopK <= 0 {
		ve.Add("ai.top_k must be > 0")
	}
	if cfg.AI.TopP < 0 || cfg.AI.TopP > 1 {
		ve.Add("ai.top_p must be in [0, 1]")
	}
	if cfg.AI.MaxOutputTokens <= 0 {
		ve.Add("ai.max_output_tokens must be > 0")
	}
}

func validateProxy(cfg *Config, ve *ValidationError) {
	if cfg.Proxy.ConnTimeout < 0 {
		ve.Add("proxy.conn_timeout must be >= 0")
	}
	if cfg.Proxy.RespTimeout < 0 {
		ve.Add("proxy.resp_timeout must be >= 0")
	}
	if cfg.Proxy.RequestsPerMin < 0 {
		ve.Add("proxy.requests_per_min must be >= 0")
	}
}

func validateLogger(cfg *Config, ve *ValidationError) {
	switch strings.ToLower(cfg.Logger.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		ve.Add("logger.level %q is not a known level", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "", "text", "json":
	default:
		ve.Add("logger.format must be text or json, got %q", cfg.Logger.Format)
	}
}
