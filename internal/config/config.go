package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AI providers
const (
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
)

// Validation modes for AI responses
const (
	ValidationShallow = "shallow"
	ValidationStrict  = "strict"
)

// Overlap policies for a submit that arrives while an analysis is in flight
const (
	OverlapReject    = "reject"
	OverlapSupersede = "supersede"
)

const (
	DefaultGeminiModel   = "gemini-2.5-flash"
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

type Config struct {
	Host                string
	Port                string
	RequestTimeout      time.Duration
	AnalysisTimeout     time.Duration
	MaxRequestBodySize  int64
	AIProvider          string
	GeminiAPIKey        string
	GeminiModel         string
	GeminiBaseURL       string
	ValidationMode      string
	OverlapPolicy       string
	StatusInterval      time.Duration
	SessionTTL          time.Duration
	StrictURLValidation bool
	// AllowedHosts, if set, restricts page URLs to these exact hosts and
	// implies strict URL validation.
	AllowedHosts []string
	LogLevel     string
}

// fileConfig mirrors Config for the optional YAML file. Durations are strings
// in time.ParseDuration syntax.
type fileConfig struct {
	Host                string `yaml:"host"`
	Port                string `yaml:"port"`
	RequestTimeout      string `yaml:"request_timeout"`
	AnalysisTimeout     string `yaml:"analysis_timeout"`
	MaxRequestBodySize  int64  `yaml:"max_request_body_size"`
	AIProvider          string `yaml:"ai_provider"`
	GeminiAPIKey        string `yaml:"gemini_api_key"`
	GeminiModel         string `yaml:"gemini_model"`
	GeminiBaseURL       string `yaml:"gemini_base_url"`
	ValidationMode      string `yaml:"validation_mode"`
	OverlapPolicy       string `yaml:"overlap_policy"`
	StatusInterval      string `yaml:"status_interval"`
	SessionTTL          string `yaml:"session_ttl"`
	StrictURLValidation bool     `yaml:"strict_url_validation"`
	AllowedHosts        []string `yaml:"allowed_hosts"`
	LogLevel            string   `yaml:"log_level"`
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:               "0.0.0.0",
		Port:               "8080",
		RequestTimeout:     90 * time.Second,
		AnalysisTimeout:    60 * time.Second,
		MaxRequestBodySize: 1024 * 1024, // 1MB
		AIProvider:         ProviderGemini,
		GeminiModel:        DefaultGeminiModel,
		GeminiBaseURL:      DefaultGeminiBaseURL,
		ValidationMode:     ValidationShallow,
		OverlapPolicy:      OverlapReject,
		StatusInterval:     2 * time.Second,
		SessionTTL:         30 * time.Minute,
		LogLevel:           "info",
	}
}

// LoadFromEnv builds the configuration from defaults, the YAML file named by
// CONFIG_FILE (if any) and finally environment variables, then validates it.
func LoadFromEnv() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is LoadFromEnv without validation, for callers that override fields
// first.
func Load() (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Host = getEnvOrDefault("HOST", cfg.Host)
	cfg.Port = getEnvOrDefault("PORT", cfg.Port)
	cfg.RequestTimeout = parseDurationOrDefault("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.AnalysisTimeout = parseDurationOrDefault("ANALYSIS_TIMEOUT", cfg.AnalysisTimeout)
	cfg.MaxRequestBodySize = parseIntOrDefault("MAX_REQUEST_BODY_SIZE", cfg.MaxRequestBodySize)
	cfg.AIProvider = strings.ToLower(getEnvOrDefault("AI_PROVIDER", cfg.AIProvider))
	cfg.GeminiAPIKey = getEnvOrDefault("GEMINI_API_KEY", getEnvOrDefault("API_KEY", cfg.GeminiAPIKey))
	cfg.GeminiModel = getEnvOrDefault("GEMINI_MODEL", cfg.GeminiModel)
	cfg.GeminiBaseURL = strings.TrimRight(getEnvOrDefault("GEMINI_BASE_URL", cfg.GeminiBaseURL), "/")
	cfg.ValidationMode = strings.ToLower(getEnvOrDefault("VALIDATION_MODE", cfg.ValidationMode))
	cfg.OverlapPolicy = strings.ToLower(getEnvOrDefault("OVERLAP_POLICY", cfg.OverlapPolicy))
	cfg.StatusInterval = parseDurationOrDefault("STATUS_INTERVAL", cfg.StatusInterval)
	cfg.SessionTTL = parseDurationOrDefault("SESSION_TTL", cfg.SessionTTL)
	cfg.StrictURLValidation = parseBoolOrDefault("STRICT_URL_VALIDATION", cfg.StrictURLValidation)
	cfg.AllowedHosts = parseListOrDefault("ALLOWED_HOSTS", cfg.AllowedHosts)
	cfg.LogLevel = strings.ToLower(getEnvOrDefault("LOG_LEVEL", cfg.LogLevel))
	return cfg, nil
}

// Validate checks the configuration for values the application cannot run with.
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.AnalysisTimeout <= 0 || c.StatusInterval <= 0 || c.SessionTTL <= 0 {
		return fmt.Errorf("durations must be > 0 (got request=%s, analysis=%s, status=%s, session=%s)",
			c.RequestTimeout, c.AnalysisTimeout, c.StatusInterval, c.SessionTTL)
	}

	switch c.AIProvider {
	case ProviderGemini:
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			return fmt.Errorf("GEMINI_API_KEY (or API_KEY) is required when AI_PROVIDER=%s", ProviderGemini)
		}
		if strings.TrimSpace(c.GeminiModel) == "" {
			return fmt.Errorf("GEMINI_MODEL must not be empty")
		}
	case ProviderMock:
	default:
		return fmt.Errorf("unsupported AI_PROVIDER: %q", c.AIProvider)
	}

	switch c.ValidationMode {
	case ValidationShallow, ValidationStrict:
	default:
		return fmt.Errorf("unsupported VALIDATION_MODE: %q", c.ValidationMode)
	}

	switch c.OverlapPolicy {
	case OverlapReject, OverlapSupersede:
	default:
		return fmt.Errorf("unsupported OVERLAP_POLICY: %q", c.OverlapPolicy)
	}
	return nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.Host, fc.Host)
	setString(&c.Port, fc.Port)
	setString(&c.AIProvider, strings.ToLower(fc.AIProvider))
	setString(&c.GeminiAPIKey, fc.GeminiAPIKey)
	setString(&c.GeminiModel, fc.GeminiModel)
	setString(&c.GeminiBaseURL, strings.TrimRight(fc.GeminiBaseURL, "/"))
	setString(&c.ValidationMode, strings.ToLower(fc.ValidationMode))
	setString(&c.OverlapPolicy, strings.ToLower(fc.OverlapPolicy))
	setString(&c.LogLevel, strings.ToLower(fc.LogLevel))
	if fc.MaxRequestBodySize != 0 {
		c.MaxRequestBodySize = fc.MaxRequestBodySize
	}
	if fc.StrictURLValidation {
		c.StrictURLValidation = true
	}
	if hosts := cleanList(fc.AllowedHosts); len(hosts) > 0 {
		c.AllowedHosts = hosts
	}

	durations := []struct {
		key   string
		value string
		dst   *time.Duration
	}{
		{"request_timeout", fc.RequestTimeout, &c.RequestTimeout},
		{"analysis_timeout", fc.AnalysisTimeout, &c.AnalysisTimeout},
		{"status_interval", fc.StatusInterval, &c.StatusInterval},
		{"session_ttl", fc.SessionTTL, &c.SessionTTL},
	}
	for _, d := range durations {
		if strings.TrimSpace(d.value) == "" {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(d.value))
		if err != nil {
			return fmt.Errorf("config file %s: invalid %s: %w", path, d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

func setString(dst *string, value string) {
	if strings.TrimSpace(value) != "" {
		*dst = strings.TrimSpace(value)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

// parseListOrDefault reads a comma-separated list.
func parseListOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		if list := cleanList(strings.Split(value, ",")); len(list) > 0 {
			return list
		}
	}
	return defaultValue
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
