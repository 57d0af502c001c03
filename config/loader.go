package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ollamaui/providers"
)

// DefaultDirective is the persona instruction prepended to every conversation
const DefaultDirective = "I am an AI assistant. My task is to help the user and provide information on their request. " +
	"I am polite and helpful. I am not rude or offensive, and brief as possible in my responses, " +
	"unless the user asks for more information. My name is actually PHPllama, when asked for."

// Config represents the complete configuration. It is loaded once and never mutated.
type Config struct {
	Inference InferenceConfig `yaml:"inference"`
	Server    ServerConfig    `yaml:"server"`
	DNS       DNSConfig       `yaml:"dns"`
	SSH       SSHConfig       `yaml:"ssh"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// InferenceConfig describes the upstream inference server
type InferenceConfig struct {
	BaseURL        string                 `yaml:"base_url"`
	Directive      string                 `yaml:"directive"`
	DirectiveRole  string                 `yaml:"directive_role"`
	DefaultModel   string                 `yaml:"default_model"`
	Timeout        string                 `yaml:"timeout"`
	CatalogTimeout string                 `yaml:"catalog_timeout"`
	HealthInterval string                 `yaml:"health_interval"`
	Options        map[string]interface{} `yaml:"options"`
}

// ServerConfig from YAML
type ServerConfig struct {
	HTTPPort      int    `yaml:"http_port"`
	HTTPSPort     int    `yaml:"https_port"`
	CertFile      string `yaml:"cert_file"`
	KeyFile       string `yaml:"key_file"`
	Title         string `yaml:"title"`
	MaxFormBytes  int64  `yaml:"max_form_bytes"`
	AllowedOrigin string `yaml:"allowed_origin"`
}

// DNSConfig from YAML
type DNSConfig struct {
	Port     int    `yaml:"port"`
	Zone     string `yaml:"zone"`
	Model    string `yaml:"model"`
	Deadline string `yaml:"deadline"`
	MaxChars int    `yaml:"max_chars"`
}

// SSHConfig from YAML
type SSHConfig struct {
	Port        int    `yaml:"port"`
	HostKeyFile string `yaml:"host_key_file"`
	Model       string `yaml:"model"`
	ShowThought bool   `yaml:"show_thought"`
}

// RateLimitConfig from YAML
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	IdleTTL           string  `yaml:"idle_ttl"`
}

// LoggingConfig from YAML
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// TelemetryConfig from YAML
type TelemetryConfig struct {
	CountTokens bool `yaml:"count_tokens"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Inference: InferenceConfig{
			BaseURL:        "http://localhost:11434/api",
			Directive:      DefaultDirective,
			DirectiveRole:  providers.RoleAssistant,
			Timeout:        "120s",
			CatalogTimeout: "10s",
			HealthInterval: "30s",
		},
		Server: ServerConfig{
			HTTPPort:     80,
			Title:        "PHPllama Chat Web UI",
			MaxFormBytes: 65536,
		},
		DNS: DNSConfig{
			Zone:     "",
			Deadline: "4s",
			MaxChars: 500,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 2,
			Burst:             10,
			IdleTTL:           "10m",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from a YAML file layered over the defaults, then
// applies environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	if path != "" {
		if err := loadYAMLFile(path, config); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
		}
	}

	expandEnvVars(config)
	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// loadYAMLFile loads a YAML file into a structure
func loadYAMLFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}

// expandEnvVars expands environment variables in configuration
func expandEnvVars(config *Config) {
	config.Inference.BaseURL = expandEnv(config.Inference.BaseURL)
	config.Inference.Directive = expandEnv(config.Inference.Directive)
	config.Inference.DefaultModel = expandEnv(config.Inference.DefaultModel)
	config.Server.CertFile = expandEnv(config.Server.CertFile)
	config.Server.KeyFile = expandEnv(config.Server.KeyFile)
	config.SSH.HostKeyFile = expandEnv(config.SSH.HostKeyFile)
	config.Logging.File = expandEnv(config.Logging.File)
}

// expandEnv expands environment variables in a string
func expandEnv(s string) string {
	if strings.Contains(s, "${") {
		return os.Expand(s, func(key string) string {
			// Handle default values like ${VAR:-default}
			parts := strings.SplitN(key, ":-", 2)
			value := os.Getenv(parts[0])
			if value == "" && len(parts) > 1 {
				return parts[1]
			}
			return value
		})
	}
	return s
}

// applyEnvOverrides lets the environment win over the file
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		config.Inference.BaseURL = v
	}
	if v := os.Getenv("SYSTEM_DIRECTIVE"); v != "" {
		config.Inference.Directive = v
	}
	if v := os.Getenv("DIRECTIVE_ROLE"); v != "" {
		config.Inference.DirectiveRole = v
	}
	if v := os.Getenv("DEFAULT_MODEL"); v != "" {
		config.Inference.DefaultModel = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		config.Logging.File = v
	}

	// Non-privileged ports for development
	if os.Getenv("HIGH_PORT_MODE") == "true" {
		config.Server.HTTPPort = highPort(config.Server.HTTPPort, 8080)
		config.Server.HTTPSPort = highPort(config.Server.HTTPSPort, 8443)
		config.DNS.Port = highPort(config.DNS.Port, 8053)
		config.SSH.Port = highPort(config.SSH.Port, 2222)
	}

	for name, target := range map[string]*int{
		"HTTP_PORT":  &config.Server.HTTPPort,
		"HTTPS_PORT": &config.Server.HTTPSPort,
		"DNS_PORT":   &config.DNS.Port,
		"SSH_PORT":   &config.SSH.Port,
	} {
		if v := os.Getenv(name); v != "" {
			if port, err := strconv.Atoi(v); err == nil {
				*target = port
			}
		}
	}
}

// highPort maps privileged ports to their development counterpart; disabled stays disabled
func highPort(port, high int) int {
	if port > 0 && port < 1024 {
		return high
	}
	return port
}

// Validate checks the values the responder depends on
func (c *Config) Validate() error {
	u, err := url.Parse(c.Inference.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid inference base_url %q", c.Inference.BaseURL)
	}

	switch c.Inference.DirectiveRole {
	case providers.RoleAssistant, providers.RoleSystem:
	default:
		return fmt.Errorf("invalid directive_role %q: must be assistant or system", c.Inference.DirectiveRole)
	}

	for name, value := range map[string]string{
		"inference.timeout":         c.Inference.Timeout,
		"inference.catalog_timeout": c.Inference.CatalogTimeout,
		"dns.deadline":              c.DNS.Deadline,
		"rate_limit.idle_ttl":       c.RateLimit.IdleTTL,
	} {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid %s %q: must be positive", name, value)
		}
	}

	if c.Inference.HealthInterval != "" {
		d, err := time.ParseDuration(c.Inference.HealthInterval)
		if err != nil || d < 0 {
			return fmt.Errorf("invalid inference.health_interval %q", c.Inference.HealthInterval)
		}
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate_limit requires positive requests_per_second and burst")
	}

	return nil
}

// ChatTimeout returns the parsed chat timeout
func (c *Config) ChatTimeout() time.Duration {
	return mustDuration(c.Inference.Timeout)
}

// CatalogTimeout returns the parsed catalog timeout
func (c *Config) CatalogTimeout() time.Duration {
	return mustDuration(c.Inference.CatalogTimeout)
}

// HealthInterval returns how often the inference server is probed; zero probes on demand
func (c *Config) HealthInterval() time.Duration {
	if c.Inference.HealthInterval == "" {
		return 0
	}
	return mustDuration(c.Inference.HealthInterval)
}

// DNSDeadline returns the parsed DNS answer deadline
func (c *Config) DNSDeadline() time.Duration {
	return mustDuration(c.DNS.Deadline)
}

// RateLimitIdleTTL returns how long an idle client limiter is kept
func (c *Config) RateLimitIdleTTL() time.Duration {
	return mustDuration(c.RateLimit.IdleTTL)
}

// mustDuration is only used on validated values
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
