package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/yegors/wxstack/internal/weatherstack"
)

// Environment variables that override file settings
const (
	EnvAPIKey  = "WEATHERSTACK_API_KEY"
	EnvBaseURL = "WEATHERSTACK_BASE_URL"
)

// ErrNotFound is returned by LoadWithFallback when no config file exists
var ErrNotFound = errors.New("config file not found")

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server       ServerConfig       `toml:"server"`       // HTTP server settings
	Logging      LoggingConfig      `toml:"logging"`      // Application logging settings
	Weatherstack WeatherstackConfig `toml:"weatherstack"` // Weather API client settings
	Metrics      MetricsConfig      `toml:"metrics"`      // Prometheus exposition settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port             int    `toml:"port"`                  // HTTP port for the server
	Host             string `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	ReadTimeoutSecs  int    `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs int    `toml:"write_timeout_seconds"` // Maximum duration for writing the response; must cover upstream retries
	IdleTimeoutSecs  int    `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// WeatherstackConfig contains the weather API client settings
type WeatherstackConfig struct {
	APIBaseURL            string            `toml:"api_base_url"`            // Base URL of the service
	APIKey                string            `toml:"api_key"`                 // Access key; WEATHERSTACK_API_KEY takes precedence
	RequestTimeoutSeconds int               `toml:"request_timeout_seconds"` // Per-request timeout
	MaxRetries            int               `toml:"max_retries"`             // Retries after a timeout (0 disables retrying)
	RetryDelayMs          int               `toml:"retry_delay_ms"`          // Fixed wait between timeout retries
	UserAgent             string            `toml:"user_agent"`              // Client-identifying User-Agent header
	Endpoints             map[string]string `toml:"endpoints"`               // Path overrides keyed by query kind (current, historical, forecast)
}

// MetricsConfig contains Prometheus exposition settings
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"` // Serve metrics on the HTTP server
	Path    string `toml:"path"`    // Route for the metrics handler
}

// Default returns the configuration used when no file sets a value
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             8080,
			Host:             "127.0.0.1",
			ReadTimeoutSecs:  10,
			WriteTimeoutSecs: 60,
			IdleTimeoutSecs:  120,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Weatherstack: WeatherstackConfig{
			APIBaseURL:            weatherstack.DefaultBaseURL,
			RequestTimeoutSeconds: int(weatherstack.DefaultRequestTimeout / time.Second),
			MaxRetries:            weatherstack.DefaultMaxRetries,
			RetryDelayMs:          int(weatherstack.DefaultRetryDelay / time.Millisecond),
			UserAgent:             weatherstack.DefaultUserAgent,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load loads the configuration from the specified file path on top of the
// defaults, then applies environment overrides
func Load(path string) (*Config, error) {
	config := Default()

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	meta, err := toml.DecodeFile(path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	config.ApplyEnv()
	return config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	// List of paths to check in order of preference
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
			}
			return config, nil
		}
	}

	return nil, fmt.Errorf("%w in any of the expected locations: %v", ErrNotFound, uniquePaths)
}

// ApplyEnv overrides file settings with environment variables
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.Weatherstack.APIKey = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.Weatherstack.APIBaseURL = v
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeoutSecs < 0 || c.Server.WriteTimeoutSecs < 0 || c.Server.IdleTimeoutSecs < 0 {
		return fmt.Errorf("server timeouts must be 0 or greater")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if err := c.Weatherstack.Validate(); err != nil {
		return err
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with '/': %q", c.Metrics.Path)
	}

	return nil
}

// Validate validates the weather client settings. An empty API key is
// allowed; the service rejects it with error 101.
func (w WeatherstackConfig) Validate() error {
	if w.APIBaseURL == "" {
		return fmt.Errorf("api_base_url cannot be empty")
	}
	if !strings.HasPrefix(w.APIBaseURL, "http://") && !strings.HasPrefix(w.APIBaseURL, "https://") {
		return fmt.Errorf("api_base_url must be an http(s) URL: %s", w.APIBaseURL)
	}
	if w.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("request_timeout_seconds must be greater than 0")
	}
	if w.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be 0 or greater")
	}
	if w.RetryDelayMs < 0 {
		return fmt.Errorf("retry_delay_ms must be 0 or greater")
	}
	for kind, path := range w.Endpoints {
		switch weatherstack.QueryKind(kind) {
		case weatherstack.QueryCurrent, weatherstack.QueryHistorical, weatherstack.QueryForecast:
		default:
			return fmt.Errorf("unknown endpoint kind: %s", kind)
		}
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("endpoint path for %s must start with '/': %q", kind, path)
		}
	}
	return nil
}

// ClientConfig converts the settings into the client's configuration
func (w WeatherstackConfig) ClientConfig() weatherstack.Config {
	endpoints := weatherstack.DefaultEndpoints()
	for kind, path := range w.Endpoints {
		endpoints[weatherstack.QueryKind(kind)] = path
	}
	return weatherstack.Config{
		APIKey:         w.APIKey,
		BaseURL:        w.APIBaseURL,
		Endpoints:      endpoints,
		UserAgent:      w.UserAgent,
		RequestTimeout: time.Duration(w.RequestTimeoutSeconds) * time.Second,
		MaxRetries:     w.MaxRetries,
		RetryDelay:     time.Duration(w.RetryDelayMs) * time.Millisecond,
	}
}
