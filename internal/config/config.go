// Package config contains everything related to configuration
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/j-veylop/ai-dispatch-tui/internal/models"
)

// BackendConfig holds the connection settings of one backend.
type BackendConfig struct {
	BaseURL string `validate:"omitempty,url"`
	// Endpoint overrides the SDK endpoint and may be a bare host:port.
	Endpoint  string `validate:"omitempty,hostname_port|url"`
	TokenURL  string `validate:"omitempty,url"`
	Model     string `validate:"omitempty,max=128"`
	APIKey    string
	SecretKey string
	Timeout   time.Duration `validate:"gt=0s"`
}

// Config holds the application configuration.
type Config struct {
	DatabasePath string `validate:"required"`
	JobsPath     string `validate:"required"`
	LogPath      string
	LogLevel     string `validate:"oneof=debug info warn error"`

	Local  BackendConfig
	Qwen   BackendConfig
	Ernie  BackendConfig
	Gemini BackendConfig

	MaxRetries     int           `validate:"min=1,max=10"`
	RetryDelay     time.Duration `validate:"min=0s"`
	RequestTimeout time.Duration `validate:"gt=0s"`
	// Retention is how long call log rows are kept. Zero keeps everything.
	Retention time.Duration `validate:"min=0s"`

	PreferLocal        bool
	FallbackEnabled    bool
	UseCloudForComplex bool
	ProbeLocal         bool
	Notify             bool
}

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	timeout := getEnvDuration("AI_REQUEST_TIMEOUT", defaultRequestTimeout)
	cfg := &Config{
		DatabasePath: getEnvString("DATABASE_PATH", defaultStatePath("calls.db")),
		JobsPath:     getEnvString("JOBS_PATH", defaultStatePath("jobs.json")),
		LogPath:      getEnvString("LOG_PATH", defaultStatePath("aid.log")),
		LogLevel:     strings.ToLower(getEnvString("LOG_LEVEL", defaultLogLevel)),

		MaxRetries:     getEnvInt("AI_MAX_RETRIES", defaultMaxRetries),
		RetryDelay:     getEnvDuration("AI_RETRY_DELAY", defaultRetryDelay),
		RequestTimeout: timeout,
		Retention:      getEnvDuration("AI_HISTORY_RETENTION", defaultRetention),

		PreferLocal:        getEnvBool("AI_PREFER_LOCAL", true),
		FallbackEnabled:    getEnvBool("AI_FALLBACK_ENABLED", true),
		UseCloudForComplex: getEnvBool("AI_USE_CLOUD_FOR_COMPLEX", true),
		ProbeLocal:         getEnvBool("AI_PROBE_LOCAL", true),
		Notify:             getEnvBool("AI_NOTIFY", true),

		Local: BackendConfig{
			BaseURL: getEnvString("OLLAMA_BASE_URL", DefaultOllamaBaseURL),
			Model:   getEnvString("OLLAMA_MODEL", DefaultOllamaModel),
			Timeout: getEnvDuration("OLLAMA_TIMEOUT", timeout),
		},
		Qwen: BackendConfig{
			BaseURL: getEnvString("QWEN_BASE_URL", DefaultQwenBaseURL),
			Model:   getEnvString("QWEN_MODEL", DefaultQwenModel),
			APIKey:  os.Getenv("QWEN_API_KEY"),
			Timeout: getEnvDuration("QWEN_TIMEOUT", timeout),
		},
		Ernie: BackendConfig{
			BaseURL:   getEnvString("ERNIE_BASE_URL", DefaultErnieBaseURL),
			TokenURL:  getEnvString("ERNIE_TOKEN_URL", DefaultErnieTokenURL),
			Model:     getEnvString("ERNIE_MODEL", DefaultErnieModel),
			APIKey:    os.Getenv("ERNIE_API_KEY"),
			SecretKey: os.Getenv("ERNIE_SECRET_KEY"),
			Timeout:   getEnvDuration("ERNIE_TIMEOUT", timeout),
		},
		Gemini: BackendConfig{
			Endpoint: os.Getenv("GEMINI_ENDPOINT"),
			Model:    getEnvString("GEMINI_MODEL", DefaultGeminiModel),
			APIKey:   os.Getenv("GEMINI_API_KEY"),
			Timeout:  getEnvDuration("GEMINI_TIMEOUT", timeout),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	for _, path := range []string{cfg.DatabasePath, cfg.JobsPath, cfg.LogPath} {
		if path == "" {
			continue
		}
		if err := ensureDir(filepath.Dir(path)); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks field ranges and URL formats.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Backend returns the settings of one backend.
func (c *Config) Backend(b models.Backend) BackendConfig {
	switch b {
	case models.BackendLocal:
		return c.Local
	case models.BackendQwen:
		return c.Qwen
	case models.BackendErnie:
		return c.Ernie
	case models.BackendGemini:
		return c.Gemini
	default:
		return BackendConfig{}
	}
}

// Configured reports whether b has every setting it needs to be called.
func (c *Config) Configured(b models.Backend) bool {
	bc := c.Backend(b)
	switch b {
	case models.BackendLocal:
		return bc.BaseURL != "" && bc.Model != ""
	case models.BackendQwen, models.BackendGemini:
		return bc.APIKey != "" && bc.Model != ""
	case models.BackendErnie:
		return bc.APIKey != "" && bc.SecretKey != "" && bc.Model != ""
	default:
		return false
	}
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", appDirName, ".env"),
			filepath.Join(home, "."+appDirName, ".env"),
		)
	}

	// Parent directories (useful for development)
	if cwd, err := os.Getwd(); err == nil {
		parent := filepath.Dir(cwd)
		paths = append(paths, filepath.Join(parent, ".env"))
		grandparent := filepath.Dir(parent)
		paths = append(paths, filepath.Join(grandparent, ".env"))
	}

	return paths
}

// defaultStatePath places name in ~/.config/aid, or the working directory without a home.
func defaultStatePath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".config", appDirName, name)
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns the default.
// Accepts the forms understood by strconv.ParseBool plus yes/no and on/off.
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch value {
	case "":
		return defaultValue
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
