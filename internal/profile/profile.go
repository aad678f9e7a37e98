package profile

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Profile is configuration to start main server.
type Profile struct {
	// Unified generator configuration (OpenAI-compatible protocol)
	// All providers (gemini, openai, deepseek, ollama) use the same config
	GenProvider string // Provider identifier: gemini, openai, deepseek, ollama
	GenAPIKey   string // Generator API key; empty means callers supply their own
	GenBaseURL  string // Generator base URL (optional, has default per provider)
	GenModel    string // Model name: gemini-1.5-flash, gpt-4o-mini, deepseek-chat
	GenTimeout  int    // Per-attempt request timeout in seconds (default: 12)
	GenRetries  int    // Retries after the initial attempt (default: 2)

	// Cache configuration
	RedisURL      string // Durable tier address; empty runs with the fast tier only
	CacheCapacity int    // Fast tier entry bound (default: 100)

	// Other configurations
	Mode    string
	Addr    string
	Version string
	Port    int
}

// Provider default configurations for the generator.
// Used when GEN_BASE_URL is not explicitly set.
var genProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"gemini": {
		BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai",
		Model:   "gemini-1.5-flash",
	},
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	// Generator configuration
	p.GenProvider = getEnvOrDefault("RECWISE_GEN_PROVIDER", "gemini")
	p.GenAPIKey = getEnvOrDefault("RECWISE_GEN_API_KEY", "")
	p.GenBaseURL = getEnvOrDefault("RECWISE_GEN_BASE_URL", "")
	p.GenModel = getEnvOrDefault("RECWISE_GEN_MODEL", "")
	p.GenTimeout = getEnvOrDefaultInt("RECWISE_GEN_TIMEOUT_SECONDS", 12)
	p.GenRetries = getEnvOrDefaultInt("RECWISE_GEN_RETRIES", 2)

	// Validate and apply provider defaults if not explicitly set
	if p.GenProvider != "" {
		if _, ok := genProviderDefaults[p.GenProvider]; !ok {
			slog.Warn("Unknown generator provider, using default: gemini", "provider", p.GenProvider)
			p.GenProvider = "gemini"
		}
	}
	if p.GenBaseURL == "" || p.GenModel == "" {
		if defaults, ok := genProviderDefaults[p.GenProvider]; ok {
			if p.GenBaseURL == "" {
				p.GenBaseURL = defaults.BaseURL
			}
			if p.GenModel == "" {
				p.GenModel = defaults.Model
			}
		}
	}

	// Cache configuration
	p.RedisURL = getEnvOrDefault("RECWISE_REDIS_URL", "")
	p.CacheCapacity = getEnvOrDefaultInt("RECWISE_CACHE_CAPACITY", 100)
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}
	if p.CacheCapacity <= 0 {
		return errors.Errorf("invalid cache capacity %d", p.CacheCapacity)
	}
	if p.GenTimeout <= 0 {
		return errors.Errorf("invalid generator timeout %d", p.GenTimeout)
	}
	if p.GenRetries < 0 {
		return errors.Errorf("invalid generator retries %d", p.GenRetries)
	}

	if p.GenAPIKey == "" {
		slog.Warn("no generator API key configured, callers must supply their own")
	}
	return nil
}

func (p *Profile) String() string {
	return fmt.Sprintf("mode=%s addr=%s port=%d provider=%s model=%s", p.Mode, p.Addr, p.Port, p.GenProvider, p.GenModel)
}
