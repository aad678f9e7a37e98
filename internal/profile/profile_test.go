package profile

import (
	"os"
	"testing"
)

func TestProfileDefaults(t *testing.T) {
	clearEnvVars()

	profile := &Profile{}
	profile.FromEnv()

	tests := []struct {
		name     string
		expected string
		actual   string
	}{
		{"GenProvider default", "gemini", profile.GenProvider},
		{"GenAPIKey default", "", profile.GenAPIKey},
		{"GenBaseURL default", "https://generativelanguage.googleapis.com/v1beta/openai", profile.GenBaseURL},
		{"GenModel default", "gemini-1.5-flash", profile.GenModel},
		{"RedisURL default", "", profile.RedisURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.actual != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, tt.actual)
			}
		})
	}

	if profile.GenTimeout != 12 {
		t.Errorf("GenTimeout default: expected 12, got %d", profile.GenTimeout)
	}
	if profile.GenRetries != 2 {
		t.Errorf("GenRetries default: expected 2, got %d", profile.GenRetries)
	}
	if profile.CacheCapacity != 100 {
		t.Errorf("CacheCapacity default: expected 100, got %d", profile.CacheCapacity)
	}
}

func TestProfileFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVar   string
		envValue string
		field    func(*Profile) string
		expected string
	}{
		{
			name:     "generator API key",
			envVar:   "RECWISE_GEN_API_KEY",
			envValue: "test-gen-key",
			field:    func(p *Profile) string { return p.GenAPIKey },
			expected: "test-gen-key",
		},
		{
			name:     "generator base URL overrides provider default",
			envVar:   "RECWISE_GEN_BASE_URL",
			envValue: "http://localhost:8081/v1",
			field:    func(p *Profile) string { return p.GenBaseURL },
			expected: "http://localhost:8081/v1",
		},
		{
			name:     "redis URL",
			envVar:   "RECWISE_REDIS_URL",
			envValue: "redis://localhost:6379/0",
			field:    func(p *Profile) string { return p.RedisURL },
			expected: "redis://localhost:6379/0",
		},
		{
			name:     "provider switch applies its model default",
			envVar:   "RECWISE_GEN_PROVIDER",
			envValue: "deepseek",
			field:    func(p *Profile) string { return p.GenModel },
			expected: "deepseek-chat",
		},
		{
			name:     "unknown provider falls back to gemini",
			envVar:   "RECWISE_GEN_PROVIDER",
			envValue: "no-such-provider",
			field:    func(p *Profile) string { return p.GenProvider },
			expected: "gemini",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars()
			os.Setenv(tt.envVar, tt.envValue)
			defer os.Unsetenv(tt.envVar)

			profile := &Profile{}
			profile.FromEnv()

			actual := tt.field(profile)
			if actual != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, actual)
			}
		})
	}
}

func TestProfileValidate(t *testing.T) {
	base := func() *Profile {
		p := &Profile{Mode: "dev", Addr: "", Port: 8081}
		clearEnvVars()
		p.FromEnv()
		return p
	}

	t.Run("valid profile", func(t *testing.T) {
		if err := base().Validate(); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	})

	t.Run("unknown mode falls back to demo", func(t *testing.T) {
		p := base()
		p.Mode = "staging"
		if err := p.Validate(); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
		if p.Mode != "demo" {
			t.Errorf("expected mode demo, got %q", p.Mode)
		}
	})

	t.Run("invalid port", func(t *testing.T) {
		p := base()
		p.Port = 0
		if err := p.Validate(); err == nil {
			t.Error("expected error for port 0")
		}
	})

	t.Run("invalid cache capacity", func(t *testing.T) {
		p := base()
		p.CacheCapacity = 0
		if err := p.Validate(); err == nil {
			t.Error("expected error for zero cache capacity")
		}
	})

	t.Run("invalid generator timeout", func(t *testing.T) {
		p := base()
		p.GenTimeout = -1
		if err := p.Validate(); err == nil {
			t.Error("expected error for negative timeout")
		}
	})
}

func clearEnvVars() {
	prefix := "RECWISE_"
	suffixes := []string{
		"GEN_PROVIDER",
		"GEN_API_KEY",
		"GEN_BASE_URL",
		"GEN_MODEL",
		"GEN_TIMEOUT_SECONDS",
		"GEN_RETRIES",
		"REDIS_URL",
		"CACHE_CAPACITY",
	}

	for _, suffix := range suffixes {
		os.Unsetenv(prefix + suffix)
	}
}
