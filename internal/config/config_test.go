package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"BIOSLOG_RULEPACKS", "BIOSLOG_CONTEXT_LINES", "BIOSLOG_NO_EVIDENCE",
	"BIOSLOG_STALL_GAP_LINES", "BIOSLOG_LLM", "BIOSLOG_LLM_PROVIDER",
	"BIOSLOG_OLLAMA_HOST", "BIOSLOG_LLM_MODEL", "BIOSLOG_LLM_API_KEY",
	"BIOSLOG_LLM_TIMEOUT", "BIOSLOG_LLM_MODE", "BIOSLOG_LLM_TOP_K",
	"BIOSLOG_LLM_MAX_CHARS", "BIOSLOG_LLM_FACTS_MAX_CHARS",
	"BIOSLOG_OUTPUT_MODE", "BIOSLOG_OUTPUT_PRETTY", "BIOSLOG_WEBHOOK_URL",
	"BIOSLOG_WEBHOOK_HEADERS", "BIOSLOG_LOG_LEVEL",
}

// clearEnv unsets every BIOSLOG_ variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		if v, ok := os.LookupEnv(key); ok {
			os.Unsetenv(key)
			t.Cleanup(func() { os.Setenv(key, v) })
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Engine.ContextLines != 3 {
		t.Fatalf("expected default ContextLines=3, got %d", cfg.Engine.ContextLines)
	}
	if cfg.Engine.StallGapLines != 5000 {
		t.Fatalf("expected default StallGapLines=5000, got %d", cfg.Engine.StallGapLines)
	}
	if cfg.Engine.Rulepacks != nil {
		t.Fatalf("expected nil Rulepacks, got %v", cfg.Engine.Rulepacks)
	}
	if cfg.LLM.Enabled {
		t.Fatal("expected LLM disabled by default")
	}
	if cfg.LLM.Provider != "ollama" || cfg.LLM.Host != "http://localhost:11434" || cfg.LLM.Model != "qwen2.5:7b" {
		t.Fatalf("unexpected LLM defaults: %+v", cfg.LLM)
	}
	if cfg.LLM.Timeout != 60*time.Second {
		t.Fatalf("expected default Timeout=60s, got %v", cfg.LLM.Timeout)
	}
	if cfg.LLM.Mode != "two-pass" || cfg.LLM.TopK != 8 || cfg.LLM.MaxChars != 30000 || cfg.LLM.FactsMaxChars != 12000 {
		t.Fatalf("unexpected LLM budget defaults: %+v", cfg.LLM)
	}
	if cfg.Output.Mode != "full" || cfg.Output.Pretty {
		t.Fatalf("unexpected output defaults: %+v", cfg.Output)
	}
	if cfg.Output.WebhookHeader != nil {
		t.Fatalf("expected nil WebhookHeader, got %v", cfg.Output.WebhookHeader)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected default LogLevel=info, got %q", cfg.LogLevel)
	}
}

func TestLoad_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("BIOSLOG_RULEPACKS", "faults, pcie,,./extra.yaml")
	t.Setenv("BIOSLOG_CONTEXT_LINES", "5")
	t.Setenv("BIOSLOG_LLM", "true")
	t.Setenv("BIOSLOG_LLM_TIMEOUT", "90")
	t.Setenv("BIOSLOG_OUTPUT_MODE", "slim")
	t.Setenv("BIOSLOG_WEBHOOK_HEADERS", "Authorization=Bearer x, X-Team = fw")

	cfg := Load()

	want := []string{"faults", "pcie", "./extra.yaml"}
	if strings.Join(cfg.Engine.Rulepacks, "|") != strings.Join(want, "|") {
		t.Fatalf("Rulepacks = %v, want %v", cfg.Engine.Rulepacks, want)
	}
	if cfg.Engine.ContextLines != 5 {
		t.Fatalf("ContextLines = %d", cfg.Engine.ContextLines)
	}
	if !cfg.LLM.Enabled {
		t.Fatal("expected LLM enabled")
	}
	if cfg.LLM.Timeout != 90*time.Second {
		t.Fatalf("Timeout = %v, want 90s", cfg.LLM.Timeout)
	}
	if cfg.Output.Mode != "slim" {
		t.Fatalf("Output.Mode = %q", cfg.Output.Mode)
	}
	if cfg.Output.WebhookHeader["Authorization"] != "Bearer x" || cfg.Output.WebhookHeader["X-Team"] != "fw" {
		t.Fatalf("WebhookHeader = %v", cfg.Output.WebhookHeader)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("BIOSLOG_LLM_MODEL=llama3.1:8b\n"), 0644); err != nil {
		t.Fatal(err)
	}
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Chdir(wd)
		os.Unsetenv("BIOSLOG_LLM_MODEL")
	})

	cfg := Load()
	if cfg.LLM.Model != "llama3.1:8b" {
		t.Fatalf("expected model from .env, got %q", cfg.LLM.Model)
	}
}

func TestGetenvDuration(t *testing.T) {
	tests := []struct {
		name   string
		envVal string
		want   time.Duration
	}{
		{"go duration", "2m", 2 * time.Minute},
		{"bare seconds", "1.5", 1500 * time.Millisecond},
		{"invalid falls back", "soon", time.Second},
		{"empty falls back", "", time.Second},
	}

	const key = "BIOSLOG_TEST_GETENVDURATION"
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(key, tt.envVal)
			if got := getenvDuration(key, time.Second); got != tt.want {
				t.Errorf("getenvDuration(%q) = %v, want %v", tt.envVal, got, tt.want)
			}
		})
	}
}

func TestGetenvInt(t *testing.T) {
	tests := []struct {
		name     string
		envVal   string
		set      bool
		fallback int
		want     int
	}{
		{"empty uses fallback", "", false, 1000, 1000},
		{"valid int", "500", true, 1000, 500},
		{"zero", "0", true, 1000, 0},
		{"invalid falls back", "abc", true, 1000, 1000},
		{"negative", "-1", true, 1000, -1},
	}

	const key = "BIOSLOG_TEST_GETENVINT"
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.set {
				os.Setenv(key, tt.envVal)
				defer os.Unsetenv(key)
			} else {
				os.Unsetenv(key)
			}
			got := getenvInt(key, tt.fallback)
			if got != tt.want {
				t.Errorf("getenvInt(%q, %d) = %d, want %d", tt.envVal, tt.fallback, got, tt.want)
			}
		})
	}
}

// --- Validation tests ---

func validConfig() Config {
	return Config{
		Engine: EngineConfig{ContextLines: 3, StallGapLines: 5000},
		LLM: LLMConfig{
			Enabled:  true,
			Provider: "ollama",
			Timeout:  60 * time.Second,
			Mode:     "two-pass",
			TopK:     8,
			MaxChars: 30000,
		},
		Output: OutputConfig{Mode: "full"},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected nil error for valid config, got: %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative context", func(c *Config) { c.Engine.ContextLines = -1 }, "context lines"},
		{"zero stall gap", func(c *Config) { c.Engine.StallGapLines = 0 }, "stall gap"},
		{"bad output mode", func(c *Config) { c.Output.Mode = "huge" }, "output mode"},
		{"bad provider", func(c *Config) { c.LLM.Provider = "bard" }, "provider"},
		{"gemini without key", func(c *Config) { c.LLM.Provider = "gemini" }, "BIOSLOG_LLM_API_KEY"},
		{"bad llm mode", func(c *Config) { c.LLM.Mode = "triple" }, "llm mode"},
		{"zero timeout", func(c *Config) { c.LLM.Timeout = 0 }, "timeout"},
		{"zero top-k", func(c *Config) { c.LLM.TopK = 0 }, "top-k"},
		{"zero max chars", func(c *Config) { c.LLM.MaxChars = 0 }, "max chars"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error to mention %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestValidate_LLMSettingsIgnoredWhenDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.LLM = LLMConfig{Provider: "bard"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected nil error with LLM disabled, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.ContextLines = -2
	cfg.Output.Mode = "loud"
	cfg.LLM.Mode = "triple"
	msg := cfg.Validate().Error()
	for _, want := range []string{"context lines", "output mode", "llm mode"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected error to mention %q, got: %v", want, msg)
		}
	}
}

func TestVersion_IsSet(t *testing.T) {
	if Version == "" {
		t.Fatal("expected non-empty Version constant")
	}
}
