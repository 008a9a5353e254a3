package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Version is the bioslogtriage release version.
const Version = "0.1.0"

// Config holds all bioslogtriage configuration.
type Config struct {
	Engine   EngineConfig
	LLM      LLMConfig
	Output   OutputConfig
	LogLevel string
}

// EngineConfig holds deterministic analysis settings.
type EngineConfig struct {
	Rulepacks     []string
	ContextLines  int
	NoEvidence    bool
	StallGapLines int
}

// LLMConfig holds model backend settings.
type LLMConfig struct {
	Enabled       bool
	Provider      string // "ollama", "gemini"
	Host          string
	Model         string
	APIKey        string
	Timeout       time.Duration
	Mode          string // "two-pass", "single"
	TopK          int
	MaxChars      int
	FactsMaxChars int
	DumpPrompt    string
}

// OutputConfig holds output destination settings.
type OutputConfig struct {
	Mode          string // "full", "slim", "tiny"
	Path          string // empty means stdout
	Pretty        bool
	EvidenceJSONL string
	WebhookURL    string
	WebhookHeader map[string]string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present; real
// environment variables win over it.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Engine: EngineConfig{
			Rulepacks:     splitList(os.Getenv("BIOSLOG_RULEPACKS")),
			ContextLines:  getenvInt("BIOSLOG_CONTEXT_LINES", 3),
			NoEvidence:    getenvBool("BIOSLOG_NO_EVIDENCE", false),
			StallGapLines: getenvInt("BIOSLOG_STALL_GAP_LINES", 5000),
		},
		LLM: LLMConfig{
			Enabled:       getenvBool("BIOSLOG_LLM", false),
			Provider:      getenv("BIOSLOG_LLM_PROVIDER", "ollama"),
			Host:          getenv("BIOSLOG_OLLAMA_HOST", "http://localhost:11434"),
			Model:         getenv("BIOSLOG_LLM_MODEL", "qwen2.5:7b"),
			APIKey:        os.Getenv("BIOSLOG_LLM_API_KEY"),
			Timeout:       getenvDuration("BIOSLOG_LLM_TIMEOUT", 60*time.Second),
			Mode:          getenv("BIOSLOG_LLM_MODE", "two-pass"),
			TopK:          getenvInt("BIOSLOG_LLM_TOP_K", 8),
			MaxChars:      getenvInt("BIOSLOG_LLM_MAX_CHARS", 30000),
			FactsMaxChars: getenvInt("BIOSLOG_LLM_FACTS_MAX_CHARS", 12000),
		},
		Output: OutputConfig{
			Mode:          getenv("BIOSLOG_OUTPUT_MODE", "full"),
			Pretty:        getenvBool("BIOSLOG_OUTPUT_PRETTY", false),
			WebhookURL:    os.Getenv("BIOSLOG_WEBHOOK_URL"),
			WebhookHeader: parseHeaders(os.Getenv("BIOSLOG_WEBHOOK_HEADERS")),
		},
		LogLevel: getenv("BIOSLOG_LOG_LEVEL", "info"),
	}
}

// Validate checks the configuration for invalid values.
// Returns an error describing all problems found, or nil if valid.
func (c Config) Validate() error {
	var errs []error

	if c.Engine.ContextLines < 0 {
		errs = append(errs, fmt.Errorf("context lines must be >= 0, got %d", c.Engine.ContextLines))
	}
	if c.Engine.StallGapLines <= 0 {
		errs = append(errs, fmt.Errorf("stall gap lines must be > 0, got %d", c.Engine.StallGapLines))
	}

	switch c.Output.Mode {
	case "full", "slim", "tiny":
	default:
		errs = append(errs, fmt.Errorf("output mode must be full, slim, or tiny, got %q", c.Output.Mode))
	}

	if c.LLM.Enabled {
		switch c.LLM.Provider {
		case "ollama":
		case "gemini":
			if c.LLM.APIKey == "" {
				errs = append(errs, errors.New("BIOSLOG_LLM_API_KEY is required for the gemini provider"))
			}
		default:
			errs = append(errs, fmt.Errorf("llm provider must be ollama or gemini, got %q", c.LLM.Provider))
		}
		switch c.LLM.Mode {
		case "two-pass", "single":
		default:
			errs = append(errs, fmt.Errorf("llm mode must be two-pass or single, got %q", c.LLM.Mode))
		}
		if c.LLM.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("llm timeout must be > 0, got %v", c.LLM.Timeout))
		}
		if c.LLM.TopK < 1 {
			errs = append(errs, fmt.Errorf("llm top-k must be >= 1, got %d", c.LLM.TopK))
		}
		if c.LLM.MaxChars < 1 {
			errs = append(errs, fmt.Errorf("llm max chars must be >= 1, got %d", c.LLM.MaxChars))
		}
	}

	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// getenvDuration accepts Go durations ("90s") and bare seconds ("90").
func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(f * float64(time.Second))
	}
	return fallback
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseHeaders reads "Key=Value,Key2=Value2" into a map. Returns nil when empty.
func parseHeaders(v string) map[string]string {
	var m map[string]string
	for _, pair := range splitList(v) {
		k, val, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			continue
		}
		if m == nil {
			m = make(map[string]string)
		}
		m[strings.TrimSpace(k)] = strings.TrimSpace(val)
	}
	return m
}
