package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultOllamaHost is where a local Ollama server listens by default.
const DefaultOllamaHost = "http://localhost:11434"

const maxErrorBody = 512

// Ollama calls the /api/generate endpoint of an Ollama server and asks for
// a JSON-formatted, non-streamed answer. Requests are not retried.
type Ollama struct {
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

// Option configures Ollama behavior.
type Option func(*Ollama)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Ollama) {
		c.timeout = d
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Ollama) {
		c.httpClient = hc
		if hc.Timeout > 0 {
			c.timeout = hc.Timeout
		}
	}
}

// NewOllama creates a client for host (e.g. http://localhost:11434).
func NewOllama(host, model string, opts ...Option) *Ollama {
	if host == "" {
		host = DefaultOllamaHost
	}
	c := &Ollama{
		baseURL: strings.TrimRight(host, "/"),
		model:   model,
		timeout: 60 * time.Second,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the requested model name.
func (c *Ollama) Model() string { return c.model }

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system"`
	Stream bool   `json:"stream"`
	Format string `json:"format"`
}

// Generate sends one prompt pair and returns the decoded JSON answer.
// Returns *APIError for non-2xx responses, *TimeoutError when the deadline
// passes and *ResponseError when the answer is not JSON.
func (c *Ollama) Generate(ctx context.Context, system, user string) (any, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: user,
		System: system,
		Format: "json",
	})
	if err != nil {
		return nil, err
	}

	url := c.baseURL + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, &TimeoutError{Model: c.model, Timeout: c.timeout, PromptChars: utf8.RuneCountInString(user)}
		}
		return nil, fmt.Errorf("ollama: connect to %s: %w", url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, &TimeoutError{Model: c.model, Timeout: c.timeout, PromptChars: utf8.RuneCountInString(user)}
		}
		return nil, fmt.Errorf("ollama: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: clipBody(data)}
	}

	var envelope map[string]any
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, &ResponseError{Kind: KindInvalidJSON, Detail: "invalid JSON in HTTP response body"}
	}

	switch r := envelope["response"].(type) {
	case map[string]any:
		return r, nil
	case string:
		var out any
		if err := json.Unmarshal([]byte(r), &out); err != nil {
			return nil, &ResponseError{Kind: KindInvalidJSON, Detail: "invalid JSON content in 'response'"}
		}
		return out, nil
	}
	return nil, &ResponseError{Kind: KindInvalidJSON, Detail: "response body does not contain a JSON string in 'response'"}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// clipBody keeps at most maxErrorBody bytes of an error response, cutting on
// a rune boundary.
func clipBody(data []byte) string {
	if len(data) <= maxErrorBody {
		return strings.ToValidUTF8(string(data), "\uFFFD")
	}
	cut := maxErrorBody
	for cut > 0 && !utf8.RuneStart(data[cut]) {
		cut--
	}
	return strings.ToValidUTF8(string(data[:cut]), "\uFFFD")
}
