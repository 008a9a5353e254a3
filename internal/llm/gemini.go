package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	genai "google.golang.org/genai"
)

// Gemini is a thin wrapper around the official genai client that requests
// application/json answers.
type Gemini struct {
	cli     *genai.Client
	model   string
	timeout time.Duration
}

type geminiSettings struct {
	cfg     genai.ClientConfig
	timeout time.Duration
}

// GeminiOption configures NewGemini.
type GeminiOption func(*geminiSettings)

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(u string) GeminiOption {
	return func(s *geminiSettings) {
		s.cfg.HTTPOptions.BaseURL = u
	}
}

// WithGeminiTimeout sets the per-request timeout.
func WithGeminiTimeout(d time.Duration) GeminiOption {
	return func(s *geminiSettings) {
		s.timeout = d
	}
}

// NewGemini creates a Gemini API client for model.
func NewGemini(ctx context.Context, apiKey, model string, opts ...GeminiOption) (*Gemini, error) {
	s := &geminiSettings{
		cfg:     genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI},
		timeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	cli, err := genai.NewClient(ctx, &s.cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return &Gemini{cli: cli, model: model, timeout: s.timeout}, nil
}

// Model returns the requested model name.
func (g *Gemini) Model() string { return g.model }

// Generate sends the system instruction and user prompt and decodes the
// JSON answer.
func (g *Gemini) Generate(ctx context.Context, system, user string) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: user}}}},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
			ResponseMIMEType:  "application/json",
		},
	)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, &TimeoutError{Model: g.model, Timeout: g.timeout, PromptChars: utf8.RuneCountInString(user)}
		}
		return nil, fmt.Errorf("gemini: generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &ResponseError{Kind: KindInvalidJSON, Detail: "model returned no content"}
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	var out any
	if err := json.Unmarshal([]byte(sb.String()), &out); err != nil {
		return nil, &ResponseError{Kind: KindInvalidJSON, Detail: "invalid JSON content in model text"}
	}
	return out, nil
}
