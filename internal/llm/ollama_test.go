package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestGenerate_Success(t *testing.T) {
	var got generateRequest
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"qwen2.5:7b","response":"{\"ok\": true}","done":true}`))
	}))
	defer srv.Close()

	c := NewOllama(srv.URL+"/", "qwen2.5:7b")
	v, err := c.Generate(context.Background(), "sys", "user prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, ok := v.(map[string]any)
	if !ok || m["ok"] != true {
		t.Fatalf("unexpected result: %#v", v)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/generate" {
		t.Fatalf("unexpected request: %s %s", gotMethod, gotPath)
	}
	want := generateRequest{Model: "qwen2.5:7b", Prompt: "user prompt", System: "sys", Stream: false, Format: "json"}
	if got != want {
		t.Fatalf("request body = %+v, want %+v", got, want)
	}
}

func TestGenerate_ResponseObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":{"facts":[]}}`))
	}))
	defer srv.Close()

	v, err := NewOllama(srv.URL, "m").Generate(context.Background(), "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := v.(map[string]any)["facts"]; !ok {
		t.Fatalf("unexpected result: %#v", v)
	}
}

func TestGenerate_NonObjectContentPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"[1,2]"}`))
	}))
	defer srv.Close()

	v, err := NewOllama(srv.URL, "m").Generate(context.Background(), "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := v.([]any); !ok {
		t.Fatalf("expected array, got %#v", v)
	}
}

func TestGenerate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
		w.Write([]byte(`{"error":"model 'nope' not found"}`))
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL, "nope").Generate(context.Background(), "", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != 404 || !strings.Contains(apiErr.Body, "not found") {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
	if errorType(err) != "HTTPError" {
		t.Fatalf("errorType = %q", errorType(err))
	}
}

func TestGenerate_BodyTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		w.Write([]byte(strings.Repeat("x", 2000)))
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL, "m").Generate(context.Background(), "", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if len(apiErr.Body) != 512 {
		t.Fatalf("body length = %d, want 512", len(apiErr.Body))
	}
}

func TestGenerate_BodyTruncatedOnRuneBoundary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(503)
		w.Write([]byte("x" + strings.Repeat("é", 600)))
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL, "m").Generate(context.Background(), "", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if !utf8.ValidString(apiErr.Body) {
		t.Fatalf("body is not valid UTF-8: %q", apiErr.Body[len(apiErr.Body)-4:])
	}
	if len(apiErr.Body) != 511 {
		t.Fatalf("body length = %d, want 511", len(apiErr.Body))
	}
}

func TestGenerate_BadResponses(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		detail string
	}{
		{"body not json", `not json`, "invalid JSON in HTTP response body"},
		{"missing response", `{"done":true}`, "does not contain a JSON string"},
		{"response not json", `{"response":"the boot failed"}`, "invalid JSON content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOllama(srv.URL, "m").Generate(context.Background(), "", "")
			var re *ResponseError
			if !errors.As(err, &re) {
				t.Fatalf("expected *ResponseError, got %v", err)
			}
			if re.Kind != KindInvalidJSON || !strings.Contains(re.Detail, tt.detail) {
				t.Fatalf("unexpected error: %+v", re)
			}
		})
	}
}

func TestGenerate_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewOllama(srv.URL, "qwen2.5:7b", WithTimeout(50*time.Millisecond))
	_, err := c.Generate(context.Background(), "", "abcdef")
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TimeoutError, got %T: %v", err, err)
	}
	if te.Model != "qwen2.5:7b" || te.PromptChars != 6 || te.Timeout != 50*time.Millisecond {
		t.Fatalf("unexpected timeout error: %+v", te)
	}
	if !strings.Contains(err.Error(), "--llm-timeout-s") {
		t.Fatalf("timeout message should be actionable: %v", err)
	}
}

func TestGenerate_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewOllama(url, "m").Generate(context.Background(), "", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if errorType(err) != "GenerationError" {
		t.Fatalf("errorType = %q, want GenerationError (%v)", errorType(err), err)
	}
	if !strings.Contains(err.Error(), url) {
		t.Fatalf("error should name the host: %v", err)
	}
}

func TestNewOllamaDefaults(t *testing.T) {
	c := NewOllama("", "m")
	if c.baseURL != DefaultOllamaHost {
		t.Fatalf("baseURL = %q", c.baseURL)
	}
	if c.Model() != "m" {
		t.Fatalf("Model() = %q", c.Model())
	}
}
