package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hejijunhao/bioslogtriage/internal/config"
	"github.com/hejijunhao/bioslogtriage/internal/contract"
	"github.com/hejijunhao/bioslogtriage/internal/engine/testdata"
)

func fixturePath(t *testing.T) string {
	t.Helper()
	text, err := testdata.Load("faults_minimal")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "boot.log")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestTriageToStdout(t *testing.T) {
	out, _, err := execute(t, "--input", fixturePath(t))
	require.NoError(t, err)

	require.NoError(t, contract.ValidateJSON([]byte(out)))
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, false, doc["llm_enabled"])
	assert.NotEmpty(t, doc["events"])
	assert.NotContains(t, doc, "llm_synthesis")
}

func TestTriagePositionalInput(t *testing.T) {
	out, _, err := execute(t, fixturePath(t), "--output-mode", "tiny")
	require.NoError(t, err)
	assert.NotContains(t, out, `"lines"`)
}

func TestTriageNoInput(t *testing.T) {
	_, stderr, err := execute(t)
	require.Error(t, err)
	assert.Contains(t, stderr, "no input log")
}

func TestTriageUnknownRulepack(t *testing.T) {
	_, _, err := execute(t, "--input", fixturePath(t), "--rulepack", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestTriageBadOutputMode(t *testing.T) {
	_, _, err := execute(t, "--input", fixturePath(t), "--output-mode", "huge")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output mode")
}

func TestTriageFilesAndWebhook(t *testing.T) {
	var posted atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		posted.Store(string(b))
	}))
	defer srv.Close()

	dir := t.TempDir()
	reportPath := filepath.Join(dir, "report.json")
	evidencePath := filepath.Join(dir, "evidence.jsonl")

	out, _, err := execute(t,
		"--input", fixturePath(t),
		"--output", reportPath,
		"--evidence-jsonl", evidencePath,
		"--webhook-url", srv.URL,
		"--pretty",
	)
	require.NoError(t, err)
	assert.Empty(t, out, "report goes to the file, not stdout")

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	require.NoError(t, contract.ValidateJSON(data))
	assert.Contains(t, string(data), "\n  \"schema_version\"")

	ev, err := os.ReadFile(evidencePath)
	require.NoError(t, err)
	for _, line := range strings.Split(strings.TrimSpace(string(ev)), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		assert.Contains(t, rec, "event_id")
	}

	body, _ := posted.Load().(string)
	require.NoError(t, contract.ValidateJSON([]byte(body)))
}

func TestTriageUnreadableInputKeepsReportFile(t *testing.T) {
	reportPath := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(reportPath, []byte(`{"previous":true}`), 0o644))

	_, _, err := execute(t,
		"--input", filepath.Join(t.TempDir(), "missing.log"),
		"--output", reportPath,
	)
	require.Error(t, err)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Equal(t, `{"previous":true}`, string(data))
}

func TestTriageWithOllama(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req struct {
			Prompt string `json:"prompt"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		answer := `{"overall_confidence":0.55,"executive_summary":"DXE assert blocked boot.","root_cause_hypotheses":[],"recommended_next_actions":["Capture serial log at debug level"],"missing_evidence":[]}`
		if strings.Contains(req.Prompt, `"selected_events"`) {
			answer = `{"overall_grounding_confidence":0.7,"facts":[{"fact":"An assert fired in DXE.","supporting_event_ids":["evt-1"],"confidence":0.8}]}`
		}
		json.NewEncoder(w).Encode(map[string]any{"response": answer, "done": true})
	}))
	defer srv.Close()

	promptPath := filepath.Join(t.TempDir(), "prompt.txt")
	out, _, err := execute(t,
		"--input", fixturePath(t),
		"--llm",
		"--ollama-host", srv.URL,
		"--llm-timeout-s", "5",
		"--dump-llm-prompt", promptPath,
	)
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())

	require.NoError(t, contract.ValidateJSON([]byte(out)))
	var doc struct {
		LLMEnabled   bool `json:"llm_enabled"`
		LLMSynthesis struct {
			ExecutiveSummary string `json:"executive_summary"`
			Actions          []struct {
				Action string `json:"action"`
			} `json:"recommended_next_actions"`
		} `json:"llm_synthesis"`
		LLMFacts struct {
			Facts []any `json:"facts"`
		} `json:"llm_facts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.True(t, doc.LLMEnabled)
	assert.Equal(t, "DXE assert blocked boot.", doc.LLMSynthesis.ExecutiveSummary)
	require.Len(t, doc.LLMSynthesis.Actions, 1)
	assert.Len(t, doc.LLMFacts.Facts, 1)

	prompt, err := os.ReadFile(promptPath)
	require.NoError(t, err)
	assert.Contains(t, string(prompt), `"selected_events"`)
}

func TestTriageOllamaDownStillSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	out, _, err := execute(t, "--input", fixturePath(t), "--llm", "--llm-mode", "single", "--ollama-host", srv.URL)
	require.NoError(t, err)

	var doc struct {
		LLMSynthesis struct {
			OverallConfidence float64 `json:"overall_confidence"`
			Errors            []struct {
				Type string `json:"type"`
			} `json:"errors"`
		} `json:"llm_synthesis"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, 0.0, doc.LLMSynthesis.OverallConfidence)
	require.Len(t, doc.LLMSynthesis.Errors, 1)
	assert.Equal(t, "HTTPError", doc.LLMSynthesis.Errors[0].Type)
}

func TestValidateCommand(t *testing.T) {
	report, _, err := execute(t, "--input", fixturePath(t))
	require.NoError(t, err)

	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(report), 0o644))
	out, _, err := execute(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "valid")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"schema_version":"1.0","normalization":{"line_count":1},"events":[],"llm_enabled":false}`), 0o644))
	_, stderr, err := execute(t, "validate", bad)
	require.Error(t, err)
	assert.Contains(t, stderr, "schema_version")
}

func TestRulepacksCommand(t *testing.T) {
	out, _, err := execute(t, "rulepacks")
	require.NoError(t, err)
	assert.Contains(t, out, "faults (default)")
	assert.Contains(t, out, "pcie")
}

func TestVersionFlag(t *testing.T) {
	out, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, config.Version)
}
