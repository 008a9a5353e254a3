package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hejijunhao/bioslogtriage/internal/contract"
	"github.com/hejijunhao/bioslogtriage/internal/engine"
	"github.com/hejijunhao/bioslogtriage/internal/engine/testdata"
	"github.com/hejijunhao/bioslogtriage/internal/llm"
	"github.com/hejijunhao/bioslogtriage/internal/model"
	"github.com/hejijunhao/bioslogtriage/internal/rulepack"
)

// --- mocks ---

type mockOutput struct {
	mu      sync.Mutex
	reports []model.Report
	err     error
	closed  bool
}

func (m *mockOutput) Write(_ context.Context, r model.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.reports = append(m.reports, r)
	return nil
}

func (m *mockOutput) Close() error {
	m.closed = true
	return nil
}

// fakeGenerator replays canned answers in order.
type fakeGenerator struct {
	answers []string
	calls   int
}

func (f *fakeGenerator) Model() string { return "fake-model" }

func (f *fakeGenerator) Generate(_ context.Context, _, _ string) (any, error) {
	i := f.calls
	f.calls++
	if i >= len(f.answers) {
		return nil, errors.New("connection refused")
	}
	var v any
	if err := json.Unmarshal([]byte(f.answers[i]), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// brokenAnalyzer returns a synthesis that cannot satisfy the output contract.
type brokenAnalyzer struct{}

func (brokenAnalyzer) Run(context.Context, model.Report) llm.Result {
	return llm.Result{Synthesis: model.Synthesis{}}
}

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	rs, err := rulepack.LoadAll(nil)
	require.NoError(t, err)
	return engine.New(rs, engine.DefaultOptions())
}

func writeFixture(t *testing.T, name string) string {
	t.Helper()
	text, err := testdata.Load(name)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), name+".log")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

// --- tests ---

func TestRunDeterministic(t *testing.T) {
	out := &mockOutput{}
	p := New(newEngine(t), out)

	report, err := p.Run(context.Background(), writeFixture(t, "faults_minimal"))
	require.NoError(t, err)

	require.Len(t, out.reports, 1)
	assert.Equal(t, report, out.reports[0])
	assert.False(t, report.LLMEnabled)
	assert.Nil(t, report.LLMInput)
	assert.Nil(t, report.LLMSynthesis)
	assert.NotEmpty(t, report.Events)
	assert.NotEmpty(t, report.BootBlockingEventID())
}

func TestRunIsDeterministic(t *testing.T) {
	path := writeFixture(t, "faults_minimal")
	eng := newEngine(t)

	a, err := New(eng, &mockOutput{}).Run(context.Background(), path)
	require.NoError(t, err)
	b, err := New(eng, &mockOutput{}).Run(context.Background(), path)
	require.NoError(t, err)

	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	assert.Equal(t, string(ja), string(jb))
}

func TestRunMissingFile(t *testing.T) {
	out := &mockOutput{}
	_, err := New(newEngine(t), out).Run(context.Background(), filepath.Join(t.TempDir(), "nope.log"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline read")
	assert.Empty(t, out.reports)
}

func TestRunOutputError(t *testing.T) {
	out := &mockOutput{err: errors.New("disk full")}
	_, err := New(newEngine(t), out).Run(context.Background(), writeFixture(t, "faults_minimal"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestAnalyzeWithModel(t *testing.T) {
	gen := &fakeGenerator{answers: []string{
		`{"overall_grounding_confidence": 0.8, "facts": [{"fact": "DXE asserted.", "supporting_event_ids": ["evt-1"], "confidence": 0.9}]}`,
		`{"overall_confidence": 0.6, "executive_summary": "DXE assert.", "root_cause_hypotheses": [], "recommended_next_actions": ["Reflash"], "missing_evidence": []}`,
	}}
	dump := filepath.Join(t.TempDir(), "prompt.txt")
	p := New(newEngine(t), &mockOutput{},
		WithAnalyzer(llm.NewAnalyzer(gen, llm.DefaultOptions())),
		WithPromptDump(dump),
	)
	text, err := testdata.Load("faults_minimal")
	require.NoError(t, err)

	report, err := p.Analyze(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, 2, gen.calls)
	assert.True(t, report.LLMEnabled)
	require.NotNil(t, report.LLMInput)
	assert.NotEmpty(t, report.LLMInput.SelectedEvents)
	require.NotNil(t, report.LLMFacts)
	assert.Len(t, report.LLMFacts.Facts, 1)
	require.NotNil(t, report.LLMSynthesis)
	require.Len(t, report.LLMSynthesis.RecommendedNextActions, 1)
	assert.Equal(t, []string{report.BootBlockingEventID()}, report.LLMSynthesis.RecommendedNextActions[0].SupportingEventIDs)

	dumped, err := os.ReadFile(dump)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(dumped), `"selected_events"`))
}

func TestAnalyzeModelUnavailable(t *testing.T) {
	p := New(newEngine(t), &mockOutput{}, WithAnalyzer(llm.NewAnalyzer(&fakeGenerator{}, llm.DefaultOptions())))
	text, err := testdata.Load("faults_minimal")
	require.NoError(t, err)

	report, err := p.Analyze(context.Background(), text)
	require.NoError(t, err, "model failures must not fail the run")

	require.NotNil(t, report.LLMSynthesis)
	assert.Equal(t, 0.0, report.LLMSynthesis.OverallConfidence)
	require.Len(t, report.LLMSynthesis.Errors, 1)
	assert.Equal(t, "GenerationError", report.LLMSynthesis.Errors[0].Type)
	assert.Equal(t, contract.SynthesisFailureMessage, report.LLMSynthesis.Errors[0].Message)
	require.NotNil(t, report.LLMFacts)
	assert.Equal(t, contract.FactsFailureMessage, report.LLMFacts.Errors[0].Message)
}

func TestAnalyzeRejectsContractViolation(t *testing.T) {
	out := &mockOutput{}
	p := New(newEngine(t), out, WithAnalyzer(brokenAnalyzer{}))

	_, err := p.Run(context.Background(), writeFixture(t, "faults_minimal"))
	require.Error(t, err)

	var ve *contract.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, strings.HasPrefix(ve.Path, "llm_synthesis"), ve.Path)
	assert.Empty(t, out.reports, "an invalid report must not be written")
}

func TestAnalyzeEmptyLog(t *testing.T) {
	report, err := New(newEngine(t), &mockOutput{}).Analyze(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, report.Events)
	assert.NotNil(t, report.Events)
}

func TestClose(t *testing.T) {
	out := &mockOutput{}
	require.NoError(t, New(newEngine(t), out).Close())
	assert.True(t, out.closed)
}
