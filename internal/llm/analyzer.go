package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/hejijunhao/bioslogtriage/internal/contract"
	"github.com/hejijunhao/bioslogtriage/internal/evidence"
	"github.com/hejijunhao/bioslogtriage/internal/model"
)

// Mode selects the pass structure.
type Mode string

const (
	// ModeTwoPass extracts facts from the pack, then synthesizes from the
	// facts alone.
	ModeTwoPass Mode = "two-pass"
	// ModeSingle synthesizes directly from the pack.
	ModeSingle Mode = "single"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeTwoPass, ModeSingle:
		return Mode(s), nil
	case "":
		return ModeTwoPass, nil
	}
	return "", fmt.Errorf("llm: unknown mode %q (want two-pass or single)", s)
}

// Options tunes the model passes.
type Options struct {
	Mode          Mode
	TopK          int
	MaxChars      int
	FactsMaxChars int
	Timeout       time.Duration
}

// DefaultOptions returns the defaults used by the CLI.
func DefaultOptions() Options {
	return Options{
		Mode:          ModeTwoPass,
		TopK:          8,
		MaxChars:      30000,
		FactsMaxChars: 12000,
		Timeout:       60 * time.Second,
	}
}

// Result is everything the model stage adds to a report.
type Result struct {
	Input     model.EvidencePack
	Facts     *model.Facts
	Synthesis model.Synthesis
	// Prompt is the first user prompt sent, for --dump-llm-prompt.
	Prompt string
}

// Analyzer runs the model passes over a deterministic report.
type Analyzer struct {
	gen  Generator
	opts Options
}

// NewAnalyzer creates an Analyzer over gen.
func NewAnalyzer(gen Generator, opts Options) *Analyzer {
	if opts.Mode == "" {
		opts.Mode = ModeTwoPass
	}
	return &Analyzer{gen: gen, opts: opts}
}

// Pack builds the evidence pack for report using the configured budget.
func (a *Analyzer) Pack(report model.Report) model.EvidencePack {
	return evidence.Build(report, a.opts.TopK, a.opts.MaxChars)
}

// Run builds the evidence pack and runs the configured passes. It always
// returns a result; failed passes are replaced by fallback payloads.
func (a *Analyzer) Run(ctx context.Context, report model.Report) Result {
	pack := a.Pack(report)
	best := bestEventID(report, pack)

	if a.opts.Mode == ModeSingle {
		system, user := SinglePassPrompt(pack)
		return Result{
			Input:     pack,
			Synthesis: a.synthesize(ctx, system, user, best),
			Prompt:    user,
		}
	}

	system, user := FactsPrompt(pack)
	facts := a.extractFacts(ctx, system, user)
	trimmed := TrimFacts(facts, a.opts.FactsMaxChars)

	ssys, suser := SynthesisPrompt(trimmed)
	return Result{
		Input:     pack,
		Facts:     &trimmed,
		Synthesis: a.synthesize(ctx, ssys, suser, best),
		Prompt:    user,
	}
}

// bestEventID is the citation used when repair wraps bare strings: the
// boot-blocking event, else the top-ranked selected event.
func bestEventID(report model.Report, pack model.EvidencePack) string {
	if id := report.BootBlockingEventID(); id != "" {
		return id
	}
	if len(pack.SelectedEvents) > 0 {
		return pack.SelectedEvents[0].EventID
	}
	return ""
}

func (a *Analyzer) extractFacts(ctx context.Context, system, user string) model.Facts {
	m, keys, err := a.call(ctx, system, user, "llm_facts")
	if err == nil {
		var facts model.Facts
		facts, err = contract.ParseFacts(m)
		if err == nil && len(facts.Facts) == 0 {
			err = &contract.ValidationError{Path: "facts", Reason: "no usable facts after repair"}
		}
		if err == nil {
			return facts
		}
	}
	a.warn("facts", err)
	return contract.FallbackFacts(a.llmError(err, contract.FactsFailureMessage, user, keys))
}

func (a *Analyzer) synthesize(ctx context.Context, system, user, best string) model.Synthesis {
	m, keys, err := a.call(ctx, system, user, "llm_synthesis")
	if err == nil {
		var s model.Synthesis
		if s, err = contract.ParseSynthesis(m, best); err == nil {
			return s
		}
	}
	a.warn("synthesis", err)
	return contract.FallbackSynthesis(a.llmError(err, contract.SynthesisFailureMessage, user, keys))
}

// call performs one model request and screens the answer: it must be an
// object, must not echo the input, and is unwrapped when the model nested
// it under wrapKey. keys are the top-level keys the model returned.
func (a *Analyzer) call(ctx context.Context, system, user, wrapKey string) (map[string]any, []string, error) {
	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	v, err := a.gen.Generate(ctx, system, user)
	if err != nil {
		var te *TimeoutError
		if !errors.As(err, &te) && errors.Is(err, context.DeadlineExceeded) {
			err = &TimeoutError{Model: a.gen.Model(), Timeout: a.opts.Timeout, PromptChars: utf8.RuneCountInString(user)}
		}
		return nil, nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, nil, &ResponseError{Kind: KindNotObject, Detail: fmt.Sprintf("model returned a JSON %s, not an object", jsonKind(v))}
	}
	keys := sortedKeys(m)
	for _, k := range []string{"evidence_pack", "selected_events"} {
		if _, echoed := m[k]; echoed {
			return nil, keys, &ResponseError{Kind: KindEchoedInput, Detail: fmt.Sprintf("model echoed input instead of answering (top-level key %q)", k)}
		}
	}
	if inner, ok := m[wrapKey].(map[string]any); ok && len(m) == 1 {
		m = inner
	}
	return m, keys, nil
}

func (a *Analyzer) llmError(err error, message, prompt string, keys []string) model.LLMError {
	if keys == nil {
		keys = []string{}
	}
	return model.LLMError{
		Type:         errorType(err),
		Message:      message,
		Detail:       err.Error(),
		Model:        a.gen.Model(),
		TimeoutS:     a.opts.Timeout.Seconds(),
		PromptChars:  utf8.RuneCountInString(prompt),
		ReturnedKeys: keys,
	}
}

func (a *Analyzer) warn(pass string, err error) {
	slog.Warn("llm pass fell back", "pass", pass, "type", errorType(err), "error", err, "model", a.gen.Model())
}

// TrimFacts drops trailing facts until the payload fits maxChars, keeping
// at least one. A non-positive budget disables trimming.
func TrimFacts(f model.Facts, maxChars int) model.Facts {
	if maxChars <= 0 || len(f.Facts) <= 1 {
		return f
	}
	f.Facts = append([]model.Fact(nil), f.Facts...)
	for len(f.Facts) > 1 && evidence.Size(f) > maxChars {
		f.Facts = f.Facts[:len(f.Facts)-1]
	}
	return f
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
