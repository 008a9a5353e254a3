package bioslog

import (
	"time"

	"github.com/hejijunhao/bioslogtriage/internal/engine"
	"github.com/hejijunhao/bioslogtriage/internal/llm"
)

type options struct {
	rulepacks []string
	engine    engine.Options
	gen       llm.Generator
	llm       llm.Options
}

// Option configures a Triager.
type Option func(*options)

// WithRulepacks selects built-in rulepack names or rulepack file paths.
// They replace the default "faults" pack.
func WithRulepacks(refs ...string) Option {
	return func(o *options) {
		o.rulepacks = append(o.rulepacks, refs...)
	}
}

// WithContextLines sets the lines of context kept around each hit. Default: 3.
func WithContextLines(n int) Option {
	return func(o *options) {
		o.engine.ContextLines = n
	}
}

// WithoutEvidence drops evidence line payloads from events.
func WithoutEvidence() Option {
	return func(o *options) {
		o.engine.IncludeEvidenceLines = false
	}
}

// WithStallGapLines sets the marker gap reported as a stall. Default: 5000.
func WithStallGapLines(n int) Option {
	return func(o *options) {
		o.engine.StallGapLines = n
	}
}

// WithOllama enables the model stage against an Ollama server.
// An empty host means http://localhost:11434.
func WithOllama(host, model string, timeout time.Duration) Option {
	return func(o *options) {
		var opts []llm.Option
		if timeout > 0 {
			opts = append(opts, llm.WithTimeout(timeout))
			o.llm.Timeout = timeout
		}
		o.gen = llm.NewOllama(host, model, opts...)
	}
}

// WithSinglePass synthesizes directly from the evidence pack instead of the
// default facts-then-synthesis flow.
func WithSinglePass() Option {
	return func(o *options) {
		o.llm.Mode = llm.ModeSingle
	}
}

// WithEvidenceBudget bounds the evidence pack: at most topK events and
// maxChars characters of JSON. Default: 8 and 30000.
func WithEvidenceBudget(topK, maxChars int) Option {
	return func(o *options) {
		o.llm.TopK = topK
		o.llm.MaxChars = maxChars
	}
}

func defaultOptions() options {
	return options{
		engine: engine.DefaultOptions(),
		llm:    llm.DefaultOptions(),
	}
}
