package bioslog

import (
	"context"
	"fmt"

	"github.com/hejijunhao/bioslogtriage/internal/contract"
	"github.com/hejijunhao/bioslogtriage/internal/engine"
	"github.com/hejijunhao/bioslogtriage/internal/ingest"
	"github.com/hejijunhao/bioslogtriage/internal/llm"
	"github.com/hejijunhao/bioslogtriage/internal/pipeline"
	"github.com/hejijunhao/bioslogtriage/internal/rulepack"
)

// Triager analyzes boot logs.
// Safe for concurrent use.
type Triager struct {
	pipeline *pipeline.Pipeline
}

// New compiles the selected rulepacks and returns a Triager. A malformed
// rulepack is reported here, before any log is read.
func New(opts ...Option) (*Triager, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	rs, err := rulepack.LoadAll(o.rulepacks)
	if err != nil {
		return nil, fmt.Errorf("bioslog: %w", err)
	}
	eng := engine.New(rs, o.engine)

	var popts []pipeline.Option
	if o.gen != nil {
		popts = append(popts, pipeline.WithAnalyzer(llm.NewAnalyzer(o.gen, o.llm)))
	}
	return &Triager{pipeline: pipeline.New(eng, nil, popts...)}, nil
}

// Analyze triages raw log text.
func (t *Triager) Analyze(text string) (Report, error) {
	return t.AnalyzeContext(context.Background(), text)
}

// AnalyzeContext triages raw log text. ctx bounds the model stage only.
func (t *Triager) AnalyzeContext(ctx context.Context, text string) (Report, error) {
	r, err := t.pipeline.Analyze(ctx, text)
	if err != nil {
		return Report{}, fmt.Errorf("bioslog: %w", err)
	}
	return r, nil
}

// AnalyzeFile reads, decodes and triages the log at path.
func (t *Triager) AnalyzeFile(ctx context.Context, path string) (Report, error) {
	text, err := ingest.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("bioslog: %w", err)
	}
	return t.AnalyzeContext(ctx, text)
}

// Validate checks a JSON report document against the output contract. The
// returned error names the first failing field path.
func Validate(data []byte) error {
	return contract.ValidateJSON(data)
}
