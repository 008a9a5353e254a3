package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hejijunhao/bioslogtriage/internal/contract"
	"github.com/hejijunhao/bioslogtriage/internal/ingest"
	"github.com/hejijunhao/bioslogtriage/internal/llm"
	"github.com/hejijunhao/bioslogtriage/internal/model"
	"github.com/hejijunhao/bioslogtriage/internal/output"
)

// Processor is the deterministic analysis stage.
type Processor interface {
	AnalyzeText(text string) model.Report
}

// Analyzer is the optional model stage.
type Analyzer interface {
	Run(ctx context.Context, report model.Report) llm.Result
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithAnalyzer enables the model stage.
func WithAnalyzer(a Analyzer) Option {
	return func(p *Pipeline) { p.analyzer = a }
}

// WithLogger sets the logger, typically one tagged with a run_id.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithPromptDump writes the first model prompt of each run to path.
func WithPromptDump(path string) Option {
	return func(p *Pipeline) { p.dumpPrompt = path }
}

// Pipeline connects the deterministic engine, the optional model stage and
// an output into a single triage run.
type Pipeline struct {
	proc       Processor
	analyzer   Analyzer
	output     output.Output
	logger     *slog.Logger
	dumpPrompt string
}

// New creates a Pipeline from the given components. out may be nil when only
// Analyze is used.
func New(proc Processor, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{
		proc:   proc,
		output: out,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run triages the log at path and writes the report to the output.
func (p *Pipeline) Run(ctx context.Context, path string) (model.Report, error) {
	text, err := ingest.ReadFile(path)
	if err != nil {
		return model.Report{}, fmt.Errorf("pipeline read: %w", err)
	}
	p.logger.Debug("log loaded", "path", path, "chars", len(text))

	report, err := p.Analyze(ctx, text)
	if err != nil {
		return report, err
	}
	if err := p.output.Write(ctx, report); err != nil {
		return report, fmt.Errorf("pipeline output: %w", err)
	}
	return report, nil
}

// Analyze produces a contract-valid report for text without writing it.
// Model failures never fail the run; they surface as fallback payloads.
func (p *Pipeline) Analyze(ctx context.Context, text string) (model.Report, error) {
	report := p.proc.AnalyzeText(text)
	p.logger.Debug("deterministic analysis done",
		"lines", report.Normalization.LineCount,
		"events", len(report.Events),
		"boot_blocking", report.BootBlockingEventID(),
	)

	if p.analyzer != nil {
		res := p.analyzer.Run(ctx, report)
		report.LLMEnabled = true
		report.LLMInput = &res.Input
		report.LLMFacts = res.Facts
		report.LLMSynthesis = &res.Synthesis
		p.logger.Debug("model stage done",
			"selected_events", len(res.Input.SelectedEvents),
			"trimming", res.Input.Meta.TrimmingApplied,
			"synthesis_errors", len(res.Synthesis.Errors),
		)

		if p.dumpPrompt != "" {
			if err := os.WriteFile(p.dumpPrompt, []byte(res.Prompt), 0o644); err != nil {
				return report, fmt.Errorf("pipeline dump prompt: %w", err)
			}
		}
	}

	if err := contract.ValidateReport(report); err != nil {
		return report, fmt.Errorf("pipeline: report violates output contract: %w", err)
	}
	return report, nil
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	if p.output == nil {
		return nil
	}
	return p.output.Close()
}
