package engine

import (
	"github.com/hejijunhao/bioslogtriage/internal/engine/phases"
	"github.com/hejijunhao/bioslogtriage/internal/engine/rules"
	"github.com/hejijunhao/bioslogtriage/internal/engine/signals"
	"github.com/hejijunhao/bioslogtriage/internal/ingest"
	"github.com/hejijunhao/bioslogtriage/internal/model"
)

// Options tunes the deterministic stages.
type Options struct {
	ContextLines         int
	IncludeEvidenceLines bool
	StallGapLines        int
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		ContextLines:         3,
		IncludeEvidenceLines: true,
		StallGapLines:        signals.DefaultStallGapLines,
	}
}

// Engine orchestrates the phases → rules → signals pipeline.
type Engine struct {
	rules []rules.Rule
	opts  Options
}

// New creates an Engine over compiled rules.
func New(rs []rules.Rule, opts Options) *Engine {
	if opts.ContextLines < 0 {
		opts.ContextLines = 0
	}
	if opts.StallGapLines <= 0 {
		opts.StallGapLines = signals.DefaultStallGapLines
	}
	return &Engine{rules: rs, opts: opts}
}

// AnalyzeText normalizes raw log text and analyzes it.
func (e *Engine) AnalyzeText(text string) model.Report {
	return e.Analyze(ingest.Normalize(text))
}

// Analyze runs every deterministic stage over lines. It never fails: a log
// with no recognizable content yields an empty but well-formed report.
func (e *Engine) Analyze(lines []model.NormalizedLine) model.Report {
	segments := phases.BuildSegments(lines, phases.Detect(lines))
	if segments == nil {
		segments = []model.Segment{}
	}

	events := rules.Run(lines, segments, e.rules, rules.Options{
		ContextLines:         e.opts.ContextLines,
		IncludeEvidenceLines: e.opts.IncludeEvidenceLines,
	})

	markers := signals.ExtractMarkers(lines)
	stalls := signals.DetectStalls(markers, phases.AllSpans(segments), e.opts.StallGapLines)

	blockingID, hasBlocking := signals.SelectBootBlocking(events)
	signals.Enrich(events, markers, lines, blockingID)

	for i := range segments {
		anchor := signals.MilestoneAnchor(segments[i], events, blockingID)
		segments[i].LastGoodMilestone = signals.LastGoodMilestone(segments[i], markers, anchor)
	}

	timeline := &model.BootTimeline{
		Segments:    segments,
		BootOutcome: signals.Outcome(segments, blockingID),
	}
	if hasBlocking {
		timeline.BootBlockingEventID = &blockingID
	}

	return model.Report{
		SchemaVersion: model.SchemaVersion,
		Normalization: model.Normalization{
			LineCount:      len(lines),
			EmptyLineCount: ingest.EmptyLineCount(lines),
		},
		Events:       events,
		BootTimeline: timeline,
		Signals:      &model.Signals{Stalls: stalls},
	}
}
