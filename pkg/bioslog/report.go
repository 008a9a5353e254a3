package bioslog

import "github.com/hejijunhao/bioslogtriage/internal/model"

// Report is the full triage document, as emitted by the CLI.
type Report = model.Report

// Event is one detected fault event.
type Event = model.Event

// Synthesis is the model's cited root-cause synthesis.
type Synthesis = model.Synthesis

// Summary is a compact view of a report's verdict.
// This is the stable public type. Report internals may evolve
// independently without breaking consumers that only need the verdict.
type Summary struct {
	BootOutcome   string  `json:"boot_outcome"`             // blocked, reached_bds, unknown
	EventID       string  `json:"event_id,omitempty"`       // boot-blocking event, if any
	Category      string  `json:"category,omitempty"`       // e.g. fault.assert, fault.watchdog
	Severity      string  `json:"severity,omitempty"`       // fatal, high, medium, low, info
	Confidence    float64 `json:"confidence,omitempty"`     // event confidence
	Phase         string  `json:"phase,omitempty"`          // SEC, PEI, DXE, BDS
	Line          int     `json:"line,omitempty"`           // first hit line
	HitText       string  `json:"hit_text,omitempty"`       // matched log line
	Events        int     `json:"events"`                   // total events
	Stalls        int     `json:"stalls"`                   // stall signals
	LLMSummary    string  `json:"llm_summary,omitempty"`    // executive summary, if the model ran
	LLMConfidence float64 `json:"llm_confidence,omitempty"` // overall model confidence
}

// Summarize extracts the verdict of r.
func Summarize(r Report) Summary {
	s := Summary{
		BootOutcome: string(model.BootUnknown),
		Events:      len(r.Events),
	}
	if r.BootTimeline != nil {
		s.BootOutcome = string(r.BootTimeline.BootOutcome)
	}
	if r.Signals != nil {
		s.Stalls = len(r.Signals.Stalls)
	}
	if id := r.BootBlockingEventID(); id != "" {
		for _, e := range r.Events {
			if e.EventID != id {
				continue
			}
			s.EventID = e.EventID
			s.Category = e.Category
			s.Severity = string(e.Severity)
			s.Confidence = e.Confidence
			s.Phase = string(e.Where.Phase)
			s.Line = e.Where.LineRange.Start
			s.HitText = e.HitText
			break
		}
	}
	if r.LLMSynthesis != nil {
		s.LLMSummary = r.LLMSynthesis.ExecutiveSummary
		s.LLMConfidence = r.LLMSynthesis.OverallConfidence
	}
	return s
}
