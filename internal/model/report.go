package model

// SchemaVersion is the version of the report document this build emits.
const SchemaVersion = "0.1.0"

// BootOutcome summarizes how far the boot got.
type BootOutcome string

const (
	BootBlocked    BootOutcome = "blocked"
	BootReachedBDS BootOutcome = "reached_bds"
	BootUnknown    BootOutcome = "unknown"
)

// Normalization reports line statistics of the ingested log.
type Normalization struct {
	LineCount      int `json:"line_count"`
	EmptyLineCount int `json:"empty_line_count"`
}

// BootTimeline is the reconstructed segment/phase structure of the log.
type BootTimeline struct {
	Segments            []Segment   `json:"segments"`
	BootOutcome         BootOutcome `json:"boot_outcome"`
	BootBlockingEventID *string     `json:"boot_blocking_event_id"`
}

// Signals carries derived, non-rule signals.
type Signals struct {
	Stalls []StallSignal `json:"stalls"`
}

// Report is the tool's output document.
type Report struct {
	SchemaVersion string        `json:"schema_version"`
	Normalization Normalization `json:"normalization"`
	Events        []Event       `json:"events"`
	BootTimeline  *BootTimeline `json:"boot_timeline,omitempty"`
	Signals       *Signals      `json:"signals,omitempty"`
	LLMInput      *EvidencePack `json:"llm_input,omitempty"`
	LLMFacts      *Facts        `json:"llm_facts,omitempty"`
	LLMSynthesis  *Synthesis    `json:"llm_synthesis,omitempty"`
	LLMEnabled    bool          `json:"llm_enabled"`
}

// BootBlockingEventID returns the designated boot-blocking event id, or "".
func (r Report) BootBlockingEventID() string {
	if r.BootTimeline == nil || r.BootTimeline.BootBlockingEventID == nil {
		return ""
	}
	return *r.BootTimeline.BootBlockingEventID
}
