package model

// PhaseSummary is a phase span without its confidence.
type PhaseSummary struct {
	Phase     Phase `json:"phase"`
	StartLine int   `json:"start_line"`
	EndLine   int   `json:"end_line"`
}

// SegmentSummary is a trimmed segment for the evidence pack.
type SegmentSummary struct {
	SegmentID string         `json:"segment_id"`
	StartLine int            `json:"start_line"`
	EndLine   int            `json:"end_line"`
	Phases    []PhaseSummary `json:"phases"`
}

// TimelineSummary is the trimmed boot timeline handed to the model.
type TimelineSummary struct {
	Segments            []SegmentSummary `json:"segments"`
	BootBlockingEventID *string          `json:"boot_blocking_event_id"`
}

// PackEvent is an Event reduced to the fields a model is allowed to see.
type PackEvent struct {
	EventID      string            `json:"event_id"`
	Category     string            `json:"category"`
	Subcategory  string            `json:"subcategory,omitempty"`
	Severity     Severity          `json:"severity"`
	Confidence   float64           `json:"confidence"`
	BootBlocking bool              `json:"boot_blocking"`
	Where        Where             `json:"where"`
	Fingerprint  Fingerprint       `json:"fingerprint"`
	Extracted    map[string]string `json:"extracted,omitempty"`
	RuleHits     []RuleHit         `json:"rule_hits,omitempty"`
	Evidence     []EvidenceWindow  `json:"evidence"`
	HitText      string            `json:"hit_text,omitempty"`
}

// PackMeta records what the budget loop did to fit the pack.
type PackMeta struct {
	TopKRequested   int      `json:"top_k_requested"`
	EventsIncluded  int      `json:"events_included"`
	MaxChars        int      `json:"max_chars"`
	TrimmingApplied []string `json:"trimming_applied"`
	TrimmingCount   int      `json:"trimming_count"`
	FinalChars      int      `json:"final_chars"`
}

// EvidencePack is the size-budgeted input for external synthesis.
type EvidencePack struct {
	SchemaVersion  string          `json:"schema_version"`
	BootTimeline   TimelineSummary `json:"boot_timeline"`
	SelectedEvents []PackEvent     `json:"selected_events"`
	Meta           PackMeta        `json:"evidence_pack_meta"`
}
