package model

import "strings"

// Severity is a rule-assigned event severity.
type Severity string

const (
	SeverityFatal  Severity = "fatal"
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
	SeverityInfo   Severity = "info"
)

// ParseSeverity maps a case-insensitive severity name to a Severity.
func ParseSeverity(s string) (Severity, bool) {
	switch sev := Severity(strings.ToLower(strings.TrimSpace(s))); sev {
	case SeverityFatal, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return sev, true
	default:
		return "", false
	}
}

// Score returns the fixed ranking weight of a severity. Unknown severities score 0.
func (s Severity) Score() int {
	switch Severity(strings.ToLower(string(s))) {
	case SeverityFatal:
		return 100
	case SeverityHigh:
		return 60
	case SeverityMedium:
		return 30
	case SeverityLow:
		return 10
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// EvidenceKindContextWindow is the only evidence kind the rule engine emits.
const EvidenceKindContextWindow = "context_window"

// LineRange is an inclusive 1-based line range.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Where locates an event in the log.
type Where struct {
	SegmentID  string    `json:"segment_id"`
	Phase      Phase     `json:"phase,omitempty"`
	LineRange  LineRange `json:"line_range"`
	OtherLines []int     `json:"other_lines"`
}

// RuleHit records one rule that contributed to an event.
type RuleHit struct {
	RuleID          string  `json:"rule_id"`
	Weight          float64 `json:"weight"`
	MatchConfidence float64 `json:"match_confidence"`
}

// Fingerprint is the content-addressed identity of an event.
type Fingerprint struct {
	StableKey   string `json:"stable_key"`
	DedupeGroup string `json:"dedupe_group"`
}

// EvidenceLine is one log line quoted as evidence.
type EvidenceLine struct {
	Idx  int    `json:"idx"`
	Text string `json:"text"`
}

// EvidenceWindow anchors an event to a range of source lines. Lines is optional;
// the reference and range are always present.
type EvidenceWindow struct {
	Ref       string         `json:"ref"`
	Kind      string         `json:"kind"`
	StartLine int            `json:"start_line"`
	EndLine   int            `json:"end_line"`
	Lines     []EvidenceLine `json:"lines,omitempty"`
}

// Event is a fingerprinted fault candidate produced by the rule engine.
type Event struct {
	EventID      string            `json:"event_id"`
	Category     string            `json:"category"`
	Subcategory  string            `json:"subcategory,omitempty"`
	Severity     Severity          `json:"severity"`
	Confidence   float64           `json:"confidence"`
	BootBlocking bool              `json:"boot_blocking"`
	Where        Where             `json:"where"`
	Extracted    map[string]string `json:"extracted"`
	RuleHits     []RuleHit         `json:"rule_hits"`
	Fingerprint  Fingerprint       `json:"fingerprint"`
	Occurrences  int               `json:"occurrences"`
	Evidence     []EvidenceWindow  `json:"evidence"`
	HitText      string            `json:"hit_text"`

	// Score overrides the computed rank score when set.
	Score *int `json:"score,omitempty"`
}

// HitLine returns the line the event was first seen on.
func (e Event) HitLine() int {
	return e.Where.LineRange.Start
}

// Clone returns a deep copy of the event.
func (e Event) Clone() Event {
	c := e
	c.Where.OtherLines = append([]int{}, e.Where.OtherLines...)
	if e.Extracted != nil {
		c.Extracted = make(map[string]string, len(e.Extracted))
		for k, v := range e.Extracted {
			c.Extracted[k] = v
		}
	}
	c.RuleHits = append([]RuleHit(nil), e.RuleHits...)
	if e.Evidence != nil {
		c.Evidence = make([]EvidenceWindow, len(e.Evidence))
		for i, w := range e.Evidence {
			c.Evidence[i] = w.Clone()
		}
	}
	if e.Score != nil {
		s := *e.Score
		c.Score = &s
	}
	return c
}

// Clone returns a deep copy of the window.
func (w EvidenceWindow) Clone() EvidenceWindow {
	c := w
	if w.Lines != nil {
		c.Lines = append([]EvidenceLine{}, w.Lines...)
	}
	return c
}
