package model

// Phase is a firmware boot stage.
type Phase string

const (
	PhaseSEC Phase = "SEC"
	PhasePEI Phase = "PEI"
	PhaseDXE Phase = "DXE"
	PhaseBDS Phase = "BDS"

	// PhaseUnknown buckets lines outside every detected span.
	PhaseUnknown Phase = "unknown"
)

// KnownPhase reports whether p is one of SEC, PEI, DXE or BDS.
func KnownPhase(p Phase) bool {
	switch p {
	case PhaseSEC, PhasePEI, PhaseDXE, PhaseBDS:
		return true
	}
	return false
}

// BlockingPenalty is subtracted from a boot-blocking candidate's score; later
// phases weigh less. Unknown phases carry no penalty.
func (p Phase) BlockingPenalty() int {
	switch p {
	case PhasePEI:
		return 2
	case PhaseDXE:
		return 4
	case PhaseBDS:
		return 6
	default:
		return 0
	}
}

// PhaseSpan is a contiguous line span attributed to one boot phase.
type PhaseSpan struct {
	Phase      Phase   `json:"phase"`
	StartLine  int     `json:"start_line"`
	EndLine    int     `json:"end_line"`
	Confidence float64 `json:"confidence"`
}

// Contains reports whether line falls inside the span.
func (s PhaseSpan) Contains(line int) bool {
	return s.StartLine <= line && line <= s.EndLine
}

// Milestone is the last progress marker known to have been reached.
type Milestone struct {
	Kind  MarkerKind `json:"kind"`
	Line  int        `json:"line"`
	Value string     `json:"value"`
}

// Segment is a top-level boot attempt owning the phase spans inside its range.
type Segment struct {
	SegmentID         string      `json:"segment_id"`
	StartLine         int         `json:"start_line"`
	EndLine           int         `json:"end_line"`
	Phases            []PhaseSpan `json:"phases"`
	LastGoodMilestone *Milestone  `json:"last_good_milestone,omitempty"`
}

// Contains reports whether line falls inside the segment.
func (s Segment) Contains(line int) bool {
	return s.StartLine <= line && line <= s.EndLine
}

// PhaseAt returns the phase whose span contains line, or "" if none does.
func (s Segment) PhaseAt(line int) Phase {
	for _, span := range s.Phases {
		if span.Contains(line) {
			return span.Phase
		}
	}
	return ""
}
