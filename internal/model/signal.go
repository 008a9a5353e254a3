package model

// MarkerKind distinguishes firmware progress markers.
type MarkerKind string

const (
	MarkerPostcode MarkerKind = "postcode"
	MarkerProgress MarkerKind = "progress"
)

// Marker is a progress or postcode milestone seen on a line.
type Marker struct {
	Idx   int        `json:"idx"`
	Kind  MarkerKind `json:"kind"`
	Value string     `json:"value"`
	Raw   string     `json:"raw"`
}

// StallSignal flags an abnormally long silence between two markers of one phase.
type StallSignal struct {
	Phase         Phase     `json:"phase"`
	StartLine     int       `json:"start_line"`
	EndLine       int       `json:"end_line"`
	GapLines      int       `json:"gap_lines"`
	LastMilestone Milestone `json:"last_milestone"`
	Confidence    float64   `json:"confidence"`
}
