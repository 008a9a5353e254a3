package model

// NormalizedLine is one input line after noise removal.
// Index is 1-based and stable for the lifetime of a run.
type NormalizedLine struct {
	Index int
	Raw   string // text as read, before normalization
	Text  string // ANSI/control/whitespace noise removed, trimmed
}
