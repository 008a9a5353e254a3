package output

import (
	"fmt"

	"github.com/hejijunhao/bioslogtriage/internal/model"
)

// Mode controls how much evidence text a report carries.
type Mode string

const (
	// Full leaves evidence untouched.
	Full Mode = "full"
	// Slim reduces each evidence window to the event's hit line.
	Slim Mode = "slim"
	// Tiny drops evidence line text, keeping refs and ranges.
	Tiny Mode = "tiny"
)

// ParseMode maps a flag value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Full, Slim, Tiny:
		return Mode(s), nil
	case "":
		return Full, nil
	}
	return "", fmt.Errorf("output: unsupported output mode %q (want full, slim or tiny)", s)
}

// Shape returns a copy of the report with evidence lines reduced according
// to mode. The input report is not modified.
func Shape(r model.Report, mode Mode) model.Report {
	if mode == Full || mode == "" {
		return r
	}
	events := make([]model.Event, len(r.Events))
	for i, ev := range r.Events {
		ev = ev.Clone()
		for j := range ev.Evidence {
			w := &ev.Evidence[j]
			switch mode {
			case Tiny:
				w.Lines = nil
			case Slim:
				w.Lines = hitLineOnly(w.Lines, ev.HitLine())
			}
		}
		events[i] = ev
	}
	r.Events = events
	return r
}

// hitLineOnly keeps the entry for hit. Windows without line payloads stay
// without one.
func hitLineOnly(lines []model.EvidenceLine, hit int) []model.EvidenceLine {
	if lines == nil {
		return nil
	}
	for _, l := range lines {
		if l.Idx == hit {
			return []model.EvidenceLine{l}
		}
	}
	return []model.EvidenceLine{}
}

// EvidenceRecord is one line of the evidence record stream.
type EvidenceRecord struct {
	EventID   string               `json:"event_id"`
	Ref       string               `json:"ref"`
	StartLine int                  `json:"start_line"`
	EndLine   int                  `json:"end_line"`
	Lines     []model.EvidenceLine `json:"lines"`
}

// EvidenceRecords flattens every evidence window of every event, in event
// order. Pass the unshaped report: records always carry full line text.
func EvidenceRecords(r model.Report) []EvidenceRecord {
	var out []EvidenceRecord
	for _, ev := range r.Events {
		for _, w := range ev.Evidence {
			lines := append([]model.EvidenceLine{}, w.Lines...)
			out = append(out, EvidenceRecord{
				EventID:   ev.EventID,
				Ref:       w.Ref,
				StartLine: w.StartLine,
				EndLine:   w.EndLine,
				Lines:     lines,
			})
		}
	}
	return out
}
