package phases

import (
	"fmt"

	"github.com/hejijunhao/bioslogtriage/internal/model"
)

// BuildSegments groups lines into top-level segments. Today the whole file is
// one segment owning every span; callers must locate segments by line
// containment (see Locate) so that splitting on resets stays transparent.
func BuildSegments(lines []model.NormalizedLine, spans []model.PhaseSpan) []model.Segment {
	if len(lines) == 0 {
		return nil
	}
	seg := model.Segment{
		SegmentID: segmentID(1),
		StartLine: lines[0].Index,
		EndLine:   lines[len(lines)-1].Index,
		Phases:    make([]model.PhaseSpan, 0, len(spans)),
	}
	for _, s := range spans {
		if seg.Contains(s.StartLine) {
			seg.Phases = append(seg.Phases, s)
		}
	}
	return []model.Segment{seg}
}

func segmentID(n int) string {
	return fmt.Sprintf("seg-%d", n)
}

// Locate returns the segment containing line.
func Locate(segments []model.Segment, line int) (model.Segment, bool) {
	for _, s := range segments {
		if s.Contains(line) {
			return s, true
		}
	}
	return model.Segment{}, false
}

// PhaseAt returns the phase of line, or "" when it lies outside every span.
func PhaseAt(segments []model.Segment, line int) model.Phase {
	seg, ok := Locate(segments, line)
	if !ok {
		return ""
	}
	return seg.PhaseAt(line)
}

// AllSpans flattens the phase spans of every segment in line order.
func AllSpans(segments []model.Segment) []model.PhaseSpan {
	var spans []model.PhaseSpan
	for _, s := range segments {
		spans = append(spans, s.Phases...)
	}
	return spans
}
