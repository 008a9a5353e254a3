package signals

import "github.com/hejijunhao/bioslogtriage/internal/model"

// LastGoodMilestone returns the last marker inside seg at or before anchor.
// A non-positive anchor means the end of the segment.
func LastGoodMilestone(seg model.Segment, markers []model.Marker, anchor int) *model.Milestone {
	if anchor <= 0 {
		anchor = seg.EndLine
	}
	var last *model.Marker
	for _, m := range sortedMarkers(markers) {
		if !seg.Contains(m.Idx) || m.Idx > anchor {
			continue
		}
		last = &m
	}
	if last == nil {
		return nil
	}
	return &model.Milestone{Kind: last.Kind, Line: last.Idx, Value: last.Value}
}

// MilestoneAnchor picks the line a segment's last good milestone is measured
// against: the boot-blocking hit, else the first watchdog hit, else none.
func MilestoneAnchor(seg model.Segment, events []model.Event, bootBlockingID string) int {
	for _, ev := range events {
		if bootBlockingID != "" && ev.EventID == bootBlockingID && seg.Contains(ev.HitLine()) {
			return ev.HitLine()
		}
	}
	for _, ev := range events {
		if IsWatchdog(ev) && seg.Contains(ev.HitLine()) {
			return ev.HitLine()
		}
	}
	return 0
}

// Outcome summarizes how far the boot got.
func Outcome(segments []model.Segment, bootBlockingID string) model.BootOutcome {
	if bootBlockingID != "" {
		return model.BootBlocked
	}
	for _, seg := range segments {
		for _, span := range seg.Phases {
			if span.Phase == model.PhaseBDS {
				return model.BootReachedBDS
			}
		}
	}
	return model.BootUnknown
}
