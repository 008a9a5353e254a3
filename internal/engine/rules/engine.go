package rules

import (
	"fmt"
	"math"

	"github.com/hejijunhao/bioslogtriage/internal/engine/phases"
	"github.com/hejijunhao/bioslogtriage/internal/model"
)

const (
	phaseBoost    = 0.03
	maxConfidence = 0.99
	hitWeight     = 1.0
)

// Options controls evidence capture.
type Options struct {
	ContextLines         int
	IncludeEvidenceLines bool
}

// Run evaluates rules against every line in order and returns the events in
// first-seen order. Matches sharing a stable key collapse into one event.
func Run(lines []model.NormalizedLine, segments []model.Segment, rules []Rule, opts Options) []model.Event {
	events := make([]model.Event, 0)
	slots := make(map[string]int)
	lineCount := len(lines)

	for _, line := range lines {
		if line.Text == "" {
			continue
		}
		seg, ok := phases.Locate(segments, line.Index)
		segID := "seg-1"
		if ok {
			segID = seg.SegmentID
		}
		phase := seg.PhaseAt(line.Index)

		for _, r := range rules {
			if r.RequiredPhase != "" && r.RequiredPhase != phase {
				continue
			}
			loc := r.Pattern.FindStringSubmatchIndex(line.Text)
			if loc == nil {
				continue
			}

			conf := r.BaseConfidence
			if r.RequiredPhase != "" {
				conf = math.Min(conf+phaseBoost, maxConfidence)
			}
			conf = round2(conf)

			extracted := extractFields(r, line.Text, loc)
			fp := Fingerprint(r.Category, r.Severity, NormalizeHitText(line.Text), extracted)

			if slot, seen := slots[fp.StableKey]; seen {
				ev := &events[slot]
				ev.Occurrences++
				ev.Where.OtherLines = append(ev.Where.OtherLines, line.Index)
				if !hasRule(ev.RuleHits, r.ID) {
					ev.RuleHits = append(ev.RuleHits, model.RuleHit{RuleID: r.ID, Weight: hitWeight, MatchConfidence: conf})
				}
				continue
			}

			start := max(1, line.Index-opts.ContextLines)
			end := min(lineCount, line.Index+opts.ContextLines)
			window := model.EvidenceWindow{
				Ref:       WindowRef(segID, start, end),
				Kind:      model.EvidenceKindContextWindow,
				StartLine: start,
				EndLine:   end,
			}
			if opts.IncludeEvidenceLines {
				for i := start; i <= end; i++ {
					window.Lines = append(window.Lines, model.EvidenceLine{Idx: i, Text: lines[i-1].Text})
				}
			}

			slots[fp.StableKey] = len(events)
			events = append(events, model.Event{
				EventID:      fmt.Sprintf("evt-%d", len(events)+1),
				Category:     r.Category,
				Subcategory:  r.Subcategory,
				Severity:     r.Severity,
				Confidence:   conf,
				BootBlocking: r.Severity == model.SeverityFatal,
				Where: model.Where{
					SegmentID:  segID,
					Phase:      phase,
					LineRange:  model.LineRange{Start: line.Index, End: line.Index},
					OtherLines: []int{},
				},
				Extracted:   extracted,
				RuleHits:    []model.RuleHit{{RuleID: r.ID, Weight: hitWeight, MatchConfidence: conf}},
				Fingerprint: fp,
				Occurrences: 1,
				Evidence:    []model.EvidenceWindow{window},
				HitText:     line.Text,
			})
		}
	}
	return events
}

// WindowRef names an evidence window.
func WindowRef(segmentID string, start, end int) string {
	return fmt.Sprintf("log:%s:%d-%d", segmentID, start, end)
}

func hasRule(hits []model.RuleHit, id string) bool {
	for _, h := range hits {
		if h.RuleID == id {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
