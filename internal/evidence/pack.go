package evidence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/hejijunhao/bioslogtriage/internal/engine/rules"
	"github.com/hejijunhao/bioslogtriage/internal/model"
)

const (
	maxTrimmingNames = 12

	stepDroppedEvent  = "dropped_low_ranked_event"
	stepMetaCompacted = "meta_compacted"
)

// Build selects the top-ranked events of report and degrades the pack until
// its serialized size fits maxChars: first each event's anchor window is
// reduced to the hit line (lowest rank first), then low-ranked events are
// dropped while more than one remains, then the meta block is compacted.
// At least one event survives whenever the report has any.
func Build(report model.Report, topK, maxChars int) model.EvidencePack {
	ranked := Rank(report.Events)
	k := max(topK, 1)
	k = min(k, len(ranked))

	selected := make([]model.PackEvent, 0, k)
	for _, ev := range ranked[:k] {
		selected = append(selected, trimEvent(ev))
	}

	b := &builder{
		maxChars: maxChars,
		pack: model.EvidencePack{
			SchemaVersion:  model.SchemaVersion,
			BootTimeline:   summarizeTimeline(report),
			SelectedEvents: selected,
			Meta: model.PackMeta{
				TopKRequested:   topK,
				EventsIncluded:  len(selected),
				MaxChars:        maxChars,
				TrimmingApplied: []string{},
			},
		},
	}
	b.measure()

	for i := len(b.pack.SelectedEvents) - 1; i >= 0 && b.over(); i-- {
		ensureHitLine(&b.pack.SelectedEvents[i])
		b.record(fmt.Sprintf("ensured_hit_line:event_index=%d", i))
	}

	for b.over() && len(b.pack.SelectedEvents) > 1 {
		b.pack.SelectedEvents = b.pack.SelectedEvents[:len(b.pack.SelectedEvents)-1]
		b.pack.Meta.EventsIncluded = len(b.pack.SelectedEvents)
		b.record(stepDroppedEvent)
	}

	if b.over() {
		b.pack.Meta.TrimmingApplied = []string{stepMetaCompacted}
		b.pack.Meta.TrimmingCount++
		b.measure()
	}

	b.finalize()
	if b.over() {
		slog.Debug("evidence pack over budget", "final_chars", b.size, "max_chars", maxChars, "events", len(b.pack.SelectedEvents))
	}
	return b.pack
}

type builder struct {
	pack     model.EvidencePack
	maxChars int
	size     int
}

func (b *builder) over() bool {
	return b.size > b.maxChars
}

func (b *builder) measure() {
	b.size = Size(b.pack)
}

// record appends a trimming step, keeping only the most recent names.
func (b *builder) record(step string) {
	names := append(b.pack.Meta.TrimmingApplied, step)
	if len(names) > maxTrimmingNames {
		names = append([]string{}, names[len(names)-maxTrimmingNames:]...)
	}
	b.pack.Meta.TrimmingApplied = names
	b.pack.Meta.TrimmingCount++
	b.measure()
}

// finalize stores the pack's own size in final_chars. The value feeds back
// into the size, so re-measure until it settles.
func (b *builder) finalize() {
	for i := 0; i < 3; i++ {
		b.pack.Meta.FinalChars = b.size
		b.measure()
		if b.pack.Meta.FinalChars == b.size {
			return
		}
	}
	b.pack.Meta.FinalChars = b.size
}

// Size is the length in characters of v serialized as compact JSON.
func Size(v any) int {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return 0
	}
	return utf8.RuneCount(bytes.TrimRight(buf.Bytes(), "\n"))
}

func trimEvent(ev model.Event) model.PackEvent {
	c := ev.Clone()
	evidence := make([]model.EvidenceWindow, len(c.Evidence))
	for i, w := range c.Evidence {
		evidence[i] = model.EvidenceWindow{
			Ref:       w.Ref,
			Kind:      w.Kind,
			StartLine: w.StartLine,
			EndLine:   w.EndLine,
			Lines:     w.Lines,
		}
	}
	extracted := c.Extracted
	if len(extracted) == 0 {
		extracted = nil
	}
	return model.PackEvent{
		EventID:      c.EventID,
		Category:     c.Category,
		Subcategory:  c.Subcategory,
		Severity:     c.Severity,
		Confidence:   c.Confidence,
		BootBlocking: c.BootBlocking,
		Where:        c.Where,
		Fingerprint:  c.Fingerprint,
		Extracted:    extracted,
		RuleHits:     c.RuleHits,
		Evidence:     evidence,
		HitText:      c.HitText,
	}
}

// ensureHitLine reduces the first evidence window to the hit line alone,
// creating a one-line window when the event has none.
func ensureHitLine(ev *model.PackEvent) {
	hit := ev.Where.LineRange.Start
	if len(ev.Evidence) == 0 {
		ev.Evidence = []model.EvidenceWindow{{
			Ref:       rules.WindowRef(ev.Where.SegmentID, hit, hit),
			Kind:      model.EvidenceKindContextWindow,
			StartLine: hit,
			EndLine:   hit,
		}}
	}
	w := &ev.Evidence[0]
	text := ev.HitText
	for _, l := range w.Lines {
		if l.Idx == hit {
			text = l.Text
			break
		}
	}
	w.Lines = []model.EvidenceLine{{Idx: hit, Text: text}}
}

func summarizeTimeline(report model.Report) model.TimelineSummary {
	summary := model.TimelineSummary{Segments: []model.SegmentSummary{}}
	if report.BootTimeline == nil {
		return summary
	}
	for _, seg := range report.BootTimeline.Segments {
		s := model.SegmentSummary{
			SegmentID: seg.SegmentID,
			StartLine: seg.StartLine,
			EndLine:   seg.EndLine,
			Phases:    make([]model.PhaseSummary, 0, len(seg.Phases)),
		}
		for _, p := range seg.Phases {
			s.Phases = append(s.Phases, model.PhaseSummary{Phase: p.Phase, StartLine: p.StartLine, EndLine: p.EndLine})
		}
		summary.Segments = append(summary.Segments, s)
	}
	if id := report.BootBlockingEventID(); id != "" {
		summary.BootBlockingEventID = &id
	}
	return summary
}
