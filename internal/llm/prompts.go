package llm

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/hejijunhao/bioslogtriage/internal/model"
)

const factsSystemPrompt = "You extract evidence from firmware boot-log triage data. " +
	"Answer with a single JSON object whose only keys are overall_grounding_confidence and facts. " +
	"State only what the evidence pack directly shows; add no outside knowledge and no guesses. " +
	"Each fact cites the event_id values of the selected_events it rests on in supporting_event_ids. " +
	"Keep facts short and neutral. No markdown, no prose outside the JSON, no other keys."

const synthesisSystemPrompt = "You write the root-cause synthesis for a firmware boot-log triage. " +
	"Answer with a single JSON object whose only keys are overall_confidence, executive_summary, " +
	"root_cause_hypotheses, recommended_next_actions and missing_evidence. " +
	"Work only from the supplied facts. " +
	"Every hypothesis, action and missing_evidence entry cites supporting_event_ids taken from those facts. " +
	"When unsure, return empty arrays but keep every key. No markdown, no other keys."

const singleSystemPrompt = "You write the root-cause synthesis for a firmware boot-log triage. " +
	"Answer with a single JSON object whose only keys are overall_confidence, executive_summary, " +
	"root_cause_hypotheses, recommended_next_actions and missing_evidence. " +
	"Use only what the evidence pack shows and add no outside facts. " +
	"Every hypothesis and action cites event_id values from selected_events in supporting_event_ids. No markdown."

var factsTemplate = map[string]any{
	"overall_grounding_confidence": 0.0,
	"facts": []model.Fact{{
		Fact:               "",
		SupportingEventIDs: []string{"evt-1"},
		Confidence:         0.0,
	}},
}

var synthesisTemplate = model.Synthesis{
	RootCauseHypotheses:    []model.Hypothesis{},
	RecommendedNextActions: []model.Action{},
	MissingEvidence:        []model.MissingEvidence{},
}

// FactsPrompt builds the facts-pass prompts over an evidence pack.
func FactsPrompt(pack model.EvidencePack) (system, user string) {
	return factsSystemPrompt, joinLines(
		"Evidence pack (input only, never repeat it):",
		compactJSON(pack),
		"Answer in exactly this shape:",
		compactJSON(factsTemplate),
		"Return JSON only.",
	)
}

// SynthesisPrompt builds the synthesis-pass prompts over extracted facts.
func SynthesisPrompt(facts model.Facts) (system, user string) {
	return synthesisSystemPrompt, joinLines(
		"Facts (the only source of truth; do not copy them verbatim):",
		compactJSON(facts),
		"Answer in exactly this shape, filling in the values:",
		compactJSON(synthesisTemplate),
		"Return JSON only.",
	)
}

// SinglePassPrompt builds a synthesis prompt directly over an evidence pack.
func SinglePassPrompt(pack model.EvidencePack) (system, user string) {
	return singleSystemPrompt, joinLines(
		"Synthesize grounded triage findings from this evidence pack. Output JSON only.",
		compactJSON(pack),
	)
}

func joinLines(lines ...string) string {
	return strings.Join(lines, "\n")
}

// compactJSON encodes v without HTML escaping or indentation.
func compactJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "{}"
	}
	return strings.TrimRight(buf.String(), "\n")
}
