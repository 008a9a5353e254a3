package contract

import (
	"strings"

	"github.com/hejijunhao/bioslogtriage/internal/model"
)

const (
	maxHypotheses     = 5
	maxNextActions    = 8
	maxActions        = 10
	maxMissing        = 10
	maxSummaryChars   = 2000
	maxTitleChars     = 200
	maxActionChars    = 300
	defaultConfidence = 0.2
	defaultHypothesis = 0.3

	// SynthesisFailureMessage is the errors[0].message of a synthesis fallback.
	SynthesisFailureMessage = "Failed to generate or validate LLM synthesis"
	// FallbackSummary is the executive summary of a synthesis fallback.
	FallbackSummary = "LLM synthesis unavailable; the deterministic triage results above are unaffected."

	wrappedSignal   = "Observe logs/behavior change tied to this action."
	completedSignal = "Observe logs/behavior change after action."
	narrativeWhy    = "Model returned narrative text; structured fields missing."
	narrativeHow    = "Collect targeted logs/telemetry; rerun triage."
)

var synthesisKeys = []string{
	"overall_confidence",
	"executive_summary",
	"root_cause_hypotheses",
	"recommended_next_actions",
	"missing_evidence",
}

// RepairSynthesis reshapes a model's synthesis payload without adding
// facts. Missing top-level keys get empty defaults, confidences are
// clamped, bare strings become minimal objects citing bestID, and entries
// without text or citations are dropped. candidate is not modified.
func RepairSynthesis(candidate map[string]any, bestID string) map[string]any {
	out := cloneMap(candidate)

	if _, ok := out["overall_confidence"]; !ok {
		out["overall_confidence"] = defaultConfidence
	} else if _, ok := numeric(out["overall_confidence"]); ok {
		out["overall_confidence"] = clamp(out["overall_confidence"], defaultConfidence)
	}
	if _, ok := out["executive_summary"]; !ok {
		out["executive_summary"] = ""
	}
	for _, k := range synthesisKeys[2:] {
		if _, ok := out[k]; !ok {
			out[k] = []any{}
		}
	}

	if list, ok := out["root_cause_hypotheses"].([]any); ok {
		out["root_cause_hypotheses"] = repairList(list, maxHypotheses, func(item any) (any, bool) {
			return repairHypothesis(item, bestID)
		})
	}
	if list, ok := out["recommended_next_actions"].([]any); ok {
		out["recommended_next_actions"] = repairList(list, maxActions, func(item any) (any, bool) {
			return repairAction(item, bestID)
		})
	}
	if list, ok := out["missing_evidence"].([]any); ok {
		out["missing_evidence"] = repairList(list, maxMissing, func(item any) (any, bool) {
			return repairMissing(item, bestID)
		})
	}
	return out
}

// repairList applies fix to each item, keeping the ones it accepts, up to
// limit entries.
func repairList(list []any, limit int, fix func(any) (any, bool)) []any {
	out := make([]any, 0, len(list))
	for _, item := range list {
		if v, keep := fix(item); keep {
			out = append(out, v)
		}
		if len(out) == limit {
			break
		}
	}
	return out
}

// citations resolves an item's supporting ids. An absent key cites bestID;
// a present key keeps only string ids.
func citations(m map[string]any, bestID string) ([]any, bool) {
	raw, present := m["supporting_event_ids"]
	if !present {
		if bestID == "" {
			return nil, false
		}
		return []any{bestID}, true
	}
	ids := stringIDs(raw)
	return ids, len(ids) > 0
}

func text(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok && strings.TrimSpace(s) != ""
}

func repairHypothesis(item any, bestID string) (any, bool) {
	switch v := item.(type) {
	case string:
		if bestID == "" || strings.TrimSpace(v) == "" {
			return nil, false
		}
		return map[string]any{
			"title":                truncate(v, maxTitleChars),
			"confidence":           defaultHypothesis,
			"supporting_event_ids": []any{bestID},
			"reasoning":            v,
			"next_actions":         []any{},
		}, true
	case map[string]any:
		if _, ok := text(v, "title"); !ok {
			return nil, false
		}
		ids, ok := citations(v, bestID)
		if !ok {
			return nil, false
		}
		h := cloneMap(v)
		h["supporting_event_ids"] = ids
		if _, ok := h["confidence"]; !ok {
			h["confidence"] = defaultHypothesis
		} else if _, ok := numeric(h["confidence"]); ok {
			h["confidence"] = clamp(h["confidence"], defaultHypothesis)
		}
		if _, ok := h["reasoning"]; !ok {
			h["reasoning"] = ""
		}
		switch actions := h["next_actions"].(type) {
		case nil:
			h["next_actions"] = []any{}
		case []any:
			h["next_actions"] = repairList(actions, maxNextActions, func(item any) (any, bool) {
				return repairAction(item, bestID)
			})
		}
		return h, true
	}
	return item, true
}

func repairAction(item any, bestID string) (any, bool) {
	switch v := item.(type) {
	case string:
		if bestID == "" || strings.TrimSpace(v) == "" {
			return nil, false
		}
		return map[string]any{
			"action":               truncate(v, maxActionChars),
			"priority":             string(model.PriorityP1),
			"expected_signal":      wrappedSignal,
			"supporting_event_ids": []any{bestID},
		}, true
	case map[string]any:
		if _, ok := text(v, "action"); !ok {
			return nil, false
		}
		ids, ok := citations(v, bestID)
		if !ok {
			return nil, false
		}
		a := cloneMap(v)
		a["supporting_event_ids"] = ids
		switch p := a["priority"].(type) {
		case nil:
			a["priority"] = string(model.PriorityP1)
		case string:
			a["priority"] = strings.ToUpper(strings.TrimSpace(p))
		}
		if _, ok := a["expected_signal"]; !ok {
			a["expected_signal"] = completedSignal
		}
		return a, true
	}
	return item, true
}

func repairMissing(item any, bestID string) (any, bool) {
	switch v := item.(type) {
	case string:
		if bestID == "" || strings.TrimSpace(v) == "" {
			return nil, false
		}
		return map[string]any{
			"need":                 truncate(v, maxTitleChars),
			"why":                  narrativeWhy,
			"how":                  narrativeHow,
			"priority":             string(model.NeedMedium),
			"supporting_event_ids": []any{bestID},
		}, true
	case map[string]any:
		if _, ok := text(v, "need"); !ok {
			return nil, false
		}
		ids, ok := citations(v, bestID)
		if !ok {
			return nil, false
		}
		m := cloneMap(v)
		m["supporting_event_ids"] = ids
		if _, ok := m["why"]; !ok {
			m["why"] = narrativeWhy
		}
		if _, ok := m["how"]; !ok {
			m["how"] = narrativeHow
		}
		switch p := m["priority"].(type) {
		case nil:
			m["priority"] = string(model.NeedMedium)
		case string:
			m["priority"] = strings.ToLower(strings.TrimSpace(p))
		}
		return m, true
	}
	return item, true
}

// ValidateSynthesis checks a repaired synthesis payload.
func ValidateSynthesis(m map[string]any) error {
	return validateSynthesis(m, "")
}

func validateSynthesis(m map[string]any, path string) error {
	if err := requireKeys(m, path, synthesisKeys...); err != nil {
		return err
	}
	if err := rejectExtra(m, path, append(synthesisKeys, "errors", "model_info")...); err != nil {
		return err
	}
	if err := validUnit(m, "overall_confidence", path); err != nil {
		return err
	}
	if err := validString(m, "executive_summary", path, 1, maxSummaryChars); err != nil {
		return err
	}

	hyps, err := objects(m, "root_cause_hypotheses", path, maxHypotheses)
	if err != nil {
		return err
	}
	for i, h := range hyps {
		p := at(join(path, "root_cause_hypotheses"), i)
		if err := validateHypothesis(h, p); err != nil {
			return err
		}
	}

	actions, err := objects(m, "recommended_next_actions", path, maxActions)
	if err != nil {
		return err
	}
	for i, a := range actions {
		if err := validateAction(a, at(join(path, "recommended_next_actions"), i)); err != nil {
			return err
		}
	}

	missing, err := objects(m, "missing_evidence", path, maxMissing)
	if err != nil {
		return err
	}
	for i, me := range missing {
		if err := validateMissing(me, at(join(path, "missing_evidence"), i)); err != nil {
			return err
		}
	}

	return validateExtras(m, path)
}

func validateHypothesis(h map[string]any, path string) error {
	if err := requireKeys(h, path, "title", "confidence", "supporting_event_ids", "reasoning", "next_actions"); err != nil {
		return err
	}
	if err := validString(h, "title", path, 1, 0); err != nil {
		return err
	}
	if err := validUnit(h, "confidence", path); err != nil {
		return err
	}
	if err := validIDs(h, path); err != nil {
		return err
	}
	if err := validString(h, "reasoning", path, 0, 0); err != nil {
		return err
	}
	actions, err := objects(h, "next_actions", path, maxNextActions)
	if err != nil {
		return err
	}
	for i, a := range actions {
		if err := validateAction(a, at(join(path, "next_actions"), i)); err != nil {
			return err
		}
	}
	return nil
}

func validateAction(a map[string]any, path string) error {
	if err := requireKeys(a, path, "action", "priority", "expected_signal", "supporting_event_ids"); err != nil {
		return err
	}
	if err := validString(a, "action", path, 1, 0); err != nil {
		return err
	}
	switch model.ActionPriority(asString(a["priority"])) {
	case model.PriorityP0, model.PriorityP1, model.PriorityP2:
	default:
		return fail(join(path, "priority"), "must be one of P0, P1, P2")
	}
	if err := validString(a, "expected_signal", path, 0, 0); err != nil {
		return err
	}
	return validIDs(a, path)
}

func validateMissing(m map[string]any, path string) error {
	if err := requireKeys(m, path, "need", "why", "how", "priority", "supporting_event_ids"); err != nil {
		return err
	}
	if err := validString(m, "need", path, 1, 0); err != nil {
		return err
	}
	for _, k := range []string{"why", "how"} {
		if err := validString(m, k, path, 0, 0); err != nil {
			return err
		}
	}
	switch model.NeedPriority(asString(m["priority"])) {
	case model.NeedHigh, model.NeedMedium, model.NeedLow:
	default:
		return fail(join(path, "priority"), "must be one of high, medium, low")
	}
	return validIDs(m, path)
}

// validateExtras checks the optional errors and model_info keys shared by
// both model payloads.
func validateExtras(m map[string]any, path string) error {
	if _, present := m["errors"]; present {
		if _, err := objects(m, "errors", path, 0); err != nil {
			return err
		}
	}
	if v, present := m["model_info"]; present {
		if _, ok := v.(map[string]any); !ok {
			return fail(join(path, "model_info"), "must be an object")
		}
	}
	return nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// ParseSynthesis repairs, validates and decodes a model's synthesis payload.
func ParseSynthesis(candidate map[string]any, bestID string) (model.Synthesis, error) {
	repaired := RepairSynthesis(candidate, bestID)
	if err := ValidateSynthesis(repaired); err != nil {
		return model.Synthesis{}, err
	}
	var s model.Synthesis
	if err := decode(repaired, &s); err != nil {
		return model.Synthesis{}, err
	}
	return s, nil
}

// FallbackSynthesis is the payload substituted when the synthesis pass
// fails for any reason.
func FallbackSynthesis(e model.LLMError) model.Synthesis {
	return model.Synthesis{
		OverallConfidence:      0,
		ExecutiveSummary:       FallbackSummary,
		RootCauseHypotheses:    []model.Hypothesis{},
		RecommendedNextActions: []model.Action{},
		MissingEvidence:        []model.MissingEvidence{},
		Errors:                 []model.LLMError{normalizeError(e)},
	}
}

func normalizeError(e model.LLMError) model.LLMError {
	if e.ReturnedKeys == nil {
		e.ReturnedKeys = []string{}
	}
	return e
}
