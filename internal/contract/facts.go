package contract

import (
	"github.com/hejijunhao/bioslogtriage/internal/model"
)

const (
	maxFacts           = 60
	maxFactChars       = 300
	defaultFactOverall = 0.2
	defaultFactConf    = 0.3

	// FactsFailureMessage is the errors[0].message of a facts fallback.
	FactsFailureMessage = "Failed to generate or validate LLM facts"
)

var factsKeys = []string{"overall_grounding_confidence", "facts"}

// RepairFacts rebuilds a facts payload from its usable entries. Facts
// without text or without any string event id are dropped; confidences are
// clamped, defaulting when they are not numbers.
func RepairFacts(candidate map[string]any) map[string]any {
	out := cloneMap(candidate)
	out["overall_grounding_confidence"] = clamp(out["overall_grounding_confidence"], defaultFactOverall)

	list, _ := out["facts"].([]any)
	facts := make([]any, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		fact, ok := text(m, "fact")
		if !ok {
			continue
		}
		ids := stringIDs(m["supporting_event_ids"])
		if len(ids) == 0 {
			continue
		}
		facts = append(facts, map[string]any{
			"fact":                 truncate(fact, maxFactChars),
			"supporting_event_ids": ids,
			"confidence":           clamp(m["confidence"], defaultFactConf),
		})
		if len(facts) == maxFacts {
			break
		}
	}
	out["facts"] = facts
	return out
}

// ValidateFacts checks a repaired facts payload.
func ValidateFacts(m map[string]any) error {
	return validateFacts(m, "")
}

func validateFacts(m map[string]any, path string) error {
	if err := requireKeys(m, path, factsKeys...); err != nil {
		return err
	}
	if err := rejectExtra(m, path, append(factsKeys, "errors", "model_info")...); err != nil {
		return err
	}
	if err := validUnit(m, "overall_grounding_confidence", path); err != nil {
		return err
	}
	facts, err := objects(m, "facts", path, maxFacts)
	if err != nil {
		return err
	}
	for i, f := range facts {
		p := at(join(path, "facts"), i)
		if err := requireKeys(f, p, "fact", "supporting_event_ids", "confidence"); err != nil {
			return err
		}
		if err := validString(f, "fact", p, 1, maxFactChars); err != nil {
			return err
		}
		if err := validIDs(f, p); err != nil {
			return err
		}
		if err := validUnit(f, "confidence", p); err != nil {
			return err
		}
	}
	return validateExtras(m, path)
}

// ParseFacts repairs, validates and decodes a model's facts payload.
func ParseFacts(candidate map[string]any) (model.Facts, error) {
	repaired := RepairFacts(candidate)
	if err := ValidateFacts(repaired); err != nil {
		return model.Facts{}, err
	}
	var f model.Facts
	if err := decode(repaired, &f); err != nil {
		return model.Facts{}, err
	}
	return f, nil
}

// FallbackFacts is the payload substituted when the facts pass fails.
func FallbackFacts(e model.LLMError) model.Facts {
	return model.Facts{
		OverallGroundingConfidence: 0,
		Facts:                      []model.Fact{},
		Errors:                     []model.LLMError{normalizeError(e)},
	}
}
