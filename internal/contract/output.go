package contract

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"

	"github.com/hejijunhao/bioslogtriage/internal/model"
)

var semverRe = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`)

// ValidateOutput checks a decoded report against the tool-output contract.
// Optional model sections are validated with their own contracts when
// present.
func ValidateOutput(doc map[string]any) error {
	if err := requireKeys(doc, "", "schema_version", "normalization", "events", "llm_enabled"); err != nil {
		return err
	}

	if s, ok := doc["schema_version"].(string); !ok || !semverRe.MatchString(s) {
		return fail("schema_version", "must match X.Y.Z")
	}

	norm, ok := doc["normalization"].(map[string]any)
	if !ok {
		return fail("normalization", "must be an object")
	}
	if n, ok := number(norm["line_count"]); !ok || n < 0 || n != math.Trunc(n) {
		return fail("normalization.line_count", "must be an integer >= 0")
	}

	if _, err := objects(doc, "events", "", 0); err != nil {
		return err
	}

	if _, ok := doc["llm_enabled"].(bool); !ok {
		return fail("llm_enabled", "must be a boolean")
	}

	for _, k := range []string{"boot_timeline", "signals", "llm_input"} {
		if v, present := doc[k]; present && v != nil {
			if _, ok := v.(map[string]any); !ok {
				return fail(k, "must be an object")
			}
		}
	}

	if v, present := doc["llm_facts"]; present && v != nil {
		m, ok := v.(map[string]any)
		if !ok {
			return fail("llm_facts", "must be an object")
		}
		if err := validateFacts(m, "llm_facts"); err != nil {
			return err
		}
	}
	if v, present := doc["llm_synthesis"]; present && v != nil {
		m, ok := v.(map[string]any)
		if !ok {
			return fail("llm_synthesis", "must be an object")
		}
		if err := validateSynthesis(m, "llm_synthesis"); err != nil {
			return err
		}
	}
	return nil
}

// ValidateJSON decodes data and validates it as a report.
func ValidateJSON(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("contract: decode report: %w", err)
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return fail("", "report must be a JSON object")
	}
	return ValidateOutput(m)
}

// ValidateReport validates r exactly as it would be emitted.
func ValidateReport(r model.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("contract: encode report: %w", err)
	}
	return ValidateJSON(data)
}
