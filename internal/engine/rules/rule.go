// Package rules compiles declarative rulepacks and runs them over normalized
// log lines, producing fingerprinted, deduplicated events.
package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hejijunhao/bioslogtriage/internal/model"
)

// ExtractKind says how an extract spec produces its value.
type ExtractKind int

const (
	// ExtractLiteral copies the spec value verbatim.
	ExtractLiteral ExtractKind = iota
	// ExtractAlias copies another capture group.
	ExtractAlias
	// ExtractTemplate formats {name} placeholders over the captures.
	ExtractTemplate
)

// ExtractSpec declares one derived field of a rule.
type ExtractSpec struct {
	Name  string
	Kind  ExtractKind
	Value string
}

// Rule is a compiled rulepack entry. Rules are immutable after Compile.
type Rule struct {
	ID             string
	Category       string
	Subcategory    string
	Severity       model.Severity
	BaseConfidence float64
	Pattern        *regexp.Regexp
	RequiredPhase  model.Phase
	Extracts       []ExtractSpec
}

// CompileError reports the first invalid rule of a rulepack. Index is 1-based;
// zero means the rulepack itself is malformed.
type CompileError struct {
	Index  int
	RuleID string
	Reason string
}

func (e *CompileError) Error() string {
	switch {
	case e.Index == 0:
		return "rules: " + e.Reason
	case e.RuleID != "":
		return fmt.Sprintf("rules: rule #%d (%s): %s", e.Index, e.RuleID, e.Reason)
	default:
		return fmt.Sprintf("rules: rule #%d: %s", e.Index, e.Reason)
	}
}

var requiredKeys = []string{"id", "category", "severity", "regex", "required_phase"}

// Compile validates a parsed rulepack mapping and compiles its rules in
// declaration order.
func Compile(pack map[string]any) ([]Rule, error) {
	if pack == nil {
		return nil, &CompileError{Reason: "rulepack must be a mapping"}
	}
	if _, ok := pack["version"]; !ok {
		return nil, &CompileError{Reason: "rulepack is missing required key: version"}
	}
	raw, ok := pack["rules"].([]any)
	if !ok {
		return nil, &CompileError{Reason: "rulepack is missing required list: rules"}
	}

	compiled := make([]Rule, 0, len(raw))
	for i, item := range raw {
		r, err := compileRule(i+1, item)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, r)
	}
	return compiled, nil
}

func compileRule(idx int, item any) (Rule, error) {
	m, ok := item.(map[string]any)
	if !ok {
		return Rule{}, &CompileError{Index: idx, Reason: "must be a mapping"}
	}
	id, _ := m["id"].(string)
	fail := func(format string, args ...any) (Rule, error) {
		return Rule{}, &CompileError{Index: idx, RuleID: id, Reason: fmt.Sprintf(format, args...)}
	}

	var missing []string
	for _, k := range requiredKeys {
		if _, ok := m[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fail("missing required keys: %s", strings.Join(missing, ", "))
	}
	if id == "" {
		return fail("id must be a non-empty string")
	}

	conf, ok := number(m["confidence"])
	if !ok {
		conf, ok = number(m["base_confidence"])
	}
	if !ok {
		return fail("must define confidence or base_confidence")
	}
	if conf < 0 || conf > 1 {
		return fail("confidence %v out of range [0,1]", conf)
	}

	var phase model.Phase
	if v := m["required_phase"]; v != nil {
		s, _ := v.(string)
		phase = model.Phase(s)
		if !model.KnownPhase(phase) {
			return fail("invalid required_phase: %v", v)
		}
	}

	sev, ok := model.ParseSeverity(fmt.Sprint(m["severity"]))
	if !ok {
		return fail("invalid severity: %v", m["severity"])
	}

	category, _ := m["category"].(string)
	if category == "" {
		return fail("category must be a non-empty string")
	}
	subcategory, _ := m["subcategory"].(string)

	expr, _ := m["regex"].(string)
	if expr == "" {
		return fail("regex must be a non-empty string")
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return fail("invalid regex: %v", err)
	}

	extracts, err := compileExtracts(m["extracts"], re)
	if err != nil {
		return fail("%v", err)
	}

	return Rule{
		ID:             id,
		Category:       category,
		Subcategory:    subcategory,
		Severity:       sev,
		BaseConfidence: conf,
		Pattern:        re,
		RequiredPhase:  phase,
		Extracts:       extracts,
	}, nil
}

func compileExtracts(v any, re *regexp.Regexp) ([]ExtractSpec, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid extracts; expected mapping")
	}

	groups := make(map[string]bool)
	for _, name := range re.SubexpNames() {
		if name != "" {
			groups[name] = true
		}
	}

	specs := make([]ExtractSpec, 0, len(m))
	for name, raw := range m {
		value := fmt.Sprint(raw)
		kind := ExtractLiteral
		switch {
		case strings.ContainsAny(value, "{}"):
			kind = ExtractTemplate
		case groups[value]:
			kind = ExtractAlias
		}
		specs = append(specs, ExtractSpec{Name: name, Kind: kind, Value: value})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs, nil
}

// number accepts the numeric types produced by YAML and JSON decoders.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
