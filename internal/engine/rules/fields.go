package rules

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{([^{}]*)\}`)

// extractFields builds the extracted map for one match: participating named
// groups first, then the rule's extract specs, then category-specific
// normalizations.
func extractFields(r Rule, text string, loc []int) map[string]string {
	captures := make(map[string]string)
	for i, name := range r.Pattern.SubexpNames() {
		if name == "" || loc[2*i] < 0 {
			continue
		}
		captures[name] = text[loc[2*i]:loc[2*i+1]]
	}

	out := make(map[string]string, len(captures)+len(r.Extracts))
	for k, v := range captures {
		out[k] = v
	}
	for _, spec := range r.Extracts {
		switch spec.Kind {
		case ExtractAlias:
			if v, ok := captures[spec.Value]; ok {
				out[spec.Name] = v
			}
		case ExtractTemplate:
			out[spec.Name] = formatTemplate(spec.Value, captures)
		default:
			out[spec.Name] = spec.Value
		}
	}

	if r.Category == "memory.mrc" {
		normalizeMRC(out)
	}
	normalizeBDF(out)
	return out
}

// formatTemplate substitutes {name} placeholders. If any placeholder has no
// captured value the template is returned unchanged.
func formatTemplate(tmpl string, values map[string]string) string {
	missing := false
	out := placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		v, ok := values[m[1:len(m)-1]]
		if !ok {
			missing = true
			return m
		}
		return v
	})
	if missing {
		return tmpl
	}
	return out
}

func normalizeMRC(f map[string]string) {
	mc, ok1 := f["mc"]
	ch, ok2 := f["ch"]
	dimm, ok3 := f["dimm"]
	spd, ok4 := f["spd"]
	if !(ok1 && ok2 && ok3 && ok4) {
		return
	}
	f["spd_addr"] = "0x" + spd
	f["slot"] = fmt.Sprintf("MC%s_C%s_D%s", mc, ch, dimm)
}

var bdfRe = regexp.MustCompile(`^(?:([0-9a-fA-F]{4}):)?([0-9a-fA-F]{2}):([0-9a-fA-F]{2})\.([0-7])$`)

// normalizeBDF sets bdf_norm to the canonical dddd:bb:dd.f form, taken from a
// bdf field or composed from bus/dev/func.
func normalizeBDF(f map[string]string) {
	raw, ok := f["bdf"]
	if !ok {
		bus, ok1 := f["bus"]
		dev, ok2 := f["dev"]
		fn, ok3 := f["func"]
		if !(ok1 && ok2 && ok3) {
			return
		}
		raw = pad2(bus) + ":" + pad2(dev) + "." + fn
	}
	if norm, ok := canonicalBDF(raw); ok {
		f["bdf_norm"] = norm
	}
}

func canonicalBDF(s string) (string, bool) {
	m := bdfRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	domain := m[1]
	if domain == "" {
		domain = "0000"
	}
	return strings.ToLower(fmt.Sprintf("%s:%s:%s.%s", domain, m[2], m[3], m[4])), true
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
