// Package phases reconstructs the SEC/PEI/DXE/BDS boot timeline from
// normalized lines and groups it into segments.
package phases

import (
	"math"
	"regexp"
	"sort"

	"github.com/hejijunhao/bioslogtriage/internal/model"
)

type marker struct {
	re     *regexp.Regexp
	strong bool
}

var phaseOrder = [...]model.Phase{model.PhaseSEC, model.PhasePEI, model.PhaseDXE, model.PhaseBDS}

// Strong markers are core-entry module names; weak ones are phase tokens.
var phaseMarkers = map[model.Phase][]marker{
	model.PhaseSEC: {
		{regexp.MustCompile(`(?i)\bSecCore\b`), true},
		{regexp.MustCompile(`(?i)\bSEC\b.{0,30}\b(Entry|Start|Phase)\b`), false},
		{regexp.MustCompile(`(?i)\b(Entry|Start|Phase)\b.{0,30}\bSEC\b`), false},
	},
	model.PhasePEI: {
		{regexp.MustCompile(`(?i)\bPeiCore\b`), true},
		{regexp.MustCompile(`(?i)\bPEI\b`), false},
	},
	model.PhaseDXE: {
		{regexp.MustCompile(`(?i)\bDxeCore\b`), true},
		{regexp.MustCompile(`(?i)\bDXE\b`), false},
	},
	model.PhaseBDS: {
		{regexp.MustCompile(`(?i)\bBdsDxe\b`), true},
		{regexp.MustCompile(`(?i)\bBoot\s+Device\s+Selection\b`), false},
		{regexp.MustCompile(`(?i)\bBDS\b`), false},
	},
}

const (
	strongConfidence = 0.95
	weakConfidence   = 0.80
	markerBonus      = 0.03
	maxConfidence    = 0.99
)

type phaseHits struct {
	phase   model.Phase
	start   int
	strong  bool
	matches int
}

// lineHits counts the markers of phase that fire on text.
func lineHits(text string, phase model.Phase) (matches int, strong bool) {
	for _, m := range phaseMarkers[phase] {
		if m.re.MatchString(text) {
			matches++
			strong = strong || m.strong
		}
	}
	return matches, strong
}

// Detect returns the phase spans found in lines, ordered by first hit.
// A line is attributed to the first phase (in boot order) with a marker on it.
// Phases with no hits are omitted; nothing is inferred.
func Detect(lines []model.NormalizedLine) []model.PhaseSpan {
	hits := make(map[model.Phase]*phaseHits)

	for _, line := range lines {
		for _, phase := range phaseOrder {
			matches, strong := lineHits(line.Text, phase)
			if matches == 0 {
				continue
			}
			if h, ok := hits[phase]; ok {
				h.strong = h.strong || strong
				h.matches += matches
			} else {
				hits[phase] = &phaseHits{phase: phase, start: line.Index, strong: strong, matches: matches}
			}
			break
		}
	}
	if len(hits) == 0 {
		return nil
	}

	ordered := make([]*phaseHits, 0, len(hits))
	for _, h := range hits {
		ordered = append(ordered, h)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].start < ordered[j].start })

	lastLine := lines[len(lines)-1].Index
	spans := make([]model.PhaseSpan, len(ordered))
	for i, h := range ordered {
		end := lastLine
		if i+1 < len(ordered) {
			end = ordered[i+1].start - 1
		}
		spans[i] = model.PhaseSpan{
			Phase:      h.phase,
			StartLine:  h.start,
			EndLine:    end,
			Confidence: confidence(h.strong, h.matches),
		}
	}
	return spans
}

func confidence(strong bool, matches int) float64 {
	c := weakConfidence
	if strong {
		c = strongConfidence
	}
	if matches > 1 {
		c += float64(matches-1) * markerBonus
	}
	return math.Round(math.Min(c, maxConfidence)*100) / 100
}
