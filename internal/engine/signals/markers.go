// Package signals derives rule-independent boot signals: progress markers,
// stalls, enrichment anchors and the boot-blocking verdict.
package signals

import (
	"regexp"
	"sort"
	"strings"

	"github.com/hejijunhao/bioslogtriage/internal/model"
)

var (
	postcodeRe = regexp.MustCompile(`POSTCODE\s*=\s*<(?P<pc>[0-9A-Fa-f]{8})>`)
	progressRe = regexp.MustCompile(`PROGRESS CODE:\s*(?P<code>[A-Za-z0-9]+)\s*(?P<sfx>[A-Za-z0-9]+)?`)
)

// ExtractMarkers scans every line for postcode and progress-code markers. A
// line yields at most one of each.
func ExtractMarkers(lines []model.NormalizedLine) []model.Marker {
	markers := make([]model.Marker, 0)
	for _, line := range lines {
		if m := postcodeRe.FindStringSubmatch(line.Text); m != nil {
			markers = append(markers, model.Marker{
				Idx:   line.Index,
				Kind:  model.MarkerPostcode,
				Value: strings.ToUpper(m[1]),
				Raw:   line.Text,
			})
		}
		if m := progressRe.FindStringSubmatch(line.Text); m != nil {
			value := m[1]
			if m[2] != "" {
				value += " " + m[2]
			}
			markers = append(markers, model.Marker{
				Idx:   line.Index,
				Kind:  model.MarkerProgress,
				Value: value,
				Raw:   line.Text,
			})
		}
	}
	return markers
}

func sortedMarkers(markers []model.Marker) []model.Marker {
	out := append([]model.Marker(nil), markers...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Idx < out[j].Idx })
	return out
}
