package signals

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hejijunhao/bioslogtriage/internal/model"
)

const (
	milestoneWindow = 2000
	subsystemRadius = 5
)

var watchdogRe = regexp.MustCompile(`(?i)watchdog`)

type subsystem struct {
	name   string
	tokens []string
}

// First match wins, so order matters.
var subsystemKeywords = [...]subsystem{
	{"memory", []string{"MRC", "DDR", "DIMM", "SPD"}},
	{"pcie", []string{"PCIE"}},
	{"nvme", []string{"NVME"}},
	{"sata", []string{"SATA", "AHCI"}},
	{"spi", []string{"SPI"}},
	{"usb", []string{"USB"}},
}

// IsWatchdog reports whether an event's category, subcategory or any rule id
// mentions a watchdog.
func IsWatchdog(ev model.Event) bool {
	if watchdogRe.MatchString(ev.Category) || watchdogRe.MatchString(ev.Subcategory) {
		return true
	}
	for _, h := range ev.RuleHits {
		if strings.Contains(strings.ToUpper(h.RuleID), "WATCHDOG") {
			return true
		}
	}
	return false
}

// Enrich anchors watchdog events and the boot-blocking event to the nearest
// preceding marker and tags a suspected subsystem. Events are updated in place.
func Enrich(events []model.Event, markers []model.Marker, lines []model.NormalizedLine, bootBlockingID string) {
	for i := range events {
		ev := &events[i]
		if !IsWatchdog(*ev) && (bootBlockingID == "" || ev.EventID != bootBlockingID) {
			continue
		}
		hit := ev.HitLine()
		if hit < 1 {
			continue
		}
		if ev.Extracted == nil {
			ev.Extracted = make(map[string]string)
		}

		if m, ok := precedingMarker(markers, hit); ok {
			switch m.Kind {
			case model.MarkerProgress:
				ev.Extracted["last_progress_code"] = m.Value
			case model.MarkerPostcode:
				ev.Extracted["postcode_hex"] = m.Value
			}
			ev.Extracted["last_milestone_line"] = strconv.Itoa(m.Idx)
		}

		if s := scanSubsystem(contextText(*ev, lines, hit)); s != "" {
			ev.Extracted["suspected_subsystem"] = s
		}
	}
}

// precedingMarker returns the marker closest to line from above, within the
// milestone window. On equal idx the first extracted marker wins.
func precedingMarker(markers []model.Marker, line int) (model.Marker, bool) {
	var best model.Marker
	found := false
	for _, m := range markers {
		if m.Idx > line || line-m.Idx > milestoneWindow {
			continue
		}
		if !found || m.Idx > best.Idx {
			best, found = m, true
		}
	}
	return best, found
}

func contextText(ev model.Event, lines []model.NormalizedLine, hit int) []string {
	chunks := []string{ev.HitText}
	if len(ev.Evidence) > 0 {
		for _, l := range ev.Evidence[0].Lines {
			chunks = append(chunks, l.Text)
		}
	}
	start := max(1, hit-subsystemRadius)
	end := min(len(lines), hit+subsystemRadius)
	for i := start; i <= end; i++ {
		chunks = append(chunks, lines[i-1].Text)
	}
	return chunks
}

func scanSubsystem(chunks []string) string {
	upper := strings.ToUpper(strings.Join(chunks, "\n"))
	if strings.TrimSpace(upper) == "" {
		return ""
	}
	for _, s := range subsystemKeywords {
		for _, tok := range s.tokens {
			if strings.Contains(upper, tok) {
				return s.name
			}
		}
	}
	return ""
}
