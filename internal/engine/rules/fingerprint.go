package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/hejijunhao/bioslogtriage/internal/model"
)

// NormalizeHitText lowercases text and folds whitespace runs. Numbers are
// kept: lines naming different buses, ports or DIMMs are different faults.
func NormalizeHitText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Fingerprint computes the stable key and dedupe group of an event.
func Fingerprint(category string, sev model.Severity, normalizedHit string, extracted map[string]string) model.Fingerprint {
	module, file, line := extracted["module"], extracted["file"], extracted["line"]
	canonical := strings.Join([]string{category, string(sev), normalizedHit, module, file, line}, "|")
	sum := sha256.Sum256([]byte(canonical))
	key := hex.EncodeToString(sum[:])
	prefix := key[:12]

	var group string
	switch {
	case strings.Contains(category, "assert"):
		if module != "" && file != "" && line != "" {
			group = "assert:" + module + ":" + file + ":" + line
		} else {
			group = "assert:" + prefix
		}
	case strings.Contains(category, "watchdog"):
		group = "watchdog:" + prefix
	case strings.Contains(category, "reset"):
		if cause := extracted["cause"]; cause != "" {
			group = "reset:" + cause
		} else {
			group = "reset:" + prefix
		}
	default:
		name := category
		if name == "" {
			name = "event"
		}
		group = name + ":" + prefix
	}
	return model.Fingerprint{StableKey: key, DedupeGroup: group}
}
