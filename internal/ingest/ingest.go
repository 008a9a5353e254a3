// Package ingest reads raw serial console captures and turns them into
// normalized, 1-based indexed lines.
package ingest

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode"

	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/hejijunhao/bioslogtriage/internal/model"
)

// ReadFile reads a log capture from disk and decodes it to UTF-8.
func ReadFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("ingest: open %s: %w", path, err)
	}
	defer f.Close()

	text, err := Decode(f)
	if err != nil {
		return "", fmt.Errorf("ingest: read %s: %w", path, err)
	}
	return text, nil
}

// Decode reads r fully. A UTF-8 or UTF-16 byte order mark selects the
// encoding; without one the input is treated as UTF-8 and invalid bytes
// become U+FFFD.
func Decode(r io.Reader) (string, error) {
	dec := xunicode.BOMOverride(xunicode.UTF8.NewDecoder())
	data, err := io.ReadAll(transform.NewReader(r, dec))
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}

// ansiRe matches CSI sequences, OSC sequences and two-byte escapes.
var ansiRe = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)|\x1b[@-Z\\-_]`)

// Normalize splits text into lines and normalizes each one. Line breaks may be
// \n, \r\n or a lone \r. Trailing blank lines are dropped.
func Normalize(text string) []model.NormalizedLine {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	raws := strings.Split(text, "\n")
	for len(raws) > 0 && strings.TrimSpace(raws[len(raws)-1]) == "" {
		raws = raws[:len(raws)-1]
	}

	lines := make([]model.NormalizedLine, len(raws))
	for i, raw := range raws {
		lines[i] = model.NormalizedLine{
			Index: i + 1,
			Raw:   raw,
			Text:  NormalizeLine(raw),
		}
	}
	return lines
}

// NormalizeLine removes ANSI escapes and control characters, folds unicode
// compatibility forms, collapses whitespace runs and trims the result.
func NormalizeLine(raw string) string {
	s := ansiRe.ReplaceAllString(raw, "")
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// EmptyLineCount returns how many lines normalized to the empty string.
func EmptyLineCount(lines []model.NormalizedLine) int {
	n := 0
	for _, l := range lines {
		if l.Text == "" {
			n++
		}
	}
	return n
}
