package ingest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLine(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "PeiCore: entry", "PeiCore: entry"},
		{"ansi color", "\x1b[31mASSERT\x1b[0m failed", "ASSERT failed"},
		{"cursor move", "\x1b[2J\x1b[HBdsDxe", "BdsDxe"},
		{"control chars", "DXE\x00\x07 core", "DXE core"},
		{"tabs and runs", "  a\t\tb   c  ", "a b c"},
		{"nbsp", "POSTCODE\u00a0=\u00a0<0000DB03>", "POSTCODE = <0000DB03>"},
		{"zero width", "Sec\u200bCore", "SecCore"},
		{"fullwidth", "ＰＥＩ", "PEI"},
		{"empty", "", ""},
		{"whitespace only", " \t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeLine(tt.raw))
		})
	}
}

func TestNormalizeAssignsStableIndices(t *testing.T) {
	lines := Normalize("first\r\nsecond\rthird\n\n\n")

	require.Len(t, lines, 3)
	for i, l := range lines {
		assert.Equal(t, i+1, l.Index)
	}
	assert.Equal(t, "second", lines[1].Text)
	assert.Equal(t, "third", lines[2].Raw)
}

func TestNormalizeKeepsInteriorBlankLines(t *testing.T) {
	lines := Normalize("a\n\nb\n")

	require.Len(t, lines, 3)
	assert.Equal(t, 1, EmptyLineCount(lines))
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Empty(t, Normalize(""))
	assert.Empty(t, Normalize("\n\n"))
}

func TestDecodeUTF16WithBOM(t *testing.T) {
	// "Hi\n" as UTF-16LE with BOM.
	data := []byte{0xff, 0xfe, 'H', 0, 'i', 0, '\n', 0}
	text, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "Hi\n", text)
}

func TestDecodeInvalidUTF8(t *testing.T) {
	text, err := Decode(bytes.NewReader([]byte{'o', 'k', 0xff}))
	require.NoError(t, err)
	assert.Equal(t, "ok\ufffd", text)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boot.log")
	require.NoError(t, os.WriteFile(path, []byte("\xef\xbb\xbfSecCore\n"), 0o644))

	text, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "SecCore\n", text)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.log"))
	assert.Error(t, err)
}
