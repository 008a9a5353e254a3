// Package testdata holds synthetic boot logs shared by tests across packages.
package testdata

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed logs/*.log
var logs embed.FS

// Load returns the fixture log with the given name, without the .log suffix.
func Load(name string) (string, error) {
	data, err := logs.ReadFile(path.Join("logs", name+".log"))
	if err != nil {
		return "", fmt.Errorf("load fixture %s: %w", name, err)
	}
	return string(data), nil
}

// Names lists every embedded fixture in lexical order.
func Names() ([]string, error) {
	entries, err := fs.ReadDir(logs, "logs")
	if err != nil {
		return nil, fmt.Errorf("list fixtures: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".log"))
	}
	sort.Strings(names)
	return names, nil
}

// Stall layout of StallWatchdog.
const (
	StallStartLine    = 6
	StallGapLines     = 6000
	StallEndLine      = StallStartLine + StallGapLines
	StallWatchdogLine = StallEndLine + 1
)

// StallWatchdog builds a DXE log where POSTCODE DB03 repeats after a
// 6000-line silence and a watchdog mentioning SPI fires right after.
func StallWatchdog() string {
	var b strings.Builder
	b.WriteString("PeiCore: PEI foundation start\n")
	b.WriteString("PROGRESS CODE: V03020003 I0\n")
	b.WriteString("DxeCore: loaded at 0x7E9F0000\n")
	b.WriteString("POSTCODE = <0000DB02>\n")
	b.WriteString("SPI flash controller init\n")
	b.WriteString("POSTCODE = <0000DB03>\n")
	for i := StallStartLine + 1; i < StallEndLine; i++ {
		b.WriteString("Waiting for controller ready\n")
	}
	b.WriteString("POSTCODE = <0000DB03>\n")
	b.WriteString("WDT: watchdog timeout expired while waiting on SPI\n")
	return b.String()
}
