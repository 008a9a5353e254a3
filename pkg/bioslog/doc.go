// Package bioslog triages firmware (BIOS/UEFI) boot logs. It rebuilds the
// boot timeline, matches rulepack patterns into scored fault events, picks
// the event most likely to have blocked the boot and returns a report that
// satisfies the tool's JSON output contract.
//
// Quick start:
//
//	t, err := bioslog.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	report, _ := t.Analyze(logText)
//	s := bioslog.Summarize(report)
//	fmt.Println(s.BootOutcome, s.Category) // blocked fault.assert
//
// Add WithOllama to hand the evidence pack to a local model for a cited
// root-cause synthesis. Model failures never fail Analyze; they show up as a
// fallback synthesis carrying a structured error.
//
// A Triager is safe for concurrent use. Create once, reuse across logs.
package bioslog
