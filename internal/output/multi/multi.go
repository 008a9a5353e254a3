package multi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hejijunhao/bioslogtriage/internal/model"
	"github.com/hejijunhao/bioslogtriage/internal/output"
)

// Sink is a named report destination.
type Sink struct {
	Name   string // e.g. "report", "evidence", "webhook"
	Output output.Output
}

// Multi delivers each report to several sinks in order. A failing sink is
// logged and reported by name; the remaining sinks still get the report.
type Multi struct {
	sinks  []Sink
	logger *slog.Logger
}

// New creates a Multi over sinks. A nil logger uses slog.Default.
func New(logger *slog.Logger, sinks ...Sink) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	return &Multi{sinks: sinks, logger: logger}
}

// Write delivers report to every sink. The joined error names each sink
// that failed.
func (m *Multi) Write(ctx context.Context, report model.Report) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Output.Write(ctx, report); err != nil {
			m.logger.Warn("report delivery failed",
				"sink", s.Name,
				"events", len(report.Events),
				"boot_blocking_event_id", report.BootBlockingEventID(),
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		m.logger.Debug("report delivered", "sink", s.Name)
	}
	return errors.Join(errs...)
}

// Close closes every sink, collecting errors by sink name.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Output.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: close: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}
