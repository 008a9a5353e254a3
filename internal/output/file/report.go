package file

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/hejijunhao/bioslogtriage/internal/model"
	"github.com/hejijunhao/bioslogtriage/internal/output"
	"github.com/hejijunhao/bioslogtriage/internal/output/stdout"
)

// Report writes the shaped report document to a file, replacing any
// previous content. The file is created on the first Write, so a run that
// fails before producing a report leaves an existing file untouched.
type Report struct {
	mu     sync.Mutex
	path   string
	mode   output.Mode
	pretty bool
	f      *os.File
	inner  *stdout.Output
}

// NewReport returns a Report that will write to path.
func NewReport(path string, mode output.Mode, pretty bool) *Report {
	return &Report{path: path, mode: mode, pretty: pretty}
}

func (r *Report) Write(ctx context.Context, report model.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f == nil {
		f, err := os.Create(r.path)
		if err != nil {
			return fmt.Errorf("file output: create %s: %w", r.path, err)
		}
		r.f = f
		r.inner = stdout.NewWriter(f, r.mode, r.pretty)
	}
	if err := r.inner.Write(ctx, report); err != nil {
		return fmt.Errorf("file output: %w", err)
	}
	return nil
}

// Close closes the file if it was created.
func (r *Report) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	return r.f.Close()
}
