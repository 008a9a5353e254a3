package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/hejijunhao/bioslogtriage/internal/model"
	"github.com/hejijunhao/bioslogtriage/internal/output"
)

const defaultBufSize = 64 * 1024 // 64KB

// Option configures a file Output.
type Option func(*Output)

// WithBufSize sets the bufio.Writer buffer size. Default: 64KB.
func WithBufSize(bytes int) Option {
	return func(o *Output) { o.bufSize = bytes }
}

// WithAppend appends to an existing file instead of truncating it.
func WithAppend() Option {
	return func(o *Output) { o.appendMode = true }
}

// Output writes the evidence record stream of each report to a file as
// NDJSON, one record per evidence window, with buffered I/O.
type Output struct {
	w          *bufio.Writer
	f          *os.File
	mu         sync.Mutex
	path       string
	bufSize    int
	appendMode bool
	records    int
}

// New creates a file output that writes evidence records to the given path.
func New(path string, opts ...Option) (*Output, error) {
	o := &Output{
		path:    path,
		bufSize: defaultBufSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.openFile(); err != nil {
		return nil, err
	}
	return o, nil
}

// Write JSON-encodes every evidence record of report and appends each as a
// line. Records always come from the unshaped report.
func (o *Output) Write(_ context.Context, report model.Report) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, rec := range output.EvidenceRecords(report) {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("file output: marshal: %w", err)
		}
		data = append(data, '\n')
		if _, err := o.w.Write(data); err != nil {
			return fmt.Errorf("file output: write: %w", err)
		}
		o.records++
	}
	return nil
}

// Records reports how many records have been written.
func (o *Output) Records() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.records
}

// Close flushes the buffer and closes the file.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.w.Flush(); err != nil {
		o.f.Close()
		return fmt.Errorf("file output: flush: %w", err)
	}
	return o.f.Close()
}

// openFile opens (or creates) the output file and wraps it in a bufio.Writer.
func (o *Output) openFile() error {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if o.appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(o.path, flags, 0644)
	if err != nil {
		return fmt.Errorf("file output: open %s: %w", o.path, err)
	}
	o.f = f
	o.w = bufio.NewWriterSize(f, o.bufSize)
	return nil
}
