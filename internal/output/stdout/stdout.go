package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hejijunhao/bioslogtriage/internal/model"
	"github.com/hejijunhao/bioslogtriage/internal/output"
)

// Output writes the JSON-encoded report to stdout.
type Output struct {
	enc  *json.Encoder
	mode output.Mode
}

// New creates a stdout Output with mode-aware evidence shaping and
// optional pretty-printed JSON.
func New(mode output.Mode, pretty bool) *Output {
	return NewWriter(os.Stdout, mode, pretty)
}

// NewWriter is New over an arbitrary writer.
func NewWriter(w io.Writer, mode output.Mode, pretty bool) *Output {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc, mode: mode}
}

func (o *Output) Write(_ context.Context, report model.Report) error {
	if err := o.enc.Encode(output.Shape(report, o.mode)); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
