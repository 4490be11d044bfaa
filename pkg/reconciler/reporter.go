package reconciler

import (
	"fmt"
	"io"
)

// Reporter receives console output from a run. Progress goes to the user,
// warnings are for recoverable problems such as a failed catalog lookup.
type Reporter interface {
	Progressf(format string, args ...any)
	Warnf(format string, args ...any)
}

// WriterReporter writes progress to Out and warnings to Err without styling.
type WriterReporter struct {
	Out io.Writer
	Err io.Writer
}

// NewWriterReporter creates a plain Reporter.
func NewWriterReporter(out, errOut io.Writer) *WriterReporter {
	return &WriterReporter{Out: out, Err: errOut}
}

func (r *WriterReporter) Progressf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.Out, format+"\n", args...)
}

func (r *WriterReporter) Warnf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.Err, "Warning: "+format+"\n", args...)
}
