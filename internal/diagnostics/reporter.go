package diagnostics

import (
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Reporter receives diagnostics as soon as they are produced.
type Reporter interface {
	Report(err *DiagnosticError)
}

// Collector accumulates diagnostics in report order.
type Collector struct {
	errors []*DiagnosticError
	merr   *multierror.Error
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Report(err *DiagnosticError) {
	c.errors = append(c.errors, err)
	c.merr = multierror.Append(c.merr, err)
	c.merr.ErrorFormat = listFormat
}

// Errors returns everything reported so far.
func (c *Collector) Errors() []*DiagnosticError {
	return c.errors
}

func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// Err returns nil when nothing was reported, otherwise a *multierror.Error
// whose message lists one diagnostic per line.
func (c *Collector) Err() error {
	return c.merr.ErrorOrNil()
}

// Reset drops collected diagnostics. Used by the REPL between inputs.
func (c *Collector) Reset() {
	c.errors = nil
	c.merr = nil
}

func listFormat(errs []error) string {
	lines := make([]string, len(errs))
	for i, err := range errs {
		lines[i] = err.Error()
	}
	return strings.Join(lines, "\n")
}

// Funnel forwards to several reporters.
type Funnel []Reporter

func (f Funnel) Report(err *DiagnosticError) {
	for _, r := range f {
		if r != nil {
			r.Report(err)
		}
	}
}
