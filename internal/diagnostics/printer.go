package diagnostics

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

const (
	ansiRed   = "\x1b[31m"
	ansiDim   = "\x1b[2m"
	ansiReset = "\x1b[0m"
)

// Printer writes diagnostics in the conventional Lox layout. When the
// destination is a terminal the error tag is coloured.
type Printer struct {
	out   io.Writer
	color bool
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{out: w, color: wantsColor(w)}
}

// SetColor overrides terminal detection.
func (p *Printer) SetColor(on bool) {
	p.color = on
}

func (p *Printer) Report(err *DiagnosticError) {
	fmt.Fprintln(p.out, p.Format(err))
}

func (p *Printer) Format(err *DiagnosticError) string {
	if !p.color {
		return err.Error()
	}
	if err.IsRuntime() {
		var sb strings.Builder
		sb.WriteString(ansiRed + err.Message + ansiReset)
		for _, line := range err.Trace {
			sb.WriteString("\n" + ansiDim + line + ansiReset)
		}
		return sb.String()
	}
	return fmt.Sprintf("[line %d] %sError%s%s: %s", err.Token.Line, ansiRed, err.Where(), ansiReset, err.Message)
}

func wantsColor(w io.Writer) bool {
	// https://no-color.org/
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
