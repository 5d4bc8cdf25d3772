// Package testrunner checks .lox programs against the expectations written
// in their comments: printed output, compile errors and runtime errors.
package testrunner

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/funvibe/loxvm/internal/backend"
	"github.com/funvibe/loxvm/internal/config"
	"github.com/funvibe/loxvm/internal/diagnostics"
	"github.com/funvibe/loxvm/internal/lexer"
	"github.com/funvibe/loxvm/internal/parser"
	"github.com/funvibe/loxvm/internal/pipeline"
)

var (
	expectedOutputRe       = regexp.MustCompile(`// expect: ?(.*)`)
	expectedErrorRe        = regexp.MustCompile(`// (Error.*)`)
	errorLineRe            = regexp.MustCompile(`// \[((java|c) )?line (\d+)\] (Error.*)`)
	expectedRuntimeErrorRe = regexp.MustCompile(`// expect runtime error: (.+)`)
	syntaxErrorRe          = regexp.MustCompile(`\[.*line (\d+)\] (Error.+)`)
	stackTraceRe           = regexp.MustCompile(`\[line (\d+)\]`)
	nonTestRe              = regexp.MustCompile(`// nontest`)
)

// Annotations restricted to another implementation are ignored.
const language = "c"

// ExpectedOutput is one `// expect:` line.
type ExpectedOutput struct {
	Line   int
	Output string
}

// Expectations is everything a test file asks for.
type Expectations struct {
	Output           []ExpectedOutput
	Errors           map[string]bool // "[N] Error ..." entries
	RuntimeError     string
	RuntimeErrorLine int
	ExitCode         int
	Count            int
}

// Parse reads the expectations out of a test source. ok is false for
// files marked nontest or that expect both compile and runtime errors.
func Parse(source string) (exp *Expectations, ok bool) {
	exp = &Expectations{Errors: make(map[string]bool)}

	for i, line := range strings.Split(source, "\n") {
		lineNum := i + 1

		if nonTestRe.MatchString(line) {
			return exp, false
		}

		if m := expectedOutputRe.FindStringSubmatch(line); m != nil {
			exp.Output = append(exp.Output, ExpectedOutput{Line: lineNum, Output: strings.TrimRight(m[1], "\r")})
			exp.Count++
			continue
		}

		if m := expectedErrorRe.FindStringSubmatch(line); m != nil {
			exp.Errors[fmt.Sprintf("[%d] %s", lineNum, strings.TrimRight(m[1], "\r"))] = true
			exp.ExitCode = config.ExitCompileError
			exp.Count++
			continue
		}

		if m := errorLineRe.FindStringSubmatch(line); m != nil {
			if m[2] == "" || m[2] == language {
				exp.Errors[fmt.Sprintf("[%s] %s", m[3], strings.TrimRight(m[4], "\r"))] = true
				exp.ExitCode = config.ExitCompileError
				exp.Count++
			}
			continue
		}

		if m := expectedRuntimeErrorRe.FindStringSubmatch(line); m != nil {
			exp.RuntimeErrorLine = lineNum
			exp.RuntimeError = strings.TrimRight(m[1], "\r")
			exp.ExitCode = config.ExitRuntimeError
			exp.Count++
		}
	}

	if len(exp.Errors) > 0 && exp.RuntimeError != "" {
		return exp, false
	}
	return exp, true
}

// Outcome is what running a program produced.
type Outcome struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Execute runs source in a fresh VM the way the CLI runs a file, capturing
// both streams.
func Execute(path, source string, cfg config.VMConfig) *Outcome {
	var stdout, stderr bytes.Buffer

	ctx := pipeline.NewPipelineContext(source)
	ctx.FilePath = path
	ctx = pipeline.New(
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		backend.NewExecutionProcessor(backend.NewVM(cfg, &stdout)),
	).Run(ctx)

	printer := diagnostics.NewPrinter(&stderr)
	printer.SetColor(false)
	for _, err := range ctx.Errors {
		printer.Report(err)
	}

	return &Outcome{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: ExitCode(ctx),
	}
}

// ExitCode maps the errors in ctx to the conventional process exit code.
func ExitCode(ctx *pipeline.PipelineContext) int {
	switch {
	case ctx.HasCompileErrors():
		return config.ExitCompileError
	case ctx.HasRuntimeError():
		return config.ExitRuntimeError
	}
	return 0
}

// Result is the verdict for one file.
type Result struct {
	Path     string
	Skipped  bool
	Failures []string
}

func (r *Result) Passed() bool {
	return !r.Skipped && len(r.Failures) == 0
}

func (r *Result) fail(msg string, lines ...string) {
	r.Failures = append(r.Failures, msg)
	r.Failures = append(r.Failures, lines...)
}

// Check compares an outcome with the expectations.
func Check(path string, exp *Expectations, out *Outcome) *Result {
	r := &Result{Path: path}
	errorLines := splitLines(out.Stderr)

	if exp.RuntimeError != "" {
		r.checkRuntimeError(exp, errorLines)
	} else {
		r.checkCompileErrors(exp, errorLines)
	}

	if out.ExitCode != exp.ExitCode {
		if len(errorLines) > 10 {
			errorLines = append(errorLines[:10:10], "(truncated...)")
		}
		r.fail(fmt.Sprintf("Expected return code %d but got %d. Stderr:", exp.ExitCode, out.ExitCode), errorLines...)
	}

	r.checkOutput(exp, splitLines(out.Stdout))
	return r
}

func (r *Result) checkRuntimeError(exp *Expectations, errorLines []string) {
	if len(errorLines) < 2 {
		r.fail(fmt.Sprintf("Expected runtime error '%s' and got none.", exp.RuntimeError))
		return
	}

	if errorLines[0] != exp.RuntimeError {
		r.fail(fmt.Sprintf("Expected runtime error '%s' and got:", exp.RuntimeError), errorLines[0])
	}

	var match []string
	stackLines := errorLines[1:]
	for _, line := range stackLines {
		if match = stackTraceRe.FindStringSubmatch(line); match != nil {
			break
		}
	}

	if match == nil {
		r.fail("Expected stack trace and got:", stackLines...)
		return
	}
	if line, _ := strconv.Atoi(match[1]); line != exp.RuntimeErrorLine {
		r.fail(fmt.Sprintf("Expected runtime error on line %d but was on line %d.", exp.RuntimeErrorLine, line))
	}
}

func (r *Result) checkCompileErrors(exp *Expectations, errorLines []string) {
	found := make(map[string]bool)
	unexpected := 0

	for _, line := range errorLines {
		if m := syntaxErrorRe.FindStringSubmatch(line); m != nil {
			err := fmt.Sprintf("[%s] %s", m[1], m[2])
			if exp.Errors[err] {
				found[err] = true
				continue
			}
			if unexpected < 10 {
				r.fail("Unexpected error:", line)
			}
			unexpected++
		} else if line != "" {
			if unexpected < 10 {
				r.fail("Unexpected output on stderr:", line)
			}
			unexpected++
		}
	}

	if unexpected > 10 {
		r.fail(fmt.Sprintf("(truncated %d more...", unexpected-10))
	}

	var missing []string
	for err := range exp.Errors {
		if !found[err] {
			missing = append(missing, err)
		}
	}
	sort.Strings(missing)
	for _, err := range missing {
		r.fail("Missing expected error: " + err)
	}
}

func (r *Result) checkOutput(exp *Expectations, outputLines []string) {
	for i, line := range outputLines {
		if i >= len(exp.Output) {
			r.fail(fmt.Sprintf("Got output '%s' when none was expected.", line))
			continue
		}
		if want := exp.Output[i]; want.Output != line {
			r.fail(fmt.Sprintf("Expected output '%s' on line %d and got '%s'.", want.Output, want.Line, line))
		}
	}
	for _, want := range exp.Output[min(len(outputLines), len(exp.Output)):] {
		r.fail(fmt.Sprintf("Missing expected output '%s' on line %d.", want.Output, want.Line))
	}
}

// splitLines splits on newlines and drops the trailing empty line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// RunSource parses expectations from source, runs it and checks the outcome.
func RunSource(path, source string, cfg config.VMConfig) *Result {
	exp, ok := Parse(source)
	if !ok {
		return &Result{Path: path, Skipped: true}
	}
	return Check(path, exp, Execute(path, source, cfg))
}

// RunFile runs one test file.
func RunFile(path string, cfg config.VMConfig) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return RunSource(path, string(data), cfg), nil
}

// Collect expands directories into the .lox files beneath them.
func Collect(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, config.SourceFileExt) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

// Summary counts results.
type Summary struct {
	Passed  int
	Failed  int
	Skipped int
}

// Run checks every file under paths, writing a progress dot per file and a
// report of the failures to w.
func Run(paths []string, cfg config.VMConfig, w io.Writer) (Summary, error) {
	var sum Summary
	files, err := Collect(paths)
	if err != nil {
		return sum, err
	}

	var failed []*Result
	for _, path := range files {
		r, err := RunFile(path, cfg)
		if err != nil {
			return sum, err
		}
		switch {
		case r.Skipped:
			sum.Skipped++
			fmt.Fprint(w, "S")
		case r.Passed():
			sum.Passed++
			fmt.Fprint(w, ".")
		default:
			sum.Failed++
			fmt.Fprint(w, "F")
			failed = append(failed, r)
		}
	}
	fmt.Fprintln(w)

	if sum.Failed == 0 {
		fmt.Fprintf(w, "All %d tests passed.\n", sum.Passed)
		return sum, nil
	}
	for _, r := range failed {
		fmt.Fprintf(w, "FAIL %s\n\n", r.Path)
		for _, f := range r.Failures {
			fmt.Fprintf(w, "     %s\n", f)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d tests passed. %d tests failed.\n", sum.Passed, sum.Failed)
	return sum, nil
}
