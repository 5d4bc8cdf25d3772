package testrunner

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/loxvm/internal/config"
)

const suiteDir = "../../testdata"

func TestParse(t *testing.T) {
	source := strings.Join([]string{
		`print 1; // expect: 1`,
		`print "a b"; // expect: a b`,
		`var = 1; // Error at '=': Expect variable name.`,
		`// [line 5] Error: Unterminated string.`,
		`// [java line 9] Error at 'x': ignored.`,
	}, "\n")

	exp, ok := Parse(source)
	if !ok {
		t.Fatal("expected a runnable test")
	}
	if len(exp.Output) != 2 || exp.Output[0] != (ExpectedOutput{Line: 1, Output: "1"}) || exp.Output[1].Output != "a b" {
		t.Errorf("unexpected output expectations %+v", exp.Output)
	}
	for _, want := range []string{"[3] Error at '=': Expect variable name.", "[5] Error: Unterminated string."} {
		if !exp.Errors[want] {
			t.Errorf("missing error expectation %q in %v", want, exp.Errors)
		}
	}
	if len(exp.Errors) != 2 {
		t.Errorf("java-only annotation should be ignored, got %v", exp.Errors)
	}
	if exp.ExitCode != config.ExitCompileError {
		t.Errorf("ExitCode = %d, want %d", exp.ExitCode, config.ExitCompileError)
	}
	if exp.Count != 4 {
		t.Errorf("Count = %d, want 4", exp.Count)
	}
}

func TestParseRuntimeError(t *testing.T) {
	exp, ok := Parse("print 1;\nprint -nil; // expect runtime error: Operand must be a number.\n")
	if !ok {
		t.Fatal("expected a runnable test")
	}
	if exp.RuntimeError != "Operand must be a number." || exp.RuntimeErrorLine != 2 {
		t.Errorf("got %q on line %d", exp.RuntimeError, exp.RuntimeErrorLine)
	}
	if exp.ExitCode != config.ExitRuntimeError {
		t.Errorf("ExitCode = %d, want %d", exp.ExitCode, config.ExitRuntimeError)
	}
}

func TestParseSkips(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"nontest marker", "// nontest\nprint 1;"},
		{"compile and runtime errors", "var = 1; // Error at '=': Expect variable name.\nprint -nil; // expect runtime error: Operand must be a number."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := Parse(tt.source); ok {
				t.Error("expected the file to be skipped")
			}
		})
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		outcome  Outcome
		failures []string
	}{
		{
			name:    "output matches",
			source:  "print 1; // expect: 1\nprint 2; // expect: 2",
			outcome: Outcome{Stdout: "1\n2\n"},
		},
		{
			name:     "wrong output",
			source:   "print 1; // expect: 1",
			outcome:  Outcome{Stdout: "2\n"},
			failures: []string{"Expected output '1' on line 1 and got '2'."},
		},
		{
			name:     "missing output",
			source:   "print 1; // expect: 1\nprint 2; // expect: 2",
			outcome:  Outcome{Stdout: "1\n"},
			failures: []string{"Missing expected output '2' on line 2."},
		},
		{
			name:     "extra output",
			source:   "print 1;",
			outcome:  Outcome{Stdout: "1\n"},
			failures: []string{"Got output '1' when none was expected."},
		},
		{
			name:   "compile error matches",
			source: "var = 1; // Error at '=': Expect variable name.",
			outcome: Outcome{
				Stderr:   "[line 1] Error at '=': Expect variable name.\n",
				ExitCode: config.ExitCompileError,
			},
		},
		{
			name:   "unexpected compile error",
			source: "print 1;",
			outcome: Outcome{
				Stderr:   "[line 1] Error at 'x': Oops.\n",
				ExitCode: config.ExitCompileError,
			},
			failures: []string{
				"Unexpected error:",
				"[line 1] Error at 'x': Oops.",
				"Expected return code 0 but got 65. Stderr:",
				"[line 1] Error at 'x': Oops.",
			},
		},
		{
			name:     "missing compile error",
			source:   "print 1; // Error at 'x': Oops.",
			outcome:  Outcome{Stdout: "1\n"},
			failures: []string{"Missing expected error: [1] Error at 'x': Oops.", "Expected return code 65 but got 0. Stderr:", "Got output '1' when none was expected."},
		},
		{
			name:   "runtime error matches",
			source: "print 1; // expect: 1\nprint -nil; // expect runtime error: Operand must be a number.",
			outcome: Outcome{
				Stdout:   "1\n",
				Stderr:   "Operand must be a number.\n[line 2] in script\n",
				ExitCode: config.ExitRuntimeError,
			},
		},
		{
			name:   "runtime error on wrong line",
			source: "print -nil; // expect runtime error: Operand must be a number.",
			outcome: Outcome{
				Stderr:   "Operand must be a number.\n[line 3] in script\n",
				ExitCode: config.ExitRuntimeError,
			},
			failures: []string{"Expected runtime error on line 1 but was on line 3."},
		},
		{
			name:     "runtime error missing",
			source:   "print -nil; // expect runtime error: Operand must be a number.",
			outcome:  Outcome{},
			failures: []string{"Expected runtime error 'Operand must be a number.' and got none.", "Expected return code 70 but got 0. Stderr:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp, ok := Parse(tt.source)
			if !ok {
				t.Fatal("expected a runnable test")
			}
			r := Check("test.lox", exp, &tt.outcome)
			if strings.Join(r.Failures, "\n") != strings.Join(tt.failures, "\n") {
				t.Errorf("failures:\n%s\nwant:\n%s", strings.Join(r.Failures, "\n"), strings.Join(tt.failures, "\n"))
			}
			if r.Passed() != (len(tt.failures) == 0) {
				t.Errorf("Passed() = %v", r.Passed())
			}
		})
	}
}

func TestExecute(t *testing.T) {
	cfg := config.Default().VM

	out := Execute("ok.lox", "print 1 + 2;", cfg)
	if out.Stdout != "3\n" || out.Stderr != "" || out.ExitCode != 0 {
		t.Errorf("unexpected outcome %+v", out)
	}

	out = Execute("bad.lox", "print ;", cfg)
	if out.ExitCode != config.ExitCompileError || out.Stderr != "[line 1] Error at ';': Expect expression.\n" {
		t.Errorf("unexpected outcome %+v", out)
	}

	out = Execute("fail.lox", "fun f(a, b) {}\nf(1);", cfg)
	if out.ExitCode != config.ExitRuntimeError || out.Stdout != "" {
		t.Errorf("unexpected outcome %+v", out)
	}
	if out.Stderr != "Expected 2 arguments but got 1.\n[line 2] in script\n" {
		t.Errorf("unexpected stderr %q", out.Stderr)
	}
}

// =============================================================================
// Suite
// =============================================================================

func runSuite(t *testing.T, cfg config.VMConfig) {
	t.Helper()
	files, err := Collect([]string{suiteDir})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no test files found")
	}

	for _, path := range files {
		rel, _ := filepath.Rel(suiteDir, path)
		t.Run(rel, func(t *testing.T) {
			r, err := RunFile(path, cfg)
			if err != nil {
				t.Fatal(err)
			}
			if r.Skipped {
				t.Skip("not a test")
			}
			if !r.Passed() {
				t.Error(strings.Join(r.Failures, "\n"))
			}
		})
	}
}

func TestSuite(t *testing.T) {
	runSuite(t, config.Default().VM)
}

func TestSuiteStressGC(t *testing.T) {
	cfg := config.Default().VM
	cfg.StressGC = true
	runSuite(t, cfg)
}

func TestRunSummary(t *testing.T) {
	dir := t.TempDir()
	write := func(name, source string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(source), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("pass.lox", "print 1; // expect: 1\n")
	write("fail.lox", "print 2; // expect: 1\n")
	write("skip.lox", "// nontest\n")
	write("notes.txt", "ignored")

	var buf bytes.Buffer
	sum, err := Run([]string{dir}, config.Default().VM, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if sum != (Summary{Passed: 1, Failed: 1, Skipped: 1}) {
		t.Errorf("summary = %+v", sum)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "F.S\n") {
		t.Errorf("expected progress line F.S, got %q", out)
	}
	for _, want := range []string{
		"FAIL " + filepath.Join(dir, "fail.lox"),
		"Expected output '1' on line 1 and got '2'.",
		"1 tests passed. 1 tests failed.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCollectMissingPath(t *testing.T) {
	if _, err := Collect([]string{filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Error("expected an error for a missing path")
	}
}
