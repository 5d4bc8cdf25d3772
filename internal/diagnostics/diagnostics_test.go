package diagnostics

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"

	"github.com/funvibe/loxvm/internal/token"
)

func TestErrorFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      *DiagnosticError
		expected string
	}{
		{
			name:     "at token",
			err:      NewError(ErrP002, token.Token{Type: token.SEMICOLON, Lexeme: ";", Line: 3}, "Expect expression."),
			expected: "[line 3] Error at ';': Expect expression.",
		},
		{
			name:     "at end",
			err:      NewError(ErrP001, token.Token{Type: token.EOF, Line: 7}, "Expect ';' after value."),
			expected: "[line 7] Error at end: Expect ';' after value.",
		},
		{
			name:     "lexer error has no location",
			err:      NewError(ErrL001, token.Token{Type: token.ILLEGAL, Lexeme: "@", Line: 1}, "Unexpected character."),
			expected: "[line 1] Error: Unexpected character.",
		},
		{
			name:     "synthetic token",
			err:      NewError(ErrC001, token.Token{Line: 2}, "Too many constants in one chunk."),
			expected: "[line 2] Error: Too many constants in one chunk.",
		},
		{
			name: "runtime",
			err: &DiagnosticError{
				Code:    ErrR001,
				Message: "Operand must be a number.",
				Trace:   []string{"[line 2] in f()", "[line 4] in script"},
			},
			expected: "Operand must be a number.\n[line 2] in f()\n[line 4] in script",
		},
		{
			name:     "runtime without trace",
			err:      &DiagnosticError{Code: ErrR001, Message: "boom"},
			expected: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestIsRuntime(t *testing.T) {
	for _, code := range []ErrorCode{ErrL001, ErrP001, ErrP002, ErrP003, ErrC001} {
		if (&DiagnosticError{Code: code}).IsRuntime() {
			t.Errorf("%s should not be runtime", code)
		}
	}
	if !(&DiagnosticError{Code: ErrR001}).IsRuntime() {
		t.Error("R001 should be runtime")
	}
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	if c.HasErrors() || c.Err() != nil {
		t.Fatal("new collector should be empty")
	}

	first := NewError(ErrC001, token.Token{Type: token.RETURN, Lexeme: "return", Line: 1}, "Can't return from top-level code.")
	second := NewError(ErrC001, token.Token{Type: token.THIS, Lexeme: "this", Line: 2}, "Can't use 'this' outside of a class.")
	c.Report(first)
	c.Report(second)

	if len(c.Errors()) != 2 || c.Errors()[0] != first {
		t.Fatalf("unexpected errors %v", c.Errors())
	}

	err := c.Err()
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		t.Fatalf("expected *multierror.Error, got %T", err)
	}
	expected := first.Error() + "\n" + second.Error()
	if err.Error() != expected {
		t.Errorf("Err() = %q, want %q", err.Error(), expected)
	}

	var diag *DiagnosticError
	if !errors.As(err, &diag) || diag != first {
		t.Error("expected errors.As to find the first diagnostic")
	}

	c.Reset()
	if c.HasErrors() || c.Err() != nil {
		t.Error("Reset should clear the collector")
	}
}

type recorder struct{ got []*DiagnosticError }

func (r *recorder) Report(err *DiagnosticError) { r.got = append(r.got, err) }

func TestFunnel(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	f := Funnel{a, nil, b}
	err := NewError(ErrC001, token.Token{Line: 1}, "x")
	f.Report(err)
	if len(a.got) != 1 || len(b.got) != 1 {
		t.Errorf("expected both reporters to receive the error, got %d and %d", len(a.got), len(b.got))
	}
}

func TestPrinter(t *testing.T) {
	compileErr := NewError(ErrP002, token.Token{Type: token.SEMICOLON, Lexeme: ";", Line: 3}, "Expect expression.")
	runtimeErr := &DiagnosticError{Code: ErrR001, Message: "boom", Trace: []string{"[line 1] in script"}}

	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.Report(compileErr)
	p.Report(runtimeErr)
	expected := "[line 3] Error at ';': Expect expression.\nboom\n[line 1] in script\n"
	if buf.String() != expected {
		t.Errorf("plain output = %q, want %q", buf.String(), expected)
	}

	p.SetColor(true)
	colored := p.Format(compileErr)
	if !strings.Contains(colored, "\x1b[") || !strings.Contains(colored, "Expect expression.") {
		t.Errorf("expected ANSI colored output, got %q", colored)
	}
	colored = p.Format(runtimeErr)
	if !strings.Contains(colored, "boom") || !strings.Contains(colored, "[line 1] in script") {
		t.Errorf("expected runtime message and trace, got %q", colored)
	}
}
