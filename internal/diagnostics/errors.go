package diagnostics

import (
	"fmt"
	"strings"

	"github.com/funvibe/loxvm/internal/token"
)

type ErrorCode string

const (
	ErrL001 ErrorCode = "L001" // unexpected character / unterminated string
	ErrP001 ErrorCode = "P001" // expected token missing
	ErrP002 ErrorCode = "P002" // expected expression
	ErrP003 ErrorCode = "P003" // invalid assignment target
	ErrC001 ErrorCode = "C001" // compile error
	ErrR001 ErrorCode = "R001" // runtime error
)

// DiagnosticError is a single positioned error produced by any stage.
type DiagnosticError struct {
	Code    ErrorCode
	Token   token.Token
	File    string
	Message string

	// Trace holds "[line N] in fn()" lines for runtime errors, innermost first.
	Trace []string
}

func NewError(code ErrorCode, tok token.Token, msg string) *DiagnosticError {
	return &DiagnosticError{Code: code, Token: tok, Message: msg}
}

// IsRuntime reports whether the error came from execution rather than compilation.
func (e *DiagnosticError) IsRuntime() bool {
	return e.Code == ErrR001
}

// Where is the " at 'x'" part of a compile-time error header.
func (e *DiagnosticError) Where() string {
	switch {
	case e.Code == ErrL001:
		return ""
	case e.Token.Type == token.EOF:
		return " at end"
	case e.Token.Lexeme == "":
		return ""
	default:
		return fmt.Sprintf(" at '%s'", e.Token.Lexeme)
	}
}

func (e *DiagnosticError) Error() string {
	if e.IsRuntime() {
		if len(e.Trace) == 0 {
			return e.Message
		}
		return e.Message + "\n" + strings.Join(e.Trace, "\n")
	}
	return fmt.Sprintf("[line %d] Error%s: %s", e.Token.Line, e.Where(), e.Message)
}
