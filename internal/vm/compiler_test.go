package vm

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"

	"github.com/funvibe/loxvm/internal/diagnostics"
)

// ============================================================================
// Helpers
// ============================================================================

func compileErrors(t *testing.T, input string) []*diagnostics.DiagnosticError {
	t.Helper()
	machine, _ := newTestVM(testConfig())
	collector := diagnostics.NewCollector()
	_, err := NewCompiler(machine.Heap(), collector).CompileProgram(parse(t, input))
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		t.Fatalf("Expected *multierror.Error, got %T", err)
	}
	if len(merr.Errors) != len(collector.Errors()) {
		t.Errorf("Reporter saw %d errors, result has %d", len(collector.Errors()), len(merr.Errors))
	}
	return collector.Errors()
}

func repeat(n int, format string) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString(fmt.Sprintf(format, i))
	}
	return sb.String()
}

// ============================================================================
// Compile errors
// ============================================================================

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"top-level return", "return 1;", "[line 1] Error at 'return': Can't return from top-level code."},
		{"own initializer", "{ var a = a; }", "[line 1] Error at 'a': Can't read local variable in its own initializer."},
		{"redeclared local", "{ var a = 1; var a = 2; }", "[line 1] Error at 'a': Already a variable with this name in this scope."},
		{"this outside class", "print this;", "[line 1] Error at 'this': Can't use 'this' outside of a class."},
		{"this in function", "fun f() { return this; }", "[line 1] Error at 'this': Can't use 'this' outside of a class."},
		{"super outside class", "print super.x;", "[line 1] Error at 'super': Can't use 'super' outside of a class."},
		{"super without superclass", "class A { m() { super.m(); } }", "[line 1] Error at 'super': Can't use 'super' in a class with no superclass."},
		{"inherit from self", "class A < A {}", "[line 1] Error at 'A': A class can't inherit from itself."},
		{"value from initializer", "class A { init() { return 1; } }", "[line 1] Error at 'return': Can't return a value from an initializer."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := compileErrors(t, tt.input)
			if len(errs) == 0 {
				t.Fatal("Expected a compile error")
			}
			if errs[0].Error() != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, errs[0].Error())
			}
			if errs[0].Code != diagnostics.ErrC001 {
				t.Errorf("Expected code C001, got %s", errs[0].Code)
			}
		})
	}
}

func TestCompileLimits(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "locals",
			input:    "fun f() {\n" + repeat(300, "var v%d;\n") + "}",
			expected: "Too many local variables in function.",
		},
		{
			name:     "constants",
			input:    repeat(300, "print %d;\n"),
			expected: "Too many constants in one chunk.",
		},
		{
			name: "upvalues",
			input: "fun outer() {\n" + repeat(200, "var a%d;\n") +
				"fun middle() {\n" + repeat(100, "var b%d;\n") +
				"fun inner() {\n" + repeat(200, "a%d;\n") + repeat(100, "b%d;\n") +
				"}\n}\n}",
			expected: "Too many closure variables in function.",
		},
		{
			name:     "parameters",
			input:    "fun f(" + strings.TrimSuffix(repeat(256, "p%d,"), ",") + ") {}",
			expected: "Can't have more than 255 parameters.",
		},
		{
			name:     "arguments",
			input:    "fun f() {}\nf(" + strings.TrimSuffix(repeat(256, "%d,"), ",") + ");",
			expected: "Can't have more than 255 arguments.",
		},
		{
			name:     "jump",
			input:    "if (true) {\n" + repeat(17000, "print nil == nil; // %d\n") + "}",
			expected: "Too much code to jump over.",
		},
		{
			name:     "loop",
			input:    "while (false) {\n" + repeat(17000, "print nil == nil; // %d\n") + "}",
			expected: "Loop body too large.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := compileErrors(t, tt.input)
			found := false
			for _, e := range errs {
				if e.Message == tt.expected {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("Expected error %q, got %v", tt.expected, errs)
			}
		})
	}
}

func TestCompileAtLimits(t *testing.T) {
	// Slot 0 is reserved, so 255 declared locals fit exactly.
	inputs := map[string]string{
		"255 locals":     "fun f() {\n" + repeat(255, "var v%d;\n") + "}",
		"256 constants":  repeat(256, "print %d;\n"),
		"255 parameters": "fun f(" + strings.TrimSuffix(repeat(255, "p%d,"), ",") + ") {}",
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			if errs := compileErrors(t, input); len(errs) != 0 {
				t.Errorf("Expected no errors, got %v", errs)
			}
		})
	}
}

func TestCompileContinuesAfterError(t *testing.T) {
	errs := compileErrors(t, "return 1;\n{ var a = 1; var a = 2; }\nprint this;")
	if len(errs) != 3 {
		t.Fatalf("Expected 3 errors, got %d: %v", len(errs), errs)
	}
	for i, line := range []int{1, 2, 3} {
		if errs[i].Token.Line != line {
			t.Errorf("Error %d: expected line %d, got %d", i, line, errs[i].Token.Line)
		}
	}
}

func TestCompileFunctionMetadata(t *testing.T) {
	machine, _ := newTestVM(testConfig())
	fn, err := compileOn(t, machine, "fun outer(a, b) { var x; fun inner() { return x + a; } }")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if fn.Name != nil || fn.Arity != 0 {
		t.Errorf("Expected unnamed script of arity 0, got %s/%d", fn, fn.Arity)
	}

	outer := fn.Chunk.Constants[1].AsFunction()
	if outer.Name.Chars != "outer" || outer.Arity != 2 {
		t.Errorf("Expected outer/2, got %s/%d", outer, outer.Arity)
	}
	var inner *ObjFunction
	for _, c := range outer.Chunk.Constants {
		if c.IsKind(OBJ_FUNCTION) {
			inner = c.AsFunction()
		}
	}
	if inner == nil {
		t.Fatal("Expected inner function constant")
	}
	if inner.UpvalueCount != 2 {
		t.Errorf("Expected 2 upvalues, got %d", inner.UpvalueCount)
	}
}

// ============================================================================
// Disassembly
// ============================================================================

func TestDisassemble(t *testing.T) {
	machine, _ := newTestVM(testConfig())
	fn, err := compileOn(t, machine, "print 1 + 2;")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	expected := `== <script> ==
0000    1 OP_CONSTANT         0 '1'
0002    | OP_CONSTANT         1 '2'
0004    | OP_ADD
0005    | OP_PRINT
0006    | OP_NIL
0007    | OP_RETURN
`
	if got := Disassemble(fn.Chunk, listingName(fn)); got != expected {
		t.Errorf("Expected listing:\n%s\ngot:\n%s", expected, got)
	}
}

func TestDisassembleClosure(t *testing.T) {
	machine, _ := newTestVM(testConfig())
	fn, err := compileOn(t, machine, "fun f() {\n  var x = 1;\n  fun g() { return x; }\n  return g;\n}")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	listing := DisassembleAll(fn)
	for _, want := range []string{
		"== <script> ==",
		"OP_CLOSURE          1 <fn f>",
		"OP_DEFINE_GLOBAL    0 'f'",
		"== f ==",
		"OP_CLOSURE          1 <fn g>",
		"|                     local 1",
		"== g ==",
		"OP_GET_UPVALUE      0",
	} {
		if !strings.Contains(listing, want) {
			t.Errorf("Expected listing to contain %q:\n%s", want, listing)
		}
	}
}

func TestDisassembleJumps(t *testing.T) {
	machine, _ := newTestVM(testConfig())
	fn, err := compileOn(t, machine, "while (false) print 1;")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	listing := Disassemble(fn.Chunk, "<script>")
	if !strings.Contains(listing, "OP_JUMP_IF_FALSE    1 -> ") {
		t.Errorf("Expected forward jump in listing:\n%s", listing)
	}
	if !strings.Contains(listing, "OP_LOOP") || !strings.Contains(listing, "-> 0") {
		t.Errorf("Expected backward loop to offset 0 in listing:\n%s", listing)
	}
}

func TestDisassembleDeterministic(t *testing.T) {
	source := `
class A { init(x) { this.x = x; } get() { return this.x; } }
class B < A { get() { return super.get() + 1; } }
var b = B(1);
print b.get();
`
	var listings []string
	for i := 0; i < 2; i++ {
		machine, _ := newTestVM(testConfig())
		fn, err := compileOn(t, machine, source)
		if err != nil {
			t.Fatalf("compile: %v", err)
		}
		listings = append(listings, DisassembleAll(fn))
	}
	if listings[0] != listings[1] {
		t.Errorf("Expected identical listings:\n%s\n---\n%s", listings[0], listings[1])
	}
	for _, want := range []string{"OP_INHERIT", "OP_METHOD", "OP_SUPER_INVOKE", "OP_INVOKE", "OP_GET_PROPERTY", "OP_SET_PROPERTY"} {
		if !strings.Contains(listings[0], want) {
			t.Errorf("Expected %s in listing", want)
		}
	}
}

func TestDisassembleInstruction(t *testing.T) {
	chunk := NewChunk()
	chunk.WriteOp(OP_NIL, 1)
	chunk.WriteOp(OP_GET_LOCAL, 2)
	chunk.Write(3, 2)
	chunk.Write(0xff, 2)

	text, next := DisassembleInstruction(chunk, 0)
	if text != "0000    1 OP_NIL\n" || next != 1 {
		t.Errorf("Unexpected %q, %d", text, next)
	}
	text, next = DisassembleInstruction(chunk, 1)
	if text != "0001    2 OP_GET_LOCAL        3\n" || next != 3 {
		t.Errorf("Unexpected %q, %d", text, next)
	}
	text, next = DisassembleInstruction(chunk, 3)
	if text != "0003    | Unknown opcode 255\n" || next != 4 {
		t.Errorf("Unexpected %q, %d", text, next)
	}
}
