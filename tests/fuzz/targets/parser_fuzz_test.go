package targets

import (
	"testing"

	"github.com/funvibe/loxvm/tests/fuzz/generators"
)

// FuzzParser feeds raw bytes to the lexer and parser. Any input may be
// rejected, but none may panic, and a reported error must leave no AST
// statements half-built.
func FuzzParser(f *testing.F) {
	LoadCorpus(f, corpusDir)
	f.Add([]byte("print \"Hello\";"))
	f.Add([]byte("var x = 1 + 2"))
	f.Add([]byte("class A < A { init( } }"))
	f.Add([]byte("\"unterminated"))

	f.Fuzz(func(t *testing.T, data []byte) {
		ctx := parse(string(data))
		if len(ctx.Errors) == 0 && ctx.AstRoot == nil {
			t.Fatalf("no errors but no program for %q", data)
		}
		if ctx.AstRoot != nil {
			for i, stmt := range ctx.AstRoot.Statements {
				if stmt == nil {
					t.Fatalf("nil statement %d for %q", i, data)
				}
			}
		}
	})
}

// FuzzGeneratedParser checks that every generated program parses.
func FuzzGeneratedParser(f *testing.F) {
	f.Add([]byte("seed"))
	f.Add([]byte{3, 1, 4, 1, 5, 9, 2, 6})

	f.Fuzz(func(t *testing.T, data []byte) {
		input := generators.NewFromData(data).GenerateProgram()
		if ctx := parse(input); len(ctx.Errors) > 0 {
			t.Fatalf("generated program does not parse:\n%s\nErrors: %v", input, ctx.Errors)
		}
	})
}
