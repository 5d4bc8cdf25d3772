package lexer

import (
	"testing"

	"github.com/funvibe/loxvm/internal/pipeline"
	"github.com/funvibe/loxvm/internal/token"
)

func TestNextToken(t *testing.T) {
	input := `var five = 5.5;
fun add(x, y) { return x + y; }
// comment
!= == <= >= < > ! = - * / .
class A < B { init() { this.x = super.y; } }
if (a and b or nil) print "hi"; else while (true) for (;;) false;`

	tests := []struct {
		expectedType   token.TokenType
		expectedLexeme string
		expectedLine   int
	}{
		{token.VAR, "var", 1},
		{token.IDENT, "five", 1},
		{token.ASSIGN, "=", 1},
		{token.NUMBER, "5.5", 1},
		{token.SEMICOLON, ";", 1},
		{token.FUN, "fun", 2},
		{token.IDENT, "add", 2},
		{token.LPAREN, "(", 2},
		{token.IDENT, "x", 2},
		{token.COMMA, ",", 2},
		{token.IDENT, "y", 2},
		{token.RPAREN, ")", 2},
		{token.LBRACE, "{", 2},
		{token.RETURN, "return", 2},
		{token.IDENT, "x", 2},
		{token.PLUS, "+", 2},
		{token.IDENT, "y", 2},
		{token.SEMICOLON, ";", 2},
		{token.RBRACE, "}", 2},
		{token.NOT_EQ, "!=", 4},
		{token.EQ, "==", 4},
		{token.LT_EQ, "<=", 4},
		{token.GT_EQ, ">=", 4},
		{token.LT, "<", 4},
		{token.GT, ">", 4},
		{token.BANG, "!", 4},
		{token.ASSIGN, "=", 4},
		{token.MINUS, "-", 4},
		{token.ASTERISK, "*", 4},
		{token.SLASH, "/", 4},
		{token.DOT, ".", 4},
		{token.CLASS, "class", 5},
		{token.IDENT, "A", 5},
		{token.LT, "<", 5},
		{token.IDENT, "B", 5},
		{token.LBRACE, "{", 5},
		{token.IDENT, "init", 5},
		{token.LPAREN, "(", 5},
		{token.RPAREN, ")", 5},
		{token.LBRACE, "{", 5},
		{token.THIS, "this", 5},
		{token.DOT, ".", 5},
		{token.IDENT, "x", 5},
		{token.ASSIGN, "=", 5},
		{token.SUPER, "super", 5},
		{token.DOT, ".", 5},
		{token.IDENT, "y", 5},
		{token.SEMICOLON, ";", 5},
		{token.RBRACE, "}", 5},
		{token.RBRACE, "}", 5},
		{token.IF, "if", 6},
		{token.LPAREN, "(", 6},
		{token.IDENT, "a", 6},
		{token.AND, "and", 6},
		{token.IDENT, "b", 6},
		{token.OR, "or", 6},
		{token.NIL, "nil", 6},
		{token.RPAREN, ")", 6},
		{token.PRINT, "print", 6},
		{token.STRING, `"hi"`, 6},
		{token.SEMICOLON, ";", 6},
		{token.ELSE, "else", 6},
		{token.WHILE, "while", 6},
		{token.LPAREN, "(", 6},
		{token.TRUE, "true", 6},
		{token.RPAREN, ")", 6},
		{token.FOR, "for", 6},
		{token.LPAREN, "(", 6},
		{token.SEMICOLON, ";", 6},
		{token.SEMICOLON, ";", 6},
		{token.RPAREN, ")", 6},
		{token.FALSE, "false", 6},
		{token.SEMICOLON, ";", 6},
		{token.EOF, "", 6},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (%q)", i, tt.expectedType, tok.Type, tok.Lexeme)
		}
		if tok.Lexeme != tt.expectedLexeme {
			t.Fatalf("tests[%d] - lexeme wrong. expected=%q, got=%q", i, tt.expectedLexeme, tok.Lexeme)
		}
		if tok.Line != tt.expectedLine {
			t.Fatalf("tests[%d] - line wrong for %q. expected=%d, got=%d", i, tok.Lexeme, tt.expectedLine, tok.Line)
		}
	}
}

func TestLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected interface{}
	}{
		{"123", 123.0},
		{"0.5", 0.5},
		{`"a string"`, "a string"},
		{`""`, ""},
		{"name", "name"},
		{"_under_score1", "_under_score1"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := New(tt.input).NextToken()
			if tok.Literal != tt.expected {
				t.Errorf("Expected literal %v (%T), got %v (%T)", tt.expected, tt.expected, tok.Literal, tok.Literal)
			}
		})
	}
}

func TestNumberTrailingDot(t *testing.T) {
	toks := New("123.").Tokenize()
	if len(toks) != 3 || toks[0].Lexeme != "123" || toks[1].Type != token.DOT || toks[2].Type != token.EOF {
		t.Errorf("Expected NUMBER DOT EOF, got %v", toks)
	}
}

func TestMultilineString(t *testing.T) {
	toks := New("\"one\ntwo\"\nx").Tokenize()
	if toks[0].Type != token.STRING || toks[0].Literal != "one\ntwo" || toks[0].Line != 1 {
		t.Errorf("Unexpected string token %v", toks[0])
	}
	if toks[1].Lexeme != "x" || toks[1].Line != 3 {
		t.Errorf("Expected x on line 3, got %v", toks[1])
	}
}

func TestIllegalTokens(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"@", "Unexpected character."},
		{`"open`, "Unterminated string."},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := New(tt.input).NextToken()
			if tok.Type != token.ILLEGAL || tok.Literal != tt.expected {
				t.Errorf("Expected ILLEGAL %q, got %v %v", tt.expected, tok.Type, tok.Literal)
			}
		})
	}
}

func TestEOFRepeats(t *testing.T) {
	l := New("")
	for i := 0; i < 3; i++ {
		if tok := l.NextToken(); tok.Type != token.EOF {
			t.Fatalf("Expected EOF on call %d, got %v", i, tok)
		}
	}
}

func TestLexerProcessor(t *testing.T) {
	ctx := pipeline.NewPipelineContext("var a = 1; @ var b = \"x")
	ctx = (&LexerProcessor{}).Process(ctx)

	if len(ctx.Errors) != 2 {
		t.Fatalf("Expected 2 errors, got %d", len(ctx.Errors))
	}
	if ctx.Errors[0].Error() != "[line 1] Error: Unexpected character." {
		t.Errorf("Unexpected first error %q", ctx.Errors[0].Error())
	}
	if ctx.Errors[1].Message != "Unterminated string." {
		t.Errorf("Unexpected second error %q", ctx.Errors[1].Message)
	}
	for _, tok := range ctx.TokenStream {
		if tok.Type == token.ILLEGAL {
			t.Errorf("Expected ILLEGAL tokens to be dropped, found %v", tok)
		}
	}
	if last := ctx.TokenStream[len(ctx.TokenStream)-1]; last.Type != token.EOF {
		t.Errorf("Expected stream to end with EOF, got %v", last)
	}
}
