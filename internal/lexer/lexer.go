package lexer

import (
	"strconv"
	"unicode/utf8"

	"github.com/funvibe/loxvm/internal/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
	column       int  // current column number
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = len(l.input)
		l.readPosition = len(l.input) + 1
		l.column++
		return
	}

	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

// NextToken scans one token. At end of input it keeps returning EOF.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()

	line, col := l.line, l.column

	var tok token.Token
	switch l.ch {
	case 0:
		return token.Token{Type: token.EOF, Lexeme: "", Line: line, Column: col}
	case '(':
		tok = newToken(token.LPAREN, l.ch, line, col)
	case ')':
		tok = newToken(token.RPAREN, l.ch, line, col)
	case '{':
		tok = newToken(token.LBRACE, l.ch, line, col)
	case '}':
		tok = newToken(token.RBRACE, l.ch, line, col)
	case ',':
		tok = newToken(token.COMMA, l.ch, line, col)
	case '.':
		tok = newToken(token.DOT, l.ch, line, col)
	case '-':
		tok = newToken(token.MINUS, l.ch, line, col)
	case '+':
		tok = newToken(token.PLUS, l.ch, line, col)
	case ';':
		tok = newToken(token.SEMICOLON, l.ch, line, col)
	case '*':
		tok = newToken(token.ASTERISK, l.ch, line, col)
	case '/':
		tok = newToken(token.SLASH, l.ch, line, col)
	case '!':
		tok = l.either('=', token.NOT_EQ, token.BANG, line, col)
	case '=':
		tok = l.either('=', token.EQ, token.ASSIGN, line, col)
	case '<':
		tok = l.either('=', token.LT_EQ, token.LT, line, col)
	case '>':
		tok = l.either('=', token.GT_EQ, token.GT, line, col)
	case '"':
		return l.readString(line, col)
	default:
		if isLetter(l.ch) {
			ident := l.readIdentifier()
			typ := token.LookupIdent(ident)
			tok = token.Token{Type: typ, Lexeme: ident, Line: line, Column: col}
			if typ == token.IDENT {
				tok.Literal = ident
			}
			return tok
		}
		if isDigit(l.ch) {
			return l.readNumber(line, col)
		}
		tok = token.Token{Type: token.ILLEGAL, Lexeme: string(l.ch), Literal: "Unexpected character.", Line: line, Column: col}
	}

	l.readChar()
	return tok
}

// Tokenize scans the whole input, EOF included.
func (l *Lexer) Tokenize() []token.Token {
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens
		}
	}
}

func (l *Lexer) either(next rune, two, one token.TokenType, line, col int) token.Token {
	if l.peekChar() == next {
		first := l.ch
		l.readChar()
		return token.Token{Type: two, Lexeme: string(first) + string(l.ch), Line: line, Column: col}
	}
	return newToken(one, l.ch, line, col)
}

// readString consumes a "..." literal. Strings may span lines and have no escapes.
func (l *Lexer) readString(line, col int) token.Token {
	start := l.position
	l.readChar() // opening quote
	for l.ch != '"' && l.ch != 0 {
		l.readChar()
	}
	if l.ch == 0 {
		return token.Token{Type: token.ILLEGAL, Lexeme: l.input[start:], Literal: "Unterminated string.", Line: l.line, Column: col}
	}
	lexeme := l.input[start : l.position+1]
	l.readChar() // closing quote
	return token.Token{Type: token.STRING, Lexeme: lexeme, Literal: lexeme[1 : len(lexeme)-1], Line: line, Column: col}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readNumber accepts 123 and 123.45; a trailing dot is not part of the number.
func (l *Lexer) readNumber(line, col int) token.Token {
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	lexeme := l.input[start:l.position]
	value, _ := strconv.ParseFloat(lexeme, 64)
	return token.Token{Type: token.NUMBER, Lexeme: lexeme, Literal: value, Line: line, Column: col}
}

func (l *Lexer) skipWhitespace() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
			l.readChar()
		}
		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		break
	}
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func newToken(tokenType token.TokenType, ch rune, line, col int) token.Token {
	return token.Token{Type: tokenType, Lexeme: string(ch), Line: line, Column: col}
}
