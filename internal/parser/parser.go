package parser

import (
	"github.com/funvibe/loxvm/internal/ast"
	"github.com/funvibe/loxvm/internal/diagnostics"
	"github.com/funvibe/loxvm/internal/pipeline"
	"github.com/funvibe/loxvm/internal/token"
)

const (
	_ int = iota
	LOWEST
	ASSIGNMENT // =
	OR         // or
	AND        // and
	EQUALITY   // == !=
	COMPARISON // < > <= >=
	TERM       // + -
	FACTOR     // * /
	UNARY      // ! -
	CALL       // . ()
)

var precedences = map[token.TokenType]int{
	token.ASSIGN:   ASSIGNMENT,
	token.OR:       OR,
	token.AND:      AND,
	token.EQ:       EQUALITY,
	token.NOT_EQ:   EQUALITY,
	token.LT:       COMPARISON,
	token.LT_EQ:    COMPARISON,
	token.GT:       COMPARISON,
	token.GT_EQ:    COMPARISON,
	token.PLUS:     TERM,
	token.MINUS:    TERM,
	token.ASTERISK: FACTOR,
	token.SLASH:    FACTOR,
	token.LPAREN:   CALL,
	token.DOT:      CALL,
}

// MaxRecursionDepth bounds expression nesting so hostile input reports an
// error instead of exhausting the goroutine stack.
const MaxRecursionDepth = 2000

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	tokens []token.Token
	pos    int
	ctx    *pipeline.PipelineContext

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn

	// panicMode suppresses cascaded errors until the next statement boundary.
	panicMode bool
	depth     int
}

// New creates a parser over a token stream that ends with EOF.
func New(tokens []token.Token, ctx *pipeline.PipelineContext) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != token.EOF {
		line := 1
		if len(tokens) > 0 {
			line = tokens[len(tokens)-1].Line
		}
		tokens = append(tokens, token.Token{Type: token.EOF, Line: line})
	}
	p := &Parser{tokens: tokens, pos: -2, ctx: ctx}

	p.prefixParseFns = map[token.TokenType]prefixParseFn{
		token.IDENT:  p.parseIdentifier,
		token.NUMBER: p.parseNumberLiteral,
		token.STRING: p.parseStringLiteral,
		token.TRUE:   p.parseBooleanLiteral,
		token.FALSE:  p.parseBooleanLiteral,
		token.NIL:    p.parseNilLiteral,
		token.BANG:   p.parsePrefixExpression,
		token.MINUS:  p.parsePrefixExpression,
		token.LPAREN: p.parseGroupedExpression,
		token.THIS:   p.parseThisExpression,
		token.SUPER:  p.parseSuperExpression,
	}
	p.infixParseFns = map[token.TokenType]infixParseFn{
		token.PLUS:     p.parseBinaryExpression,
		token.MINUS:    p.parseBinaryExpression,
		token.ASTERISK: p.parseBinaryExpression,
		token.SLASH:    p.parseBinaryExpression,
		token.EQ:       p.parseBinaryExpression,
		token.NOT_EQ:   p.parseBinaryExpression,
		token.LT:       p.parseBinaryExpression,
		token.LT_EQ:    p.parseBinaryExpression,
		token.GT:       p.parseBinaryExpression,
		token.GT_EQ:    p.parseBinaryExpression,
		token.AND:      p.parseLogicalExpression,
		token.OR:       p.parseLogicalExpression,
		token.ASSIGN:   p.parseAssignExpression,
		token.LPAREN:   p.parseCallExpression,
		token.DOT:      p.parseGetExpression,
	}

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.pos++
	p.curToken = p.at(p.pos)
	p.peekToken = p.at(p.pos + 1)
}

func (p *Parser) at(i int) token.Token {
	if i < 0 {
		return token.Token{}
	}
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

func (p *Parser) curTokenIs(t token.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.TokenType) bool { return p.peekToken.Type == t }

// expectPeek advances when the next token has type t, otherwise reports msg
// at that token.
func (p *Parser) expectPeek(t token.TokenType, msg string) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorAt(p.peekToken, diagnostics.ErrP001, msg)
	return false
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) errorAt(tok token.Token, code diagnostics.ErrorCode, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.ctx.AddError(diagnostics.NewError(code, tok, msg))
}

// synchronize skips tokens until curToken ends a statement or peekToken
// starts one.
func (p *Parser) synchronize() {
	p.panicMode = false
	for !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.SEMICOLON) {
			return
		}
		switch p.peekToken.Type {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF,
			token.WHILE, token.PRINT, token.RETURN, token.EOF:
			return
		}
		p.nextToken()
	}
}

// ParseProgram parses declarations until EOF. Errors go to the pipeline
// context; the returned program holds every statement that parsed cleanly.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{File: p.ctx.FilePath}
	for !p.curTokenIs(token.EOF) {
		if stmt := p.parseDeclaration(); stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.nextToken()
	}
	return program
}
