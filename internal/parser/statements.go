package parser

import (
	"github.com/funvibe/loxvm/internal/ast"
	"github.com/funvibe/loxvm/internal/diagnostics"
	"github.com/funvibe/loxvm/internal/token"
)

// parseDeclaration leaves curToken on the last token of the declaration. On
// error it synchronizes and returns nil.
func (p *Parser) parseDeclaration() ast.Statement {
	var stmt ast.Statement
	switch p.curToken.Type {
	case token.CLASS:
		if cs := p.parseClassStatement(); cs != nil {
			stmt = cs
		}
	case token.FUN:
		if p.expectPeek(token.IDENT, "Expect function name.") {
			if fs := p.parseFunction("function"); fs != nil {
				stmt = fs
			}
		}
	case token.VAR:
		if vs := p.parseVarStatement(); vs != nil {
			stmt = vs
		}
	default:
		stmt = p.parseStatement()
	}

	if stmt == nil || p.panicMode {
		p.synchronize()
		return nil
	}
	return stmt
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.PRINT:
		if ps := p.parsePrintStatement(); ps != nil {
			return ps
		}
	case token.RETURN:
		if rs := p.parseReturnStatement(); rs != nil {
			return rs
		}
	case token.IF:
		if is := p.parseIfStatement(); is != nil {
			return is
		}
	case token.WHILE:
		if ws := p.parseWhileStatement(); ws != nil {
			return ws
		}
	case token.FOR:
		return p.parseForStatement()
	case token.LBRACE:
		if bs := p.parseBlockStatement(); bs != nil {
			return bs
		}
	default:
		if es := p.parseExpressionStatement(); es != nil {
			return es
		}
	}
	return nil
}

// class Name (< Super)? { method* }
func (p *Parser) parseClassStatement() *ast.ClassStatement {
	cs := &ast.ClassStatement{Token: p.curToken}

	if !p.expectPeek(token.IDENT, "Expect class name.") {
		return nil
	}
	cs.Name = p.identifier()

	if p.peekTokenIs(token.LT) {
		p.nextToken()
		if !p.expectPeek(token.IDENT, "Expect superclass name.") {
			return nil
		}
		cs.Superclass = p.identifier()
	}

	if !p.expectPeek(token.LBRACE, "Expect '{' before class body.") {
		return nil
	}

	for !p.peekTokenIs(token.RBRACE) && !p.peekTokenIs(token.EOF) {
		if !p.expectPeek(token.IDENT, "Expect method name.") {
			return nil
		}
		method := p.parseFunction("method")
		if method == nil {
			return nil
		}
		cs.Methods = append(cs.Methods, method)
	}

	if !p.expectPeek(token.RBRACE, "Expect '}' after class body.") {
		return nil
	}
	return cs
}

// parseFunction starts on the name token. kind is "function" or "method".
func (p *Parser) parseFunction(kind string) *ast.FunctionStatement {
	fs := &ast.FunctionStatement{Token: p.curToken, Name: p.identifier()}

	if !p.expectPeek(token.LPAREN, "Expect '(' after "+kind+" name.") {
		return nil
	}

	if !p.peekTokenIs(token.RPAREN) {
		for {
			if !p.expectPeek(token.IDENT, "Expect parameter name.") {
				return nil
			}
			fs.Parameters = append(fs.Parameters, p.identifier())
			if !p.peekTokenIs(token.COMMA) {
				break
			}
			p.nextToken()
		}
	}

	if !p.expectPeek(token.RPAREN, "Expect ')' after parameters.") {
		return nil
	}
	if !p.expectPeek(token.LBRACE, "Expect '{' before "+kind+" body.") {
		return nil
	}

	body := p.parseBlockStatement()
	if body == nil {
		return nil
	}
	fs.Body = body.Statements
	return fs
}

// var name (= value)? ;
func (p *Parser) parseVarStatement() *ast.VarStatement {
	if !p.expectPeek(token.IDENT, "Expect variable name.") {
		return nil
	}
	vs := &ast.VarStatement{Token: p.curToken, Name: p.identifier()}

	if p.peekTokenIs(token.ASSIGN) {
		p.nextToken()
		p.nextToken()
		vs.Value = p.parseExpression(LOWEST)
		if vs.Value == nil {
			return nil
		}
	}

	if !p.expectPeek(token.SEMICOLON, "Expect ';' after variable declaration.") {
		return nil
	}
	return vs
}

func (p *Parser) parsePrintStatement() *ast.PrintStatement {
	ps := &ast.PrintStatement{Token: p.curToken}
	p.nextToken()
	ps.Value = p.parseExpression(LOWEST)
	if ps.Value == nil {
		return nil
	}
	if !p.expectPeek(token.SEMICOLON, "Expect ';' after value.") {
		return nil
	}
	return ps
}

func (p *Parser) parseReturnStatement() *ast.ReturnStatement {
	rs := &ast.ReturnStatement{Token: p.curToken}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		return rs
	}
	p.nextToken()
	rs.Value = p.parseExpression(LOWEST)
	if rs.Value == nil {
		return nil
	}
	if !p.expectPeek(token.SEMICOLON, "Expect ';' after return value.") {
		return nil
	}
	return rs
}

func (p *Parser) parseExpressionStatement() *ast.ExpressionStatement {
	es := &ast.ExpressionStatement{Token: p.curToken}
	es.Expression = p.parseExpression(LOWEST)
	if es.Expression == nil {
		return nil
	}
	if !p.expectPeek(token.SEMICOLON, "Expect ';' after expression.") {
		return nil
	}
	return es
}

func (p *Parser) parseIfStatement() *ast.IfStatement {
	is := &ast.IfStatement{Token: p.curToken}

	if !p.expectPeek(token.LPAREN, "Expect '(' after 'if'.") {
		return nil
	}
	p.nextToken()
	is.Condition = p.parseExpression(LOWEST)
	if is.Condition == nil {
		return nil
	}
	if !p.expectPeek(token.RPAREN, "Expect ')' after if condition.") {
		return nil
	}

	p.nextToken()
	is.Consequence = p.parseStatement()
	if is.Consequence == nil {
		return nil
	}

	if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		p.nextToken()
		is.Alternative = p.parseStatement()
		if is.Alternative == nil {
			return nil
		}
	}
	return is
}

func (p *Parser) parseWhileStatement() *ast.WhileStatement {
	ws := &ast.WhileStatement{Token: p.curToken}

	if !p.expectPeek(token.LPAREN, "Expect '(' after 'while'.") {
		return nil
	}
	p.nextToken()
	ws.Condition = p.parseExpression(LOWEST)
	if ws.Condition == nil {
		return nil
	}
	if !p.expectPeek(token.RPAREN, "Expect ')' after condition.") {
		return nil
	}

	p.nextToken()
	ws.Body = p.parseStatement()
	if ws.Body == nil {
		return nil
	}
	return ws
}

// parseForStatement desugars
//
//	for (init; cond; incr) body
//
// into
//
//	{ init; while (cond) { body; incr; } }
func (p *Parser) parseForStatement() ast.Statement {
	forTok := p.curToken

	if !p.expectPeek(token.LPAREN, "Expect '(' after 'for'.") {
		return nil
	}
	p.nextToken()

	var initializer ast.Statement
	switch p.curToken.Type {
	case token.SEMICOLON:
	case token.VAR:
		vs := p.parseVarStatement()
		if vs == nil {
			return nil
		}
		initializer = vs
	default:
		es := p.parseExpressionStatement()
		if es == nil {
			return nil
		}
		initializer = es
	}

	var condition ast.Expression
	if !p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		condition = p.parseExpression(LOWEST)
		if condition == nil {
			return nil
		}
	}
	if !p.expectPeek(token.SEMICOLON, "Expect ';' after loop condition.") {
		return nil
	}

	var increment ast.Expression
	if !p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		increment = p.parseExpression(LOWEST)
		if increment == nil {
			return nil
		}
	}
	if !p.expectPeek(token.RPAREN, "Expect ')' after for clauses.") {
		return nil
	}

	p.nextToken()
	body := p.parseStatement()
	if body == nil {
		return nil
	}

	if increment != nil {
		body = &ast.BlockStatement{
			Token: forTok,
			Statements: []ast.Statement{
				body,
				&ast.ExpressionStatement{Token: increment.GetToken(), Expression: increment},
			},
		}
	}
	if condition == nil {
		condition = &ast.BooleanLiteral{Token: token.Token{Type: token.TRUE, Lexeme: "true", Line: forTok.Line, Column: forTok.Column}, Value: true}
	}
	var loop ast.Statement = &ast.WhileStatement{Token: forTok, Condition: condition, Body: body}
	if initializer != nil {
		loop = &ast.BlockStatement{Token: forTok, Statements: []ast.Statement{initializer, loop}}
	}
	return loop
}

// parseBlockStatement starts on '{' and ends on the matching '}'.
func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken}
	p.nextToken()

	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		if stmt := p.parseDeclaration(); stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}

	if !p.curTokenIs(token.RBRACE) {
		p.errorAt(p.curToken, diagnostics.ErrP001, "Expect '}' after block.")
		return nil
	}
	return block
}

func (p *Parser) identifier() *ast.Identifier {
	name, _ := p.curToken.Literal.(string)
	if name == "" {
		name = p.curToken.Lexeme
	}
	return &ast.Identifier{Token: p.curToken, Value: name}
}
