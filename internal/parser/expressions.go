package parser

import (
	"github.com/funvibe/loxvm/internal/ast"
	"github.com/funvibe/loxvm/internal/diagnostics"
	"github.com/funvibe/loxvm/internal/token"
)

func (p *Parser) parseExpression(precedence int) ast.Expression {
	p.depth++
	defer func() { p.depth-- }()

	if p.depth > MaxRecursionDepth {
		p.errorAt(p.curToken, diagnostics.ErrP002, "Expression nesting too deep.")
		return nil
	}

	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.errorAt(p.curToken, diagnostics.ErrP002, "Expect expression.")
		return nil
	}
	leftExp := prefix()
	if leftExp == nil {
		return nil
	}

	for !p.peekTokenIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
		if leftExp == nil {
			return nil
		}
	}
	return leftExp
}

func (p *Parser) parseIdentifier() ast.Expression {
	return p.identifier()
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	value, _ := p.curToken.Literal.(float64)
	return &ast.NumberLiteral{Token: p.curToken, Value: value}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	value, _ := p.curToken.Literal.(string)
	return &ast.StringLiteral{Token: p.curToken, Value: value}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseNilLiteral() ast.Expression {
	return &ast.NilLiteral{Token: p.curToken}
}

func (p *Parser) parseThisExpression() ast.Expression {
	return &ast.ThisExpression{Token: p.curToken}
}

// super.method
func (p *Parser) parseSuperExpression() ast.Expression {
	se := &ast.SuperExpression{Token: p.curToken}
	if !p.expectPeek(token.DOT, "Expect '.' after 'super'.") {
		return nil
	}
	if !p.expectPeek(token.IDENT, "Expect superclass method name.") {
		return nil
	}
	se.Method = p.identifier()
	return se
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	pe := &ast.PrefixExpression{Token: p.curToken, Operator: p.curToken.Lexeme}
	p.nextToken()
	pe.Right = p.parseExpression(UNARY)
	if pe.Right == nil {
		return nil
	}
	return pe
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	ge := &ast.GroupingExpression{Token: p.curToken}
	p.nextToken()
	ge.Expression = p.parseExpression(LOWEST)
	if ge.Expression == nil {
		return nil
	}
	if !p.expectPeek(token.RPAREN, "Expect ')' after expression.") {
		return nil
	}
	return ge
}

func (p *Parser) parseBinaryExpression(left ast.Expression) ast.Expression {
	be := &ast.BinaryExpression{Token: p.curToken, Operator: p.curToken.Lexeme, Left: left}
	precedence := p.curPrecedence()
	p.nextToken()
	be.Right = p.parseExpression(precedence)
	if be.Right == nil {
		return nil
	}
	return be
}

func (p *Parser) parseLogicalExpression(left ast.Expression) ast.Expression {
	le := &ast.LogicalExpression{Token: p.curToken, Operator: p.curToken.Lexeme, Left: left}
	precedence := p.curPrecedence()
	p.nextToken()
	le.Right = p.parseExpression(precedence)
	if le.Right == nil {
		return nil
	}
	return le
}

// parseAssignExpression is right-associative. An invalid target is reported
// without entering panic mode, the right-hand side is still parsed.
func (p *Parser) parseAssignExpression(left ast.Expression) ast.Expression {
	equals := p.curToken
	p.nextToken()
	value := p.parseExpression(ASSIGNMENT - 1)
	if value == nil {
		return nil
	}

	switch target := left.(type) {
	case *ast.Identifier:
		return &ast.AssignExpression{Token: target.Token, Name: target, Value: value}
	case *ast.GetExpression:
		return &ast.SetExpression{Token: target.Token, Object: target.Object, Name: target.Name, Value: value}
	}

	if !p.panicMode {
		p.ctx.AddError(diagnostics.NewError(diagnostics.ErrP003, equals, "Invalid assignment target."))
	}
	return value
}

func (p *Parser) parseCallExpression(callee ast.Expression) ast.Expression {
	ce := &ast.CallExpression{Callee: callee}

	if !p.peekTokenIs(token.RPAREN) {
		for {
			p.nextToken()
			arg := p.parseExpression(LOWEST)
			if arg == nil {
				return nil
			}
			ce.Arguments = append(ce.Arguments, arg)
			if !p.peekTokenIs(token.COMMA) {
				break
			}
			p.nextToken()
		}
	}

	if !p.expectPeek(token.RPAREN, "Expect ')' after arguments.") {
		return nil
	}
	ce.Token = p.curToken
	return ce
}

func (p *Parser) parseGetExpression(object ast.Expression) ast.Expression {
	if !p.expectPeek(token.IDENT, "Expect property name after '.'.") {
		return nil
	}
	return &ast.GetExpression{Token: p.curToken, Object: object, Name: p.identifier()}
}
