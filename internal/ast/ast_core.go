package ast

import "github.com/funvibe/loxvm/internal/token"

// TokenProvider is an interface for any AST node that can provide its primary token.
// This is useful for error reporting.
type TokenProvider interface {
	GetToken() token.Token
}

// Node is the base interface for all AST nodes.
type Node interface {
	TokenLiteral() string
	Accept(v Visitor)
}

// Statement is a Node that represents a statement.
type Statement interface {
	Node
	statementNode()
	GetToken() token.Token
}

// Expression is a Node that represents an expression.
type Expression interface {
	Node
	expressionNode()
	GetToken() token.Token
}

// Program is the root node of every AST our parser produces.
type Program struct {
	File       string // Source file path
	Statements []Statement
}

func (p *Program) Accept(v Visitor) { v.VisitProgram(p) }
func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

// Visitor walks every node kind. Accept dispatches to the matching method.
type Visitor interface {
	VisitProgram(node *Program)

	// Statements
	VisitBlockStatement(node *BlockStatement)
	VisitClassStatement(node *ClassStatement)
	VisitExpressionStatement(node *ExpressionStatement)
	VisitFunctionStatement(node *FunctionStatement)
	VisitIfStatement(node *IfStatement)
	VisitPrintStatement(node *PrintStatement)
	VisitReturnStatement(node *ReturnStatement)
	VisitVarStatement(node *VarStatement)
	VisitWhileStatement(node *WhileStatement)

	// Expressions
	VisitAssignExpression(node *AssignExpression)
	VisitBinaryExpression(node *BinaryExpression)
	VisitCallExpression(node *CallExpression)
	VisitGetExpression(node *GetExpression)
	VisitGroupingExpression(node *GroupingExpression)
	VisitNumberLiteral(node *NumberLiteral)
	VisitStringLiteral(node *StringLiteral)
	VisitBooleanLiteral(node *BooleanLiteral)
	VisitNilLiteral(node *NilLiteral)
	VisitLogicalExpression(node *LogicalExpression)
	VisitSetExpression(node *SetExpression)
	VisitSuperExpression(node *SuperExpression)
	VisitThisExpression(node *ThisExpression)
	VisitPrefixExpression(node *PrefixExpression)
	VisitIdentifier(node *Identifier)
}
