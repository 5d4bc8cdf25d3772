package ast

import "github.com/funvibe/loxvm/internal/token"

// Identifier is a variable reference: a
type Identifier struct {
	Token token.Token
	Value string
}

func (i *Identifier) Accept(v Visitor)      { v.VisitIdentifier(i) }
func (i *Identifier) expressionNode()       {}
func (i *Identifier) TokenLiteral() string  { return i.Token.Lexeme }
func (i *Identifier) GetToken() token.Token { return i.Token }

// NumberLiteral: 1, 2.5
type NumberLiteral struct {
	Token token.Token
	Value float64
}

func (nl *NumberLiteral) Accept(v Visitor)      { v.VisitNumberLiteral(nl) }
func (nl *NumberLiteral) expressionNode()       {}
func (nl *NumberLiteral) TokenLiteral() string  { return nl.Token.Lexeme }
func (nl *NumberLiteral) GetToken() token.Token { return nl.Token }

// StringLiteral: "text" (Value excludes quotes)
type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) Accept(v Visitor)      { v.VisitStringLiteral(sl) }
func (sl *StringLiteral) expressionNode()       {}
func (sl *StringLiteral) TokenLiteral() string  { return sl.Token.Lexeme }
func (sl *StringLiteral) GetToken() token.Token { return sl.Token }

type BooleanLiteral struct {
	Token token.Token
	Value bool
}

func (b *BooleanLiteral) Accept(v Visitor)      { v.VisitBooleanLiteral(b) }
func (b *BooleanLiteral) expressionNode()       {}
func (b *BooleanLiteral) TokenLiteral() string  { return b.Token.Lexeme }
func (b *BooleanLiteral) GetToken() token.Token { return b.Token }

type NilLiteral struct {
	Token token.Token
}

func (n *NilLiteral) Accept(v Visitor)      { v.VisitNilLiteral(n) }
func (n *NilLiteral) expressionNode()       {}
func (n *NilLiteral) TokenLiteral() string  { return n.Token.Lexeme }
func (n *NilLiteral) GetToken() token.Token { return n.Token }

// AssignExpression: name = value
type AssignExpression struct {
	Token token.Token // the name
	Name  *Identifier
	Value Expression
}

func (ae *AssignExpression) Accept(v Visitor)      { v.VisitAssignExpression(ae) }
func (ae *AssignExpression) expressionNode()       {}
func (ae *AssignExpression) TokenLiteral() string  { return ae.Token.Lexeme }
func (ae *AssignExpression) GetToken() token.Token { return ae.Token }

// BinaryExpression: left op right for arithmetic, comparison and equality.
type BinaryExpression struct {
	Token    token.Token // the operator
	Left     Expression
	Operator string
	Right    Expression
}

func (be *BinaryExpression) Accept(v Visitor)      { v.VisitBinaryExpression(be) }
func (be *BinaryExpression) expressionNode()       {}
func (be *BinaryExpression) TokenLiteral() string  { return be.Token.Lexeme }
func (be *BinaryExpression) GetToken() token.Token { return be.Token }

// LogicalExpression: left and/or right, short-circuiting.
type LogicalExpression struct {
	Token    token.Token
	Left     Expression
	Operator string
	Right    Expression
}

func (le *LogicalExpression) Accept(v Visitor)      { v.VisitLogicalExpression(le) }
func (le *LogicalExpression) expressionNode()       {}
func (le *LogicalExpression) TokenLiteral() string  { return le.Token.Lexeme }
func (le *LogicalExpression) GetToken() token.Token { return le.Token }

// PrefixExpression: !x, -x
type PrefixExpression struct {
	Token    token.Token
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) Accept(v Visitor)      { v.VisitPrefixExpression(pe) }
func (pe *PrefixExpression) expressionNode()       {}
func (pe *PrefixExpression) TokenLiteral() string  { return pe.Token.Lexeme }
func (pe *PrefixExpression) GetToken() token.Token { return pe.Token }

// CallExpression: callee(args). Token is the closing paren.
type CallExpression struct {
	Token     token.Token
	Callee    Expression
	Arguments []Expression
}

func (ce *CallExpression) Accept(v Visitor)      { v.VisitCallExpression(ce) }
func (ce *CallExpression) expressionNode()       {}
func (ce *CallExpression) TokenLiteral() string  { return ce.Token.Lexeme }
func (ce *CallExpression) GetToken() token.Token { return ce.Token }

// GetExpression: object.name
type GetExpression struct {
	Token  token.Token // the property name
	Object Expression
	Name   *Identifier
}

func (ge *GetExpression) Accept(v Visitor)      { v.VisitGetExpression(ge) }
func (ge *GetExpression) expressionNode()       {}
func (ge *GetExpression) TokenLiteral() string  { return ge.Token.Lexeme }
func (ge *GetExpression) GetToken() token.Token { return ge.Token }

// SetExpression: object.name = value
type SetExpression struct {
	Token  token.Token
	Object Expression
	Name   *Identifier
	Value  Expression
}

func (se *SetExpression) Accept(v Visitor)      { v.VisitSetExpression(se) }
func (se *SetExpression) expressionNode()       {}
func (se *SetExpression) TokenLiteral() string  { return se.Token.Lexeme }
func (se *SetExpression) GetToken() token.Token { return se.Token }

type GroupingExpression struct {
	Token      token.Token
	Expression Expression
}

func (ge *GroupingExpression) Accept(v Visitor)      { v.VisitGroupingExpression(ge) }
func (ge *GroupingExpression) expressionNode()       {}
func (ge *GroupingExpression) TokenLiteral() string  { return ge.Token.Lexeme }
func (ge *GroupingExpression) GetToken() token.Token { return ge.Token }

// SuperExpression: super.method
type SuperExpression struct {
	Token  token.Token // the 'super' keyword
	Method *Identifier
}

func (se *SuperExpression) Accept(v Visitor)      { v.VisitSuperExpression(se) }
func (se *SuperExpression) expressionNode()       {}
func (se *SuperExpression) TokenLiteral() string  { return se.Token.Lexeme }
func (se *SuperExpression) GetToken() token.Token { return se.Token }

type ThisExpression struct {
	Token token.Token
}

func (te *ThisExpression) Accept(v Visitor)      { v.VisitThisExpression(te) }
func (te *ThisExpression) expressionNode()       {}
func (te *ThisExpression) TokenLiteral() string  { return te.Token.Lexeme }
func (te *ThisExpression) GetToken() token.Token { return te.Token }
