package ast

import "github.com/funvibe/loxvm/internal/token"

// BlockStatement: { statements }
type BlockStatement struct {
	Token      token.Token // the '{'
	Statements []Statement
}

func (bs *BlockStatement) Accept(v Visitor)      { v.VisitBlockStatement(bs) }
func (bs *BlockStatement) statementNode()        {}
func (bs *BlockStatement) TokenLiteral() string  { return bs.Token.Lexeme }
func (bs *BlockStatement) GetToken() token.Token { return bs.Token }

// ClassStatement: class Name < Super { methods }
type ClassStatement struct {
	Token      token.Token // the 'class' keyword
	Name       *Identifier
	Superclass *Identifier // nil without '<'
	Methods    []*FunctionStatement
}

func (cs *ClassStatement) Accept(v Visitor)      { v.VisitClassStatement(cs) }
func (cs *ClassStatement) statementNode()        {}
func (cs *ClassStatement) TokenLiteral() string  { return cs.Token.Lexeme }
func (cs *ClassStatement) GetToken() token.Token { return cs.Token }

type ExpressionStatement struct {
	Token      token.Token
	Expression Expression
}

func (es *ExpressionStatement) Accept(v Visitor)      { v.VisitExpressionStatement(es) }
func (es *ExpressionStatement) statementNode()        {}
func (es *ExpressionStatement) TokenLiteral() string  { return es.Token.Lexeme }
func (es *ExpressionStatement) GetToken() token.Token { return es.Token }

// FunctionStatement is both `fun name(params) { body }` and a class method.
type FunctionStatement struct {
	Token      token.Token // the name
	Name       *Identifier
	Parameters []*Identifier
	Body       []Statement
}

func (fs *FunctionStatement) Accept(v Visitor)      { v.VisitFunctionStatement(fs) }
func (fs *FunctionStatement) statementNode()        {}
func (fs *FunctionStatement) TokenLiteral() string  { return fs.Token.Lexeme }
func (fs *FunctionStatement) GetToken() token.Token { return fs.Token }

type IfStatement struct {
	Token       token.Token
	Condition   Expression
	Consequence Statement
	Alternative Statement // nil without else
}

func (is *IfStatement) Accept(v Visitor)      { v.VisitIfStatement(is) }
func (is *IfStatement) statementNode()        {}
func (is *IfStatement) TokenLiteral() string  { return is.Token.Lexeme }
func (is *IfStatement) GetToken() token.Token { return is.Token }

type PrintStatement struct {
	Token token.Token
	Value Expression
}

func (ps *PrintStatement) Accept(v Visitor)      { v.VisitPrintStatement(ps) }
func (ps *PrintStatement) statementNode()        {}
func (ps *PrintStatement) TokenLiteral() string  { return ps.Token.Lexeme }
func (ps *PrintStatement) GetToken() token.Token { return ps.Token }

type ReturnStatement struct {
	Token token.Token // the 'return' keyword
	Value Expression  // nil for a bare return
}

func (rs *ReturnStatement) Accept(v Visitor)      { v.VisitReturnStatement(rs) }
func (rs *ReturnStatement) statementNode()        {}
func (rs *ReturnStatement) TokenLiteral() string  { return rs.Token.Lexeme }
func (rs *ReturnStatement) GetToken() token.Token { return rs.Token }

// VarStatement: var name = value;
type VarStatement struct {
	Token token.Token // the name
	Name  *Identifier
	Value Expression // nil when uninitialized
}

func (vs *VarStatement) Accept(v Visitor)      { v.VisitVarStatement(vs) }
func (vs *VarStatement) statementNode()        {}
func (vs *VarStatement) TokenLiteral() string  { return vs.Token.Lexeme }
func (vs *VarStatement) GetToken() token.Token { return vs.Token }

type WhileStatement struct {
	Token     token.Token
	Condition Expression
	Body      Statement
}

func (ws *WhileStatement) Accept(v Visitor)      { v.VisitWhileStatement(ws) }
func (ws *WhileStatement) statementNode()        {}
func (ws *WhileStatement) TokenLiteral() string  { return ws.Token.Lexeme }
func (ws *WhileStatement) GetToken() token.Token { return ws.Token }
