package prettyprinter

import (
	"bytes"
	"strconv"

	"github.com/funvibe/loxvm/internal/ast"
)

// --- Tree Printer (Output is a parenthesized S-expression per statement) ---

type TreePrinter struct {
	buf bytes.Buffer
}

func NewTreePrinter() *TreePrinter {
	return &TreePrinter{}
}

func (p *TreePrinter) String() string {
	return p.buf.String()
}

// Print renders a single node and returns it without touching the buffer.
func Print(node ast.Node) string {
	tp := NewTreePrinter()
	node.Accept(tp)
	return tp.String()
}

func (p *TreePrinter) write(s string) {
	p.buf.WriteString(s)
}

func (p *TreePrinter) parenthesize(name string, parts ...ast.Node) {
	p.write("(" + name)
	for _, part := range parts {
		p.write(" ")
		if part == nil {
			p.write("nil")
			continue
		}
		part.Accept(p)
	}
	p.write(")")
}

func (p *TreePrinter) VisitProgram(node *ast.Program) {
	for _, stmt := range node.Statements {
		stmt.Accept(p)
		p.write("\n")
	}
}

func (p *TreePrinter) VisitBlockStatement(node *ast.BlockStatement) {
	p.parenthesize("block", statementNodes(node.Statements)...)
}

func (p *TreePrinter) VisitClassStatement(node *ast.ClassStatement) {
	p.write("(class " + node.Name.Value)
	if node.Superclass != nil {
		p.write(" < " + node.Superclass.Value)
	}
	for _, m := range node.Methods {
		p.write(" ")
		m.Accept(p)
	}
	p.write(")")
}

func (p *TreePrinter) VisitExpressionStatement(node *ast.ExpressionStatement) {
	p.parenthesize(";", node.Expression)
}

func (p *TreePrinter) VisitFunctionStatement(node *ast.FunctionStatement) {
	p.write("(fun " + node.Name.Value + "(")
	for i, param := range node.Parameters {
		if i > 0 {
			p.write(" ")
		}
		p.write(param.Value)
	}
	p.write(")")
	for _, stmt := range node.Body {
		p.write(" ")
		stmt.Accept(p)
	}
	p.write(")")
}

func (p *TreePrinter) VisitIfStatement(node *ast.IfStatement) {
	if node.Alternative == nil {
		p.parenthesize("if", node.Condition, node.Consequence)
		return
	}
	p.parenthesize("if-else", node.Condition, node.Consequence, node.Alternative)
}

func (p *TreePrinter) VisitPrintStatement(node *ast.PrintStatement) {
	p.parenthesize("print", node.Value)
}

func (p *TreePrinter) VisitReturnStatement(node *ast.ReturnStatement) {
	if node.Value == nil {
		p.write("(return)")
		return
	}
	p.parenthesize("return", node.Value)
}

func (p *TreePrinter) VisitVarStatement(node *ast.VarStatement) {
	if node.Value == nil {
		p.write("(var " + node.Name.Value + ")")
		return
	}
	p.write("(var " + node.Name.Value + " ")
	node.Value.Accept(p)
	p.write(")")
}

func (p *TreePrinter) VisitWhileStatement(node *ast.WhileStatement) {
	p.parenthesize("while", node.Condition, node.Body)
}

func (p *TreePrinter) VisitAssignExpression(node *ast.AssignExpression) {
	p.write("(= " + node.Name.Value + " ")
	node.Value.Accept(p)
	p.write(")")
}

func (p *TreePrinter) VisitBinaryExpression(node *ast.BinaryExpression) {
	p.parenthesize(node.Operator, node.Left, node.Right)
}

func (p *TreePrinter) VisitCallExpression(node *ast.CallExpression) {
	parts := []ast.Node{node.Callee}
	for _, arg := range node.Arguments {
		parts = append(parts, arg)
	}
	p.parenthesize("call", parts...)
}

func (p *TreePrinter) VisitGetExpression(node *ast.GetExpression) {
	p.write("(. ")
	node.Object.Accept(p)
	p.write(" " + node.Name.Value + ")")
}

func (p *TreePrinter) VisitGroupingExpression(node *ast.GroupingExpression) {
	p.parenthesize("group", node.Expression)
}

func (p *TreePrinter) VisitNumberLiteral(node *ast.NumberLiteral) {
	p.write(strconv.FormatFloat(node.Value, 'g', -1, 64))
}

func (p *TreePrinter) VisitStringLiteral(node *ast.StringLiteral) {
	p.write(strconv.Quote(node.Value))
}

func (p *TreePrinter) VisitBooleanLiteral(node *ast.BooleanLiteral) {
	p.write(strconv.FormatBool(node.Value))
}

func (p *TreePrinter) VisitNilLiteral(node *ast.NilLiteral) {
	p.write("nil")
}

func (p *TreePrinter) VisitLogicalExpression(node *ast.LogicalExpression) {
	p.parenthesize(node.Operator, node.Left, node.Right)
}

func (p *TreePrinter) VisitSetExpression(node *ast.SetExpression) {
	p.write("(=. ")
	node.Object.Accept(p)
	p.write(" " + node.Name.Value + " ")
	node.Value.Accept(p)
	p.write(")")
}

func (p *TreePrinter) VisitSuperExpression(node *ast.SuperExpression) {
	p.write("(super " + node.Method.Value + ")")
}

func (p *TreePrinter) VisitThisExpression(node *ast.ThisExpression) {
	p.write("this")
}

func (p *TreePrinter) VisitPrefixExpression(node *ast.PrefixExpression) {
	p.parenthesize(node.Operator, node.Right)
}

func (p *TreePrinter) VisitIdentifier(node *ast.Identifier) {
	p.write(node.Value)
}

func statementNodes(stmts []ast.Statement) []ast.Node {
	nodes := make([]ast.Node, len(stmts))
	for i, s := range stmts {
		nodes[i] = s
	}
	return nodes
}
