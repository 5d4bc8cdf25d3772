package prettyprinter

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/funvibe/loxvm/internal/ast"
)

// --- Code Printer (Output looks like source code) ---

// CodePrinter reconstructs Lox source from a syntax tree. Grouping nodes keep
// their parentheses, so no precedence analysis is needed. `for` loops come
// back as the block/while form the parser desugars them into.
type CodePrinter struct {
	buf    bytes.Buffer
	indent int
}

func NewCodePrinter() *CodePrinter {
	return &CodePrinter{}
}

func (p *CodePrinter) String() string {
	return p.buf.String()
}

func (p *CodePrinter) write(s string) {
	p.buf.WriteString(s)
}

func (p *CodePrinter) writeIndent() {
	p.buf.WriteString(strings.Repeat("    ", p.indent))
}

func (p *CodePrinter) line(stmt ast.Statement) {
	p.writeIndent()
	stmt.Accept(p)
	p.write("\n")
}

func (p *CodePrinter) body(stmts []ast.Statement) {
	p.write("{\n")
	p.indent++
	for _, s := range stmts {
		p.line(s)
	}
	p.indent--
	p.writeIndent()
	p.write("}")
}

func (p *CodePrinter) VisitProgram(node *ast.Program) {
	for _, stmt := range node.Statements {
		p.line(stmt)
	}
}

func (p *CodePrinter) VisitBlockStatement(node *ast.BlockStatement) {
	p.body(node.Statements)
}

func (p *CodePrinter) VisitClassStatement(node *ast.ClassStatement) {
	p.write("class " + node.Name.Value)
	if node.Superclass != nil {
		p.write(" < " + node.Superclass.Value)
	}
	p.write(" {\n")
	p.indent++
	for _, m := range node.Methods {
		p.writeIndent()
		p.signature(m)
		p.write("\n")
	}
	p.indent--
	p.writeIndent()
	p.write("}")
}

func (p *CodePrinter) VisitExpressionStatement(node *ast.ExpressionStatement) {
	node.Expression.Accept(p)
	p.write(";")
}

func (p *CodePrinter) VisitFunctionStatement(node *ast.FunctionStatement) {
	p.write("fun ")
	p.signature(node)
}

func (p *CodePrinter) signature(node *ast.FunctionStatement) {
	params := make([]string, len(node.Parameters))
	for i, param := range node.Parameters {
		params[i] = param.Value
	}
	p.write(node.Name.Value + "(" + strings.Join(params, ", ") + ") ")
	p.body(node.Body)
}

func (p *CodePrinter) VisitIfStatement(node *ast.IfStatement) {
	p.write("if (")
	node.Condition.Accept(p)
	p.write(") ")
	node.Consequence.Accept(p)
	if node.Alternative != nil {
		p.write(" else ")
		node.Alternative.Accept(p)
	}
}

func (p *CodePrinter) VisitPrintStatement(node *ast.PrintStatement) {
	p.write("print ")
	node.Value.Accept(p)
	p.write(";")
}

func (p *CodePrinter) VisitReturnStatement(node *ast.ReturnStatement) {
	if node.Value == nil {
		p.write("return;")
		return
	}
	p.write("return ")
	node.Value.Accept(p)
	p.write(";")
}

func (p *CodePrinter) VisitVarStatement(node *ast.VarStatement) {
	p.write("var " + node.Name.Value)
	if node.Value != nil {
		p.write(" = ")
		node.Value.Accept(p)
	}
	p.write(";")
}

func (p *CodePrinter) VisitWhileStatement(node *ast.WhileStatement) {
	p.write("while (")
	node.Condition.Accept(p)
	p.write(") ")
	node.Body.Accept(p)
}

func (p *CodePrinter) VisitAssignExpression(node *ast.AssignExpression) {
	p.write(node.Name.Value + " = ")
	node.Value.Accept(p)
}

func (p *CodePrinter) VisitBinaryExpression(node *ast.BinaryExpression) {
	node.Left.Accept(p)
	p.write(" " + node.Operator + " ")
	node.Right.Accept(p)
}

func (p *CodePrinter) VisitCallExpression(node *ast.CallExpression) {
	node.Callee.Accept(p)
	p.write("(")
	for i, arg := range node.Arguments {
		if i > 0 {
			p.write(", ")
		}
		arg.Accept(p)
	}
	p.write(")")
}

func (p *CodePrinter) VisitGetExpression(node *ast.GetExpression) {
	node.Object.Accept(p)
	p.write("." + node.Name.Value)
}

func (p *CodePrinter) VisitGroupingExpression(node *ast.GroupingExpression) {
	p.write("(")
	node.Expression.Accept(p)
	p.write(")")
}

func (p *CodePrinter) VisitNumberLiteral(node *ast.NumberLiteral) {
	p.write(strconv.FormatFloat(node.Value, 'f', -1, 64))
}

func (p *CodePrinter) VisitStringLiteral(node *ast.StringLiteral) {
	p.write(`"` + node.Value + `"`)
}

func (p *CodePrinter) VisitBooleanLiteral(node *ast.BooleanLiteral) {
	p.write(strconv.FormatBool(node.Value))
}

func (p *CodePrinter) VisitNilLiteral(node *ast.NilLiteral) {
	p.write("nil")
}

func (p *CodePrinter) VisitLogicalExpression(node *ast.LogicalExpression) {
	node.Left.Accept(p)
	p.write(" " + node.Operator + " ")
	node.Right.Accept(p)
}

func (p *CodePrinter) VisitSetExpression(node *ast.SetExpression) {
	node.Object.Accept(p)
	p.write("." + node.Name.Value + " = ")
	node.Value.Accept(p)
}

func (p *CodePrinter) VisitSuperExpression(node *ast.SuperExpression) {
	p.write("super." + node.Method.Value)
}

func (p *CodePrinter) VisitThisExpression(node *ast.ThisExpression) {
	p.write("this")
}

func (p *CodePrinter) VisitPrefixExpression(node *ast.PrefixExpression) {
	p.write(node.Operator)
	node.Right.Accept(p)
}

func (p *CodePrinter) VisitIdentifier(node *ast.Identifier) {
	p.write(node.Value)
}
