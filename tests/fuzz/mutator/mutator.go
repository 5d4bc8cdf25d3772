package mutator

import (
	"math/rand"

	"github.com/funvibe/loxvm/internal/ast"
	"github.com/funvibe/loxvm/internal/token"
)

// operatorGroups lists binary operators that share a precedence level.
// Swapping within a group keeps the printed source parsing to the same tree.
var operatorGroups = [][]string{
	{"+", "-"},
	{"*", "/"},
	{"<", "<=", ">", ">="},
	{"==", "!="},
}

// ASTMutator applies random mutations to an AST.
type ASTMutator struct {
	rnd *rand.Rand
}

// NewASTMutator creates a new ASTMutator with the given seed.
func NewASTMutator(seed int64) *ASTMutator {
	return &ASTMutator{
		rnd: rand.New(rand.NewSource(seed)),
	}
}

// Mutate applies a random mutation to the program.
// It modifies the AST in place.
func (m *ASTMutator) Mutate(program *ast.Program) {
	if len(program.Statements) == 0 {
		return
	}
	m.mutateStatements(&program.Statements)
}

func (m *ASTMutator) mutateStatements(stmts *[]ast.Statement) {
	if len(*stmts) == 0 {
		return
	}

	// Delete a random expression or print statement
	idx := m.rnd.Intn(len(*stmts))
	if m.rnd.Float32() < 0.1 {
		switch (*stmts)[idx].(type) {
		case *ast.ExpressionStatement, *ast.PrintStatement:
			*stmts = append((*stmts)[:idx], (*stmts)[idx+1:]...)
			return
		}
	}
	m.mutateStatement((*stmts)[idx])
}

func (m *ASTMutator) mutateStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		m.mutateExpression(s.Expression)
	case *ast.PrintStatement:
		m.mutateExpression(s.Value)
	case *ast.VarStatement:
		m.mutateExpression(s.Value)
	case *ast.ReturnStatement:
		m.mutateExpression(s.Value)
	case *ast.BlockStatement:
		m.mutateStatements(&s.Statements)
	case *ast.FunctionStatement:
		m.mutateStatements(&s.Body)
	case *ast.ClassStatement:
		if len(s.Methods) > 0 {
			m.mutateStatements(&s.Methods[m.rnd.Intn(len(s.Methods))].Body)
		}
	case *ast.IfStatement:
		switch m.rnd.Intn(3) {
		case 0:
			m.mutateExpression(s.Condition)
		case 1:
			m.mutateStatement(s.Consequence)
		default:
			if s.Alternative != nil {
				m.mutateStatement(s.Alternative)
			}
		}
	case *ast.WhileStatement:
		// Conditions are left alone so loops keep terminating.
		m.mutateStatement(s.Body)
	}
}

func (m *ASTMutator) mutateExpression(expr ast.Expression) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *ast.BinaryExpression:
		r := m.rnd.Float32()
		if r < 0.33 {
			m.swapOperator(e)
		} else if r < 0.66 {
			m.mutateExpression(e.Left)
		} else {
			m.mutateExpression(e.Right)
		}
	case *ast.LogicalExpression:
		if m.rnd.Float32() < 0.5 {
			m.mutateExpression(e.Left)
		} else {
			m.mutateExpression(e.Right)
		}
	case *ast.PrefixExpression:
		m.mutateExpression(e.Right)
	case *ast.GroupingExpression:
		m.mutateExpression(e.Expression)
	case *ast.NumberLiteral:
		// Stays non-negative so it prints as a literal, not a negation.
		e.Value += float64(m.rnd.Intn(11))
	case *ast.BooleanLiteral:
		e.Value = !e.Value
		if e.Value {
			e.Token.Type, e.Token.Lexeme = token.TRUE, "true"
		} else {
			e.Token.Type, e.Token.Lexeme = token.FALSE, "false"
		}
	case *ast.StringLiteral:
		if len(e.Value) > 0 {
			runes := []rune(e.Value)
			runes[m.rnd.Intn(len(runes))] = rune('a' + m.rnd.Intn(26))
			e.Value = string(runes)
		}
	case *ast.CallExpression:
		if len(e.Arguments) > 0 {
			m.mutateExpression(e.Arguments[m.rnd.Intn(len(e.Arguments))])
		}
	case *ast.AssignExpression:
		m.mutateExpression(e.Value)
	case *ast.SetExpression:
		m.mutateExpression(e.Value)
	}
}

// swapOperator replaces e's operator with another of the same precedence.
func (m *ASTMutator) swapOperator(e *ast.BinaryExpression) {
	for _, group := range operatorGroups {
		for _, op := range group {
			if op != e.Operator {
				continue
			}
			next := group[m.rnd.Intn(len(group))]
			e.Operator = next
			e.Token.Type = token.TokenType(next)
			e.Token.Lexeme = next
			return
		}
	}
}
