package vm

import (
	"github.com/funvibe/loxvm/internal/ast"
	"github.com/funvibe/loxvm/internal/config"
	"github.com/funvibe/loxvm/internal/token"
)

func (c *Compiler) VisitNumberLiteral(node *ast.NumberLiteral) {
	c.emitConstant(NumberVal(node.Value), node.Token)
}

func (c *Compiler) VisitStringLiteral(node *ast.StringLiteral) {
	c.emitConstant(ObjVal(c.state.heap.Intern(node.Value)), node.Token)
}

func (c *Compiler) VisitBooleanLiteral(node *ast.BooleanLiteral) {
	if node.Value {
		c.emit(OP_TRUE, node.Token.Line)
	} else {
		c.emit(OP_FALSE, node.Token.Line)
	}
}

func (c *Compiler) VisitNilLiteral(node *ast.NilLiteral) {
	c.emit(OP_NIL, node.Token.Line)
}

func (c *Compiler) VisitGroupingExpression(node *ast.GroupingExpression) {
	node.Expression.Accept(c)
}

func (c *Compiler) VisitIdentifier(node *ast.Identifier) {
	c.namedVariable(node.Token, nil)
}

func (c *Compiler) VisitAssignExpression(node *ast.AssignExpression) {
	c.namedVariable(node.Name.Token, node.Value)
}

// namedVariable loads name, or stores value into it when value is non-nil.
// Resolution goes local, then upvalue, then global.
func (c *Compiler) namedVariable(name token.Token, value ast.Expression) {
	var getOp, setOp Opcode
	var arg byte

	if slot := c.resolveLocal(name); slot != -1 {
		arg = byte(slot)
		getOp, setOp = OP_GET_LOCAL, OP_SET_LOCAL
	} else if idx := c.resolveUpvalue(name); idx != -1 {
		arg = byte(idx)
		getOp, setOp = OP_GET_UPVALUE, OP_SET_UPVALUE
	} else {
		arg = c.identifierConstant(name)
		getOp, setOp = OP_GET_GLOBAL, OP_SET_GLOBAL
	}

	if value != nil {
		value.Accept(c)
		c.emitBytes(setOp, arg, name.Line)
	} else {
		c.emitBytes(getOp, arg, name.Line)
	}
}

func (c *Compiler) VisitPrefixExpression(node *ast.PrefixExpression) {
	node.Right.Accept(c)
	switch node.Token.Type {
	case token.MINUS:
		c.emit(OP_NEGATE, node.Token.Line)
	case token.BANG:
		c.emit(OP_NOT, node.Token.Line)
	default:
		panic("compiler: unknown prefix operator " + node.Operator)
	}
}

func (c *Compiler) VisitBinaryExpression(node *ast.BinaryExpression) {
	node.Left.Accept(c)
	node.Right.Accept(c)

	line := node.Token.Line
	switch node.Token.Type {
	case token.NOT_EQ:
		c.emit(OP_EQUAL, line)
		c.emit(OP_NOT, line)
	case token.EQ:
		c.emit(OP_EQUAL, line)
	case token.GT:
		c.emit(OP_GREATER, line)
	case token.GT_EQ:
		c.emit(OP_LESS, line)
		c.emit(OP_NOT, line)
	case token.LT:
		c.emit(OP_LESS, line)
	case token.LT_EQ:
		c.emit(OP_GREATER, line)
		c.emit(OP_NOT, line)
	case token.PLUS:
		c.emit(OP_ADD, line)
	case token.MINUS:
		c.emit(OP_SUBTRACT, line)
	case token.ASTERISK:
		c.emit(OP_MULTIPLY, line)
	case token.SLASH:
		c.emit(OP_DIVIDE, line)
	default:
		panic("compiler: unknown binary operator " + node.Operator)
	}
}

func (c *Compiler) VisitLogicalExpression(node *ast.LogicalExpression) {
	line := node.Token.Line
	node.Left.Accept(c)

	if node.Token.Type == token.AND {
		endJump := c.emitJump(OP_JUMP_IF_FALSE, line)
		c.emit(OP_POP, line)
		node.Right.Accept(c)
		c.patchJump(endJump, node.Token)
		return
	}

	elseJump := c.emitJump(OP_JUMP_IF_FALSE, line)
	endJump := c.emitJump(OP_JUMP, line)
	c.patchJump(elseJump, node.Token)
	c.emit(OP_POP, line)
	node.Right.Accept(c)
	c.patchJump(endJump, node.Token)
}

func (c *Compiler) VisitCallExpression(node *ast.CallExpression) {
	line := node.Token.Line

	switch callee := node.Callee.(type) {
	case *ast.GetExpression:
		// obj.m(args) skips the bound method allocation.
		callee.Object.Accept(c)
		name := c.identifierConstant(callee.Name.Token)
		argCount := c.argumentList(node.Arguments)
		c.emitBytes(OP_INVOKE, name, line)
		c.emitByte(argCount, line)
		return
	case *ast.SuperExpression:
		if !c.checkSuper(callee.Token) {
			return
		}
		name := c.identifierConstant(callee.Method.Token)
		c.namedVariable(syntheticToken(config.ThisName, callee.Token.Line), nil)
		argCount := c.argumentList(node.Arguments)
		c.namedVariable(syntheticToken(config.SuperName, callee.Token.Line), nil)
		c.emitBytes(OP_SUPER_INVOKE, name, line)
		c.emitByte(argCount, line)
		return
	}

	node.Callee.Accept(c)
	argCount := c.argumentList(node.Arguments)
	c.emitBytes(OP_CALL, argCount, line)
}

func (c *Compiler) argumentList(args []ast.Expression) byte {
	for i, arg := range args {
		arg.Accept(c)
		if i == maxArgs {
			c.errorAt(arg.GetToken(), "Can't have more than 255 arguments.")
		}
	}
	return byte(len(args))
}

func (c *Compiler) VisitGetExpression(node *ast.GetExpression) {
	node.Object.Accept(c)
	name := c.identifierConstant(node.Name.Token)
	c.emitBytes(OP_GET_PROPERTY, name, node.Token.Line)
}

func (c *Compiler) VisitSetExpression(node *ast.SetExpression) {
	node.Object.Accept(c)
	name := c.identifierConstant(node.Name.Token)
	node.Value.Accept(c)
	c.emitBytes(OP_SET_PROPERTY, name, node.Token.Line)
}

func (c *Compiler) VisitThisExpression(node *ast.ThisExpression) {
	if c.state.currentClass == nil {
		c.errorAt(node.Token, "Can't use 'this' outside of a class.")
		return
	}
	c.namedVariable(node.Token, nil)
}

func (c *Compiler) VisitSuperExpression(node *ast.SuperExpression) {
	if !c.checkSuper(node.Token) {
		return
	}
	name := c.identifierConstant(node.Method.Token)
	c.namedVariable(syntheticToken(config.ThisName, node.Token.Line), nil)
	c.namedVariable(syntheticToken(config.SuperName, node.Token.Line), nil)
	c.emitBytes(OP_GET_SUPER, name, node.Token.Line)
}

// checkSuper reports a misplaced super and returns whether it is usable.
func (c *Compiler) checkSuper(tok token.Token) bool {
	if c.state.currentClass == nil {
		c.errorAt(tok, "Can't use 'super' outside of a class.")
		return false
	}
	if !c.state.currentClass.hasSuperclass {
		c.errorAt(tok, "Can't use 'super' in a class with no superclass.")
		return false
	}
	return true
}
