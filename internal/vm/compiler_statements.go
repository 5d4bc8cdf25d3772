package vm

import (
	"github.com/funvibe/loxvm/internal/ast"
	"github.com/funvibe/loxvm/internal/config"
)

func (c *Compiler) VisitProgram(node *ast.Program) {
	for _, stmt := range node.Statements {
		stmt.Accept(c)
	}
}

func (c *Compiler) VisitExpressionStatement(node *ast.ExpressionStatement) {
	node.Expression.Accept(c)
	c.emit(OP_POP, node.Token.Line)
}

func (c *Compiler) VisitPrintStatement(node *ast.PrintStatement) {
	node.Value.Accept(c)
	c.emit(OP_PRINT, node.Token.Line)
}

func (c *Compiler) VisitVarStatement(node *ast.VarStatement) {
	global := c.parseVariable(node.Name.Token)
	if node.Value != nil {
		node.Value.Accept(c)
	} else {
		c.emit(OP_NIL, node.Token.Line)
	}
	c.defineVariable(global, node.Token.Line)
}

func (c *Compiler) VisitBlockStatement(node *ast.BlockStatement) {
	c.beginScope()
	for _, stmt := range node.Statements {
		stmt.Accept(c)
	}
	c.endScope(lastLine(node.Statements, node.Token.Line))
}

func (c *Compiler) VisitIfStatement(node *ast.IfStatement) {
	line := node.Token.Line
	node.Condition.Accept(c)

	thenJump := c.emitJump(OP_JUMP_IF_FALSE, line)
	c.emit(OP_POP, line)
	node.Consequence.Accept(c)

	elseJump := c.emitJump(OP_JUMP, line)
	c.patchJump(thenJump, node.Token)
	c.emit(OP_POP, line)

	if node.Alternative != nil {
		node.Alternative.Accept(c)
	}
	c.patchJump(elseJump, node.Token)
}

func (c *Compiler) VisitWhileStatement(node *ast.WhileStatement) {
	line := node.Token.Line
	loopStart := c.currentChunk().Len()
	node.Condition.Accept(c)

	exitJump := c.emitJump(OP_JUMP_IF_FALSE, line)
	c.emit(OP_POP, line)
	node.Body.Accept(c)
	c.emitLoop(loopStart, node.Token)

	c.patchJump(exitJump, node.Token)
	c.emit(OP_POP, line)
}

func (c *Compiler) VisitReturnStatement(node *ast.ReturnStatement) {
	if c.funcType == TYPE_SCRIPT {
		c.errorAt(node.Token, "Can't return from top-level code.")
	}

	if node.Value == nil {
		c.emitReturn(node.Token.Line)
		return
	}

	if c.funcType == TYPE_INITIALIZER {
		c.errorAt(node.Token, "Can't return a value from an initializer.")
	}
	node.Value.Accept(c)
	c.emit(OP_RETURN, node.Token.Line)
}

func (c *Compiler) VisitFunctionStatement(node *ast.FunctionStatement) {
	global := c.parseVariable(node.Name.Token)
	// A function may refer to itself, so it is usable before its body ends.
	c.markInitialized()
	c.compileFunction(node, TYPE_FUNCTION)
	c.defineVariable(global, node.Token.Line)
}

// compileFunction compiles a function body in a nested compiler and emits the
// closure that wraps it.
func (c *Compiler) compileFunction(node *ast.FunctionStatement, funcType FunctionType) {
	sub := c.newFunctionCompiler(funcType, node.Name.Value)
	sub.beginScope()

	for _, param := range node.Parameters {
		sub.function.Arity++
		if sub.function.Arity > maxParams {
			sub.errorAt(param.Token, "Can't have more than 255 parameters.")
		}
		constant := sub.parseVariable(param.Token)
		sub.defineVariable(constant, param.Token.Line)
	}

	for _, stmt := range node.Body {
		stmt.Accept(sub)
	}

	// No endScope: OP_RETURN discards the whole frame.
	fn := sub.endCompiler(lastLine(node.Body, node.Token.Line))

	line := node.Token.Line
	c.emitBytes(OP_CLOSURE, c.makeConstant(ObjVal(fn), node.Token), line)
	for _, uv := range sub.upvalues {
		if uv.IsLocal {
			c.emitByte(1, line)
		} else {
			c.emitByte(0, line)
		}
		c.emitByte(uv.Index, line)
	}
}

func (c *Compiler) VisitClassStatement(node *ast.ClassStatement) {
	className := node.Name.Token
	line := node.Token.Line

	nameConstant := c.identifierConstant(className)
	c.declareVariable(className)

	c.emitBytes(OP_CLASS, nameConstant, line)
	c.defineVariable(nameConstant, line)

	class := &ClassCompiler{enclosing: c.state.currentClass}
	c.state.currentClass = class

	if node.Superclass != nil {
		superName := node.Superclass.Token
		c.namedVariable(superName, nil)
		if superName.Lexeme == className.Lexeme {
			c.errorAt(superName, "A class can't inherit from itself.")
		}

		// Methods reach the superclass through a local named super.
		c.beginScope()
		c.addLocal(syntheticToken(config.SuperName, superName.Line))
		c.defineVariable(0, line)

		c.namedVariable(className, nil)
		c.emit(OP_INHERIT, line)
		class.hasSuperclass = true
	}

	c.namedVariable(className, nil)
	for _, method := range node.Methods {
		c.method(method)
	}
	c.emit(OP_POP, line)

	if class.hasSuperclass {
		c.endScope(line)
	}
	c.state.currentClass = class.enclosing
}

// method compiles one method with the class already on top of the stack.
func (c *Compiler) method(node *ast.FunctionStatement) {
	constant := c.identifierConstant(node.Name.Token)
	funcType := TYPE_METHOD
	if node.Name.Value == config.InitString {
		funcType = TYPE_INITIALIZER
	}
	c.compileFunction(node, funcType)
	c.emitBytes(OP_METHOD, constant, node.Token.Line)
}

// lastLine is the line of the final statement, or fallback for an empty body.
func lastLine(stmts []ast.Statement, fallback int) int {
	if len(stmts) == 0 {
		return fallback
	}
	return stmts[len(stmts)-1].GetToken().Line
}
