package vm

import (
	"github.com/funvibe/loxvm/internal/token"
)

func (c *Compiler) beginScope() {
	c.scopeDepth++
}

// endScope pops every local declared in the closing scope, hoisting the
// captured ones into their upvalues.
func (c *Compiler) endScope(line int) {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].Depth > c.scopeDepth {
		if c.locals[len(c.locals)-1].IsCaptured {
			c.emit(OP_CLOSE_UPVALUE, line)
		} else {
			c.emit(OP_POP, line)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}

// addLocal reserves the next stack slot for name. The local stays
// uninitialized (depth -1) until markInitialized.
func (c *Compiler) addLocal(name token.Token) {
	if len(c.locals) == maxLocals {
		c.errorAt(name, "Too many local variables in function.")
		return
	}
	c.locals = append(c.locals, Local{Name: name.Lexeme, Depth: -1})
}

// declareVariable registers a local in the current block scope. Globals are
// late bound and need no declaration.
func (c *Compiler) declareVariable(name token.Token) {
	if c.scopeDepth == 0 {
		return
	}
	for i := len(c.locals) - 1; i >= 0; i-- {
		local := c.locals[i]
		if local.Depth != -1 && local.Depth < c.scopeDepth {
			break
		}
		if local.Name == name.Lexeme {
			c.errorAt(name, "Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) markInitialized() {
	if c.scopeDepth == 0 {
		return
	}
	c.locals[len(c.locals)-1].Depth = c.scopeDepth
}

// parseVariable declares name and returns the constant index of its global
// name, or 0 for a local.
func (c *Compiler) parseVariable(name token.Token) byte {
	c.declareVariable(name)
	if c.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(name)
}

func (c *Compiler) defineVariable(global byte, line int) {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitBytes(OP_DEFINE_GLOBAL, global, line)
}

// resolveLocal returns the slot of name, or -1 when it is not a local here.
func (c *Compiler) resolveLocal(name token.Token) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].Name == name.Lexeme {
			if c.locals[i].Depth == -1 {
				c.errorAt(name, "Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue finds name in an enclosing function and threads it through
// every function in between. Returns -1 when name is global.
func (c *Compiler) resolveUpvalue(name token.Token) int {
	if c.enclosing == nil {
		return -1
	}

	if local := c.enclosing.resolveLocal(name); local != -1 {
		c.enclosing.locals[local].IsCaptured = true
		return c.addUpvalue(uint8(local), true, name)
	}

	if upvalue := c.enclosing.resolveUpvalue(name); upvalue != -1 {
		return c.addUpvalue(uint8(upvalue), false, name)
	}

	return -1
}

func (c *Compiler) addUpvalue(index uint8, isLocal bool, name token.Token) int {
	for i, uv := range c.upvalues {
		if uv.Index == index && uv.IsLocal == isLocal {
			return i
		}
	}

	if len(c.upvalues) == maxUpvalues {
		c.errorAt(name, "Too many closure variables in function.")
		return 0
	}

	c.upvalues = append(c.upvalues, Upvalue{Index: index, IsLocal: isLocal})
	c.function.UpvalueCount = len(c.upvalues)
	return len(c.upvalues) - 1
}

// syntheticToken builds a token for a name the compiler introduces itself.
func syntheticToken(name string, line int) token.Token {
	return token.Token{Type: token.IDENT, Lexeme: name, Line: line}
}

// ===== Emission =====

func (c *Compiler) emit(op Opcode, line int) {
	c.currentChunk().WriteOp(op, line)
}

func (c *Compiler) emitByte(b byte, line int) {
	c.currentChunk().Write(b, line)
}

func (c *Compiler) emitBytes(op Opcode, operand byte, line int) {
	c.emit(op, line)
	c.emitByte(operand, line)
}

// emitReturn emits the implicit return: the receiver for initializers,
// nil otherwise.
func (c *Compiler) emitReturn(line int) {
	if c.funcType == TYPE_INITIALIZER {
		c.emitBytes(OP_GET_LOCAL, 0, line)
	} else {
		c.emit(OP_NIL, line)
	}
	c.emit(OP_RETURN, line)
}

// makeConstant adds v to the pool and reports overflow at tok.
func (c *Compiler) makeConstant(v Value, tok token.Token) byte {
	idx := c.currentChunk().AddConstant(v)
	if idx >= MaxConstants {
		c.errorAt(tok, "Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitConstant(v Value, tok token.Token) {
	c.emitBytes(OP_CONSTANT, c.makeConstant(v, tok), tok.Line)
}

func (c *Compiler) identifierConstant(name token.Token) byte {
	return c.makeConstant(ObjVal(c.state.heap.Intern(name.Lexeme)), name)
}

// emitJump emits a jump instruction with a placeholder offset
func (c *Compiler) emitJump(op Opcode, line int) int {
	c.emit(op, line)
	c.emitByte(0xff, line)
	c.emitByte(0xff, line)
	return c.currentChunk().Len() - 2
}

// patchJump patches a previously emitted jump to land on the current offset
func (c *Compiler) patchJump(offset int, tok token.Token) {
	jump := c.currentChunk().Len() - offset - 2
	if jump > maxJump {
		c.errorAt(tok, "Too much code to jump over.")
	}
	code := c.currentChunk().Code
	code[offset] = byte((jump >> 8) & 0xff)
	code[offset+1] = byte(jump & 0xff)
}

// emitLoop emits a backward jump to loopStart
func (c *Compiler) emitLoop(loopStart int, tok token.Token) {
	c.emit(OP_LOOP, tok.Line)
	offset := c.currentChunk().Len() - loopStart + 2
	if offset > maxJump {
		c.errorAt(tok, "Loop body too large.")
	}
	c.emitByte(byte((offset>>8)&0xff), tok.Line)
	c.emitByte(byte(offset&0xff), tok.Line)
}
