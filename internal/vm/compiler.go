package vm

import (
	"github.com/sirupsen/logrus"

	"github.com/funvibe/loxvm/internal/ast"
	"github.com/funvibe/loxvm/internal/config"
	"github.com/funvibe/loxvm/internal/diagnostics"
	"github.com/funvibe/loxvm/internal/token"
)

const (
	maxLocals   = 256
	maxUpvalues = 256
	maxParams   = 255
	maxArgs     = 255
	maxJump     = 0xffff
)

// Local represents a local variable during compilation
type Local struct {
	Name       string
	Depth      int  // Scope depth, -1 while its initializer is compiling
	IsCaptured bool // True if captured by a nested function (needs to become upvalue)
}

// Upvalue represents a captured variable from an enclosing scope
type Upvalue struct {
	Index   uint8 // Index of the local/upvalue in enclosing scope
	IsLocal bool  // True if captures a local, false if captures another upvalue
}

// FunctionType distinguishes top-level code, plain functions and methods
type FunctionType int

const (
	TYPE_SCRIPT FunctionType = iota
	TYPE_FUNCTION
	TYPE_METHOD
	TYPE_INITIALIZER
)

// ClassCompiler tracks the innermost class body being compiled.
type ClassCompiler struct {
	enclosing     *ClassCompiler
	hasSuperclass bool
}

// compileState is shared by a compiler and all of its nested function compilers.
type compileState struct {
	heap         *Heap
	errors       *diagnostics.Collector
	reporter     diagnostics.Reporter
	currentClass *ClassCompiler
	logListing   bool
	log          *logrus.Entry
}

// Compiler compiles AST to bytecode. One Compiler exists per function being
// compiled; nested functions get a fresh one linked through enclosing.
type Compiler struct {
	state *compileState

	function *ObjFunction
	funcType FunctionType

	locals     []Local
	scopeDepth int

	upvalues []Upvalue

	enclosing *Compiler
}

// NewCompiler creates a compiler for top-level code. Errors are forwarded to
// reporter (which may be nil) as they are found.
func NewCompiler(heap *Heap, reporter diagnostics.Reporter) *Compiler {
	return &Compiler{
		state: &compileState{
			heap:     heap,
			reporter: reporter,
			log:      logrus.WithField("component", "compiler"),
		},
		funcType: TYPE_SCRIPT,
	}
}

// SetLogDisassembly enables logging the listing of every compiled function.
func (c *Compiler) SetLogDisassembly(on bool) {
	c.state.logListing = on
}

// SetLogger replaces the entry used for disassembly logging.
func (c *Compiler) SetLogger(entry *logrus.Entry) {
	c.state.log = entry.WithField("component", "compiler")
}

// CompileProgram compiles a parsed program.
func (c *Compiler) CompileProgram(program *ast.Program) (*ObjFunction, error) {
	return c.Compile(program.Statements)
}

// Compile lowers statements into the body of a new script function. The
// function is returned even when compilation fails; err is then a
// *multierror.Error listing every compile error and fn must not be run.
func (c *Compiler) Compile(stmts []ast.Statement) (fn *ObjFunction, err error) {
	heap := c.state.heap
	c.state.errors = diagnostics.NewCollector()
	c.state.currentClass = nil

	c.function = heap.NewFunction()
	c.locals = make([]Local, 0, maxLocals)
	c.locals = append(c.locals, Local{Name: "", Depth: 0})
	c.upvalues = nil
	c.scopeDepth = 0

	previous := heap.compiler
	heap.compiler = c
	defer func() { heap.compiler = previous }()

	for _, stmt := range stmts {
		stmt.Accept(c)
	}

	line := 1
	if n := len(stmts); n > 0 {
		line = stmts[n-1].GetToken().Line
	}
	fn = c.endCompiler(line)
	return fn, c.state.errors.Err()
}

// newFunctionCompiler starts compiling a nested function one level deeper.
func (c *Compiler) newFunctionCompiler(funcType FunctionType, name string) *Compiler {
	heap := c.state.heap
	sub := &Compiler{
		state:     c.state,
		funcType:  funcType,
		enclosing: c,
		locals:    make([]Local, 0, 8),
	}
	sub.function = heap.NewFunction()
	heap.compiler = sub
	sub.function.Name = heap.Intern(name)

	// Slot 0 holds the callee, or the receiver for methods.
	if funcType == TYPE_FUNCTION {
		sub.locals = append(sub.locals, Local{Name: "", Depth: 0})
	} else {
		sub.locals = append(sub.locals, Local{Name: config.ThisName, Depth: 0})
	}
	return sub
}

// endCompiler emits the implicit return and hands the root back to the
// enclosing compiler.
func (c *Compiler) endCompiler(line int) *ObjFunction {
	c.emitReturn(line)
	fn := c.function
	heap := c.state.heap
	heap.grow(fn, fn.Chunk.size())

	if c.state.logListing && !c.state.errors.HasErrors() {
		c.state.log.Debug("\n" + Disassemble(fn.Chunk, listingName(fn)))
	}

	heap.compiler = c.enclosing
	return fn
}

func (c *Compiler) currentChunk() *Chunk {
	return c.function.Chunk
}

// errorAt records a compile error and keeps going.
func (c *Compiler) errorAt(tok token.Token, msg string) {
	err := diagnostics.NewError(diagnostics.ErrC001, tok, msg)
	c.state.errors.Report(err)
	if c.state.reporter != nil {
		c.state.reporter.Report(err)
	}
}
