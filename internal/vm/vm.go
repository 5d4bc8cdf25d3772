package vm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/funvibe/loxvm/internal/config"
	"github.com/funvibe/loxvm/internal/diagnostics"
	"github.com/funvibe/loxvm/internal/token"
)

var errStackOverflow = errors.New("stack overflow")

// ErrDebuggerQuit is returned by Interpret when the debugger asked to stop.
var ErrDebuggerQuit = errors.New("debugger quit")

// CallFrame represents a single ongoing function call
type CallFrame struct {
	closure *ObjClosure // The closure being executed
	ip      int         // Instruction pointer within closure.Function.Chunk
	base    int         // Stack slot of the callee; locals start here
}

func (f *CallFrame) chunk() *Chunk {
	return f.closure.Function.Chunk
}

// line is the source line of the instruction that was executing.
func (f *CallFrame) line() int {
	ip := f.ip - 1
	if ip < 0 {
		ip = 0
	}
	lines := f.chunk().Lines
	if ip >= len(lines) {
		return 0
	}
	return lines[ip]
}

// VM is the virtual machine that executes bytecode
type VM struct {
	ID uuid.UUID

	heap *Heap

	stack []Value
	sp    int // Stack pointer (points to next free slot)

	frames     []CallFrame
	frameCount int
	frame      *CallFrame

	globals map[*ObjString]Value

	// Linked list of open upvalues, sorted by stack location (highest first)
	openUpvalues *ObjUpvalue

	initString *ObjString

	out      io.Writer
	reporter diagnostics.Reporter
	debugger *Debugger

	trace bool
	log   *logrus.Entry

	startTime time.Time
}

// New creates a VM sharing heap with the compiler. The heap keeps the VM as
// a root source from here on.
func New(heap *Heap, cfg config.VMConfig) *VM {
	if cfg.FramesMax <= 0 {
		cfg.FramesMax = config.DefaultFramesMax
	}

	id := uuid.New()
	vm := &VM{
		ID:        id,
		heap:      heap,
		stack:     make([]Value, cfg.StackMax()),
		frames:    make([]CallFrame, cfg.FramesMax),
		globals:   make(map[*ObjString]Value),
		out:       os.Stdout,
		trace:     cfg.TraceExecution,
		log:       logrus.WithFields(logrus.Fields{"session": id.String(), "component": "vm"}),
		startTime: time.Now(),
	}
	heap.vm = vm

	vm.initString = heap.Intern(config.InitString)
	vm.defineNatives()
	return vm
}

// SetOutput redirects print statements.
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}

// SetReporter sets where runtime errors are reported, in addition to being
// returned from Interpret.
func (vm *VM) SetReporter(r diagnostics.Reporter) {
	vm.reporter = r
}

// SetLogger replaces the entry used for execution tracing.
func (vm *VM) SetLogger(entry *logrus.Entry) {
	vm.log = entry.WithField("component", "vm")
}

// Heap returns the heap the VM allocates from.
func (vm *VM) Heap() *Heap {
	return vm.heap
}

// GetDebugger returns the attached debugger, creating one on first use.
func (vm *VM) GetDebugger() *Debugger {
	if vm.debugger == nil {
		vm.debugger = NewDebugger()
	}
	return vm.debugger
}

func (vm *VM) EnableDebugger() {
	vm.GetDebugger().Enabled = true
}

func (vm *VM) DisableDebugger() {
	if vm.debugger != nil {
		vm.debugger.Enabled = false
	}
}

// Interpret runs a compiled script. Globals survive between calls, so a
// REPL can feed one script per line into the same VM.
func (vm *VM) Interpret(fn *ObjFunction) error {
	vm.resetStack()

	vm.push(ObjVal(fn))
	closure := vm.heap.NewClosure(fn)
	vm.pop()
	vm.push(ObjVal(closure))
	if err := vm.call(closure, 0); err != nil {
		return vm.fail(err)
	}

	if err := vm.run(); err != nil {
		return vm.fail(err)
	}
	vm.pop()
	return nil
}

// Call invokes a callable value from host code and returns its result. It
// is only valid between scripts, never from inside a native.
func (vm *VM) Call(callee Value, args ...Value) (Value, error) {
	if vm.frameCount != 0 {
		return NilVal(), errors.New("vm: Call while a script is running")
	}
	if len(args) > config.FrameSlots-1 {
		return NilVal(), fmt.Errorf("vm: too many arguments (%d)", len(args))
	}
	vm.resetStack()

	vm.push(callee)
	for _, a := range args {
		vm.push(a)
	}
	if err := vm.callValue(callee, len(args)); err != nil {
		return NilVal(), vm.fail(err)
	}
	if vm.frameCount > 0 {
		if err := vm.run(); err != nil {
			return NilVal(), vm.fail(err)
		}
	}
	return vm.pop(), nil
}

// Global returns the value bound to a global name.
func (vm *VM) Global(name string) (Value, bool) {
	key, ok := vm.heap.FindString(name)
	if !ok {
		return NilVal(), false
	}
	v, ok := vm.globals[key]
	return v, ok
}

// SetGlobal binds name to v, defining it if needed. Object values must
// belong to this VM's heap.
func (vm *VM) SetGlobal(name string, v Value) {
	if v.IsObj() {
		vm.heap.Protect(v.Obj)
	}
	key := vm.heap.Intern(name)
	vm.heap.Unprotect()
	vm.globals[key] = v
}

// GlobalNames lists every defined global in ascending order.
func (vm *VM) GlobalNames() []string {
	names := make([]string, 0, len(vm.globals))
	for k := range vm.globals {
		names = append(names, k.Chars)
	}
	sort.Strings(names)
	return names
}

// resetStack unwinds every frame. Upvalues still open over the stack are
// closed first so closures that escaped into globals keep their values.
func (vm *VM) resetStack() {
	vm.closeUpvalues(0)
	vm.sp = 0
	vm.frameCount = 0
	vm.frame = nil
	vm.openUpvalues = nil
}

func (vm *VM) markRoots() {
	h := vm.heap
	for i := 0; i < vm.sp; i++ {
		h.markValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		h.markObject(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.Next {
		h.markObject(uv)
	}
	for name, v := range vm.globals {
		h.markObject(name)
		h.markValue(v)
	}
	h.markString(vm.initString)
}

// Stack operations

func (vm *VM) push(v Value) {
	if vm.sp >= len(vm.stack) {
		panic(errStackOverflow)
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.sp-1-distance]
}

// Read helpers

func (vm *VM) readByte() byte {
	b := vm.frame.chunk().Code[vm.frame.ip]
	vm.frame.ip++
	return b
}

func (vm *VM) readShort() int {
	code := vm.frame.chunk().Code
	vm.frame.ip += 2
	return int(code[vm.frame.ip-2])<<8 | int(code[vm.frame.ip-1])
}

func (vm *VM) readConstant() Value {
	return vm.frame.chunk().Constants[vm.readByte()]
}

func (vm *VM) readString() *ObjString {
	return vm.readConstant().AsString()
}

// ===== Runtime errors =====

// TraceFrame is one line of a runtime stack trace.
type TraceFrame struct {
	Line     int
	Function string // empty for top-level code
}

func (f TraceFrame) String() string {
	if f.Function == "" {
		return fmt.Sprintf("[line %d] in %s", f.Line, config.ScriptName)
	}
	return fmt.Sprintf("[line %d] in %s()", f.Line, f.Function)
}

// RuntimeError aborts Interpret. Trace lists the active calls, innermost
// first.
type RuntimeError struct {
	Message string
	Trace   []TraceFrame
}

func (e *RuntimeError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	for _, f := range e.Trace {
		sb.WriteString("\n")
		sb.WriteString(f.String())
	}
	return sb.String()
}

// Line is the line of the instruction that failed.
func (e *RuntimeError) Line() int {
	if len(e.Trace) == 0 {
		return 0
	}
	return e.Trace[0].Line
}

// Diagnostic converts the error for a diagnostics.Reporter.
func (e *RuntimeError) Diagnostic() *diagnostics.DiagnosticError {
	d := diagnostics.NewError(diagnostics.ErrR001, token.Token{Line: e.Line()}, e.Message)
	for _, f := range e.Trace {
		d.Trace = append(d.Trace, f.String())
	}
	return d
}

func (vm *VM) runtimeError(format string, args ...interface{}) error {
	return &RuntimeError{Message: fmt.Sprintf(format, args...)}
}

// fail attaches the call stack to err, reports it and resets the VM.
func (vm *VM) fail(err error) error {
	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		vm.resetStack()
		return err
	}
	for i := vm.frameCount - 1; i >= 0; i-- {
		frame := &vm.frames[i]
		name := ""
		if fn := frame.closure.Function; fn.Name != nil {
			name = fn.Name.Chars
		}
		rerr.Trace = append(rerr.Trace, TraceFrame{Line: frame.line(), Function: name})
	}
	if vm.reporter != nil {
		vm.reporter.Report(rerr.Diagnostic())
	}
	vm.resetStack()
	return rerr
}
