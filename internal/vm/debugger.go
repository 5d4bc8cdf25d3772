package vm

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// DebuggerMode represents the current debugging mode
type DebuggerMode int

const (
	// ModeRun - stop only at breakpoints
	ModeRun DebuggerMode = iota
	// ModeStep - stop at every new line
	ModeStep
	// ModeStepOver - step over function calls
	ModeStepOver
	// ModeStepOut - step out of current function
	ModeStepOut
	// ModeContinue - continue until next breakpoint
	ModeContinue
)

func (m DebuggerMode) String() string {
	switch m {
	case ModeRun:
		return "run"
	case ModeStep:
		return "step"
	case ModeStepOver:
		return "next"
	case ModeStepOut:
		return "finish"
	case ModeContinue:
		return "continue"
	default:
		return fmt.Sprintf("DebuggerMode(%d)", int(m))
	}
}

// Debugger pauses the VM before an instruction and hands control to OnStop.
// Lox programs are a single source, so breakpoints are keyed by line.
type Debugger struct {
	Enabled bool

	mode DebuggerMode

	breakpoints map[int]bool

	// Frame depth and line when a step over / step out started
	stepOverFrameDepth int
	stepOverLine       int
	stepOutFrameDepth  int

	Output io.Writer

	// OnStop is called synchronously; the instruction runs once it returns.
	OnStop func(*Debugger, *VM)

	// Last stopped line, so one line is not stopped at once per instruction
	lastLine  int
	lastDepth int

	quit bool
}

func NewDebugger() *Debugger {
	return &Debugger{
		mode:        ModeRun,
		breakpoints: make(map[int]bool),
	}
}

func (d *Debugger) Mode() DebuggerMode {
	return d.mode
}

// SetBreakpoint sets a breakpoint at the given line
func (d *Debugger) SetBreakpoint(line int) {
	d.breakpoints[line] = true
}

// RemoveBreakpoint removes a breakpoint at the given line
func (d *Debugger) RemoveBreakpoint(line int) {
	delete(d.breakpoints, line)
}

// ClearBreakpoints removes all breakpoints
func (d *Debugger) ClearBreakpoints() {
	d.breakpoints = make(map[int]bool)
}

// Breakpoints returns every breakpoint line in ascending order
func (d *Debugger) Breakpoints() []int {
	lines := make([]int, 0, len(d.breakpoints))
	for line := range d.breakpoints {
		lines = append(lines, line)
	}
	sort.Ints(lines)
	return lines
}

// ShouldBreak checks if execution should break before the next instruction
func (d *Debugger) ShouldBreak(vm *VM) bool {
	if !d.Enabled || vm.frame == nil {
		return false
	}

	line := vm.currentLine()
	if line == 0 {
		return false
	}
	depth := vm.frameCount
	sameSpot := d.lastLine == line && d.lastDepth == depth

	stop := false
	switch d.mode {
	case ModeStep:
		stop = !sameSpot

	case ModeStepOver:
		if depth < d.stepOverFrameDepth ||
			(depth == d.stepOverFrameDepth && line != d.stepOverLine) {
			stop = true
		}

	case ModeStepOut:
		stop = depth < d.stepOutFrameDepth

	case ModeRun, ModeContinue:
		stop = d.breakpoints[line] && !sameSpot
	}

	if stop {
		if d.mode == ModeStepOver || d.mode == ModeStepOut {
			d.mode = ModeContinue
		}
		d.lastLine = line
		d.lastDepth = depth
		return true
	}
	// Leaving the last stopped line re-arms its breakpoint.
	if !sameSpot && d.lastLine != 0 && d.lastLine != line {
		d.lastLine = 0
		d.lastDepth = 0
	}
	return false
}

// Step sets debugger to step mode
func (d *Debugger) Step() {
	d.mode = ModeStep
	d.stepOverFrameDepth = 0
	d.stepOutFrameDepth = 0
}

// StepOver stops at the next line in this frame or a caller.
func (d *Debugger) StepOver(vm *VM) {
	d.mode = ModeStepOver
	d.stepOverFrameDepth = vm.frameCount
	d.stepOverLine = vm.currentLine()
	d.stepOutFrameDepth = 0
}

// StepOut stops once the current function returns.
func (d *Debugger) StepOut(vm *VM) {
	d.mode = ModeStepOut
	d.stepOutFrameDepth = vm.frameCount
	d.stepOverFrameDepth = 0
}

// Continue sets debugger to continue mode (run until breakpoint)
func (d *Debugger) Continue() {
	d.mode = ModeContinue
	d.stepOverFrameDepth = 0
	d.stepOutFrameDepth = 0
}

// Run sets debugger to run mode
func (d *Debugger) Run() {
	d.mode = ModeRun
	d.stepOverFrameDepth = 0
	d.stepOutFrameDepth = 0
}

// Quit makes Interpret return ErrDebuggerQuit after OnStop returns.
func (d *Debugger) Quit() {
	d.quit = true
}

// currentLine is the line of the instruction about to execute.
func (vm *VM) currentLine() int {
	if vm.frame == nil {
		return 0
	}
	lines := vm.frame.chunk().Lines
	if vm.frame.ip >= len(lines) {
		return 0
	}
	return lines[vm.frame.ip]
}

// Location returns the current line and function name
func (d *Debugger) Location(vm *VM) (line int, function string) {
	if vm.frame == nil {
		return 0, ""
	}
	return vm.currentLine(), vm.frame.closure.Function.DisplayName()
}

// CallFrameInfo represents information about a call frame
type CallFrameInfo struct {
	Index        int
	FunctionName string
	Line         int
}

// CallStack returns the active frames, innermost first
func (d *Debugger) CallStack(vm *VM) []CallFrameInfo {
	var stack []CallFrameInfo
	for i := vm.frameCount - 1; i >= 0; i-- {
		frame := &vm.frames[i]
		info := CallFrameInfo{
			Index:        i,
			FunctionName: frame.closure.Function.DisplayName(),
		}
		// The top frame is about to run ip; callers wait just past their call.
		if i == vm.frameCount-1 {
			info.Line = vm.currentLine()
		} else {
			info.Line = frame.line()
		}
		stack = append(stack, info)
	}
	return stack
}

// Globals returns every global rendered as it would print
func (d *Debugger) Globals(vm *VM) map[string]string {
	globals := make(map[string]string, len(vm.globals))
	for name, v := range vm.globals {
		if _, native := v.Obj.(*ObjNative); native {
			continue
		}
		globals[name.Chars] = v.String()
	}
	return globals
}

// Locals returns the current frame's slots, slot 0 first
func (d *Debugger) Locals(vm *VM) []string {
	if vm.frame == nil {
		return nil
	}
	var locals []string
	for i := vm.frame.base; i < vm.sp; i++ {
		locals = append(locals, vm.stack[i].String())
	}
	return locals
}

// Stack returns the value stack, bottom first
func (d *Debugger) Stack(vm *VM) []string {
	stack := make([]string, vm.sp)
	for i := 0; i < vm.sp; i++ {
		stack[i] = vm.stack[i].String()
	}
	return stack
}

// PrintLocation prints the current location
func (d *Debugger) PrintLocation(vm *VM) {
	line, fn := d.Location(vm)
	fmt.Fprintf(d.Output, "Stopped at line %d in %s\n", line, fn)
}

// PrintCallStack prints the call stack
func (d *Debugger) PrintCallStack(vm *VM) {
	fmt.Fprintf(d.Output, "Call stack:\n")
	for i, frame := range d.CallStack(vm) {
		indent := strings.Repeat("  ", i)
		fmt.Fprintf(d.Output, "%s%d. %s at line %d\n", indent, i+1, frame.FunctionName, frame.Line)
	}
}

// PrintLocals prints the current frame's slots
func (d *Debugger) PrintLocals(vm *VM) {
	locals := d.Locals(vm)
	if len(locals) == 0 {
		fmt.Fprintf(d.Output, "No local variables in current scope.\n")
		return
	}
	fmt.Fprintf(d.Output, "Local slots:\n")
	for i, v := range locals {
		fmt.Fprintf(d.Output, "  [%d] %s\n", i, v)
	}
}

// PrintGlobals prints global variables
func (d *Debugger) PrintGlobals(vm *VM) {
	globals := d.Globals(vm)
	if len(globals) == 0 {
		fmt.Fprintf(d.Output, "No user-defined global variables.\n")
		return
	}
	fmt.Fprintf(d.Output, "Global variables:\n")
	for _, name := range vm.GlobalNames() {
		if v, ok := globals[name]; ok {
			fmt.Fprintf(d.Output, "  %s = %s\n", name, v)
		}
	}
}

// PrintStack prints the stack
func (d *Debugger) PrintStack(vm *VM) {
	stack := d.Stack(vm)
	fmt.Fprintf(d.Output, "Stack (top to bottom):\n")
	for i := len(stack) - 1; i >= 0; i-- {
		fmt.Fprintf(d.Output, "  [%d] %s\n", i, stack[i])
	}
}
