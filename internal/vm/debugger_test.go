package vm

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

type stop struct {
	line  int
	depth int
}

// runDebugged runs source with the debugger enabled. setup may set
// breakpoints and the starting mode; onStop drives each stop.
func runDebugged(t *testing.T, source string, setup func(*Debugger), onStop func(*Debugger, *VM)) ([]stop, string, error) {
	t.Helper()
	machine, out := newTestVM(testConfig())
	fn, err := compileOn(t, machine, source)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	machine.EnableDebugger()
	d := machine.GetDebugger()
	d.Output = &bytes.Buffer{}
	var stops []stop
	d.OnStop = func(d *Debugger, vm *VM) {
		line, _ := d.Location(vm)
		stops = append(stops, stop{line, len(d.CallStack(vm))})
		if onStop != nil {
			onStop(d, vm)
		}
	}
	if setup != nil {
		setup(d)
	}

	err = machine.Interpret(fn)
	return stops, out.String(), err
}

const callProgram = `fun f() {
  return 1;
}
var a = f();
print a;`

func TestDebuggerBreakpoints(t *testing.T) {
	source := "var x = 10;\nvar y = 20;\nvar result = x + y;\nprint result;"

	var seen map[string]string
	stops, out, err := runDebugged(t, source,
		func(d *Debugger) { d.SetBreakpoint(3) },
		func(d *Debugger, vm *VM) { seen = d.Globals(vm) },
	)
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if !reflect.DeepEqual(stops, []stop{{3, 1}}) {
		t.Errorf("Expected one stop at line 3, got %v", stops)
	}
	if seen["x"] != "10" || seen["y"] != "20" {
		t.Errorf("Expected x and y defined at the breakpoint, got %v", seen)
	}
	if _, ok := seen["result"]; ok {
		t.Error("Expected result to be undefined before line 3 runs")
	}
	if _, ok := seen["clock"]; ok {
		t.Error("Expected natives to be hidden")
	}
	if out != "30\n" {
		t.Errorf("Expected program output 30, got %q", out)
	}
}

func TestDebuggerBreakpointList(t *testing.T) {
	d := NewDebugger()
	d.SetBreakpoint(7)
	d.SetBreakpoint(2)
	d.SetBreakpoint(5)
	d.RemoveBreakpoint(5)
	if got := d.Breakpoints(); !reflect.DeepEqual(got, []int{2, 7}) {
		t.Errorf("Expected [2 7], got %v", got)
	}
	d.ClearBreakpoints()
	if got := d.Breakpoints(); len(got) != 0 {
		t.Errorf("Expected no breakpoints, got %v", got)
	}
}

func TestDebuggerStepping(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*Debugger)
		onStop   func(*Debugger, *VM)
		expected []stop
	}{
		{
			name:     "step",
			setup:    func(d *Debugger) { d.Step() },
			onStop:   func(d *Debugger, vm *VM) { d.Step() },
			expected: []stop{{1, 1}, {4, 1}, {2, 2}, {4, 1}, {5, 1}},
		},
		{
			name:  "step over",
			setup: func(d *Debugger) { d.Step() },
			onStop: func(d *Debugger, vm *VM) {
				if line, _ := d.Location(vm); line == 4 {
					d.StepOver(vm)
					return
				}
				d.Step()
			},
			expected: []stop{{1, 1}, {4, 1}, {5, 1}},
		},
		{
			name:  "step out",
			setup: func(d *Debugger) { d.SetBreakpoint(2) },
			onStop: func(d *Debugger, vm *VM) {
				if line, _ := d.Location(vm); line == 2 {
					d.StepOut(vm)
					return
				}
				d.Continue()
			},
			expected: []stop{{2, 2}, {4, 1}},
		},
		{
			name:     "continue",
			setup:    func(d *Debugger) { d.Step() },
			onStop:   func(d *Debugger, vm *VM) { d.Continue() },
			expected: []stop{{1, 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stops, out, err := runDebugged(t, callProgram, tt.setup, tt.onStop)
			if err != nil {
				t.Fatalf("interpret: %v", err)
			}
			if !reflect.DeepEqual(stops, tt.expected) {
				t.Errorf("Expected stops %v, got %v", tt.expected, stops)
			}
			if out != "1\n" {
				t.Errorf("Expected output 1, got %q", out)
			}
		})
	}
}

func TestDebuggerQuit(t *testing.T) {
	machine, out := newTestVM(testConfig())
	fn, err := compileOn(t, machine, "print 1;\nprint 2;")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	machine.EnableDebugger()
	d := machine.GetDebugger()
	d.Step()
	d.OnStop = func(d *Debugger, vm *VM) {
		if line, _ := d.Location(vm); line == 2 {
			d.Quit()
			return
		}
		d.Step()
	}

	if err := machine.Interpret(fn); !errors.Is(err, ErrDebuggerQuit) {
		t.Fatalf("Expected ErrDebuggerQuit, got %v", err)
	}
	if out.String() != "1\n" {
		t.Errorf("Expected only the first line to run, got %q", out.String())
	}

	// Quitting once does not poison the next run.
	machine.DisableDebugger()
	if err := machine.Interpret(fn); err != nil {
		t.Fatalf("interpret after quit: %v", err)
	}
	if out.String() != "1\n1\n2\n" {
		t.Errorf("Unexpected output %q", out.String())
	}
}

func TestDebuggerInspection(t *testing.T) {
	source := `var g = "global";
fun f(a) {
  var local = a + 1;
  return local;
}
print f(41);`

	var (
		callStack []CallFrameInfo
		locals    []string
		stack     []string
	)
	_, _, err := runDebugged(t, source,
		func(d *Debugger) { d.SetBreakpoint(4) },
		func(d *Debugger, vm *VM) {
			callStack = d.CallStack(vm)
			locals = d.Locals(vm)
			stack = d.Stack(vm)
		},
	)
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}

	if len(callStack) != 2 {
		t.Fatalf("Expected 2 frames, got %v", callStack)
	}
	if callStack[0].FunctionName != "f()" || callStack[0].Line != 4 {
		t.Errorf("Expected f() at line 4, got %+v", callStack[0])
	}
	if callStack[1].FunctionName != "script" || callStack[1].Line != 6 {
		t.Errorf("Expected script at line 6, got %+v", callStack[1])
	}
	if !reflect.DeepEqual(locals, []string{"<fn f>", "41", "42"}) {
		t.Errorf("Unexpected locals %v", locals)
	}
	if !reflect.DeepEqual(stack, []string{"<script>", "<fn f>", "41", "42"}) {
		t.Errorf("Unexpected stack %v", stack)
	}
}

func TestDebuggerPrinting(t *testing.T) {
	var output bytes.Buffer
	_, _, err := runDebugged(t, callProgram,
		func(d *Debugger) { d.SetBreakpoint(2) },
		func(d *Debugger, vm *VM) {
			d.Output = &output
			d.PrintLocation(vm)
			d.PrintCallStack(vm)
			d.PrintLocals(vm)
			d.PrintGlobals(vm)
			d.PrintStack(vm)
		},
	)
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	for _, want := range []string{
		"Stopped at line 2 in f()",
		"1. f() at line 2",
		"  2. script at line 4",
		"Local slots:\n  [0] <fn f>",
		"Global variables:\n  f = <fn f>",
		"Stack (top to bottom):\n  [1] <fn f>\n  [0] <script>",
	} {
		if !strings.Contains(output.String(), want) {
			t.Errorf("Expected output to contain %q:\n%s", want, output.String())
		}
	}
}

// ============================================================================
// Snapshots
// ============================================================================

func TestSnapshotRoundTrip(t *testing.T) {
	source := `var g = "global";
fun f(a) {
  var local = a + 1;
  return local;
}
print f(41);`

	var snap *Snapshot
	var session string
	_, _, err := runDebugged(t, source,
		func(d *Debugger) { d.SetBreakpoint(4) },
		func(d *Debugger, vm *VM) {
			snap = d.Snapshot(vm)
			session = vm.ID.String()
		},
	)
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if snap == nil {
		t.Fatal("Expected a snapshot")
	}

	if snap.Session != session || snap.Line != 4 {
		t.Errorf("Unexpected header %q line %d", snap.Session, snap.Line)
	}
	if len(snap.Frames) != 2 || snap.Frames[0].Function != "f()" || snap.Frames[1].Function != "script" {
		t.Errorf("Unexpected frames %+v", snap.Frames)
	}
	expectedGlobals := []GlobalSnapshot{{Name: "f", Value: "<fn f>"}, {Name: "g", Value: "global"}}
	if !reflect.DeepEqual(snap.Globals, expectedGlobals) {
		t.Errorf("Expected globals %v, got %v", expectedGlobals, snap.Globals)
	}

	data, err := EncodeSnapshot(snap)
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	again, err := EncodeSnapshot(snap)
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Error("Expected canonical encoding to be deterministic")
	}

	decoded, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if !reflect.DeepEqual(decoded, snap) {
		t.Errorf("Round trip mismatch:\n%+v\n%+v", snap, decoded)
	}

	if _, err := DecodeSnapshot([]byte{0xff}); err == nil {
		t.Error("Expected error decoding garbage")
	}
}

func TestDebuggerCLI(t *testing.T) {
	machine, out := newTestVM(testConfig())
	fn, err := compileOn(t, machine, "var x = 10;\nvar y = 20;\nprint x + y;")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	snapPath := filepath.Join(t.TempDir(), "state.cbor")
	input := strings.Join([]string{
		"help",
		"b 3",
		"info",
		"l",
		"c",
		"i",
		"p x",
		"p nope",
		"globals",
		"snapshot " + snapPath,
		"bogus",
		"c",
	}, "\n") + "\n"

	var dbgOut bytes.Buffer
	cli := NewDebuggerCLI(machine, strings.NewReader(input), &dbgOut)
	cli.Start()
	if err := machine.Interpret(fn); err != nil {
		t.Fatalf("interpret: %v", err)
	}

	if out.String() != "30\n" {
		t.Errorf("Expected program output 30, got %q", out.String())
	}
	for _, want := range []string{
		"Debugger started.",
		"Stopped at line 1 in script",
		"Debugger commands:",
		"Breakpoint set at line 3",
		"Mode: step\nBreakpoints:\n  1. line 3",
		"Mode: continue\n",
		"  1. line 3",
		"Stopped at line 3 in script",
		"(loxdbg) 10\n",
		"Undefined variable 'nope'.",
		"  x = 10\n  y = 20",
		"Wrote ",
		"Unknown command: bogus.",
	} {
		if !strings.Contains(dbgOut.String(), want) {
			t.Errorf("Expected debugger output to contain %q:\n%s", want, dbgOut.String())
		}
	}

	data, err := os.ReadFile(snapPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if snap.Line != 3 {
		t.Errorf("Expected snapshot at line 3, got %d", snap.Line)
	}
}

func TestGlobalNamesSorted(t *testing.T) {
	machine, _ := newTestVM(testConfig())
	fn, err := compileOn(t, machine, "var zeta = 1; var alpha = 2; var mid = 3;")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := machine.Interpret(fn); err != nil {
		t.Fatalf("interpret: %v", err)
	}
	// clock is a native global and is listed too.
	want := "alpha,clock,mid,zeta"
	if got := strings.Join(machine.GlobalNames(), ","); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestDebuggerModeString(t *testing.T) {
	tests := []struct {
		mode DebuggerMode
		want string
	}{
		{ModeRun, "run"},
		{ModeStep, "step"},
		{ModeStepOver, "next"},
		{ModeStepOut, "finish"},
		{ModeContinue, "continue"},
		{DebuggerMode(42), "DebuggerMode(42)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.mode.String(); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDebuggerCLIEOFQuits(t *testing.T) {
	machine, out := newTestVM(testConfig())
	fn, err := compileOn(t, machine, "print 1;")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	var dbgOut bytes.Buffer
	NewDebuggerCLI(machine, strings.NewReader(""), &dbgOut)

	if err := machine.Interpret(fn); !errors.Is(err, ErrDebuggerQuit) {
		t.Fatalf("Expected ErrDebuggerQuit, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("Expected no output, got %q", out.String())
	}
	if !strings.Contains(dbgOut.String(), "Exiting debugger (EOF).") {
		t.Errorf("Expected EOF message, got %q", dbgOut.String())
	}
}
