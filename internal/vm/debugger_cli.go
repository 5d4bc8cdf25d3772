package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DebuggerCLI drives a Debugger from line-oriented text commands.
type DebuggerCLI struct {
	debugger *Debugger
	scanner  *bufio.Scanner
	output   io.Writer
}

// NewDebuggerCLI attaches a command loop to the VM's debugger and enables it.
// Execution stops before the first line.
func NewDebuggerCLI(vm *VM, input io.Reader, output io.Writer) *DebuggerCLI {
	cli := &DebuggerCLI{
		debugger: vm.GetDebugger(),
		scanner:  bufio.NewScanner(input),
		output:   output,
	}
	cli.debugger.Output = output
	cli.debugger.OnStop = cli.onStop
	cli.debugger.Enabled = true
	cli.debugger.Step()
	return cli
}

// Start prints the banner.
func (cli *DebuggerCLI) Start() {
	fmt.Fprintf(cli.output, "Debugger started. Type 'help' for commands.\n")
}

// onStop is called when the debugger stops
func (cli *DebuggerCLI) onStop(dbg *Debugger, vm *VM) {
	dbg.PrintLocation(vm)

	for {
		fmt.Fprintf(cli.output, "(loxdbg) ")
		if !cli.scanner.Scan() {
			if err := cli.scanner.Err(); err != nil {
				fmt.Fprintf(cli.output, "\nDebugger error: %v\n", err)
			} else {
				fmt.Fprintf(cli.output, "\nExiting debugger (EOF).\n")
			}
			dbg.Quit()
			return
		}

		parts := strings.Fields(cli.scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help", "h":
			printHelp(cli.output)
		case "continue", "c":
			dbg.Continue()
			return
		case "step", "s":
			dbg.Step()
			return
		case "next", "n":
			dbg.StepOver(vm)
			return
		case "finish", "out":
			dbg.StepOut(vm)
			return
		case "break", "b":
			if line, ok := cli.lineArg(args); ok {
				dbg.SetBreakpoint(line)
				fmt.Fprintf(cli.output, "Breakpoint set at line %d\n", line)
			}
		case "delete", "d":
			if line, ok := cli.lineArg(args); ok {
				dbg.RemoveBreakpoint(line)
				fmt.Fprintf(cli.output, "Breakpoint removed at line %d\n", line)
			}
		case "list", "l":
			cli.listBreakpoints()
		case "info", "i":
			fmt.Fprintf(cli.output, "Mode: %s\n", dbg.Mode())
			cli.listBreakpoints()
		case "locals":
			dbg.PrintLocals(vm)
		case "globals":
			dbg.PrintGlobals(vm)
		case "stack":
			dbg.PrintStack(vm)
		case "backtrace", "bt":
			dbg.PrintCallStack(vm)
		case "print", "p":
			cli.printGlobal(args, vm)
		case "snapshot":
			cli.writeSnapshot(args, vm)
		case "quit", "q", "exit":
			dbg.Quit()
			return
		default:
			fmt.Fprintf(cli.output, "Unknown command: %s. Type 'help' for help.\n", cmd)
		}
	}
}

func printHelp(output io.Writer) {
	help := `Debugger commands:
  help, h              - Show this help
  continue, c          - Continue execution until next breakpoint
  step, s              - Stop at the next line
  next, n              - Step over function calls
  finish, out          - Run until the current function returns
  break, b <line>      - Set breakpoint at line
  delete, d <line>     - Delete breakpoint at line
  list, l              - List all breakpoints
  info, i              - Show the stepping mode and breakpoints
  locals               - Show the current frame's slots
  globals              - Show global variables
  stack                - Show stack contents
  backtrace, bt        - Show call stack
  print, p <name>      - Print a global variable
  snapshot <file>      - Write the VM state as CBOR
  quit, q, exit        - Stop the program
`
	fmt.Fprint(output, help)
}

func (cli *DebuggerCLI) lineArg(args []string) (int, bool) {
	if len(args) == 0 {
		fmt.Fprintf(cli.output, "Usage: break <line>\n")
		return 0, false
	}
	line, err := strconv.Atoi(args[0])
	if err != nil || line <= 0 {
		fmt.Fprintf(cli.output, "Invalid line number: %s\n", args[0])
		return 0, false
	}
	return line, true
}

func (cli *DebuggerCLI) listBreakpoints() {
	lines := cli.debugger.Breakpoints()
	if len(lines) == 0 {
		fmt.Fprintf(cli.output, "No breakpoints set.\n")
		return
	}
	fmt.Fprintf(cli.output, "Breakpoints:\n")
	for i, line := range lines {
		fmt.Fprintf(cli.output, "  %d. line %d\n", i+1, line)
	}
}

func (cli *DebuggerCLI) printGlobal(args []string, vm *VM) {
	if len(args) != 1 {
		fmt.Fprintf(cli.output, "Usage: print <name>\n")
		return
	}
	v, ok := vm.Global(args[0])
	if !ok {
		fmt.Fprintf(cli.output, "Undefined variable '%s'.\n", args[0])
		return
	}
	fmt.Fprintf(cli.output, "%s\n", v)
}

func (cli *DebuggerCLI) writeSnapshot(args []string, vm *VM) {
	if len(args) != 1 {
		fmt.Fprintf(cli.output, "Usage: snapshot <file>\n")
		return
	}
	data, err := EncodeSnapshot(cli.debugger.Snapshot(vm))
	if err != nil {
		fmt.Fprintf(cli.output, "Snapshot failed: %v\n", err)
		return
	}
	if err := os.WriteFile(args[0], data, 0o644); err != nil {
		fmt.Fprintf(cli.output, "Snapshot failed: %v\n", err)
		return
	}
	fmt.Fprintf(cli.output, "Wrote %d bytes to %s\n", len(data), args[0])
}
