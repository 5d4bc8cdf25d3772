package backend

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/funvibe/loxvm/internal/config"
	"github.com/funvibe/loxvm/internal/pipeline"
	"github.com/funvibe/loxvm/internal/vm"
)

// VMBackend executes programs using the bytecode VM. The VM is created on
// first use and kept, so successive runs share globals the way a REPL needs.
type VMBackend struct {
	cfg config.VMConfig
	out io.Writer

	heap    *vm.Heap
	machine *vm.VM
	log     *logrus.Entry
}

// NewVM creates a new VM backend printing to out (stdout when nil).
func NewVM(cfg config.VMConfig, out io.Writer) *VMBackend {
	if out == nil {
		out = os.Stdout
	}
	return &VMBackend{cfg: cfg, out: out}
}

func (b *VMBackend) Name() string { return "vm" }

// Machine returns the backend's VM, creating it and its heap if needed.
func (b *VMBackend) Machine() *vm.VM {
	if b.machine != nil {
		return b.machine
	}
	b.heap = vm.NewHeap(b.cfg)
	b.machine = vm.New(b.heap, b.cfg)
	b.machine.SetOutput(b.out)

	b.log = logrus.WithField("session", b.machine.ID.String())
	b.heap.SetLogger(b.log)
	b.machine.SetLogger(b.log)
	return b.machine
}

// Run compiles and executes the program using the VM
func (b *VMBackend) Run(ctx *pipeline.PipelineContext) error {
	fn, err := b.Compile(ctx)
	if err != nil {
		return err
	}
	return b.machine.Interpret(fn)
}

// Compile lowers ctx.AstRoot into a script function on the backend's heap.
func (b *VMBackend) Compile(ctx *pipeline.PipelineContext) (*vm.ObjFunction, error) {
	if ctx.AstRoot == nil {
		return nil, fmt.Errorf("no AST to compile")
	}
	b.Machine()

	compiler := vm.NewCompiler(b.heap, contextReporter{ctx})
	compiler.SetLogger(b.log)
	compiler.SetLogDisassembly(b.cfg.LogDisassembly)
	return compiler.CompileProgram(ctx.AstRoot)
}
