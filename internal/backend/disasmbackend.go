package backend

import (
	"io"
	"os"

	"github.com/funvibe/loxvm/internal/config"
	"github.com/funvibe/loxvm/internal/pipeline"
	"github.com/funvibe/loxvm/internal/vm"
)

// DisasmBackend compiles a program and writes the listing of the script
// and every nested function instead of running it.
type DisasmBackend struct {
	compiler *VMBackend
	out      io.Writer
}

func NewDisasm(cfg config.VMConfig, out io.Writer) *DisasmBackend {
	if out == nil {
		out = os.Stdout
	}
	return &DisasmBackend{compiler: NewVM(cfg, io.Discard), out: out}
}

func (b *DisasmBackend) Name() string { return "disasm" }

func (b *DisasmBackend) Run(ctx *pipeline.PipelineContext) error {
	fn, err := b.compiler.Compile(ctx)
	if err != nil {
		return err
	}
	_, err = io.WriteString(b.out, vm.DisassembleAll(fn))
	return err
}
