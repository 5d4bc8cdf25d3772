// Package backend runs a parsed program. The VM backend executes it; the
// disassembly backend only compiles and lists the bytecode.
package backend

import (
	"github.com/funvibe/loxvm/internal/diagnostics"
	"github.com/funvibe/loxvm/internal/pipeline"
)

// Backend is the interface for execution backends
type Backend interface {
	// Run compiles and executes the program in ctx. Compile errors are
	// recorded in ctx as they are found and also returned.
	Run(ctx *pipeline.PipelineContext) error

	// Name returns the backend name for display
	Name() string
}

// contextReporter forwards diagnostics into a pipeline context.
type contextReporter struct {
	ctx *pipeline.PipelineContext
}

func (r contextReporter) Report(err *diagnostics.DiagnosticError) {
	r.ctx.AddError(err)
}
