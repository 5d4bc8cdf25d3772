package backend

import (
	"errors"

	"github.com/hashicorp/go-multierror"

	"github.com/funvibe/loxvm/internal/diagnostics"
	"github.com/funvibe/loxvm/internal/pipeline"
	"github.com/funvibe/loxvm/internal/token"
	"github.com/funvibe/loxvm/internal/vm"
)

// ExecutionProcessor implements pipeline.Processor to run a Backend
type ExecutionProcessor struct {
	Backend Backend
}

// NewExecutionProcessor creates a new pipeline step for the given backend
func NewExecutionProcessor(b Backend) *ExecutionProcessor {
	return &ExecutionProcessor{Backend: b}
}

func (p *ExecutionProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	// If previous steps failed, don't run execution
	if ctx.AstRoot == nil || len(ctx.Errors) > 0 {
		return ctx
	}

	if err := p.Backend.Run(ctx); err != nil {
		p.handleError(ctx, err)
	}
	return ctx
}

func (p *ExecutionProcessor) handleError(ctx *pipeline.PipelineContext, err error) {
	if errors.Is(err, vm.ErrDebuggerQuit) {
		return
	}

	var rerr *vm.RuntimeError
	if errors.As(err, &rerr) {
		ctx.AddError(rerr.Diagnostic())
		return
	}

	// Compile errors already reached ctx through the compiler's reporter.
	var merr *multierror.Error
	if errors.As(err, &merr) {
		return
	}

	ctx.AddError(diagnostics.NewError(diagnostics.ErrR001, token.Token{}, err.Error()))
}
