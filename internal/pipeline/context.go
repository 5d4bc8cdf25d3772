package pipeline

import (
	"github.com/funvibe/loxvm/internal/ast"
	"github.com/funvibe/loxvm/internal/diagnostics"
	"github.com/funvibe/loxvm/internal/token"
)

// PipelineContext carries source and intermediate artifacts between stages.
type PipelineContext struct {
	FilePath    string
	SourceCode  string
	TokenStream []token.Token
	AstRoot     *ast.Program
	Errors      []*diagnostics.DiagnosticError
}

func NewPipelineContext(source string) *PipelineContext {
	return &PipelineContext{SourceCode: source}
}

// AddError records err and stamps the file path.
func (ctx *PipelineContext) AddError(err *diagnostics.DiagnosticError) {
	if err.File == "" {
		err.File = ctx.FilePath
	}
	ctx.Errors = append(ctx.Errors, err)
}

// HasCompileErrors reports whether any scan/parse/compile error was recorded.
func (ctx *PipelineContext) HasCompileErrors() bool {
	for _, err := range ctx.Errors {
		if !err.IsRuntime() {
			return true
		}
	}
	return false
}

// HasRuntimeError reports whether execution failed.
func (ctx *PipelineContext) HasRuntimeError() bool {
	for _, err := range ctx.Errors {
		if err.IsRuntime() {
			return true
		}
	}
	return false
}
