package lexer

import (
	"github.com/funvibe/loxvm/internal/diagnostics"
	"github.com/funvibe/loxvm/internal/pipeline"
	"github.com/funvibe/loxvm/internal/token"
)

// LexerProcessor scans ctx.SourceCode into ctx.TokenStream. ILLEGAL tokens
// are reported and dropped so the parser sees a clean stream.
type LexerProcessor struct{}

func (lp *LexerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	l := New(ctx.SourceCode)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		if tok.Type == token.ILLEGAL {
			msg, _ := tok.Literal.(string)
			ctx.AddError(diagnostics.NewError(diagnostics.ErrL001, tok, msg))
			continue
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	ctx.TokenStream = tokens
	return ctx
}
