package targets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/funvibe/loxvm/internal/config"
	"github.com/funvibe/loxvm/internal/lexer"
	"github.com/funvibe/loxvm/internal/parser"
	"github.com/funvibe/loxvm/internal/pipeline"
	"github.com/funvibe/loxvm/internal/testrunner"
)

// runTimeout bounds a single program run. Generated programs always
// terminate; hitting it means the VM hung.
const runTimeout = 5 * time.Second

// parse runs the front end only.
func parse(input string) *pipeline.PipelineContext {
	ctx := pipeline.NewPipelineContext(input)
	ctx = (&lexer.LexerProcessor{}).Process(ctx)
	return (&parser.ParserProcessor{}).Process(ctx)
}

// execute runs input with cfg. ok is false when the run did not finish in
// time.
func execute(input string, cfg config.VMConfig) (out *testrunner.Outcome, ok bool) {
	// Buffered channel (capacity 1) prevents goroutine leak on timeout.
	done := make(chan *testrunner.Outcome, 1)
	go func() {
		done <- testrunner.Execute("fuzz.lox", input, cfg)
	}()

	select {
	case out = <-done:
		return out, true
	case <-time.After(runTimeout):
		return nil, false
	}
}

// firstLine is the message part of a diagnostic, without its trace.
func firstLine(s string) string {
	if idx := strings.Index(s, "\n"); idx >= 0 {
		return s[:idx]
	}
	return s
}

// LoadCorpus loads all .lox files from the given directories and adds them to the fuzz corpus.
func LoadCorpus(f *testing.F, dirs ...string) {
	for _, dir := range dirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && strings.HasSuffix(path, config.SourceFileExt) {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				f.Add(data)
			}
			return nil
		})
		if err != nil {
			// It's okay if we can't load examples, just log it
			f.Logf("Failed to load corpus from %s: %v", dir, err)
		}
	}
}
