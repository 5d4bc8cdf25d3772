package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/funvibe/loxvm/internal/backend"
	"github.com/funvibe/loxvm/internal/config"
	"github.com/funvibe/loxvm/internal/lexer"
	"github.com/funvibe/loxvm/internal/token"
)

const (
	promptMain = "> "
	promptCont = ". "
)

// runREPL reads declarations line by line into one VM, so globals persist
// across inputs. Errors are printed and the session continues.
func runREPL(cfg *config.Config, s Streams) int {
	b := backend.NewVM(cfg.VM, s.Out)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, config.HistoryFileName)
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}
	defer func() {
		if histPath == "" {
			return
		}
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		source, ok := readInput(ln)
		if !ok {
			fmt.Fprintln(s.Out)
			return config.ExitOK
		}
		if strings.TrimSpace(source) == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(source, "\n", " "))
		runPipeline(source, "", b, s)
	}
}

// readInput keeps prompting while the input has unclosed braces, parens or
// an unterminated string. ok is false at end of input.
func readInput(ln *liner.State) (string, bool) {
	var sb strings.Builder
	for {
		prompt := promptMain
		if sb.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)

		if complete(sb.String()) {
			return sb.String(), true
		}
	}
}

// complete reports whether source has balanced grouping tokens.
func complete(source string) bool {
	depth := 0
	for _, tok := range lexer.New(source).Tokenize() {
		switch tok.Type {
		case token.LBRACE, token.LPAREN:
			depth++
		case token.RBRACE, token.RPAREN:
			depth--
		case token.ILLEGAL:
			if msg, _ := tok.Literal.(string); msg == "Unterminated string." {
				return false
			}
		}
	}
	return depth <= 0
}
