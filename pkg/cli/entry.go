// Package cli implements the loxvm command line: a REPL, running files,
// disassembly, the step debugger and the expectation test runner.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/funvibe/loxvm/internal/backend"
	"github.com/funvibe/loxvm/internal/config"
	"github.com/funvibe/loxvm/internal/diagnostics"
	"github.com/funvibe/loxvm/internal/lexer"
	"github.com/funvibe/loxvm/internal/parser"
	"github.com/funvibe/loxvm/internal/pipeline"
	"github.com/funvibe/loxvm/internal/testrunner"
	"github.com/funvibe/loxvm/internal/vm"
)

const usage = `Usage:
  loxvm [flags]                  start the REPL
  loxvm [flags] <file.lox>       run a script
  loxvm [flags] disasm <file>    print the bytecode listing
  loxvm [flags] debug <file>     run a script under the step debugger
  loxvm [flags] test <paths...>  check .lox files against their // expect comments

Flags:
`

// Streams are the process's standard streams, replaceable in tests.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Run is the process entry point. It returns the exit code.
func Run() int {
	return Main(os.Args[1:], Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr})
}

// Main parses args and dispatches to a command.
func Main(args []string, s Streams) int {
	fs := flag.NewFlagSet("loxvm", flag.ContinueOnError)
	fs.SetOutput(s.Err)
	configPath := fs.String("config", "", "path to loxvm.yaml or loxvm.toml")
	stressGC := fs.Bool("stress-gc", false, "collect garbage on every allocation")
	logGC := fs.Bool("log-gc", false, "log collector activity")
	fs.Usage = func() {
		fmt.Fprint(s.Err, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return config.ExitOK
		}
		return config.ExitUsage
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(s.Err, "Error: %v\n", err)
		return config.ExitUsage
	}
	if *stressGC {
		cfg.VM.StressGC = true
	}
	if *logGC {
		cfg.VM.LogGC = true
		if lvl, err := logrus.ParseLevel(cfg.Log.Level); err != nil || lvl < logrus.DebugLevel {
			cfg.Log.Level = logrus.DebugLevel.String()
		}
	}
	cfg.ApplyLogging()
	logrus.SetOutput(s.Err)

	rest := fs.Args()
	if len(rest) == 0 {
		return runREPL(cfg, s)
	}

	switch rest[0] {
	case "disasm":
		if len(rest) != 2 {
			fs.Usage()
			return config.ExitUsage
		}
		return runFile(rest[1], backend.NewDisasm(cfg.VM, s.Out), s)
	case "debug":
		if len(rest) != 2 {
			fs.Usage()
			return config.ExitUsage
		}
		return runDebug(rest[1], cfg, s)
	case "test":
		if len(rest) < 2 {
			fs.Usage()
			return config.ExitUsage
		}
		return runTests(rest[1:], cfg, s)
	}

	if len(rest) != 1 {
		fs.Usage()
		return config.ExitUsage
	}
	return runFile(rest[0], backend.NewVM(cfg.VM, s.Out), s)
}

// loadConfig reads the explicit config file, or the nearest one above the
// working directory, or falls back to defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		found, err := config.FindConfig(".")
		if err != nil {
			return nil, err
		}
		if found == "" {
			return config.Default(), nil
		}
		path = found
	}
	return config.LoadConfig(path)
}

func readSource(path string, s Streams) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(s.Err, "Could not read file \"%s\": %v\n", path, err)
		return "", false
	}
	return string(data), true
}

// runPipeline scans, parses and hands the program to b, then prints every
// diagnostic to stderr.
func runPipeline(source, path string, b backend.Backend, s Streams) *pipeline.PipelineContext {
	ctx := pipeline.NewPipelineContext(source)
	ctx.FilePath = path

	ctx = pipeline.New(
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		backend.NewExecutionProcessor(b),
	).Run(ctx)

	printer := diagnostics.NewPrinter(s.Err)
	for _, err := range ctx.Errors {
		printer.Report(err)
	}
	return ctx
}

func runFile(path string, b backend.Backend, s Streams) int {
	source, ok := readSource(path, s)
	if !ok {
		return config.ExitIOError
	}
	return testrunner.ExitCode(runPipeline(source, path, b, s))
}

func runDebug(path string, cfg *config.Config, s Streams) int {
	source, ok := readSource(path, s)
	if !ok {
		return config.ExitIOError
	}
	b := backend.NewVM(cfg.VM, s.Out)
	vm.NewDebuggerCLI(b.Machine(), s.In, s.Out).Start()
	return testrunner.ExitCode(runPipeline(source, path, b, s))
}

func runTests(paths []string, cfg *config.Config, s Streams) int {
	sum, err := testrunner.Run(paths, cfg.VM, s.Out)
	if err != nil {
		fmt.Fprintf(s.Err, "Error: %v\n", err)
		return config.ExitIOError
	}
	if sum.Failed > 0 {
		return 1
	}
	return config.ExitOK
}
