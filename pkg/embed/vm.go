// Package loxvm embeds the Lox bytecode VM in Go programs: run scripts,
// bind Go functions as natives, and read or call globals.
package loxvm

import (
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/hashicorp/go-multierror"

	"github.com/funvibe/loxvm/internal/backend"
	"github.com/funvibe/loxvm/internal/config"
	"github.com/funvibe/loxvm/internal/lexer"
	"github.com/funvibe/loxvm/internal/parser"
	"github.com/funvibe/loxvm/internal/pipeline"
	"github.com/funvibe/loxvm/internal/vm"
)

// VM is one Lox interpreter. Globals persist across Eval calls.
type VM struct {
	backend    *backend.VMBackend
	machine    *vm.VM
	marshaller *Marshaller
}

// Option configures a VM.
type Option func(*options)

type options struct {
	out io.Writer
	cfg config.VMConfig
}

// WithOutput sends print statements to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithStressGC collects garbage on every allocation.
func WithStressGC() Option {
	return func(o *options) { o.cfg.StressGC = true }
}

// WithMaxFrames limits call depth.
func WithMaxFrames(n int) Option {
	return func(o *options) { o.cfg.FramesMax = n }
}

// New creates a Lox VM.
func New(opts ...Option) *VM {
	o := options{out: os.Stdout, cfg: config.Default().VM}
	for _, opt := range opts {
		opt(&o)
	}

	b := backend.NewVM(o.cfg, o.out)
	machine := b.Machine()
	return &VM{
		backend:    b,
		machine:    machine,
		marshaller: NewMarshaller(machine.Heap()),
	}
}

// Bind registers a Go function as a global native. Arguments are converted
// to the function's parameter types; a trailing error result becomes a Lox
// runtime error. Non-function values are bound with Set.
func (v *VM) Bind(name string, val interface{}) error {
	fn := reflect.ValueOf(val)
	if fn.Kind() != reflect.Func {
		return v.Set(name, val)
	}
	fnType := fn.Type()
	if fnType.IsVariadic() {
		return fmt.Errorf("bind %s: variadic functions are not supported", name)
	}
	if err := checkResults(fnType); err != nil {
		return fmt.Errorf("bind %s: %w", name, err)
	}

	v.machine.DefineNative(name, fnType.NumIn(), func(_ *vm.VM, args []vm.Value) (vm.Value, error) {
		return v.hostCall(fn, args)
	})
	return nil
}

// checkResults accepts (), (T), (error) and (T, error).
func checkResults(fnType reflect.Type) error {
	switch n := fnType.NumOut(); {
	case n > 2:
		return fmt.Errorf("too many results (%d)", n)
	case n == 2 && fnType.Out(1) != errorType:
		return fmt.Errorf("second result must be error")
	}
	return nil
}

func (v *VM) hostCall(fn reflect.Value, args []vm.Value) (vm.Value, error) {
	fnType := fn.Type()
	goArgs := make([]reflect.Value, len(args))
	for i, arg := range args {
		target := fnType.In(i)
		val, err := v.marshaller.FromValue(arg, target)
		if err != nil {
			return vm.NilVal(), fmt.Errorf("argument %d: %v", i+1, err)
		}
		if val == nil {
			goArgs[i] = reflect.Zero(target)
		} else {
			goArgs[i] = reflect.ValueOf(val)
		}
	}

	results := fn.Call(goArgs)
	if n := len(results); n > 0 && fnType.Out(n-1) == errorType {
		if err, _ := results[n-1].Interface().(error); err != nil {
			return vm.NilVal(), err
		}
		results = results[:n-1]
	}
	if len(results) == 0 {
		return vm.NilVal(), nil
	}
	return v.marshaller.ToValue(results[0].Interface())
}

// Set defines or overwrites a global with a Go value.
func (v *VM) Set(name string, val interface{}) error {
	lv, err := v.marshaller.ToValue(val)
	if err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	v.machine.SetGlobal(name, lv)
	return nil
}

// Get reads a global. Numbers come back as float64.
func (v *VM) Get(name string) (interface{}, error) {
	lv, ok := v.machine.Global(name)
	if !ok {
		return nil, fmt.Errorf("variable '%s' not found", name)
	}
	return v.marshaller.FromValue(lv, nil)
}

// Call calls a global function or class by name.
func (v *VM) Call(name string, args ...interface{}) (interface{}, error) {
	callee, ok := v.machine.Global(name)
	if !ok {
		return nil, fmt.Errorf("function '%s' not found", name)
	}

	loxArgs := make([]vm.Value, len(args))
	for i, arg := range args {
		lv, err := v.marshaller.ToValue(arg)
		if err != nil {
			return nil, err
		}
		if lv.IsObj() {
			// Earlier arguments must survive interning the later ones.
			v.machine.Heap().Pin(lv.Obj)
			defer v.machine.Heap().Unpin(lv.Obj)
		}
		loxArgs[i] = lv
	}

	result, err := v.machine.Call(callee, loxArgs...)
	if err != nil {
		return nil, err
	}
	return v.marshaller.FromValue(result, nil)
}

// Eval runs Lox source in the VM. Compile and runtime errors are returned
// together as a *multierror.Error.
func (v *VM) Eval(code string) error {
	return v.run(code, "")
}

// LoadFile reads and runs a Lox script.
func (v *VM) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return v.run(string(data), path)
}

func (v *VM) run(code, path string) error {
	ctx := pipeline.NewPipelineContext(code)
	ctx.FilePath = path

	ctx = pipeline.New(
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		backend.NewExecutionProcessor(v.backend),
	).Run(ctx)

	var result *multierror.Error
	for _, e := range ctx.Errors {
		result = multierror.Append(result, e)
	}
	return result.ErrorOrNil()
}
