package vm

import (
	"time"

	"github.com/funvibe/loxvm/internal/config"
)

// natives are bound as globals in every new VM.
var natives = []struct {
	name  string
	arity int
	fn    NativeFn
}{
	{config.ClockNative, 0, clockNative},
}

func (vm *VM) defineNatives() {
	for _, n := range natives {
		vm.DefineNative(n.name, n.arity, n.fn)
	}
}

// DefineNative binds a host function to a global. The name string is
// protected while the native object is allocated.
func (vm *VM) DefineNative(name string, arity int, fn NativeFn) {
	nameStr := vm.heap.Intern(name)
	vm.heap.Protect(nameStr)
	native := vm.heap.NewNative(name, arity, fn)
	vm.heap.Unprotect()
	vm.globals[nameStr] = ObjVal(native)
}

// clockNative returns seconds elapsed since the VM was created.
func clockNative(vm *VM, args []Value) (Value, error) {
	return NumberVal(time.Since(vm.startTime).Seconds()), nil
}
