package vm

import (
	"fmt"
	"strings"
)

// run is the main interpreter loop. It returns when the outermost frame
// returns or an instruction fails.
func (vm *VM) run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if r == errStackOverflow {
				err = vm.runtimeError("Stack overflow.")
				return
			}
			panic(r)
		}
	}()

	for {
		if d := vm.debugger; d != nil && d.Enabled && d.ShouldBreak(vm) {
			if d.OnStop != nil {
				d.OnStop(d, vm)
			}
			if d.quit {
				d.quit = false
				return ErrDebuggerQuit
			}
		}
		if vm.trace {
			vm.traceInstruction()
		}

		done, err := vm.step()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// step executes one instruction. done is true once the script returns.
func (vm *VM) step() (done bool, err error) {
	op := Opcode(vm.readByte())

	switch op {
	case OP_CONSTANT:
		vm.push(vm.readConstant())

	case OP_NIL:
		vm.push(NilVal())

	case OP_TRUE:
		vm.push(BoolVal(true))

	case OP_FALSE:
		vm.push(BoolVal(false))

	case OP_POP:
		vm.pop()

	case OP_GET_LOCAL:
		slot := int(vm.readByte())
		vm.push(vm.stack[vm.frame.base+slot])

	case OP_SET_LOCAL:
		slot := int(vm.readByte())
		vm.stack[vm.frame.base+slot] = vm.peek(0)

	case OP_GET_GLOBAL:
		name := vm.readString()
		value, ok := vm.globals[name]
		if !ok {
			return false, vm.runtimeError("Undefined variable '%s'.", name.Chars)
		}
		vm.push(value)

	case OP_DEFINE_GLOBAL:
		name := vm.readString()
		vm.globals[name] = vm.peek(0)
		vm.pop()

	case OP_SET_GLOBAL:
		name := vm.readString()
		// Assignment never creates a global.
		if _, ok := vm.globals[name]; !ok {
			return false, vm.runtimeError("Undefined variable '%s'.", name.Chars)
		}
		vm.globals[name] = vm.peek(0)

	case OP_GET_UPVALUE:
		uv := vm.frame.closure.Upvalues[vm.readByte()]
		if uv.IsOpen() {
			vm.push(vm.stack[uv.Location])
		} else {
			vm.push(uv.Closed)
		}

	case OP_SET_UPVALUE:
		uv := vm.frame.closure.Upvalues[vm.readByte()]
		if uv.IsOpen() {
			vm.stack[uv.Location] = vm.peek(0)
		} else {
			uv.Closed = vm.peek(0)
		}

	case OP_GET_PROPERTY:
		if !vm.peek(0).IsInstance() {
			return false, vm.runtimeError("Only instances have properties.")
		}
		instance := vm.peek(0).AsInstance()
		name := vm.readString()

		if value, ok := instance.Fields[name]; ok {
			vm.pop()
			vm.push(value)
			break
		}
		if err := vm.bindMethod(instance.Class, name); err != nil {
			return false, err
		}

	case OP_SET_PROPERTY:
		if !vm.peek(1).IsInstance() {
			return false, vm.runtimeError("Only instances have fields.")
		}
		instance := vm.peek(1).AsInstance()
		name := vm.readString()
		if _, ok := instance.Fields[name]; !ok {
			vm.heap.grow(instance, tableEntrySize)
		}
		instance.Fields[name] = vm.peek(0)
		value := vm.pop()
		vm.pop()
		vm.push(value)

	case OP_GET_SUPER:
		name := vm.readString()
		superclass := vm.pop().AsClass()
		if err := vm.bindMethod(superclass, name); err != nil {
			return false, err
		}

	case OP_EQUAL:
		b := vm.pop()
		a := vm.pop()
		vm.push(BoolVal(a.Equals(b)))

	case OP_GREATER, OP_LESS, OP_SUBTRACT, OP_MULTIPLY, OP_DIVIDE:
		if err := vm.binaryOp(op); err != nil {
			return false, err
		}

	case OP_ADD:
		switch {
		case vm.peek(0).IsString() && vm.peek(1).IsString():
			vm.concatenate()
		case vm.peek(0).IsNumber() && vm.peek(1).IsNumber():
			b := vm.pop().AsNumber()
			a := vm.pop().AsNumber()
			vm.push(NumberVal(a + b))
		default:
			return false, vm.runtimeError("Operands must be two numbers or two strings.")
		}

	case OP_NOT:
		vm.push(BoolVal(vm.pop().IsFalsey()))

	case OP_NEGATE:
		if !vm.peek(0).IsNumber() {
			return false, vm.runtimeError("Operand must be a number.")
		}
		vm.push(NumberVal(-vm.pop().AsNumber()))

	case OP_PRINT:
		fmt.Fprintln(vm.out, vm.pop().String())

	case OP_JUMP:
		offset := vm.readShort()
		vm.frame.ip += offset

	case OP_JUMP_IF_FALSE:
		offset := vm.readShort()
		if vm.peek(0).IsFalsey() {
			vm.frame.ip += offset
		}

	case OP_LOOP:
		offset := vm.readShort()
		vm.frame.ip -= offset

	case OP_CALL:
		argCount := int(vm.readByte())
		if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
			return false, err
		}

	case OP_INVOKE:
		method := vm.readString()
		argCount := int(vm.readByte())
		if err := vm.invoke(method, argCount); err != nil {
			return false, err
		}

	case OP_SUPER_INVOKE:
		method := vm.readString()
		argCount := int(vm.readByte())
		superclass := vm.pop().AsClass()
		if err := vm.invokeFromClass(superclass, method, argCount); err != nil {
			return false, err
		}

	case OP_CLOSURE:
		fn := vm.readConstant().AsFunction()
		closure := vm.heap.NewClosure(fn)
		vm.push(ObjVal(closure))
		for i := range closure.Upvalues {
			isLocal := vm.readByte()
			index := int(vm.readByte())
			if isLocal == 1 {
				closure.Upvalues[i] = vm.captureUpvalue(vm.frame.base + index)
			} else {
				closure.Upvalues[i] = vm.frame.closure.Upvalues[index]
			}
		}

	case OP_CLOSE_UPVALUE:
		vm.closeUpvalues(vm.sp - 1)
		vm.pop()

	case OP_RETURN:
		result := vm.pop()
		vm.closeUpvalues(vm.frame.base)
		vm.frameCount--
		if vm.frameCount == 0 {
			// The outermost callee slot is replaced by the result.
			vm.sp = vm.frame.base
			vm.push(result)
			vm.frame = nil
			return true, nil
		}
		vm.sp = vm.frame.base
		vm.push(result)
		vm.frame = &vm.frames[vm.frameCount-1]

	case OP_CLASS:
		vm.push(ObjVal(vm.heap.NewClass(vm.readString())))

	case OP_INHERIT:
		if !vm.peek(1).IsClass() {
			return false, vm.runtimeError("Superclass must be a class.")
		}
		superclass := vm.peek(1).AsClass()
		subclass := vm.peek(0).AsClass()
		for name, method := range superclass.Methods {
			subclass.Methods[name] = method
		}
		vm.heap.grow(subclass, len(superclass.Methods)*tableEntrySize)
		vm.pop()

	case OP_METHOD:
		vm.defineMethod(vm.readString())

	default:
		panic(fmt.Sprintf("vm: unknown opcode %d", op))
	}

	return false, nil
}

// binaryOp handles the arithmetic and comparison operators that need two numbers.
func (vm *VM) binaryOp(op Opcode) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()

	switch op {
	case OP_GREATER:
		vm.push(BoolVal(a > b))
	case OP_LESS:
		vm.push(BoolVal(a < b))
	case OP_SUBTRACT:
		vm.push(NumberVal(a - b))
	case OP_MULTIPLY:
		vm.push(NumberVal(a * b))
	case OP_DIVIDE:
		vm.push(NumberVal(a / b))
	}
	return nil
}

// concatenate joins the two strings on top of the stack. Both stay on the
// stack until the result exists so a collection cannot free them.
func (vm *VM) concatenate() {
	b := vm.peek(0).AsString()
	a := vm.peek(1).AsString()
	result := vm.heap.Intern(a.Chars + b.Chars)
	vm.pop()
	vm.pop()
	vm.push(ObjVal(result))
}

func (vm *VM) traceInstruction() {
	var sb strings.Builder
	for i := 0; i < vm.sp; i++ {
		fmt.Fprintf(&sb, "[ %s ]", vm.stack[i])
	}
	text, _ := DisassembleInstruction(vm.frame.chunk(), vm.frame.ip)
	vm.log.WithField("stack", sb.String()).Debug(strings.TrimRight(text, "\n"))
}
