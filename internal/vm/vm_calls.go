package vm

// callValue dispatches a call on whatever sits argCount slots below the top.
func (vm *VM) callValue(callee Value, argCount int) error {
	if callee.IsObj() {
		switch obj := callee.Obj.(type) {
		case *ObjBoundMethod:
			vm.stack[vm.sp-argCount-1] = obj.Receiver
			return vm.call(obj.Method, argCount)

		case *ObjClass:
			// The class stays in the callee slot until the instance replaces it.
			instance := vm.heap.NewInstance(obj)
			vm.stack[vm.sp-argCount-1] = ObjVal(instance)
			if initializer, ok := obj.Methods[vm.initString]; ok {
				return vm.call(initializer, argCount)
			}
			if argCount != 0 {
				return vm.runtimeError("Expected 0 arguments but got %d.", argCount)
			}
			return nil

		case *ObjClosure:
			return vm.call(obj, argCount)

		case *ObjNative:
			return vm.callNative(obj, argCount)
		}
	}
	return vm.runtimeError("Can only call functions and classes.")
}

// call pushes a frame for closure whose arguments are already on the stack.
func (vm *VM) call(closure *ObjClosure, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if vm.frameCount == len(vm.frames) {
		return vm.runtimeError("Stack overflow.")
	}

	frame := &vm.frames[vm.frameCount]
	vm.frameCount++
	frame.closure = closure
	frame.ip = 0
	frame.base = vm.sp - argCount - 1
	vm.frame = frame
	return nil
}

func (vm *VM) callNative(native *ObjNative, argCount int) error {
	if argCount != native.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", native.Arity, argCount)
	}
	result, err := native.Fn(vm, vm.stack[vm.sp-argCount:vm.sp])
	if err != nil {
		return vm.runtimeError("%s", err.Error())
	}
	vm.sp -= argCount + 1
	vm.push(result)
	return nil
}

// invoke calls a method by name on the receiver without materializing a
// bound method. A field holding a callable shadows the method.
func (vm *VM) invoke(name *ObjString, argCount int) error {
	receiver := vm.peek(argCount)
	if !receiver.IsInstance() {
		return vm.runtimeError("Only instances have methods.")
	}
	instance := receiver.AsInstance()

	if value, ok := instance.Fields[name]; ok {
		vm.stack[vm.sp-argCount-1] = value
		return vm.callValue(value, argCount)
	}
	return vm.invokeFromClass(instance.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *ObjClass, name *ObjString, argCount int) error {
	method, ok := class.Methods[name]
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	return vm.call(method, argCount)
}

// bindMethod replaces the receiver on top of the stack with its method
// bound to it.
func (vm *VM) bindMethod(class *ObjClass, name *ObjString) error {
	method, ok := class.Methods[name]
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	bound := vm.heap.NewBoundMethod(vm.peek(0), method)
	vm.pop()
	vm.push(ObjVal(bound))
	return nil
}

// defineMethod adds the closure on top of the stack to the class below it.
func (vm *VM) defineMethod(name *ObjString) {
	method := vm.peek(0).AsClosure()
	class := vm.peek(1).AsClass()
	if _, ok := class.Methods[name]; !ok {
		vm.heap.grow(class, tableEntrySize)
	}
	class.Methods[name] = method
	vm.pop()
}

// captureUpvalue creates or reuses an upvalue pointing to the given stack location
func (vm *VM) captureUpvalue(location int) *ObjUpvalue {
	var prev *ObjUpvalue
	upvalue := vm.openUpvalues

	// The list is sorted by location (highest first)
	for upvalue != nil && upvalue.Location > location {
		prev = upvalue
		upvalue = upvalue.Next
	}

	if upvalue != nil && upvalue.Location == location {
		return upvalue
	}

	created := vm.heap.NewUpvalue(location)
	created.Next = upvalue

	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// closeUpvalues closes all upvalues that point to stack locations >= lastSlot
func (vm *VM) closeUpvalues(lastSlot int) {
	for vm.openUpvalues != nil && vm.openUpvalues.Location >= lastSlot {
		upvalue := vm.openUpvalues
		upvalue.Closed = vm.stack[upvalue.Location]
		upvalue.Location = -1
		vm.openUpvalues = upvalue.Next
	}
}
