package vm

import (
	"github.com/funvibe/loxvm/internal/config"
)

// ObjKind tags heap object variants.
type ObjKind uint8

const (
	OBJ_STRING ObjKind = iota
	OBJ_FUNCTION
	OBJ_CLOSURE
	OBJ_UPVALUE
	OBJ_CLASS
	OBJ_INSTANCE
	OBJ_BOUND_METHOD
	OBJ_NATIVE
)

var objKindNames = [...]string{
	OBJ_STRING:       "string",
	OBJ_FUNCTION:     "function",
	OBJ_CLOSURE:      "closure",
	OBJ_UPVALUE:      "upvalue",
	OBJ_CLASS:        "class",
	OBJ_INSTANCE:     "instance",
	OBJ_BOUND_METHOD: "bound method",
	OBJ_NATIVE:       "native",
}

func (k ObjKind) String() string {
	if int(k) < len(objKindNames) {
		return objKindNames[k]
	}
	return "unknown"
}

// Obj is implemented by every heap-allocated, collector-tracked object.
type Obj interface {
	Kind() ObjKind
	String() string
	header() *objHeader
}

// objHeader links the object into the heap's allocation list.
type objHeader struct {
	marked bool
	next   Obj
	size   int // bytes accounted to bytesAllocated
}

func (h *objHeader) header() *objHeader { return h }

// ObjString is immutable and interned: equal content means the same object.
type ObjString struct {
	objHeader
	Chars string
	Hash  uint32
}

func (s *ObjString) Kind() ObjKind  { return OBJ_STRING }
func (s *ObjString) String() string { return s.Chars }

// ObjFunction is a compiled function body. Name is nil for the top-level script.
type ObjFunction struct {
	objHeader
	Name         *ObjString
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
}

func (f *ObjFunction) Kind() ObjKind { return OBJ_FUNCTION }
func (f *ObjFunction) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return "<fn " + f.Name.Chars + ">"
}

// DisplayName is the name used in stack traces.
func (f *ObjFunction) DisplayName() string {
	if f.Name == nil {
		return config.ScriptName
	}
	return f.Name.Chars + "()"
}

type ObjClosure struct {
	objHeader
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

func (c *ObjClosure) Kind() ObjKind  { return OBJ_CLOSURE }
func (c *ObjClosure) String() string { return c.Function.String() }

// ObjUpvalue is open while Location indexes a live stack slot, closed once
// Location is -1 and the value lives in Closed.
type ObjUpvalue struct {
	objHeader
	Location int
	Closed   Value
	Next     *ObjUpvalue // next open upvalue, lower slot
}

func (u *ObjUpvalue) Kind() ObjKind  { return OBJ_UPVALUE }
func (u *ObjUpvalue) String() string { return "upvalue" }
func (u *ObjUpvalue) IsOpen() bool   { return u.Location >= 0 }

// ObjClass holds its own and inherited methods; INHERIT copies the
// superclass table down once, at class creation.
type ObjClass struct {
	objHeader
	Name    *ObjString
	Methods map[*ObjString]*ObjClosure
}

func (c *ObjClass) Kind() ObjKind  { return OBJ_CLASS }
func (c *ObjClass) String() string { return c.Name.Chars }

type ObjInstance struct {
	objHeader
	Class  *ObjClass
	Fields map[*ObjString]Value
}

func (i *ObjInstance) Kind() ObjKind  { return OBJ_INSTANCE }
func (i *ObjInstance) String() string { return i.Class.Name.Chars + " instance" }

type ObjBoundMethod struct {
	objHeader
	Receiver Value
	Method   *ObjClosure
}

func (b *ObjBoundMethod) Kind() ObjKind  { return OBJ_BOUND_METHOD }
func (b *ObjBoundMethod) String() string { return b.Method.Function.String() }

// NativeFn implements a host function. args aliases the VM stack and must
// not be retained.
type NativeFn func(vm *VM, args []Value) (Value, error)

type ObjNative struct {
	objHeader
	Name  string
	Arity int
	Fn    NativeFn
}

func (n *ObjNative) Kind() ObjKind  { return OBJ_NATIVE }
func (n *ObjNative) String() string { return "<native fn>" }
