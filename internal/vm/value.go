package vm

import (
	"math"
	"strconv"
	"unsafe"
)

// ValueType tags the active member of a Value.
type ValueType uint8

const (
	VAL_NIL ValueType = iota
	VAL_BOOL
	VAL_NUMBER
	VAL_OBJ
)

// Value is the unboxed representation of a Lox value. Numbers are stored as
// IEEE-754 bits in Data, booleans as 0/1.
type Value struct {
	Type ValueType
	Data uint64
	Obj  Obj
}

var valueSize = int(unsafe.Sizeof(Value{}))

func NilVal() Value {
	return Value{Type: VAL_NIL}
}

func BoolVal(b bool) Value {
	if b {
		return Value{Type: VAL_BOOL, Data: 1}
	}
	return Value{Type: VAL_BOOL}
}

func NumberVal(f float64) Value {
	return Value{Type: VAL_NUMBER, Data: math.Float64bits(f)}
}

func ObjVal(o Obj) Value {
	return Value{Type: VAL_OBJ, Obj: o}
}

func (v Value) IsNil() bool    { return v.Type == VAL_NIL }
func (v Value) IsBool() bool   { return v.Type == VAL_BOOL }
func (v Value) IsNumber() bool { return v.Type == VAL_NUMBER }
func (v Value) IsObj() bool    { return v.Type == VAL_OBJ }

func (v Value) AsBool() bool      { return v.Data != 0 }
func (v Value) AsNumber() float64 { return math.Float64frombits(v.Data) }

// IsKind reports whether v holds an object of kind k.
func (v Value) IsKind(k ObjKind) bool {
	return v.Type == VAL_OBJ && v.Obj.Kind() == k
}

func (v Value) IsString() bool   { return v.IsKind(OBJ_STRING) }
func (v Value) IsInstance() bool { return v.IsKind(OBJ_INSTANCE) }
func (v Value) IsClass() bool    { return v.IsKind(OBJ_CLASS) }

func (v Value) AsString() *ObjString     { return v.Obj.(*ObjString) }
func (v Value) AsFunction() *ObjFunction { return v.Obj.(*ObjFunction) }
func (v Value) AsClosure() *ObjClosure   { return v.Obj.(*ObjClosure) }
func (v Value) AsClass() *ObjClass       { return v.Obj.(*ObjClass) }
func (v Value) AsInstance() *ObjInstance { return v.Obj.(*ObjInstance) }

// IsFalsey: only nil and false are false.
func (v Value) IsFalsey() bool {
	return v.Type == VAL_NIL || (v.Type == VAL_BOOL && v.Data == 0)
}

// Equals compares numbers with float semantics, so NaN != NaN. Objects
// compare by identity; strings are interned so identity is content equality.
func (v Value) Equals(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case VAL_NIL:
		return true
	case VAL_BOOL:
		return v.Data == other.Data
	case VAL_NUMBER:
		return v.AsNumber() == other.AsNumber()
	case VAL_OBJ:
		return v.Obj == other.Obj
	}
	return false
}

// String renders v the way `print` does.
func (v Value) String() string {
	switch v.Type {
	case VAL_NIL:
		return "nil"
	case VAL_BOOL:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case VAL_NUMBER:
		return FormatNumber(v.AsNumber())
	case VAL_OBJ:
		return v.Obj.String()
	}
	return "<invalid>"
}

// FormatNumber matches C's "%g": six significant digits, trailing zeros dropped.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'g', 6, 64)
}
