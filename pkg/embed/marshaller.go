package loxvm

import (
	"fmt"
	"reflect"

	"github.com/funvibe/loxvm/internal/vm"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Marshaller converts between Go values and Lox values on one heap.
type Marshaller struct {
	heap *vm.Heap
}

func NewMarshaller(heap *vm.Heap) *Marshaller {
	return &Marshaller{heap: heap}
}

// ToValue converts a Go value to a Lox value. Numbers of any width become
// Lox numbers; strings are interned.
func (m *Marshaller) ToValue(val interface{}) (vm.Value, error) {
	if val == nil {
		return vm.NilVal(), nil
	}
	if v, ok := val.(vm.Value); ok {
		return v, nil
	}

	v := reflect.ValueOf(val)
	if v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return vm.NilVal(), nil
		}
	}

	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return vm.NumberVal(float64(v.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return vm.NumberVal(float64(v.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return vm.NumberVal(v.Float()), nil
	case reflect.Bool:
		return vm.BoolVal(v.Bool()), nil
	case reflect.String:
		return vm.ObjVal(m.heap.Intern(v.String())), nil
	default:
		return vm.NilVal(), fmt.Errorf("cannot convert %T to a Lox value", val)
	}
}

// FromValue converts a Lox value to Go. targetType is optional; without it
// numbers come back as float64. Objects other than strings only convert to
// their printed form.
func (m *Marshaller) FromValue(v vm.Value, targetType reflect.Type) (interface{}, error) {
	if targetType != nil && targetType.Kind() == reflect.Interface && targetType.NumMethod() == 0 {
		targetType = nil
	}

	switch {
	case v.IsNil():
		if targetType == nil {
			return nil, nil
		}
		switch targetType.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func:
			return reflect.Zero(targetType).Interface(), nil
		}
		return nil, fmt.Errorf("cannot convert nil to %s", targetType)

	case v.IsBool():
		if targetType != nil && targetType.Kind() != reflect.Bool {
			return nil, fmt.Errorf("cannot convert bool to %s", targetType)
		}
		return v.AsBool(), nil

	case v.IsNumber():
		return m.numberTo(v.AsNumber(), targetType)

	case v.IsString():
		if targetType != nil && targetType.Kind() != reflect.String {
			return nil, fmt.Errorf("cannot convert string to %s", targetType)
		}
		return v.AsString().Chars, nil
	}

	if targetType == nil || targetType.Kind() == reflect.String {
		return v.String(), nil
	}
	return nil, fmt.Errorf("cannot convert %s to %s", v.Obj.Kind(), targetType)
}

func (m *Marshaller) numberTo(f float64, targetType reflect.Type) (interface{}, error) {
	if targetType == nil {
		return f, nil
	}
	out := reflect.New(targetType).Elem()
	switch targetType.Kind() {
	case reflect.Float32, reflect.Float64:
		out.SetFloat(f)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if f != float64(int64(f)) {
			return nil, fmt.Errorf("%s is not an integer", vm.FormatNumber(f))
		}
		out.SetInt(int64(f))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if f < 0 || f != float64(uint64(f)) {
			return nil, fmt.Errorf("%s is not an unsigned integer", vm.FormatNumber(f))
		}
		out.SetUint(uint64(f))
	default:
		return nil, fmt.Errorf("cannot convert number to %s", targetType)
	}
	return out.Interface(), nil
}
