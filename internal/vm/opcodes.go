package vm

// Opcode is a single bytecode instruction.
type Opcode byte

const (
	OP_CONSTANT      Opcode = iota // [idx] push constant
	OP_NIL                         // push nil
	OP_TRUE                        // push true
	OP_FALSE                       // push false
	OP_POP                         // drop top
	OP_GET_LOCAL                   // [slot] push frame slot
	OP_SET_LOCAL                   // [slot] store top into frame slot
	OP_GET_GLOBAL                  // [name] push global
	OP_DEFINE_GLOBAL               // [name] bind global to top, pop
	OP_SET_GLOBAL                  // [name] assign existing global
	OP_GET_UPVALUE                 // [idx] push closure upvalue
	OP_SET_UPVALUE                 // [idx] store top into closure upvalue
	OP_GET_PROPERTY                // [name] instance field or bound method
	OP_SET_PROPERTY                // [name] instance field assignment
	OP_GET_SUPER                   // [name] bind superclass method
	OP_EQUAL
	OP_GREATER
	OP_LESS
	OP_ADD
	OP_SUBTRACT
	OP_MULTIPLY
	OP_DIVIDE
	OP_NOT
	OP_NEGATE
	OP_PRINT
	OP_JUMP          // [hi lo] forward
	OP_JUMP_IF_FALSE // [hi lo] forward when top is falsy, does not pop
	OP_LOOP          // [hi lo] backward
	OP_CALL          // [argc]
	OP_INVOKE        // [name argc]
	OP_SUPER_INVOKE  // [name argc]
	OP_CLOSURE       // [fn] then (isLocal, index) per upvalue
	OP_CLOSE_UPVALUE // hoist top slot into its upvalue, pop
	OP_RETURN
	OP_CLASS   // [name]
	OP_INHERIT // copy superclass methods into subclass
	OP_METHOD  // [name]
)

var opcodeNames = [...]string{
	OP_CONSTANT:      "OP_CONSTANT",
	OP_NIL:           "OP_NIL",
	OP_TRUE:          "OP_TRUE",
	OP_FALSE:         "OP_FALSE",
	OP_POP:           "OP_POP",
	OP_GET_LOCAL:     "OP_GET_LOCAL",
	OP_SET_LOCAL:     "OP_SET_LOCAL",
	OP_GET_GLOBAL:    "OP_GET_GLOBAL",
	OP_DEFINE_GLOBAL: "OP_DEFINE_GLOBAL",
	OP_SET_GLOBAL:    "OP_SET_GLOBAL",
	OP_GET_UPVALUE:   "OP_GET_UPVALUE",
	OP_SET_UPVALUE:   "OP_SET_UPVALUE",
	OP_GET_PROPERTY:  "OP_GET_PROPERTY",
	OP_SET_PROPERTY:  "OP_SET_PROPERTY",
	OP_GET_SUPER:     "OP_GET_SUPER",
	OP_EQUAL:         "OP_EQUAL",
	OP_GREATER:       "OP_GREATER",
	OP_LESS:          "OP_LESS",
	OP_ADD:           "OP_ADD",
	OP_SUBTRACT:      "OP_SUBTRACT",
	OP_MULTIPLY:      "OP_MULTIPLY",
	OP_DIVIDE:        "OP_DIVIDE",
	OP_NOT:           "OP_NOT",
	OP_NEGATE:        "OP_NEGATE",
	OP_PRINT:         "OP_PRINT",
	OP_JUMP:          "OP_JUMP",
	OP_JUMP_IF_FALSE: "OP_JUMP_IF_FALSE",
	OP_LOOP:          "OP_LOOP",
	OP_CALL:          "OP_CALL",
	OP_INVOKE:        "OP_INVOKE",
	OP_SUPER_INVOKE:  "OP_SUPER_INVOKE",
	OP_CLOSURE:       "OP_CLOSURE",
	OP_CLOSE_UPVALUE: "OP_CLOSE_UPVALUE",
	OP_RETURN:        "OP_RETURN",
	OP_CLASS:         "OP_CLASS",
	OP_INHERIT:       "OP_INHERIT",
	OP_METHOD:        "OP_METHOD",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return "OP_UNKNOWN"
}
