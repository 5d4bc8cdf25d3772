package vm

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable representation of the bytecode
func Disassemble(chunk *Chunk, name string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s ==\n", name))

	offset := 0
	for offset < len(chunk.Code) {
		offset = disassembleInstruction(&sb, chunk, offset)
	}

	return sb.String()
}

// DisassembleAll lists fn followed by every function nested in its
// constants, depth first.
func DisassembleAll(fn *ObjFunction) string {
	var sb strings.Builder
	var walk func(fn *ObjFunction)
	walk = func(fn *ObjFunction) {
		sb.WriteString(Disassemble(fn.Chunk, listingName(fn)))
		for _, c := range fn.Chunk.Constants {
			if c.IsKind(OBJ_FUNCTION) {
				sb.WriteString("\n")
				walk(c.AsFunction())
			}
		}
	}
	walk(fn)
	return sb.String()
}

// listingName is the listing header for fn.
func listingName(fn *ObjFunction) string {
	if fn.Name == nil {
		return "<script>"
	}
	return fn.Name.Chars
}

// DisassembleInstruction renders the instruction at offset and returns the
// offset of the next one.
func DisassembleInstruction(chunk *Chunk, offset int) (string, int) {
	var sb strings.Builder
	next := disassembleInstruction(&sb, chunk, offset)
	return sb.String(), next
}

func disassembleInstruction(sb *strings.Builder, chunk *Chunk, offset int) int {
	sb.WriteString(fmt.Sprintf("%04d ", offset))

	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		sb.WriteString("   | ")
	} else {
		sb.WriteString(fmt.Sprintf("%4d ", chunk.Lines[offset]))
	}

	op := Opcode(chunk.Code[offset])

	switch op {
	case OP_CONSTANT, OP_GET_GLOBAL, OP_DEFINE_GLOBAL, OP_SET_GLOBAL,
		OP_GET_PROPERTY, OP_SET_PROPERTY, OP_GET_SUPER,
		OP_CLASS, OP_METHOD:
		return constantInstruction(sb, op, chunk, offset)

	case OP_GET_LOCAL, OP_SET_LOCAL, OP_GET_UPVALUE, OP_SET_UPVALUE, OP_CALL:
		return byteInstruction(sb, op, chunk, offset)

	case OP_JUMP, OP_JUMP_IF_FALSE:
		return jumpInstruction(sb, op, 1, chunk, offset)
	case OP_LOOP:
		return jumpInstruction(sb, op, -1, chunk, offset)

	case OP_INVOKE, OP_SUPER_INVOKE:
		return invokeInstruction(sb, op, chunk, offset)

	case OP_CLOSURE:
		return closureInstruction(sb, chunk, offset)

	case OP_NIL, OP_TRUE, OP_FALSE, OP_POP, OP_EQUAL, OP_GREATER, OP_LESS,
		OP_ADD, OP_SUBTRACT, OP_MULTIPLY, OP_DIVIDE, OP_NOT, OP_NEGATE,
		OP_PRINT, OP_CLOSE_UPVALUE, OP_RETURN, OP_INHERIT:
		return simpleInstruction(sb, op, offset)

	default:
		sb.WriteString(fmt.Sprintf("Unknown opcode %d\n", op))
		return offset + 1
	}
}

func simpleInstruction(sb *strings.Builder, op Opcode, offset int) int {
	sb.WriteString(op.String() + "\n")
	return offset + 1
}

func constantInstruction(sb *strings.Builder, op Opcode, chunk *Chunk, offset int) int {
	constant := chunk.Code[offset+1]
	sb.WriteString(fmt.Sprintf("%-16s %4d '%s'\n", op, constant, chunk.Constants[constant]))
	return offset + 2
}

func byteInstruction(sb *strings.Builder, op Opcode, chunk *Chunk, offset int) int {
	slot := chunk.Code[offset+1]
	sb.WriteString(fmt.Sprintf("%-16s %4d\n", op, slot))
	return offset + 2
}

func jumpInstruction(sb *strings.Builder, op Opcode, sign int, chunk *Chunk, offset int) int {
	jump := int(chunk.Code[offset+1])<<8 | int(chunk.Code[offset+2])
	sb.WriteString(fmt.Sprintf("%-16s %4d -> %d\n", op, offset, offset+3+sign*jump))
	return offset + 3
}

func invokeInstruction(sb *strings.Builder, op Opcode, chunk *Chunk, offset int) int {
	constant := chunk.Code[offset+1]
	argCount := chunk.Code[offset+2]
	sb.WriteString(fmt.Sprintf("%-16s (%d args) %4d '%s'\n", op, argCount, constant, chunk.Constants[constant]))
	return offset + 3
}

func closureInstruction(sb *strings.Builder, chunk *Chunk, offset int) int {
	offset++
	constant := chunk.Code[offset]
	offset++
	sb.WriteString(fmt.Sprintf("%-16s %4d %s\n", OP_CLOSURE, constant, chunk.Constants[constant]))

	fn := chunk.Constants[constant].AsFunction()
	for i := 0; i < fn.UpvalueCount; i++ {
		kind := "upvalue"
		if chunk.Code[offset] == 1 {
			kind = "local"
		}
		index := chunk.Code[offset+1]
		sb.WriteString(fmt.Sprintf("%04d      |                     %s %d\n", offset, kind, index))
		offset += 2
	}
	return offset
}
