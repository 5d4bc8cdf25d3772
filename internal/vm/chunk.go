package vm

// MaxConstants is the size of a chunk's constant pool: operands are one byte.
const MaxConstants = 256

// Chunk represents a sequence of bytecode instructions
type Chunk struct {
	Code      []byte  // Bytecode instructions
	Constants []Value // Constant pool
	Lines     []int   // Source line for each byte
}

// NewChunk creates a new empty chunk
func NewChunk() *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 64),
		Constants: make([]Value, 0, 8),
		Lines:     make([]int, 0, 64),
	}
}

// Write appends a byte to the chunk
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp writes an opcode
func (c *Chunk) WriteOp(op Opcode, line int) {
	c.Write(byte(op), line)
}

// AddConstant appends to the constant pool and returns the index. Callers
// check the result against MaxConstants.
func (c *Chunk) AddConstant(v Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// Len returns the current code length
func (c *Chunk) Len() int {
	return len(c.Code)
}

// size estimates the bytes held by the chunk's slices.
func (c *Chunk) size() int {
	return cap(c.Code) + cap(c.Lines)*8 + cap(c.Constants)*valueSize
}
