package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/chazu/jscore/pkg/scope"
	"github.com/chazu/jscore/pkg/value"
)

// BytecodeVersion is the current bytecode format version.
// Increment when making incompatible changes to the format.
const BytecodeVersion uint16 = 1

// ChunkFlags contains compilation flags for a chunk.
type ChunkFlags uint16

const (
	// ChunkFlagDebug indicates debug information is present.
	ChunkFlagDebug ChunkFlags = 1 << 0

	// ChunkFlagStrict indicates the chunk's top-level code is strict mode code.
	ChunkFlagStrict ChunkFlags = 1 << 1
)

// LiteralKind is the type of a pooled literal.
type LiteralKind uint8

const (
	LiteralString LiteralKind = 0
	LiteralNumber LiteralKind = 1
)

// Literal is a constant pool entry. Only primitives are pooled; integers
// that fit in 32 bits are encoded inline by the PUSH_INT opcodes instead.
type Literal struct {
	Kind   LiteralKind `cbor:"kind"`
	Text   string      `cbor:"text,omitempty"`
	Number float64     `cbor:"number"`
}

// StringLiteral returns a string literal.
func StringLiteral(s string) Literal {
	return Literal{Kind: LiteralString, Text: s}
}

// NumberLiteral returns a number literal.
func NumberLiteral(f float64) Literal {
	return Literal{Kind: LiteralNumber, Number: f}
}

// Value converts the literal into a runtime value.
func (l Literal) Value() value.Value {
	if l.Kind == LiteralNumber {
		return value.Float(l.Number)
	}
	return value.String(l.Text)
}

func (l Literal) String() string {
	if l.Kind == LiteralNumber {
		return l.Value().String()
	}
	return fmt.Sprintf("%q", l.Text)
}

// SourceLocation maps bytecode position to source location for debugging.
type SourceLocation struct {
	BytecodeOffset uint32 `cbor:"offset"` // Offset in code section
	Line           uint32 `cbor:"line"`   // Source line number (1-based)
	Column         uint16 `cbor:"column"` // Source column number (1-based)
}

// Chunk is a finalized compilation unit: the instruction stream together
// with everything the VM needs to execute it.
type Chunk struct {
	// Header
	Version uint16     `cbor:"version"`
	Flags   ChunkFlags `cbor:"flags"`
	Name    string     `cbor:"name"`

	// Code section
	Code []byte `cbor:"code"`

	// Literal pool referenced by PUSH_LITERAL
	Literals []Literal `cbor:"literals"`

	// Resolved binding locators referenced by the binding opcodes
	Locators []scope.Locator `cbor:"locators"`

	// Every scope record created during compilation, in table order.
	// Scope 0 is the root; ENTER_SCOPE materializes the others.
	Scopes []scope.Info `cbor:"scopes"`

	// Debug information (optional, present if ChunkFlagDebug is set)
	SourceMap []SourceLocation `cbor:"source_map,omitempty"`
}

// NewChunk creates a new empty chunk with the current version.
func NewChunk() *Chunk {
	return &Chunk{
		Version:  BytecodeVersion,
		Code:     make([]byte, 0, 64),
		Literals: make([]Literal, 0, 8),
	}
}

// IsStrict reports whether the chunk was compiled as strict mode code.
func (c *Chunk) IsStrict() bool {
	return c.Flags&ChunkFlagStrict != 0
}

// AddLiteral adds a literal to the pool and returns its index.
// If the literal already exists, returns the existing index. Numbers are
// compared bitwise so -0 and +0 stay distinct.
func (c *Chunk) AddLiteral(lit Literal) uint32 {
	for i, l := range c.Literals {
		if l.Kind == lit.Kind && l.Text == lit.Text && math.Float64bits(l.Number) == math.Float64bits(lit.Number) {
			return uint32(i)
		}
	}
	idx := uint32(len(c.Literals))
	c.Literals = append(c.Literals, lit)
	return idx
}

// AddLocator adds a binding locator and returns its index.
// Identical locators share an index.
func (c *Chunk) AddLocator(loc scope.Locator) uint32 {
	for i, l := range c.Locators {
		if l == loc {
			return uint32(i)
		}
	}
	idx := uint32(len(c.Locators))
	c.Locators = append(c.Locators, loc)
	return idx
}

// Emit appends an opcode and its operands, encoded with the widths from
// the opcode table. Returns the offset of the opcode.
func (c *Chunk) Emit(op Opcode, operands ...uint32) int {
	info := GetOpcodeInfo(op)
	if len(operands) != len(info.Operands) {
		panic(fmt.Sprintf("bytecode: %s takes %d operands, got %d", info.Name, len(info.Operands), len(operands)))
	}
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op))
	for i, w := range info.Operands {
		c.Code = appendOperand(c.Code, w, operands[i])
	}
	return offset
}

// EmitAddress appends a raw u32 address (jump-table entries).
func (c *Chunk) EmitAddress(addr uint32) int {
	offset := len(c.Code)
	c.Code = binary.BigEndian.AppendUint32(c.Code, addr)
	return offset
}

// PatchAddress overwrites the u32 address at offset.
func (c *Chunk) PatchAddress(offset int, addr uint32) {
	binary.BigEndian.PutUint32(c.Code[offset:], addr)
}

// CurrentOffset returns the current offset in the code section.
func (c *Chunk) CurrentOffset() int {
	return len(c.Code)
}

// CodeLen returns the length of the code section.
func (c *Chunk) CodeLen() int {
	return len(c.Code)
}

// AddSourceLocation adds a debug source location mapping.
func (c *Chunk) AddSourceLocation(bytecodeOffset uint32, line uint32, column uint16) {
	c.Flags |= ChunkFlagDebug
	c.SourceMap = append(c.SourceMap, SourceLocation{
		BytecodeOffset: bytecodeOffset,
		Line:           line,
		Column:         column,
	})
}

// GetSourceLocation returns the source location for a bytecode offset.
// Returns line 0, column 0 if no mapping exists.
func (c *Chunk) GetSourceLocation(offset uint32) (line uint32, column uint16) {
	// Find the nearest mapping at or before the offset
	for i := len(c.SourceMap) - 1; i >= 0; i-- {
		if c.SourceMap[i].BytecodeOffset <= offset {
			return c.SourceMap[i].Line, c.SourceMap[i].Column
		}
	}
	return 0, 0
}

func appendOperand(buf []byte, w Width, v uint32) []byte {
	switch w {
	case Width8:
		return append(buf, byte(v))
	case Width16:
		return binary.BigEndian.AppendUint16(buf, uint16(v))
	default:
		return binary.BigEndian.AppendUint32(buf, v)
	}
}

// readOperand decodes an operand of width w at offset. The caller has
// checked the bounds.
func readOperand(code []byte, offset int, w Width) uint32 {
	switch w {
	case Width8:
		return uint32(code[offset])
	case Width16:
		return uint32(binary.BigEndian.Uint16(code[offset:]))
	default:
		return binary.BigEndian.Uint32(code[offset:])
	}
}
