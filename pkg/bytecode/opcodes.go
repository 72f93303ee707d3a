package bytecode

import "fmt"

// Opcode represents a bytecode instruction tag.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

// Width is the byte width of a fixed operand.
type Width uint8

const (
	Width8  Width = 1
	Width16 Width = 2
	Width32 Width = 4
)

// WidthFor returns the narrowest width that can encode n.
func WidthFor(n uint32) Width {
	switch {
	case n <= 0xFF:
		return Width8
	case n <= 0xFFFF:
		return Width16
	default:
		return Width32
	}
}

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpNop  Opcode = 0x00 // No operation
	OpPop  Opcode = 0x01 // Pop top of stack
	OpDup  Opcode = 0x02 // Duplicate top of stack
	OpSwap Opcode = 0x03 // Swap top two stack elements

	// ========================================================================
	// Push values (0x10-0x1F)
	// ========================================================================

	OpPushUndefined    Opcode = 0x10 // Push undefined
	OpPushNull         Opcode = 0x11 // Push null
	OpPushTrue         Opcode = 0x12 // Push true
	OpPushFalse        Opcode = 0x13 // Push false
	OpPushZero         Opcode = 0x14 // Push integer 0
	OpPushOne          Opcode = 0x15 // Push integer 1
	OpPushInt8         Opcode = 0x16 // Push integer: OpPushInt8 <value:i8>
	OpPushInt16        Opcode = 0x17 // Push integer: OpPushInt16 <value:i16>
	OpPushInt32        Opcode = 0x18 // Push integer: OpPushInt32 <value:i32>
	OpPushLiteral      Opcode = 0x19 // Push literal from pool: OpPushLiteral <index:u8>
	OpPushLiteralU16   Opcode = 0x1A // OpPushLiteral with <index:u16>
	OpPushLiteralU32   Opcode = 0x1B // OpPushLiteral with <index:u32>
	OpPushNewArray     Opcode = 0x1C // Push an empty array
	OpPushValueToArray Opcode = 0x1D // array value -> array (value appended)

	// ========================================================================
	// Environments and bindings (0x20-0x2F)
	// ========================================================================

	OpEnterScope           Opcode = 0x20 // Materialize scope: OpEnterScope <scope:u32>
	OpLeaveScope           Opcode = 0x21 // Drop the innermost environment
	OpGetName              Opcode = 0x22 // Push binding value: OpGetName <locator:u32>
	OpGetNameOrUndefined   Opcode = 0x23 // Like OpGetName; missing global yields undefined
	OpSetName              Opcode = 0x24 // Pop and assign: OpSetName <locator:u32>
	OpDefVar               Opcode = 0x25 // Declare var binding: OpDefVar <locator:u32>
	OpDefInitVar           Opcode = 0x26 // Pop and initialize var: OpDefInitVar <locator:u32>
	OpPutLexicalValue      Opcode = 0x27 // Pop and initialize lexical: OpPutLexicalValue <locator:u32>
	OpThrowMutateImmutable Opcode = 0x28 // Throw TypeError for const assignment: <locator:u32>

	// ========================================================================
	// Control flow (0x80-0x8F)
	// ========================================================================

	OpJump                  Opcode = 0x80 // Unconditional jump: OpJump <address:u32>
	OpJumpIfTrue            Opcode = 0x81 // Pop, jump if truthy: OpJumpIfTrue <address:u32>
	OpJumpIfFalse           Opcode = 0x82 // Pop, jump if falsy: OpJumpIfFalse <address:u32>
	OpJumpIfNotUndefined    Opcode = 0x83 // Pop, jump and restore if not undefined
	OpJumpIfNullOrUndefined Opcode = 0x84 // Pop, jump if null/undefined, else restore
	OpJumpTable             Opcode = 0x85 // OpJumpTable <default:u32> <count:u32> <address:u32>*count

	// ========================================================================
	// Construction (0x90-0x9F)
	// ========================================================================

	OpConstruct       Opcode = 0x90 // Construct: OpConstruct <argc:u8>
	OpConstructU16    Opcode = 0x91 // OpConstruct with <argc:u16>
	OpConstructU32    Opcode = 0x92 // OpConstruct with <argc:u32>
	OpConstructSpread Opcode = 0x93 // Construct with packed argument array

	// ========================================================================
	// Completion (0xF0-0xFF)
	// ========================================================================

	OpReturn          Opcode = 0xF0 // Return top of stack
	OpReturnUndefined Opcode = 0xF1 // Return undefined
	OpThrow           Opcode = 0xF2 // Throw top of stack
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name      string  // Human-readable name
	StackPop  int     // How many values popped from stack (-1 = variable)
	StackPush int     // How many values pushed to stack (-1 = variable)
	Operands  []Width // Fixed operand widths, in stream order

	// Trailing marks a variable-length tail: the last fixed operand is a
	// count of u32 addresses that follow.
	Trailing bool
}

// OperandLen returns the number of fixed operand bytes.
func (info OpcodeInfo) OperandLen() int {
	n := 0
	for _, w := range info.Operands {
		n += int(w)
	}
	return n
}

var (
	noOperands = []Width(nil)
	u8Operand  = []Width{Width8}
	u16Operand = []Width{Width16}
	u32Operand = []Width{Width32}
)

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Stack manipulation
	OpNop:  {"NOP", 0, 0, noOperands, false},
	OpPop:  {"POP", 1, 0, noOperands, false},
	OpDup:  {"DUP", 1, 2, noOperands, false},
	OpSwap: {"SWAP", 2, 2, noOperands, false},

	// Push
	OpPushUndefined:    {"PUSH_UNDEFINED", 0, 1, noOperands, false},
	OpPushNull:         {"PUSH_NULL", 0, 1, noOperands, false},
	OpPushTrue:         {"PUSH_TRUE", 0, 1, noOperands, false},
	OpPushFalse:        {"PUSH_FALSE", 0, 1, noOperands, false},
	OpPushZero:         {"PUSH_ZERO", 0, 1, noOperands, false},
	OpPushOne:          {"PUSH_ONE", 0, 1, noOperands, false},
	OpPushInt8:         {"PUSH_INT8", 0, 1, u8Operand, false},
	OpPushInt16:        {"PUSH_INT16", 0, 1, u16Operand, false},
	OpPushInt32:        {"PUSH_INT32", 0, 1, u32Operand, false},
	OpPushLiteral:      {"PUSH_LITERAL", 0, 1, u8Operand, false},
	OpPushLiteralU16:   {"PUSH_LITERAL_U16", 0, 1, u16Operand, false},
	OpPushLiteralU32:   {"PUSH_LITERAL_U32", 0, 1, u32Operand, false},
	OpPushNewArray:     {"PUSH_NEW_ARRAY", 0, 1, noOperands, false},
	OpPushValueToArray: {"PUSH_VALUE_TO_ARRAY", 2, 1, noOperands, false},

	// Environments
	OpEnterScope:           {"ENTER_SCOPE", 0, 0, u32Operand, false},
	OpLeaveScope:           {"LEAVE_SCOPE", 0, 0, noOperands, false},
	OpGetName:              {"GET_NAME", 0, 1, u32Operand, false},
	OpGetNameOrUndefined:   {"GET_NAME_OR_UNDEFINED", 0, 1, u32Operand, false},
	OpSetName:              {"SET_NAME", 1, 0, u32Operand, false},
	OpDefVar:               {"DEF_VAR", 0, 0, u32Operand, false},
	OpDefInitVar:           {"DEF_INIT_VAR", 1, 0, u32Operand, false},
	OpPutLexicalValue:      {"PUT_LEXICAL_VALUE", 1, 0, u32Operand, false},
	OpThrowMutateImmutable: {"THROW_MUTATE_IMMUTABLE", 0, 0, u32Operand, false},

	// Control flow
	OpJump:                  {"JUMP", 0, 0, u32Operand, false},
	OpJumpIfTrue:            {"JUMP_IF_TRUE", 1, 0, u32Operand, false},
	OpJumpIfFalse:           {"JUMP_IF_FALSE", 1, 0, u32Operand, false},
	OpJumpIfNotUndefined:    {"JUMP_IF_NOT_UNDEFINED", 1, -1, u32Operand, false},
	OpJumpIfNullOrUndefined: {"JUMP_IF_NULL_OR_UNDEFINED", 1, -1, u32Operand, false},
	OpJumpTable:             {"JUMP_TABLE", 1, 0, []Width{Width32, Width32}, true},

	// Construction
	OpConstruct:       {"CONSTRUCT", -1, 1, u8Operand, false}, // Pops target + argc args
	OpConstructU16:    {"CONSTRUCT_U16", -1, 1, u16Operand, false},
	OpConstructU32:    {"CONSTRUCT_U32", -1, 1, u32Operand, false},
	OpConstructSpread: {"CONSTRUCT_SPREAD", 2, 1, noOperands, false}, // Pops target + argument array

	// Completion
	OpReturn:          {"RETURN", 1, 0, noOperands, false},
	OpReturnUndefined: {"RETURN_UNDEFINED", 0, 0, noOperands, false},
	OpThrow:           {"THROW", 1, 0, noOperands, false},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// IsDefined reports whether op has metadata.
func (op Opcode) IsDefined() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of fixed operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen()
}

// InstructionLen returns the length of an instruction without a trailing
// address list (1 + fixed operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// Width returns the width of the first operand. For width-polymorphic
// families it selects the encoding of the shared operand.
func (op Opcode) Width() Width {
	info := GetOpcodeInfo(op)
	if len(info.Operands) == 0 {
		return 0
	}
	return info.Operands[0]
}

// IsJump returns true if this opcode is a jump instruction.
func (op Opcode) IsJump() bool {
	return op >= OpJump && op <= OpJumpTable
}

// IsReturn returns true if this opcode terminates execution.
func (op Opcode) IsReturn() bool {
	return op >= OpReturn && op <= OpThrow
}

// IsConstruct returns true if this opcode invokes the construction protocol.
func (op Opcode) IsConstruct() bool {
	return op >= OpConstruct && op <= OpConstructSpread
}

// IsBindingOp returns true if the operand of this opcode is a locator index.
func (op Opcode) IsBindingOp() bool {
	return op >= OpGetName && op <= OpThrowMutateImmutable
}

// constructFor returns the CONSTRUCT variant for an operand width.
func constructFor(w Width) Opcode {
	switch w {
	case Width8:
		return OpConstruct
	case Width16:
		return OpConstructU16
	default:
		return OpConstructU32
	}
}

// pushLiteralFor returns the PUSH_LITERAL variant for an operand width.
func pushLiteralFor(w Width) Opcode {
	switch w {
	case Width8:
		return OpPushLiteral
	case Width16:
		return OpPushLiteralU16
	default:
		return OpPushLiteralU32
	}
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
