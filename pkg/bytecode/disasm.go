package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable bytecode listing for the chunk.
func (c *Chunk) Disassemble() string {
	var sb strings.Builder

	// Header
	if c.Name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", c.Name))
	}
	sb.WriteString(fmt.Sprintf("; jscore bytecode v%d\n", c.Version))
	sb.WriteString(fmt.Sprintf("; Flags: 0x%04X", c.Flags))
	if c.Flags&ChunkFlagDebug != 0 {
		sb.WriteString(" [DEBUG]")
	}
	if c.Flags&ChunkFlagStrict != 0 {
		sb.WriteString(" [STRICT]")
	}
	sb.WriteString("\n\n")

	if len(c.Literals) > 0 {
		sb.WriteString("; Literals:\n")
		for i, lit := range c.Literals {
			display := lit.String()
			if r := []rune(display); len(r) > 40 {
				display = string(r[:37]) + "..."
			}
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, display))
		}
		sb.WriteString("\n")
	}

	if len(c.Locators) > 0 {
		sb.WriteString("; Locators:\n")
		for i, loc := range c.Locators {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s", i, loc))
			if loc.Strict {
				sb.WriteString(" strict")
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if len(c.Scopes) > 0 {
		sb.WriteString("; Scopes:\n")
		for _, s := range c.Scopes {
			kind := "block"
			if s.FunctionScope {
				kind = "function"
			}
			names := make([]string, len(s.Bindings))
			for i, b := range s.Bindings {
				names[i] = b.Name
				switch {
				case !b.Lexical:
					names[i] += "(var)"
				case !b.Mutable:
					names[i] += "(const)"
				}
			}
			sb.WriteString(fmt.Sprintf(";   [%3d] %s outer=%d depth=%d {%s}\n",
				s.Index, kind, s.Outer, s.Depth, strings.Join(names, ", ")))
		}
		sb.WriteString("\n")
	}

	// Code section
	sb.WriteString("; Code:\n")
	offset := 0
	for offset < len(c.Code) {
		line, instrLen := c.disassembleInstruction(offset)

		if c.Flags&ChunkFlagDebug != 0 {
			if srcLine, srcCol := c.GetSourceLocation(uint32(offset)); srcLine > 0 {
				sb.WriteString(fmt.Sprintf("%04X  %-40s ; line %d:%d\n", offset, line, srcLine, srcCol))
				offset += instrLen
				continue
			}
		}
		sb.WriteString(fmt.Sprintf("%04X  %s\n", offset, line))
		offset += instrLen
	}

	return sb.String()
}

// disassembleInstruction formats the instruction at offset using only the
// opcode table. Returns the text and the instruction length; a truncated
// or unknown instruction consumes the rest of the code.
func (c *Chunk) disassembleInstruction(offset int) (string, int) {
	op := Opcode(c.Code[offset])
	info := GetOpcodeInfo(op)

	n, err := instructionLen(c.Code, offset)
	if err != nil {
		return fmt.Sprintf("%s ; %v", info.Name, err), len(c.Code) - offset
	}

	pos := offset + 1
	operands := make([]uint32, len(info.Operands))
	parts := make([]string, 0, len(info.Operands))
	for i, w := range info.Operands {
		operands[i] = readOperand(c.Code, pos, w)
		pos += int(w)
		parts = append(parts, fmt.Sprintf("%d", operands[i]))
	}

	if op.IsJump() {
		// Addresses in hex, matching the offset column. The jump-table
		// count stays decimal.
		parts[0] = fmt.Sprintf("%04X", operands[0])
	}

	var sb strings.Builder
	sb.WriteString(info.Name)
	if len(parts) > 0 {
		sb.WriteString(" ")
		sb.WriteString(strings.Join(parts, " "))
	}

	if info.Trailing {
		count := int(operands[len(operands)-1])
		addrs := make([]string, count)
		for i := range addrs {
			addrs[i] = fmt.Sprintf("%d:%04X", i+1, readOperand(c.Code, pos, Width32))
			pos += int(Width32)
		}
		sb.WriteString(" [" + strings.Join(addrs, " ") + "]")
	}

	if note := c.annotate(op, operands); note != "" {
		sb.WriteString(" ; ")
		sb.WriteString(note)
	}
	return sb.String(), n
}

// annotate explains pool and locator operands.
func (c *Chunk) annotate(op Opcode, operands []uint32) string {
	switch {
	case op == OpPushLiteral || op == OpPushLiteralU16 || op == OpPushLiteralU32:
		if int(operands[0]) < len(c.Literals) {
			return c.Literals[operands[0]].String()
		}
		return "<bad literal>"
	case op.IsBindingOp():
		if int(operands[0]) < len(c.Locators) {
			return c.Locators[operands[0]].String()
		}
		return "<bad locator>"
	case op == OpPushInt8:
		return fmt.Sprintf("%d", int8(operands[0]))
	case op == OpPushInt16:
		return fmt.Sprintf("%d", int16(operands[0]))
	case op == OpPushInt32:
		return fmt.Sprintf("%d", int32(operands[0]))
	}
	return ""
}

// instructionLen returns the full length of the instruction at offset,
// including a trailing address list.
func instructionLen(code []byte, offset int) (int, error) {
	op := Opcode(code[offset])
	if !op.IsDefined() {
		return 0, fmt.Errorf("unknown opcode 0x%02X at %04X", byte(op), offset)
	}
	info := GetOpcodeInfo(op)
	n := 1 + info.OperandLen()
	if offset+n > len(code) {
		return 0, fmt.Errorf("truncated %s at %04X", info.Name, offset)
	}
	if info.Trailing {
		last := len(info.Operands) - 1
		countAt := offset + n - int(info.Operands[last])
		count := int(readOperand(code, countAt, info.Operands[last]))
		n += count * int(Width32)
		if offset+n > len(code) {
			return 0, fmt.Errorf("truncated %s address list at %04X", info.Name, offset)
		}
	}
	return n, nil
}

// DisassembleInstruction returns a human-readable representation of a single instruction.
func (c *Chunk) DisassembleInstruction(offset int) string {
	if offset >= len(c.Code) {
		return "<end of code>"
	}
	line, _ := c.disassembleInstruction(offset)
	return line
}

// DisassembleToLines returns the disassembly of the code section as a
// slice of lines.
func (c *Chunk) DisassembleToLines() []string {
	var lines []string
	offset := 0
	for offset < len(c.Code) {
		line, instrLen := c.disassembleInstruction(offset)
		lines = append(lines, fmt.Sprintf("%04X  %s", offset, line))
		offset += instrLen
	}
	return lines
}

// InstructionCount returns the number of instructions in the chunk.
// Note: This iterates through all code, so it's O(n).
func (c *Chunk) InstructionCount() int {
	count := 0
	offset := 0
	for offset < len(c.Code) {
		n, err := instructionLen(c.Code, offset)
		if err != nil {
			return count + 1
		}
		offset += n
		count++
	}
	return count
}
