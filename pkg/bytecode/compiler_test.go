package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/jscore/pkg/jserror"
)

// opcodes returns the opcode of every instruction in the chunk.
func opcodes(t *testing.T, chunk *Chunk) []Opcode {
	t.Helper()
	var ops []Opcode
	for off := 0; off < len(chunk.Code); {
		n, err := instructionLen(chunk.Code, off)
		require.NoError(t, err)
		ops = append(ops, Opcode(chunk.Code[off]))
		off += n
	}
	return ops
}

func TestEmitPushIntPicksSmallestEncoding(t *testing.T) {
	tests := []struct {
		n    int32
		want Opcode
	}{
		{0, OpPushZero},
		{1, OpPushOne},
		{-1, OpPushInt8},
		{127, OpPushInt8},
		{-128, OpPushInt8},
		{128, OpPushInt16},
		{-32768, OpPushInt16},
		{32768, OpPushInt32},
		{-2147483648, OpPushInt32},
	}

	for _, tt := range tests {
		c := NewCompiler("ints", false)
		c.EmitPushInt(tt.n)
		assert.Equal(t, tt.want, Opcode(c.Chunk().Code[0]), "n=%d", tt.n)
	}
}

func TestEmitPushNumber(t *testing.T) {
	c := NewCompiler("numbers", false)
	c.EmitPushNumber(42)
	c.EmitPushNumber(0.25)
	c.EmitPushNumber(negativeZero())

	ops := opcodes(t, c.Chunk())
	assert.Equal(t, []Opcode{OpPushInt8, OpPushLiteral, OpPushLiteral}, ops)
	assert.Len(t, c.Chunk().Literals, 2)
}

func negativeZero() float64 {
	z := 0.0
	return -z
}

func TestEmitConstructPicksWidth(t *testing.T) {
	tests := []struct {
		argc uint32
		want Opcode
	}{
		{0, OpConstruct},
		{255, OpConstruct},
		{256, OpConstructU16},
		{65535, OpConstructU16},
		{65536, OpConstructU32},
	}

	for _, tt := range tests {
		c := NewCompiler("new", false)
		c.EmitConstruct(tt.argc)
		code := c.Chunk().Code
		assert.Equal(t, tt.want, Opcode(code[0]), "argc=%d", tt.argc)
		assert.Equal(t, tt.argc, readOperand(code, 1, tt.want.Width()), "argc=%d", tt.argc)
	}
}

func TestEmitJumpRejectsJumpTable(t *testing.T) {
	c := NewCompiler("jt", false)
	assert.Panics(t, func() { c.EmitJump(OpJumpTable) })
	assert.Panics(t, func() { c.EmitJump(OpPop) })
}

func TestFinishRejectsUnpatchedJumps(t *testing.T) {
	c := NewCompiler("dangling", false)
	c.EmitJump(OpJump)

	_, err := c.Finish()
	require.Error(t, err)
	assert.True(t, jserror.IsFault(err))
}

func TestFinishRejectsOpenScopes(t *testing.T) {
	c := NewCompiler("open", false)
	c.PushScope(false)

	_, err := c.Finish()
	require.Error(t, err)
	assert.True(t, jserror.IsFault(err))
}

func TestFinishAppendsReturn(t *testing.T) {
	c := NewCompiler("implicit", false)
	c.EmitPushInt(3)
	c.Emit(OpPop)
	chunk, err := c.Finish()
	require.NoError(t, err)
	assert.Equal(t, OpReturnUndefined, Opcode(chunk.Code[len(chunk.Code)-1]))

	c = NewCompiler("explicit", false)
	c.EmitPushInt(3)
	c.EmitReturn()
	chunk, err = c.Finish()
	require.NoError(t, err)
	assert.Equal(t, []Opcode{OpPushInt8, OpReturn}, opcodes(t, chunk))
}

func TestFinishReturnCheckDecodesOperands(t *testing.T) {
	// PUSH_INT8 0xF0 ends in a byte equal to RETURN's tag; the check must
	// look at the last instruction, not the last byte.
	c := NewCompiler("operand", false)
	c.EmitPushInt(-16)
	chunk, err := c.Finish()
	require.NoError(t, err)
	assert.Equal(t, []Opcode{OpPushInt8, OpReturnUndefined}, opcodes(t, chunk))
}

func TestFinishExportsScopesAndStrictness(t *testing.T) {
	c := NewCompiler("export", true)
	require.NoError(t, c.DeclareLet("a"))
	c.PushScope(true)
	require.NoError(t, c.DeclareVar("b"))
	require.NoError(t, c.PopScope())

	chunk, err := c.Finish()
	require.NoError(t, err)
	assert.True(t, chunk.IsStrict())
	require.Len(t, chunk.Scopes, 2)
	assert.Equal(t, "a", chunk.Scopes[0].Bindings[0].Name)
	assert.Equal(t, "b", chunk.Scopes[1].Bindings[0].Name)
	assert.False(t, chunk.Scopes[1].Bindings[0].Lexical)
	assert.Equal(t, int32(0), chunk.Scopes[1].Outer)
}

func TestDuplicateDeclarationsAreSyntaxErrors(t *testing.T) {
	c := NewCompiler("dup", false)
	require.NoError(t, c.DeclareLet("x"))

	for _, declare := range []func(string) error{c.DeclareLet, c.DeclareConst, c.DeclareVar} {
		err := declare("x")
		ne, ok := jserror.AsNative(err)
		require.True(t, ok, "got %v", err)
		assert.Equal(t, jserror.KindSyntaxError, ne.Kind)
	}
}

func TestAssignmentOpcodeSelection(t *testing.T) {
	tests := []struct {
		name   string
		strict bool
		decl   func(c *Compiler) error
		want   Opcode
	}{
		{"let", false, func(c *Compiler) error { return c.DeclareLet("x") }, OpSetName},
		{"var", false, func(c *Compiler) error { return c.DeclareVar("x") }, OpSetName},
		{"undeclared", false, func(c *Compiler) error { return nil }, OpSetName},
		{"sloppy const", false, func(c *Compiler) error { return c.DeclareConst("x") }, OpPop},
		{"strict const", true, func(c *Compiler) error { return c.DeclareConst("x") }, OpThrowMutateImmutable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCompiler(tt.name, tt.strict)
			c.PushScope(true)
			require.NoError(t, tt.decl(c))
			start := c.Chunk().CurrentOffset()
			c.EmitPushInt(1)
			require.NoError(t, c.EmitAssign("x"))

			ops := opcodes(t, &Chunk{Code: c.Chunk().Code[start:]})
			assert.Equal(t, []Opcode{OpPushOne, tt.want}, ops)
		})
	}
}

func TestEmitInitializeUndeclared(t *testing.T) {
	c := NewCompiler("undeclared", false)
	assert.True(t, jserror.IsFault(c.EmitInitializeLet("nope")))
	assert.True(t, jserror.IsFault(c.EmitInitializeConst("nope")))
}

func TestPopScopeUnbalanced(t *testing.T) {
	c := NewCompiler("unbalanced", false)
	err := c.PopScope()
	require.Error(t, err)
	assert.True(t, jserror.IsFault(err))
	assert.Equal(t, 0, c.Chunk().CodeLen(), "nothing emitted for a failed pop")
}

func TestSetPositionRecordsSourceMap(t *testing.T) {
	c := NewCompiler("positions", false)
	c.SetPosition(3, 7)
	c.EmitPushInt(1)
	c.SetPosition(4, 1)
	c.EmitReturn()

	line, col := c.Chunk().GetSourceLocation(2)
	assert.Equal(t, uint32(4), line)
	assert.Equal(t, uint16(1), col)
}
