package main

import (
	"github.com/spf13/cobra"

	"github.com/chazu/jscore/pkg/bytecode"
)

// compileSample lowers the following program:
//
//	var label = "sample";
//	let last;
//	{
//	  let i = 1;
//	  while (i <= 3) { last = i; i = i + 1; }
//	}
//	const origin = new Point(...[last, 0]);
//	[label, last, origin]
//
// The loop is driven by a jump table on i.
func compileSample(strict bool) (*bytecode.Chunk, error) {
	c := bytecode.NewCompiler("sample", strict)

	c.SetPosition(1, 1)
	if err := c.DeclareVar("label"); err != nil {
		return nil, err
	}
	c.EmitPushString("sample")
	c.EmitInitializeVar("label")

	c.SetPosition(2, 1)
	if err := c.DeclareLet("last"); err != nil {
		return nil, err
	}
	if err := c.DeclareConst("origin"); err != nil {
		return nil, err
	}
	c.Emit(bytecode.OpPushUndefined)
	if err := c.EmitInitializeLet("last"); err != nil {
		return nil, err
	}

	c.SetPosition(3, 1)
	c.PushScope(false)
	c.SetPosition(4, 3)
	if err := c.DeclareLet("i"); err != nil {
		return nil, err
	}
	c.EmitPushInt(1)
	if err := c.EmitInitializeLet("i"); err != nil {
		return nil, err
	}

	c.SetPosition(5, 3)
	top := c.Chunk().CurrentOffset()
	c.EmitGetName("i")
	def, cases := c.EmitJumpTable(3)
	for k, at := range cases {
		c.PatchJump(at)
		c.EmitGetName("i")
		if err := c.EmitAssign("last"); err != nil {
			return nil, err
		}
		c.EmitPushInt(int32(k + 2))
		if err := c.EmitAssign("i"); err != nil {
			return nil, err
		}
		c.EmitJumpTo(bytecode.OpJump, top)
	}
	c.PatchJump(def)
	if err := c.PopScope(); err != nil {
		return nil, err
	}

	c.SetPosition(7, 1)
	c.EmitGetName("Point")
	c.Emit(bytecode.OpPushNewArray)
	c.EmitGetName("last")
	c.Emit(bytecode.OpPushValueToArray)
	c.EmitPushInt(0)
	c.Emit(bytecode.OpPushValueToArray)
	c.EmitConstructSpread()
	if err := c.EmitInitializeConst("origin"); err != nil {
		return nil, err
	}

	c.SetPosition(8, 1)
	c.Emit(bytecode.OpPushNewArray)
	for _, name := range []string{"label", "last", "origin"} {
		c.EmitGetName(name)
		c.Emit(bytecode.OpPushValueToArray)
	}
	c.EmitReturn()

	return c.Finish()
}

func newSampleCommand(opts *options) *cobra.Command {
	var out string
	var strict bool
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Compile the built-in sample program to a chunk file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("strict") {
				strict = opts.cfg.Engine.Strict
			}
			chunk, err := compileSample(strict)
			if err != nil {
				return err
			}
			return writeChunk(chunk, out, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&strict, "strict", false, "compile as strict mode code")
	return cmd
}
