package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDisasmCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "disasm CHUNK...",
		Short: "Print the disassembly of chunk files or cached chunks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, ref := range args {
				chunk, err := opts.loadChunk(ref)
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				fmt.Fprint(cmd.OutOrStdout(), chunk.Disassemble())
			}
			return nil
		},
	}
}
