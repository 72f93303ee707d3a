package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/jscore/pkg/bytecode"
	"github.com/chazu/jscore/pkg/jserror"
)

// Exit codes for run.
const (
	exitUncaught = 1
	exitFault    = 2
)

func newRunCommand(ctx context.Context, opts *options) *cobra.Command {
	var trace bool
	var stackLimit int
	cmd := &cobra.Command{
		Use:   "run CHUNK",
		Short: "Execute a chunk file (or cached chunk hash) and print its completion value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("stack-limit") && stackLimit <= 0 {
				return fmt.Errorf("engine.stack-limit must be positive, got %d", stackLimit)
			}
			chunk, err := opts.loadChunk(args[0])
			if err != nil {
				return err
			}

			vm := bytecode.NewVM(newRealm())
			vm.StackLimit = opts.cfg.Engine.StackLimit
			vm.InterruptInterval = opts.cfg.Engine.InterruptInterval
			vm.Trace = opts.cfg.Engine.Trace || trace
			if cmd.Flags().Changed("stack-limit") {
				vm.StackLimit = stackLimit
			}
			log.Infof("vm %s: running %s", vm.ID, chunk.Name)

			result, err := vm.ExecuteContext(ctx, chunk)
			return report(cmd, result.String(), err)
		},
	}
	cmd.Flags().BoolVar(&trace, "trace", false, "log every executed instruction")
	cmd.Flags().IntVar(&stackLimit, "stack-limit", bytecode.DefaultStackLimit, "maximum operand stack depth")
	return cmd
}

// report prints a completion and maps execution errors to exit codes.
func report(cmd *cobra.Command, result string, err error) error {
	if err == nil {
		fmt.Fprintln(cmd.OutOrStdout(), result)
		return nil
	}

	var exc *bytecode.Exception
	var fault *jserror.Fault
	switch {
	case errors.As(err, &exc):
		fmt.Fprintf(cmd.ErrOrStderr(), "%s (at %04X)\n", exc.Error(), exc.PC)
		return &exitError{code: exitUncaught, err: err}
	case errors.As(err, &fault):
		fmt.Fprintf(cmd.ErrOrStderr(), "%+v\n", fault)
		return &exitError{code: exitFault, err: err}
	}
	return err
}
