package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/jscore/config"
)

var log = commonlog.GetLogger("jscore.cli")

// options holds the persistent flags and the configuration they select.
type options struct {
	configDir string
	verbose   int
	logFile   string

	cfg *config.Config
}

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// Execute is the entry point to running the CLI. It returns the process
// exit code.
func Execute(ctx context.Context, version string, args []string) int {
	return execute(ctx, version, args, os.Stdout, os.Stderr)
}

func execute(ctx context.Context, version string, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCommand(ctx, version)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
	return 1
}

func newRootCommand(ctx context.Context, version string) *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:           "jsvm",
		Short:         "Run and inspect jscore bytecode chunks",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configDir, "config", "c", "", "directory to search for jscore.toml (default: working directory)")
	rootCmd.PersistentFlags().CountVarP(&opts.verbose, "verbose", "v", "increase log verbosity (repeatable)")
	rootCmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "write logs to file instead of stderr")

	rootCmd.AddCommand(
		newRunCommand(ctx, opts),
		newDisasmCommand(opts),
		newInspectCommand(opts),
		newSampleCommand(opts),
		newCacheCommand(opts),
	)
	return rootCmd
}

// setup loads the configuration and configures logging.
func (o *options) setup() error {
	dir := o.configDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		dir = wd
	}
	cfg, err := config.FindAndLoad(dir)
	if err != nil {
		return err
	}
	o.cfg = cfg

	verbosity := cfg.Log.Verbosity + o.verbose
	if verbosity > 2 {
		verbosity = 2
	}
	path := cfg.Log.File
	if o.logFile != "" {
		path = o.logFile
	}
	if path == "" {
		commonlog.Configure(verbosity, nil)
	} else {
		commonlog.Configure(verbosity, &path)
	}
	if cfg.Dir != "" {
		log.Debugf("using configuration from %s", cfg.Dir)
	}
	return nil
}
