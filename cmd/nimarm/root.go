package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	version string
	verbose bool
}

// logger writes to the command's stderr: debug with --verbose, warnings
// otherwise.
func (o *rootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newRootCmd(version string) *cobra.Command {
	opts := &rootOptions{version: version}
	root := &cobra.Command{
		Use:   "nimarm",
		Short: "nimarm generates ARM assembly from analyzed Nimble programs",
		Long: `nimarm is the code generation stage of the Nimble compiler. It reads the
program document written by the parser and semantic analyzer and emits
ARM assembly, or simulates that assembly directly.

Commands:
  build    Generate assembly (.s) for a program document
  run      Generate and simulate a program, printing its output
  version  Print the nimarm version
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log generation and simulation details to stderr")

	root.AddCommand(newBuildCmd(opts), newRunCmd(opts), newVersionCmd(opts))
	return root
}
