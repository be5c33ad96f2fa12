package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/calumari/nimarm/internal/generator"
	"github.com/calumari/nimarm/internal/program"
)

func newBuildCmd(opts *rootOptions) *cobra.Command {
	var output string
	var debug bool
	cmd := &cobra.Command{
		Use:   "build <program.yaml>",
		Short: "Generate ARM assembly for a program document",
		Long: `Generate ARM assembly for a program document. The output defaults to the
input path with its extension replaced by .s; "-" writes to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.logger(cmd.ErrOrStderr())
			p, err := program.Load(args[0])
			if err != nil {
				return err
			}
			asm, err := generator.Generate(p.Script, p.Global, p.Types, generator.Config{
				Debug:   debug,
				Version: opts.version,
				Logger:  logger,
			})
			if err != nil {
				return err
			}
			if output == "" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".s"
			}
			if output == "-" {
				_, err = cmd.OutOrStdout().Write([]byte(asm))
				return err
			}
			if err := os.WriteFile(output, []byte(asm), 0o644); err != nil {
				return err
			}
			logger.Info("wrote assembly", "path", output, "bytes", len(asm))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file ("-" for stdout)`)
	cmd.Flags().BoolVar(&debug, "debug", false, "emit comments linking generated code to tree nodes")
	return cmd
}
