package main

import (
	"github.com/spf13/cobra"

	"github.com/calumari/nimarm/internal/armsim"
	"github.com/calumari/nimarm/internal/generator"
	"github.com/calumari/nimarm/internal/program"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var maxSteps int
	cmd := &cobra.Command{
		Use:   "run <program.yaml>",
		Short: "Generate a program and simulate it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.logger(cmd.ErrOrStderr())
			p, err := program.Load(args[0])
			if err != nil {
				return err
			}
			asm, err := generator.Generate(p.Script, p.Global, p.Types, generator.Config{Logger: logger})
			if err != nil {
				return err
			}
			res, err := armsim.Run(cmd.Context(), asm, armsim.Config{
				MaxSteps: maxSteps,
				Stdout:   cmd.OutOrStdout(),
			})
			if err != nil {
				return err
			}
			logger.Debug("simulation finished",
				"steps", res.Steps,
				"allocations", len(res.Allocations),
				"stack_words", (res.StackTop-res.SP())/4)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxSteps, "max-steps", armsim.DefaultMaxSteps, "instruction limit for the simulation")
	return cmd
}
