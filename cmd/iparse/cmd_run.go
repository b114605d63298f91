package main

import (
	"github.com/dhamidi/iparse/project"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var s settings

	cmd := &cobra.Command{
		Use:   "run <grammar>... <input>",
		Short: "Parse an input with a chain of grammars",
		Long: `Parse an input with a chain of grammars.

The first grammar is read with the meta-grammar, each later grammar with the
one before it, and the input with the last. With only an input, the input
is parsed with the meta-grammar itself.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := s.project(cmd)
			if err != nil {
				return err
			}
			p.Config.Grammars = absAll(args[:len(args)-1])
			if len(p.Config.Grammars) == 0 && !cmd.Flags().Changed("root") {
				p.Config.Root = project.MetaRoot
			}
			return parseFiles(cmd.Context(), p, args[len(args)-1:], 1, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	s.register(cmd.Flags())
	cmd.Flags().Lookup("grammar").Hidden = true

	return cmd
}
