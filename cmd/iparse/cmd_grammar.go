package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/dhamidi/iparse/format"
	"github.com/dhamidi/iparse/grammar"
	"github.com/dhamidi/iparse/project"
	"github.com/dhamidi/iparse/tree"
	"github.com/spf13/cobra"
)

func newGrammarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grammar",
		Short: "Grammar tools",
	}

	cmd.AddCommand(newGrammarCheckCmd())
	cmd.AddCommand(newGrammarFmtCmd())
	cmd.AddCommand(newGrammarDumpCmd())

	return cmd
}

func newGrammarCheckCmd() *cobra.Command {
	var s settings
	var ll1 bool

	cmd := &cobra.Command{
		Use:   "check <grammar>...",
		Short: "Load a grammar chain and report type conflicts and left recursion",
		Long: `Load a grammar chain and check the last grammar.

Rules of one type that build trees of different shapes are reported: as an
error when both rules are reachable from the root, as a warning otherwise.
Left recursion is an error for every engine. With --ll1, choices that one
token of lookahead cannot decide are errors too.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := s.project(cmd)
			if err != nil {
				return err
			}
			p.Config.Grammars = absAll(args)
			g, err := p.Grammar(cmd.Context())
			if err != nil {
				printErrors(err)
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, issue := range g.CheckTypes(p.Config.Root) {
				var warning *grammar.AmbiguousTypeWarning
				if errors.As(issue, &warning) {
					fmt.Fprintf(out, "warning: %s\n", issue)
					continue
				}
				fmt.Fprintf(out, "error: %s\n", issue)
				failed++
			}

			an := grammar.Analyze(g)
			if err := an.LeftRecursion(); err != nil {
				fmt.Fprintf(out, "error: %s\n", err)
				failed++
			}
			if ll1 {
				for _, c := range an.Conflicts() {
					fmt.Fprintf(out, "error: %s\n", c)
					failed++
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d errors", failed)
			}
			return nil
		},
	}

	s.register(cmd.Flags())
	cmd.Flags().BoolVar(&ll1, "ll1", false, "also require the grammar to be LL(1)")

	return cmd
}

func newGrammarFmtCmd() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "fmt <grammar>",
		Short: "Print a grammar in canonical layout",
		Long: `Print a grammar in canonical layout: one non-terminal per paragraph,
alternatives aligned under the colon.

The grammar may be grammar text, a JSON grammar tree or an EBNF grammar.
Use -w to overwrite the file in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]
			gt, err := readGrammarTree(cmd, filename)
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := grammar.Format(&buf, gt); err != nil {
				return fmt.Errorf("format: %w", err)
			}

			if overwrite {
				return os.WriteFile(filename, buf.Bytes(), 0644)
			}
			_, err = cmd.OutOrStdout().Write(buf.Bytes())
			return err
		},
	}

	cmd.Flags().BoolVarP(&overwrite, "write", "w", false, "overwrite the file in place")

	return cmd
}

func newGrammarDumpCmd() *cobra.Command {
	var outputFormat, pkg, fn string

	cmd := &cobra.Command{
		Use:   "dump [grammar]",
		Short: "Print the tree of a grammar",
		Long: `Print the grammar tree of a grammar file, or of the meta-grammar when no
file is given.

With --format go the tree is written as Go source that rebuilds it, which is
how a grammar is compiled into a program.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gt := grammar.Bootstrap()
			if len(args) == 1 {
				var err error
				if gt, err = readGrammarTree(cmd, args[0]); err != nil {
					return err
				}
			}

			kind, err := format.ParseKind(outputFormat)
			if err != nil {
				return err
			}
			enc, err := format.NewEncoder(kind, cmd.OutOrStdout(), format.WithGoNames(pkg, fn))
			if err != nil {
				return err
			}
			if err := enc.Encode(gt); err != nil {
				return fmt.Errorf("encode: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "output format: text, line, json, xml or go")
	cmd.Flags().StringVar(&pkg, "package", "main", "package of generated Go source")
	cmd.Flags().StringVar(&fn, "func", "Grammar", "function name of generated Go source")

	return cmd
}

// readGrammarTree reads a grammar file with the meta-grammar.
func readGrammarTree(cmd *cobra.Command, filename string) (tree.Tree, error) {
	meta, err := project.LoadChain(cmd.Context(), nil)
	if err != nil {
		return tree.Tree{}, err
	}
	return project.ReadTree(cmd.Context(), filename, meta)
}
