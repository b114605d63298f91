package main

import (
	"fmt"
	"os"
	"reflect"

	"github.com/dhamidi/iparse/ebnf"
	"github.com/dhamidi/iparse/format"
	"github.com/dhamidi/iparse/grammar"
	"github.com/spf13/cobra"
	xebnf "golang.org/x/exp/ebnf"
)

func newEbnfCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ebnf",
		Short:         "EBNF grammar tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newEbnfCheckCmd())
	cmd.AddCommand(newEbnfConvertCmd())

	return cmd
}

func newEbnfCheckCmd() *cobra.Command {
	var startProduction string

	cmd := &cobra.Command{
		Use:           "check <file>",
		Short:         "Parse and verify an EBNF grammar file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := parseEBNF(args[0])
			if err != nil {
				printErrors(err)
				return err
			}

			if startProduction != "" {
				if err := xebnf.Verify(g, startProduction); err != nil {
					printErrors(err)
					return err
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&startProduction, "start", "", "start production for verification (if empty, only checks syntax)")

	return cmd
}

func newEbnfConvertCmd() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert an EBNF grammar into an iparse grammar",
		Long: `Convert the syntactic productions of an EBNF grammar into an iparse grammar.

Productions with lower-case names become non-terminals; upper-case
productions stay with the ebnf scanner, which reads them as token kinds.
By default the grammar is printed as grammar text; --format selects a tree
format instead.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := parseEBNF(args[0])
			if err != nil {
				printErrors(err)
				return err
			}
			gt, err := ebnf.Convert(g)
			if err != nil {
				printErrors(err)
				return err
			}

			if outputFormat == "" {
				return grammar.Format(cmd.OutOrStdout(), gt)
			}
			kind, err := format.ParseKind(outputFormat)
			if err != nil {
				return err
			}
			enc, err := format.NewEncoder(kind, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return enc.Encode(gt)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "", "tree format instead of grammar text: text, line, json, xml or go")

	return cmd
}

func parseEBNF(filename string) (xebnf.Grammar, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return xebnf.Parse(filename, f)
}

// printErrors prints every error of an error list, one per line.
func printErrors(err error) {
	v := reflect.ValueOf(err)
	if v.Kind() == reflect.Slice {
		for i := 0; i < v.Len(); i++ {
			fmt.Fprintln(os.Stderr, v.Index(i).Interface())
		}
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
}
