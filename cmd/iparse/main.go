package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

const version = "0.1.0"

func main() {
	var verbose int

	rootCmd := &cobra.Command{
		Use:   "iparse",
		Short: "A grammar-driven parsing toolkit",
		Long: `iparse parses input with grammars given as data.

Grammars are written in the iparse grammar language, or imported from EBNF,
and interpreted by one of several engines: btstack, btheap, ll1stack,
ll1heap and par.`,
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			commonlog.Configure(verbose, nil)
		},
	}

	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "log more (repeat for more detail)")

	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newGrammarCmd())
	rootCmd.AddCommand(newEbnfCmd())
	rootCmd.AddCommand(newLSPCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newUICmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
