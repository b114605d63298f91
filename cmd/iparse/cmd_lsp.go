package main

import (
	"github.com/dhamidi/iparse/workspace"
	"github.com/spf13/cobra"
)

func newLSPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		Long: `Start a language server on stdin and stdout.

The server parses the files of the workspace's project as they are opened
and edited and publishes parse failures as diagnostics. Saving a grammar
file reparses every file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			server := workspace.NewLSPServer(version)
			return server.RunStdio()
		},
	}
}
