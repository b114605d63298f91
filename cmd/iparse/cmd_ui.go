package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dhamidi/iparse/ui"
	"github.com/spf13/cobra"
)

func newUICmd() *cobra.Command {
	var s settings
	var addr string

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Start the grammar playground web server",
		Long: `Start a web server for trying out the project grammar.

Text posted to /parse is parsed and its tree shown in the selected format;
project files are listed and parsed under /files/. Requests that accept
application/json get the JSON tree.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := s.project(cmd)
			if err != nil {
				return err
			}
			server, err := ui.NewServer(p)
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}
			displayAddr := addr
			if strings.HasPrefix(addr, ":") {
				displayAddr = "localhost" + addr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Starting server at http://%s\n", displayAddr)
			return http.ListenAndServe(addr, server)
		},
	}

	s.register(cmd.Flags())
	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "address to listen on")

	return cmd
}
