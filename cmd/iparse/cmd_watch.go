package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dhamidi/iparse/workspace"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var s settings

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reparse project files as they change",
		Long: `Parse every file of the project, then keep watching the project directory.

Changed files are parsed again and their diagnostics printed. A change to a
grammar file reparses every file. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := s.project(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ws := workspace.New(p)
			if err := ws.ScanAll(ctx); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, f := range ws.Files() {
				report(out, f.Path, f)
			}

			w, err := workspace.NewWatcher(ws)
			if err != nil {
				return err
			}
			defer w.Close()

			return w.Run(ctx, func(path string, f *workspace.FileInfo) {
				report(out, path, f)
			})
		},
	}

	s.register(cmd.Flags())

	return cmd
}

func report(w io.Writer, path string, f *workspace.FileInfo) {
	if f == nil {
		fmt.Fprintf(w, "removed %s\n", path)
		return
	}
	diags := f.Diagnostics()
	if len(diags) == 0 {
		fmt.Fprintf(w, "ok %s\n", path)
		return
	}
	for _, d := range diags {
		fmt.Fprintln(w, d.Format(path))
	}
}
