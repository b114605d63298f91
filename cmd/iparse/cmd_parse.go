package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/dhamidi/iparse/format"
	"github.com/dhamidi/iparse/project"
	"github.com/dhamidi/iparse/reader"
	"github.com/dhamidi/iparse/tree"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newParseCmd() *cobra.Command {
	var s settings
	var output string
	var jobs int

	cmd := &cobra.Command{
		Use:   "parse [file...]",
		Short: "Parse files and print their parse trees",
		Long: `Parse files with the configured grammar and print their parse trees.

Without arguments, every file of the project whose extension is listed in
iparse.toml is parsed. Files are parsed concurrently; trees are printed in
argument order. A file that does not parse is reported as
file:line:column: expected ...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := s.project(cmd)
			if err != nil {
				return err
			}
			files := args
			if len(files) == 0 {
				if files, err = p.Files(); err != nil {
					return err
				}
				if len(files) == 0 {
					return fmt.Errorf("no input files")
				}
			}

			w, closeOutput, err := openOutput(output, p)
			if err != nil {
				return err
			}
			err = parseFiles(cmd.Context(), p, files, jobs, w, cmd.ErrOrStderr())
			if cerr := closeOutput(); err == nil {
				err = cerr
			}
			return err
		},
	}

	s.register(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the trees to this file, in the reader's encoding")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "number of files parsed at once")

	return cmd
}

// openOutput returns stdout, or the file output converted to the encoding
// the inputs are read in.
func openOutput(output string, p *project.Project) (io.Writer, func() error, error) {
	if output == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	kind, err := reader.ParseKind(p.Config.Reader)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Create(output)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	w := reader.NewWriter(kind, f)
	return w, func() error {
		if err := w.Close(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}, nil
}

type parseResult struct {
	tree tree.Tree
	err  error
}

func parseFiles(ctx context.Context, p *project.Project, files []string, jobs int, w, errw io.Writer) error {
	kind, err := format.ParseKind(p.Config.Format)
	if err != nil {
		return err
	}
	enc, err := format.NewEncoder(kind, w)
	if err != nil {
		return err
	}
	// Load the grammar once, before the parsers share it.
	if _, err := p.Grammar(ctx); err != nil {
		return err
	}

	results := make([]parseResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))
	for i, file := range files {
		g.Go(func() error {
			ps, err := p.NewParser(gctx)
			if err != nil {
				return err
			}
			fctx := gctx
			if timeout := p.Config.Timeout.Duration; timeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(gctx, timeout)
				defer cancel()
			}
			results[i].tree, results[i].err = ps.ParseFile(fctx, file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.err != nil {
			fmt.Fprintln(errw, r.err)
			failed++
			continue
		}
		if err := enc.Encode(r.tree); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to parse", failed, len(files))
	}
	return nil
}
