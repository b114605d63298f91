package project

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dhamidi/iparse/ebnf"
	"github.com/dhamidi/iparse/engine"
	"github.com/dhamidi/iparse/format"
	"github.com/dhamidi/iparse/grammar"
	"github.com/dhamidi/iparse/scanner"
	"github.com/dhamidi/iparse/tree"
)

// MetaRoot is the start non-terminal of grammar texts.
const MetaRoot = "root"

// FileError is a failure to read or parse a file. Positioned failures
// render as file:line:column: message.
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string {
	var pf *engine.ParseFailure
	if errors.As(e.Err, &pf) {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, pf.Pos.Line, pf.Pos.Column, pf.Message())
	}
	var se *scanner.Error
	if errors.As(e.Err, &se) {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, se.Pos.Line, se.Pos.Column, se.Msg)
	}
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

func isEBNF(name string) bool {
	return filepath.Ext(name) == ".ebnf"
}

// ReadTree reads the grammar tree stored in filename. JSON files hold an
// encoded tree, EBNF files are converted, and anything else is grammar text
// parsed with by, starting at MetaRoot.
func ReadTree(ctx context.Context, filename string, by *grammar.Grammar) (tree.Tree, error) {
	switch filepath.Ext(filename) {
	case ".json":
		f, err := os.Open(filename)
		if err != nil {
			return tree.Tree{}, fmt.Errorf("open grammar: %w", err)
		}
		defer f.Close()
		t, err := format.DecodeJSON(f)
		if err != nil {
			return tree.Tree{}, &FileError{File: filename, Err: err}
		}
		return t, nil

	case ".ebnf":
		g, err := ebnf.ParseFile(filename)
		if err != nil {
			return tree.Tree{}, err
		}
		t, err := ebnf.Convert(g)
		if err != nil {
			return tree.Tree{}, &FileError{File: filename, Err: err}
		}
		return t, nil
	}

	src, err := os.ReadFile(filename)
	if err != nil {
		return tree.Tree{}, fmt.Errorf("read grammar: %w", err)
	}
	e := engine.NewBTStack(scanner.NewBasic())
	if err := e.Load(by); err != nil {
		return tree.Tree{}, fmt.Errorf("load grammar: %w", err)
	}
	t, err := e.Parse(ctx, src, MetaRoot)
	if err != nil {
		return tree.Tree{}, &FileError{File: filename, Err: err}
	}
	return t, nil
}

// LoadChain starts from the meta-grammar and reads each file with the
// grammar the file before it produced. opts apply to the last grammar
// loaded.
func LoadChain(ctx context.Context, files []string, opts ...grammar.LoadOption) (*grammar.Grammar, error) {
	g, err := grammar.Load(grammar.Bootstrap())
	if err != nil {
		return nil, fmt.Errorf("load meta-grammar: %w", err)
	}
	for i, file := range files {
		t, err := ReadTree(ctx, file, g)
		if err != nil {
			return nil, err
		}
		var lopts []grammar.LoadOption
		if i == len(files)-1 {
			lopts = opts
		}
		if g, err = grammar.Load(t, lopts...); err != nil {
			return nil, &FileError{File: file, Err: err}
		}
	}
	return g, nil
}
