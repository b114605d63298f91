// Package project ties a directory of inputs to the grammar, scanner and
// engine its iparse.toml selects.
package project

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/dhamidi/iparse/config"
	"github.com/dhamidi/iparse/engine"
	"github.com/dhamidi/iparse/grammar"
	"github.com/dhamidi/iparse/reader"
	"github.com/dhamidi/iparse/scanner"
	"github.com/dhamidi/iparse/tree"
	xebnf "golang.org/x/exp/ebnf"
)

// Project is a directory of inputs sharing one configuration.
type Project struct {
	RootDir string
	Config  *config.Config

	mu      sync.Mutex
	grammar *grammar.Grammar
	lexer   xebnf.Grammar
}

// Load looks for a project in the current directory.
func Load() (*Project, error) {
	return LoadFrom(".")
}

// LoadFrom uses the nearest iparse.toml in rootDir or one of its parents.
// Without one the defaults apply and rootDir is the project root.
func LoadFrom(rootDir string) (*Project, error) {
	path, ok := config.Find(rootDir)
	if !ok {
		cfg := config.Default()
		cfg.Dir = rootDir
		return New(cfg), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return New(cfg), nil
}

// New returns the project described by cfg, rooted at cfg.Dir.
func New(cfg *config.Config) *Project {
	return &Project{RootDir: cfg.Dir, Config: cfg}
}

// Files returns the files below the project root whose extension is one of
// the configured extensions, in lexical order. Hidden directories are
// skipped.
func (p *Project) Files() ([]string, error) {
	var files []string

	err := filepath.WalkDir(p.RootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != p.RootDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if p.Matches(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan files in %s: %w", p.RootDir, err)
	}

	return files, nil
}

// Matches reports whether path has one of the configured extensions.
func (p *Project) Matches(path string) bool {
	return slices.Contains(p.Config.Extensions, filepath.Ext(path))
}

// Lexer returns the lexical grammar of the ebnf scanner: the configured
// lexer, or else the last grammar file when it is an EBNF grammar.
func (p *Project) Lexer() (xebnf.Grammar, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lexerLocked()
}

func (p *Project) lexerLocked() (xebnf.Grammar, error) {
	if p.lexer != nil {
		return p.lexer, nil
	}
	name := p.Config.Lexer
	if name == "" {
		if n := len(p.Config.Grammars); n > 0 && isEBNF(p.Config.Grammars[n-1]) {
			name = p.Config.Grammars[n-1]
		}
	}
	if name == "" {
		return nil, fmt.Errorf("the ebnf scanner needs a lexer")
	}
	g, err := scanner.LoadLexer(p.Config.Path(name))
	if err != nil {
		return nil, err
	}
	p.lexer = g
	return g, nil
}

// NewScanner returns a fresh scanner of the configured kind.
func (p *Project) NewScanner() (scanner.Scanner, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.newScannerLocked()
}

func (p *Project) newScannerLocked() (scanner.Scanner, error) {
	kind, err := scanner.ParseKind(p.Config.Scanner)
	if err != nil {
		return nil, err
	}
	opts := []scanner.Option{scanner.WithDebug(p.Config.Debug.Scan)}
	if kind == scanner.KindEBNF {
		lexer, err := p.lexerLocked()
		if err != nil {
			return nil, err
		}
		opts = append(opts, scanner.WithLexer(lexer), scanner.WithIdentKinds(p.Config.IdentKinds...))
	}
	return scanner.New(kind, opts...)
}

// Grammar loads the configured grammar chain on first use.
func (p *Project) Grammar(ctx context.Context) (*grammar.Grammar, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.grammar != nil {
		return p.grammar, nil
	}

	sc, err := p.newScannerLocked()
	if err != nil {
		return nil, err
	}
	files := make([]string, len(p.Config.Grammars))
	for i, name := range p.Config.Grammars {
		files[i] = p.Config.Path(name)
	}
	g, err := LoadChain(ctx, files, grammar.WithTerminals(sc.IsTerminal))
	if err != nil {
		return nil, err
	}
	p.grammar = g
	return g, nil
}

// Reload drops the loaded grammar and lexer so the next use reads them
// again.
func (p *Project) Reload() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.grammar = nil
	p.lexer = nil
}

// IsGrammarFile reports whether path is one of the grammar chain's files
// or the lexer.
func (p *Project) IsGrammarFile(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	names := append(slices.Clone(p.Config.Grammars), p.Config.Lexer)
	for _, name := range names {
		if name == "" {
			continue
		}
		if other, err := filepath.Abs(p.Config.Path(name)); err == nil && other == abs {
			return true
		}
	}
	return false
}

// Parser parses inputs with the project's grammar. A parser owns its engine
// and scanner and is not safe for concurrent use; create one per goroutine.
type Parser struct {
	engine engine.Engine
	root   string
	reader reader.Kind
}

// NewParser returns a parser with its own scanner and engine.
func (p *Project) NewParser(ctx context.Context) (*Parser, error) {
	g, err := p.Grammar(ctx)
	if err != nil {
		return nil, err
	}
	sc, err := p.NewScanner()
	if err != nil {
		return nil, err
	}
	kind, err := engine.ParseKind(p.Config.Engine)
	if err != nil {
		return nil, err
	}
	rk, err := reader.ParseKind(p.Config.Reader)
	if err != nil {
		return nil, err
	}
	e, err := engine.New(kind, sc, engine.WithDebug(engine.Debug{
		NonTerminals: p.Config.Debug.NonTerminals,
		Parse:        p.Config.Debug.Parse,
	}))
	if err != nil {
		return nil, err
	}
	if err := e.Load(g); err != nil {
		return nil, fmt.Errorf("load grammar into %s: %w", kind, err)
	}
	return &Parser{engine: e, root: p.Config.Root, reader: rk}, nil
}

// Parse parses UTF-8 source.
func (p *Parser) Parse(ctx context.Context, src []byte) (tree.Tree, error) {
	return p.engine.Parse(ctx, src, p.root)
}

// ParseFile reads filename with the configured reader and parses it.
// Failures are returned as *FileError.
func (p *Parser) ParseFile(ctx context.Context, filename string) (tree.Tree, error) {
	src, err := reader.ReadFile(p.reader, filename)
	if err != nil {
		return tree.Tree{}, &FileError{File: filename, Err: err}
	}
	t, err := p.Parse(ctx, src)
	if err != nil {
		return tree.Tree{}, &FileError{File: filename, Err: err}
	}
	return t, nil
}

// Reader returns the kind of reader the parser decodes files with.
func (p *Parser) Reader() reader.Kind {
	return p.reader
}
