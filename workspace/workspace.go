// Package workspace keeps the parse results of a project's files current
// and reports them as diagnostics, to an editor over LSP or to a terminal
// from a file watcher.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dhamidi/iparse/engine"
	"github.com/dhamidi/iparse/project"
	"github.com/dhamidi/iparse/reader"
	"github.com/dhamidi/iparse/scanner"
	"github.com/dhamidi/iparse/tree"
	"github.com/tliron/commonlog"
)

type Workspace struct {
	mu      sync.RWMutex
	project *project.Project
	parser  *project.Parser
	files   map[string]*FileInfo
	log     commonlog.Logger
}

type FileInfo struct {
	Path     string
	Content  []byte
	Tree     tree.Tree
	ParseErr error
}

// Diagnostic is a problem found in a file. Line and Column start at 1.
type Diagnostic struct {
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Message  string   `json:"message"`
	Expected []string `json:"expected,omitempty"`
}

func New(p *project.Project) *Workspace {
	return &Workspace{
		project: p,
		files:   make(map[string]*FileInfo),
		log:     commonlog.GetLogger("iparse.workspace"),
	}
}

func (w *Workspace) RootDir() string {
	return w.project.RootDir
}

func (w *Workspace) Project() *project.Project {
	return w.project
}

// ScanAll parses every input file of the project.
func (w *Workspace) ScanAll(ctx context.Context) error {
	paths, err := w.project.Files()
	if err != nil {
		return err
	}
	for _, path := range paths {
		if err := w.ScanFile(ctx, path); err != nil {
			w.log.Warningf("scan %s: %s", path, err)
		}
	}
	return nil
}

// ScanFile reads path from disk and parses it.
func (w *Workspace) ScanFile(ctx context.Context, path string) error {
	kind, err := reader.ParseKind(w.project.Config.Reader)
	if err != nil {
		return err
	}
	content, err := reader.ReadFile(kind, path)
	if err != nil {
		return err
	}
	w.UpdateFile(ctx, path, content)
	return nil
}

// UpdateFile parses content as the new text of path.
func (w *Workspace) UpdateFile(ctx context.Context, path string, content []byte) *FileInfo {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.updateFileLocked(ctx, path, content)
}

func (w *Workspace) updateFileLocked(ctx context.Context, path string, content []byte) *FileInfo {
	f := &FileInfo{Path: path, Content: content}
	f.Tree, f.ParseErr = w.parseLocked(ctx, content)
	if f.ParseErr != nil {
		w.log.Debugf("%s: %s", path, f.ParseErr)
	}
	w.files[path] = f
	return f
}

func (w *Workspace) parseLocked(ctx context.Context, content []byte) (tree.Tree, error) {
	if w.parser == nil {
		p, err := w.project.NewParser(ctx)
		if err != nil {
			return tree.Tree{}, err
		}
		w.parser = p
	}
	if timeout := w.project.Config.Timeout.Duration; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return w.parser.Parse(ctx, content)
}

// ReloadGrammar reads the grammar again and reparses every known file.
// It returns the files in path order.
func (w *Workspace) ReloadGrammar(ctx context.Context) []*FileInfo {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.project.Reload()
	w.parser = nil
	for _, path := range w.pathsLocked() {
		w.updateFileLocked(ctx, path, w.files[path].Content)
	}
	return w.filesLocked()
}

func (w *Workspace) RemoveFile(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.files, path)
}

func (w *Workspace) GetFile(path string) *FileInfo {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.files[path]
}

// Files returns every known file in path order.
func (w *Workspace) Files() []*FileInfo {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.filesLocked()
}

func (w *Workspace) pathsLocked() []string {
	paths := make([]string, 0, len(w.files))
	for path := range w.files {
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths
}

func (w *Workspace) filesLocked() []*FileInfo {
	paths := w.pathsLocked()
	files := make([]*FileInfo, len(paths))
	for i, path := range paths {
		files[i] = w.files[path]
	}
	return files
}

// Diagnostics describes why f failed to parse. Errors without a position,
// such as a grammar that does not load, are reported at the start of the
// file.
func (f *FileInfo) Diagnostics() []Diagnostic {
	if f.ParseErr == nil {
		return nil
	}
	var pf *engine.ParseFailure
	if errors.As(f.ParseErr, &pf) {
		return []Diagnostic{{
			Line:     pf.Pos.Line,
			Column:   pf.Pos.Column,
			Message:  pf.Message(),
			Expected: pf.Expected,
		}}
	}
	var se *scanner.Error
	if errors.As(f.ParseErr, &se) {
		return []Diagnostic{{Line: se.Pos.Line, Column: se.Pos.Column, Message: se.Msg}}
	}
	return []Diagnostic{{Line: 1, Column: 1, Message: f.ParseErr.Error()}}
}

// Format renders d as path:line:column: message.
func (d Diagnostic) Format(path string) string {
	return fmt.Sprintf("%s:%d:%d: %s", path, d.Line, d.Column, d.Message)
}
