package workspace

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher reparses project files when they change on disk. A change to a
// grammar file reparses every known file.
type Watcher struct {
	workspace *Workspace
	watcher   *fsnotify.Watcher
}

func NewWatcher(ws *Workspace) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{workspace: ws, watcher: fw}

	if err := w.addTree(ws.RootDir()); err != nil {
		fw.Close()
		return nil, err
	}
	cfg := ws.Project().Config
	for _, name := range append(slices.Clone(cfg.Grammars), cfg.Lexer) {
		if name == "" {
			continue
		}
		if err := fw.Add(filepath.Dir(cfg.Path(name))); err != nil {
			ws.log.Warningf("watch grammar %s: %s", name, err)
		}
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// Run handles file system events until ctx is done. onChange receives every
// file whose parse result changed, or nil for a file that went away.
func (w *Watcher) Run(ctx context.Context, onChange func(path string, f *FileInfo)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event, onChange)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.workspace.log.Errorf("watch: %s", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event, onChange func(string, *FileInfo)) {
	path := event.Name
	p := w.workspace.Project()

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if w.workspace.GetFile(path) != nil {
			w.workspace.RemoveFile(path)
			onChange(path, nil)
		}

	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		if event.Op&fsnotify.Create != 0 {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				if err := w.addTree(path); err != nil {
					w.workspace.log.Warningf("watch %s: %s", path, err)
				}
				return
			}
		}
		if p.IsGrammarFile(path) {
			w.workspace.log.Infof("grammar %s changed, reparsing", path)
			for _, f := range w.workspace.ReloadGrammar(ctx) {
				onChange(f.Path, f)
			}
			return
		}
		if !p.Matches(path) {
			return
		}
		if err := w.workspace.ScanFile(ctx, path); err != nil {
			w.workspace.log.Warningf("scan %s: %s", path, err)
			return
		}
		onChange(path, w.workspace.GetFile(path))
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
