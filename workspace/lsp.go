package workspace

import (
	"bytes"
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"unicode/utf16"

	"github.com/dhamidi/iparse/project"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
)

const lsName = "iparse"

// LSPServer publishes the parse failures of a project's files as
// diagnostics. Saving a grammar file reparses every file.
type LSPServer struct {
	workspace *Workspace
	handler   protocol.Handler
	server    *server.Server
	version   string
}

func NewLSPServer(version string) *LSPServer {
	ls := &LSPServer{
		version: version,
	}

	ls.handler = protocol.Handler{
		Initialize:            ls.initialize,
		Initialized:           ls.initialized,
		Shutdown:              ls.shutdown,
		SetTrace:              ls.setTrace,
		TextDocumentDidOpen:   ls.textDocumentDidOpen,
		TextDocumentDidChange: ls.textDocumentDidChange,
		TextDocumentDidClose:  ls.textDocumentDidClose,
		TextDocumentDidSave:   ls.textDocumentDidSave,
	}

	ls.server = server.NewServer(&ls.handler, lsName, false)

	return ls
}

func (ls *LSPServer) RunStdio() error {
	return ls.server.RunStdio()
}

func (ls *LSPServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	rootDir := "."
	if params.RootPath != nil && *params.RootPath != "" {
		rootDir = *params.RootPath
	} else if params.RootURI != nil && *params.RootURI != "" {
		if path, err := uriToPath(*params.RootURI); err == nil {
			rootDir = path
		}
	}

	p, err := project.LoadFrom(rootDir)
	if err != nil {
		return nil, err
	}
	ls.workspace = New(p)

	capabilities := ls.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    syncKindPtr(protocol.TextDocumentSyncKindFull),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(true),
		},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &ls.version,
		},
	}, nil
}

func (ls *LSPServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	if err := ls.workspace.ScanAll(context.Background()); err != nil {
		ls.workspace.log.Errorf("scan workspace: %s", err)
	}
	for _, f := range ls.workspace.Files() {
		publish(ctx, f)
	}
	return nil
}

func (ls *LSPServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (ls *LSPServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (ls *LSPServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	ls.update(ctx, path, []byte(params.TextDocument.Text))
	return nil
}

func (ls *LSPServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	if len(params.ContentChanges) > 0 {
		change := params.ContentChanges[len(params.ContentChanges)-1]
		if textChange, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
			ls.update(ctx, path, []byte(textChange.Text))
		}
	}
	return nil
}

func (ls *LSPServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	return nil
}

func (ls *LSPServer) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	if ls.workspace.Project().IsGrammarFile(path) {
		for _, f := range ls.workspace.ReloadGrammar(context.Background()) {
			publish(ctx, f)
		}
		return nil
	}
	if params.Text != nil {
		ls.update(ctx, path, []byte(*params.Text))
	} else if err := ls.workspace.ScanFile(context.Background(), path); err == nil {
		publish(ctx, ls.workspace.GetFile(path))
	}
	return nil
}

// update parses documents of the project's file types; others are left
// alone.
func (ls *LSPServer) update(ctx *glsp.Context, path string, content []byte) {
	if !ls.workspace.Project().Matches(path) {
		return
	}
	publish(ctx, ls.workspace.UpdateFile(context.Background(), path, content))
}

func publish(ctx *glsp.Context, f *FileInfo) {
	if f == nil {
		return
	}
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         pathToURI(f.Path),
		Diagnostics: toProtocolDiagnostics(f.Content, f.Diagnostics()),
	})
}

// toProtocolDiagnostics converts diagnostics of content. Columns are
// counted in bytes; LSP counts UTF-16 code units.
func toProtocolDiagnostics(content []byte, diags []Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(diags))
	severity := protocol.DiagnosticSeverityError
	source := lsName
	for _, d := range diags {
		pos := protocol.Position{
			Line:      protocol.UInteger(max(d.Line-1, 0)),
			Character: protocol.UInteger(utf16Column(content, d.Line, d.Column)),
		}
		out = append(out, protocol.Diagnostic{
			Range:    protocol.Range{Start: pos, End: pos},
			Severity: &severity,
			Source:   &source,
			Message:  d.Message,
		})
	}
	return out
}

// utf16Column returns the zero-based UTF-16 offset of the byte column col
// on line.
func utf16Column(content []byte, line, col int) int {
	start := 0
	for l := 1; l < line; l++ {
		i := bytes.IndexByte(content[start:], '\n')
		if i < 0 {
			return max(col-1, 0)
		}
		start += i + 1
	}
	end := min(start+max(col-1, 0), len(content))
	n := 0
	for _, r := range string(content[start:end]) {
		n += utf16.RuneLen(r)
	}
	return n + max(start+col-1-end, 0)
}

func uriToPath(uri string) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		parsed, err := url.Parse(uri)
		if err != nil {
			return "", err
		}
		return filepath.Clean(parsed.Path), nil
	}
	return uri, nil
}

func pathToURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

func boolPtr(b bool) *bool {
	return &b
}

func syncKindPtr(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
