package ui

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dhamidi/iparse/format"
	"github.com/dhamidi/iparse/project"
	"github.com/dhamidi/iparse/tree"
	"github.com/dhamidi/iparse/workspace"
	"github.com/tliron/commonlog"
)

//go:embed templates
var embeddedFS embed.FS

// Server is a playground for the project grammar: it parses text posted to
// it and project files, and shows the trees.
type Server struct {
	project   *project.Project
	templates *template.Template
	mux       *http.ServeMux
	log       commonlog.Logger
}

// PageData is what index.html renders.
type PageData struct {
	Root        string
	Engine      string
	Files       []string
	Path        string
	Input       string
	Format      string
	Formats     []string
	Output      string
	Diagnostics []workspace.Diagnostic
}

func NewServer(p *project.Project) (*Server, error) {
	funcMap := template.FuncMap{
		"diag": func(path string, d workspace.Diagnostic) string {
			return d.Format(path)
		},
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(mustSub(embeddedFS, "templates"), "*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		project:   p,
		templates: tmpl,
		mux:       http.NewServeMux(),
		log:       commonlog.GetLogger("iparse.ui"),
	}

	s.mux.HandleFunc("POST /parse", s.handleParse)
	s.mux.HandleFunc("GET /files/{path...}", s.handleFile)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) page() PageData {
	data := PageData{
		Root:   s.project.Config.Root,
		Engine: s.project.Config.Engine,
		Format: s.project.Config.Format,
	}
	for _, k := range format.Kinds() {
		data.Formats = append(data.Formats, k.String())
	}
	files, err := s.project.Files()
	if err != nil {
		s.log.Warningf("list files: %s", err)
	}
	for _, f := range files {
		if rel, err := filepath.Rel(s.project.RootDir, f); err == nil {
			data.Files = append(data.Files, filepath.ToSlash(rel))
		}
	}
	return data
}

func (s *Server) render(w http.ResponseWriter, status int, data PageData) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, s.page())
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data: "+err.Error(), http.StatusBadRequest)
		return
	}
	data := s.page()
	data.Path = "input"
	data.Input = r.FormValue("input")
	if f := r.FormValue("format"); f != "" {
		data.Format = f
	}

	ps, err := s.project.NewParser(r.Context())
	if err != nil {
		s.respond(w, r, data, tree.Tree{}, err)
		return
	}
	t, err := ps.Parse(r.Context(), []byte(data.Input))
	s.respond(w, r, data, t, err)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	rel := r.PathValue("path")
	path := filepath.Join(s.project.RootDir, filepath.FromSlash(rel))
	if !strings.HasPrefix(path, filepath.Clean(s.project.RootDir)+string(filepath.Separator)) || !s.project.Matches(path) {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}

	data := s.page()
	data.Path = rel
	if f := r.URL.Query().Get("format"); f != "" {
		data.Format = f
	}

	ps, err := s.project.NewParser(r.Context())
	if err != nil {
		s.respond(w, r, data, tree.Tree{}, err)
		return
	}
	t, err := ps.ParseFile(r.Context(), path)
	s.respond(w, r, data, t, err)
}

// respond writes the tree in the requested format. Requests that accept
// only JSON get the bare tree or the diagnostics; everything else gets the
// page.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, data PageData, t tree.Tree, parseErr error) {
	if parseErr != nil {
		data.Diagnostics = (&workspace.FileInfo{Path: data.Path, ParseErr: parseErr}).Diagnostics()
	}

	if r.Header.Get("Accept") == "application/json" {
		data.Format = "json"
	}
	kind, err := format.ParseKind(data.Format)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if parseErr == nil {
		var buf bytes.Buffer
		enc, err := format.NewEncoder(kind, &buf)
		if err == nil {
			err = enc.Encode(t)
		}
		if err != nil {
			http.Error(w, "encode: "+err.Error(), http.StatusInternalServerError)
			return
		}
		data.Output = buf.String()
	}

	if kind == format.KindJSON && r.Header.Get("Accept") == "application/json" {
		w.Header().Set("Content-Type", "application/json")
		if parseErr != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]any{"diagnostics": data.Diagnostics})
			return
		}
		w.Write([]byte(data.Output))
		return
	}

	status := http.StatusOK
	if parseErr != nil {
		status = http.StatusUnprocessableEntity
	}
	s.render(w, status, data)
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
