package ui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dhamidi/iparse/project"
	"github.com/dhamidi/iparse/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calcGrammar = `
prog : stmt LIST eof [prog] .
stmt : "let" ident > name "=" int ";" [let] .
`

func newServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"iparse.toml": "grammars = [\"calc.gr\"]\nroot = \"prog\"\nextensions = [\".calc\"]\nformat = \"line\"\n",
		"calc.gr":     calcGrammar,
		"a.calc":      "let a = 1;",
		"bad.calc":    "let = 1;",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	p, err := project.LoadFrom(dir)
	require.NoError(t, err)
	s, err := NewServer(p)
	require.NoError(t, err)
	return s
}

func TestIndexListsFiles(t *testing.T) {
	s := newServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<a href="/files/a.calc">a.calc</a>`)
	assert.Contains(t, body, "<option selected>line</option>")
}

func postParse(s *Server, input, accept string) *httptest.ResponseRecorder {
	form := url.Values{"input": {input}}
	req := httptest.NewRequest(http.MethodPost, "/parse", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestParse(t *testing.T) {
	s := newServer(t)
	rec := postParse(s, "let x = 2;", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<pre id=\"tree\">prog([let(name(x), 2)])\n</pre>")
}

func TestParseJSON(t *testing.T) {
	s := newServer(t)
	rec := postParse(s, "let x = 2;", "application/json")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var node map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &node))
	assert.Equal(t, "tree", node["kind"])
	assert.Equal(t, "prog", node["type"])
}

func TestParseFailure(t *testing.T) {
	s := newServer(t)
	rec := postParse(s, "let x = ;", "application/json")

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body struct {
		Diagnostics []workspace.Diagnostic `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Diagnostics, 1)
	assert.Equal(t, 1, body.Diagnostics[0].Line)
	assert.Equal(t, 9, body.Diagnostics[0].Column)
	assert.Equal(t, "expected int", body.Diagnostics[0].Message)
}

func TestFile(t *testing.T) {
	s := newServer(t)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/a.calc", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "prog([let(name(a), 1)])")

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/bad.calc", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad.calc:1:5: expected ident")

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/calc.gr", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
