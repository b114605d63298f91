// Package config reads iparse.toml, the settings file of a directory of
// inputs that share a grammar.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the name Find looks for.
const FileName = "iparse.toml"

type Config struct {
	// Grammars are the grammar files, in chain order. The first is read with
	// the meta-grammar, each later one with the grammar before it. Files
	// ending in .json hold an encoded grammar tree and files ending in
	// .ebnf are converted. Empty means the meta-grammar itself.
	Grammars []string `toml:"grammars"`
	Root     string   `toml:"root"`
	Engine   string   `toml:"engine"`
	Scanner  string   `toml:"scanner"`
	// Lexer is the EBNF lexical grammar of the ebnf scanner.
	Lexer      string   `toml:"lexer"`
	IdentKinds []string `toml:"ident_kinds"`
	Reader     string   `toml:"reader"`
	Format     string   `toml:"format"`
	// Extensions select the input files of a directory, such as ".calc".
	Extensions []string `toml:"extensions"`
	Timeout    Duration `toml:"timeout"`
	Debug      Debug    `toml:"debug"`

	// Dir is the directory relative paths are resolved against.
	Dir string `toml:"-"`
}

type Debug struct {
	NonTerminals bool `toml:"nonterminals"`
	Parse        bool `toml:"parse"`
	Scan         bool `toml:"scan"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func Default() *Config {
	return &Config{
		Root:    "root",
		Engine:  "btstack",
		Scanner: "basic",
		Reader:  "plain",
		Format:  "text",
		Dir:     ".",
	}
}

// Decode reads a configuration on top of the defaults. Unknown keys are
// errors.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("decode config: %d:%d: %w", row, col, err)
		}
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Load reads the configuration file filename.
func Load(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	cfg.Dir = filepath.Dir(filename)
	return cfg, nil
}

// Find returns the path of the nearest iparse.toml in dir or one of its
// parents.
func Find(dir string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		path := filepath.Join(dir, FileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Path resolves name against the configuration's directory.
func (c *Config) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Dir, name)
}

// Save writes c as TOML.
func (c *Config) Save(w io.Writer) error {
	enc := toml.NewEncoder(w)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
