package main

import (
	"path/filepath"
	"time"

	"github.com/dhamidi/iparse/config"
	"github.com/dhamidi/iparse/project"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tliron/commonlog"
)

// settings are the flags that override iparse.toml.
type settings struct {
	configFile string
	grammars   []string
	root       string
	engine     string
	scanner    string
	lexer      string
	reader     string
	format     string
	timeout    time.Duration
	debugNT    bool
	debugParse bool
	debugScan  bool
}

func (s *settings) register(flags *pflag.FlagSet) {
	flags.StringVar(&s.configFile, "config", "", "configuration file (default: nearest "+config.FileName+")")
	flags.StringSliceVarP(&s.grammars, "grammar", "g", nil, "grammar files, in chain order")
	flags.StringVarP(&s.root, "root", "r", "", "start non-terminal")
	flags.StringVarP(&s.engine, "engine", "e", "", "engine: btstack, btheap, ll1stack, ll1heap or par")
	flags.StringVarP(&s.scanner, "scanner", "s", "", "scanner: basic, raw or ebnf")
	flags.StringVar(&s.lexer, "lexer", "", "EBNF lexical grammar for the ebnf scanner")
	flags.StringVar(&s.reader, "reader", "", "input encoding: plain, cp1252 or utf16")
	flags.StringVarP(&s.format, "format", "f", "", "output format: text, line, json, xml or go")
	flags.DurationVarP(&s.timeout, "timeout", "t", 0, "timeout per file")
	flags.BoolVar(&s.debugNT, "debug-nt", false, "trace the rules tried")
	flags.BoolVar(&s.debugParse, "debug-parse", false, "trace the elements matched")
	flags.BoolVar(&s.debugScan, "debug-scan", false, "trace the tokens accepted")
}

// project loads the configuration and applies the flags the user set.
func (s *settings) project(cmd *cobra.Command) (*project.Project, error) {
	var p *project.Project
	if s.configFile != "" {
		cfg, err := config.Load(s.configFile)
		if err != nil {
			return nil, err
		}
		p = project.New(cfg)
	} else {
		var err error
		if p, err = project.Load(); err != nil {
			return nil, err
		}
	}

	cfg := p.Config
	flags := cmd.Flags()
	// Flag values name paths relative to the working directory.
	if flags.Changed("grammar") {
		cfg.Grammars = absAll(s.grammars)
	}
	if flags.Changed("lexer") {
		cfg.Lexer = abs(s.lexer)
	}
	setString(flags, "root", &cfg.Root, s.root)
	setString(flags, "engine", &cfg.Engine, s.engine)
	setString(flags, "scanner", &cfg.Scanner, s.scanner)
	setString(flags, "reader", &cfg.Reader, s.reader)
	setString(flags, "format", &cfg.Format, s.format)
	if flags.Changed("timeout") {
		cfg.Timeout.Duration = s.timeout
	}
	cfg.Debug.NonTerminals = cfg.Debug.NonTerminals || s.debugNT
	cfg.Debug.Parse = cfg.Debug.Parse || s.debugParse
	cfg.Debug.Scan = cfg.Debug.Scan || s.debugScan
	if cfg.Debug.NonTerminals || cfg.Debug.Parse || cfg.Debug.Scan {
		commonlog.Configure(4, nil)
	}
	return p, nil
}

func setString(flags *pflag.FlagSet, name string, dst *string, value string) {
	if flags.Changed(name) {
		*dst = value
	}
}

func abs(path string) string {
	if a, err := filepath.Abs(path); err == nil {
		return a
	}
	return path
}

func absAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = abs(p)
	}
	return out
}
