package manager

import (
	"unicode/utf8"

	"github.com/teranos/annogen/am"
	"github.com/teranos/annogen/codegen"
	"github.com/teranos/annogen/errors"
	"github.com/teranos/annogen/parser"
	"github.com/teranos/annogen/property"
)

// Options selects the files of a run and configures its passes.
type Options struct {
	// Directories are walked for files with one of Extensions.
	Directories []string
	// Files are processed as given, whatever their extension.
	Files              []string
	Extensions         []string
	IgnoredDirectories []string // base names
	IgnoredFiles       []string // base name glob patterns
	Recursive          bool

	Iterations int
	Workers    int
	// Force regenerates files whose artifacts are up to date.
	Force bool

	// EntityMacrosFile is written into the output directory before any
	// file is processed. Empty disables it.
	EntityMacrosFile string
	AnnotationMacros []string
	BodyMacro        string

	Parser  parser.Settings
	Codegen codegen.Settings
}

// DefaultOptions returns the options of the built-in configuration.
func DefaultOptions() Options {
	return OptionsFromConfig(am.Default())
}

// OptionsFromConfig converts a validated configuration.
func OptionsFromConfig(cfg *am.Config) Options {
	p, g, pr := cfg.Parsing, cfg.Generation, cfg.Process
	return Options{
		Directories:        pr.Directories,
		Files:              pr.Files,
		Extensions:         pr.Extensions,
		IgnoredDirectories: pr.IgnoredDirectories,
		IgnoredFiles:       pr.IgnoredFiles,
		Recursive:          pr.Recursive,
		Iterations:         pr.Iterations,
		Workers:            cfg.Workers(),
		Force:              pr.Force,
		EntityMacrosFile:   g.EntityMacrosFile,
		AnnotationMacros:   cfg.MacroNames(),
		BodyMacro:          p.BodyMacro,
		Parser: parser.Settings{
			Grammar: property.Grammar{
				Separator:         firstRune(p.PropertySeparator),
				ArgumentOpen:      firstRune(p.ArgumentOpen),
				ArgumentClose:     firstRune(p.ArgumentClose),
				ArgumentSeparator: firstRune(p.ArgumentSeparator),
			},
			ParseAllNamespaces: p.ParseAllNamespaces,
		},
		Codegen: codegen.Settings{
			OutputDir:                g.OutputDir,
			HeaderPattern:            g.HeaderPattern,
			SourcePattern:            g.SourcePattern,
			ClassFooterMacroPattern:  g.ClassFooterMacroPattern,
			HeaderFooterMacroPattern: g.HeaderFooterMacroPattern,
			MarkerName:               g.MarkerName,
			StructMarkerExempt:       g.StructMarkerExempt,
			SmallValueThreshold:      g.SmallValueThreshold,
			ResourceRefType:          g.ResourceRefType,
		},
	}
}

// Validate checks the options that are not covered by the configuration.
func (o Options) Validate() error {
	if o.Iterations < 1 {
		return errors.Mark(errors.Newf("iterations must be >= 1, got %d", o.Iterations), errors.ErrInvalidConfig)
	}
	if o.Codegen.OutputDir == "" {
		return errors.Mark(errors.New("output directory is empty"), errors.ErrInvalidConfig)
	}
	if err := o.Parser.Grammar.Validate(); err != nil {
		return errors.Mark(err, errors.ErrInvalidConfig)
	}
	return o.Codegen.Validate()
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}
