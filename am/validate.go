package am

import (
	"strings"
	"unicode/utf8"

	"github.com/teranos/annogen/errors"
)

// Pattern placeholders
const (
	FileNamePlaceholder      = "##FILENAME##"
	ClassFullNamePlaceholder = "##CLASSFULLNAME##"
)

// Validate checks that the configuration is valid.
// Every returned error is marked errors.ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return errors.Mark(err, errors.ErrInvalidConfig)
	}
	return nil
}

func (c *Config) validate() error {
	p := c.Parsing
	grammar := []struct {
		key   string
		value string
	}{
		{"parsing.property_separator", p.PropertySeparator},
		{"parsing.argument_open", p.ArgumentOpen},
		{"parsing.argument_close", p.ArgumentClose},
		{"parsing.argument_separator", p.ArgumentSeparator},
	}
	for _, g := range grammar {
		if utf8.RuneCountInString(g.value) != 1 {
			return errors.Newf("%s must be a single character, got %q", g.key, g.value)
		}
	}
	if p.ArgumentOpen == p.ArgumentClose {
		return errors.Newf("parsing.argument_open and parsing.argument_close must differ, both are %q", p.ArgumentOpen)
	}
	if p.PropertySeparator == p.ArgumentOpen || p.PropertySeparator == p.ArgumentClose {
		return errors.Newf("parsing.property_separator %q collides with an argument bracket", p.PropertySeparator)
	}

	if !isIdentifier(p.BodyMacro) {
		return errors.Newf("parsing.body_macro must be an identifier, got %q", p.BodyMacro)
	}
	seen := map[string]bool{p.BodyMacro: true}
	for _, name := range c.MacroNames() {
		if !isIdentifier(name) {
			return errors.Newf("parsing.macros: %q is not an identifier", name)
		}
		if seen[name] {
			return errors.Newf("parsing.macros: %q is used twice", name)
		}
		seen[name] = true
	}

	g := c.Generation
	if g.OutputDir == "" {
		return errors.New("generation.output_dir cannot be empty")
	}
	patterns := []struct {
		key   string
		value string
	}{
		{"generation.header_pattern", g.HeaderPattern},
		{"generation.source_pattern", g.SourcePattern},
		{"generation.header_footer_macro_pattern", g.HeaderFooterMacroPattern},
	}
	for _, pattern := range patterns {
		if !strings.Contains(pattern.value, FileNamePlaceholder) {
			return errors.Newf("%s must contain %s, got %q", pattern.key, FileNamePlaceholder, pattern.value)
		}
	}
	if g.HeaderPattern == g.SourcePattern {
		return errors.Newf("generation.header_pattern and generation.source_pattern are both %q", g.HeaderPattern)
	}
	if !strings.Contains(g.ClassFooterMacroPattern, ClassFullNamePlaceholder) {
		return errors.Newf("generation.class_footer_macro_pattern must contain %s, got %q", ClassFullNamePlaceholder, g.ClassFooterMacroPattern)
	}
	if !isIdentifier(g.MarkerName) {
		return errors.Newf("generation.marker_name must be an identifier, got %q", g.MarkerName)
	}
	if g.SmallValueThreshold < 0 {
		return errors.Newf("generation.small_value_threshold must be >= 0, got %d", g.SmallValueThreshold)
	}
	if g.ResourceRefType == "" {
		return errors.New("generation.resource_ref_type cannot be empty")
	}

	pr := c.Process
	// Zero passes would generate nothing
	if pr.Iterations < 1 {
		return errors.Newf("process.iterations must be >= 1, got %d", pr.Iterations)
	}
	// Workers: 0 = GOMAXPROCS, negative = invalid
	if pr.Workers < 0 {
		return errors.Newf("process.workers must be >= 0, got %d", pr.Workers)
	}
	if pr.DebounceMS < 0 {
		return errors.Newf("process.debounce_ms must be >= 0, got %d", pr.DebounceMS)
	}
	if len(pr.Extensions) == 0 {
		return errors.New("process.extensions cannot be empty")
	}
	for _, ext := range pr.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return errors.Newf("process.extensions: %q must start with '.'", ext)
		}
	}

	if c.Log.Verbosity < 0 {
		return errors.Newf("log.verbosity must be >= 0, got %d", c.Log.Verbosity)
	}
	return nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
