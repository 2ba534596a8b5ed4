package codegen

import (
	"path/filepath"
	"strings"

	"github.com/teranos/annogen/errors"
)

// Pattern placeholders.
const (
	FileNamePlaceholder      = "##FILENAME##"
	ClassFullNamePlaceholder = "##CLASSFULLNAME##"
)

// Settings configures a generation unit and the built-in rules.
type Settings struct {
	OutputDir string

	HeaderPattern            string
	SourcePattern            string
	ClassFooterMacroPattern  string
	HeaderFooterMacroPattern string

	// MarkerName is the reserved nested declaration required by reflection.
	MarkerName string
	// StructMarkerExempt lets structs be reflected without a marker.
	StructMarkerExempt bool
	// SmallValueThreshold is the largest type size, in bytes, passed by value
	// to generated setters.
	SmallValueThreshold int
	// ResourceRefType is the template wrapping resource fields.
	ResourceRefType string
}

// DefaultSettings returns the settings used when no configuration is loaded.
func DefaultSettings() Settings {
	return Settings{
		OutputDir:                "Generated",
		HeaderPattern:            "##FILENAME##.generated.hpp",
		SourcePattern:            "##FILENAME##.sgenerated.hpp",
		ClassFooterMacroPattern:  "##CLASSFULLNAME##_GENERATED",
		HeaderFooterMacroPattern: "File_##FILENAME##_GENERATED",
		MarkerName:               "__CodeGenIdentifier__",
		StructMarkerExempt:       true,
		SmallValueThreshold:      2,
		ResourceRefType:          "ResourceRef",
	}
}

// Validate checks the artifact patterns.
func (s Settings) Validate() error {
	for name, p := range map[string]string{
		"header pattern":              s.HeaderPattern,
		"source pattern":              s.SourcePattern,
		"header footer macro pattern": s.HeaderFooterMacroPattern,
	} {
		if !strings.Contains(p, FileNamePlaceholder) {
			return errors.Mark(errors.Newf("%s %q must contain %s", name, p, FileNamePlaceholder), errors.ErrInvalidConfig)
		}
	}
	if s.HeaderPattern == s.SourcePattern {
		return errors.Mark(errors.Newf("header and source patterns are both %q", s.HeaderPattern), errors.ErrInvalidConfig)
	}
	if !strings.Contains(s.ClassFooterMacroPattern, ClassFullNamePlaceholder) {
		return errors.Mark(errors.Newf("class footer macro pattern %q must contain %s", s.ClassFooterMacroPattern, ClassFullNamePlaceholder), errors.ErrInvalidConfig)
	}
	if s.MarkerName == "" {
		return errors.Mark(errors.New("marker name is empty"), errors.ErrInvalidConfig)
	}
	if s.SmallValueThreshold < 0 {
		return errors.Mark(errors.Newf("small value threshold %d is negative", s.SmallValueThreshold), errors.ErrInvalidConfig)
	}
	return nil
}

// Stem returns the file name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// HeaderPath returns the generated header artifact path for source.
func (s Settings) HeaderPath(source string) string {
	return filepath.Join(s.OutputDir, strings.ReplaceAll(s.HeaderPattern, FileNamePlaceholder, Stem(source)))
}

// SourcePath returns the generated source artifact path for source.
func (s Settings) SourcePath(source string) string {
	return filepath.Join(s.OutputDir, strings.ReplaceAll(s.SourcePattern, FileNamePlaceholder, Stem(source)))
}

// ClassFooterMacro returns the macro holding the body footer of the record
// named fullName.
func (s Settings) ClassFooterMacro(fullName string) string {
	return strings.ReplaceAll(s.ClassFooterMacroPattern, ClassFullNamePlaceholder, Identifier(fullName))
}

// HeaderFooterMacro returns the macro holding the header epilogue of source.
func (s Settings) HeaderFooterMacro(source string) string {
	return strings.ReplaceAll(s.HeaderFooterMacroPattern, FileNamePlaceholder, Identifier(Stem(source)))
}

// Identifier turns a qualified name or file stem into a C++ identifier.
func Identifier(name string) string {
	name = strings.ReplaceAll(name, "::", "_")
	var b strings.Builder
	for _, r := range name {
		if r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
