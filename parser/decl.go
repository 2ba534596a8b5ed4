// Package parser turns the structural tree produced by a language frontend
// into an entity.Model.
//
// The frontend (see parser/cpp) only locates declarations and their raw
// annotation payloads. The parser owns everything else: payload grammar,
// filtering of unannotated declarations, identifiers and the entity arena.
package parser

import (
	"context"

	"github.com/teranos/annogen/entity"
)

// Decl is one declaration reported by a frontend, with its nested declarations.
type Decl struct {
	Kind   entity.Kind
	Name   string
	ID     string // optional; derived from file, kind and qualified name when empty
	Line   int
	Column int
	Offset int

	// Annotated is set when the declaration carries an annotation macro,
	// even an empty one. Payload is the raw text between the macro's parentheses.
	Annotated bool
	Payload   string

	// Type is the field type or the function return type.
	Type string
	// CanonicalType is the qualified spelling of Type's base when known.
	CanonicalType string
	// TypeSize overrides the builtin size table when non-zero.
	TypeSize int

	Static  bool
	Const   bool
	Virtual bool
	Final   bool
	Scoped  bool
	Access  entity.Access

	Prototype      string
	UnderlyingType string
	DefaultValue   string

	Parents  []ParentDecl
	Children []Decl
}

// ParentDecl is a base-class clause.
type ParentDecl struct {
	Access entity.Access
	Type   string
}

// Frontend builds a structural tree for one source file.
type Frontend interface {
	// Parse returns the top-level declarations of src. An error means no
	// usable tree could be built.
	Parse(ctx context.Context, path string, src []byte) ([]Decl, error)
}

// FrontendFunc adapts a function to the Frontend interface.
type FrontendFunc func(ctx context.Context, path string, src []byte) ([]Decl, error)

// Parse calls f.
func (f FrontendFunc) Parse(ctx context.Context, path string, src []byte) ([]Decl, error) {
	return f(ctx, path, src)
}
