// Package entity holds the in-memory model of annotated declarations parsed
// from one source file.
//
// Entities live in an arena owned by a Model and refer to each other through
// Handles. The enclosing-entity link is a Handle, never a pointer, so an
// entity can not outlive the file it was parsed from.
package entity

import (
	"github.com/teranos/annogen/property"
)

// Handle indexes an entity inside its Model.
type Handle int

// NoHandle marks a missing entity, e.g. the parent of a top-level declaration.
const NoHandle Handle = -1

// NoMarkerLine is the marker line of a record whose body marker was not found.
const NoMarkerLine = -1

// Info is the record shared by every entity variant.
type Info struct {
	Kind       Kind                `json:"kind" yaml:"kind"`
	Name       string              `json:"name" yaml:"name"`
	ID         string              `json:"id" yaml:"id"`
	Line       int                 `json:"line" yaml:"line"`
	Column     int                 `json:"column" yaml:"column"`
	Offset     int                 `json:"offset" yaml:"offset"`
	Parent     Handle              `json:"-" yaml:"-"`
	Properties []property.Property `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Parent is one base class of a class or struct.
type Parent struct {
	Access Access   `json:"access" yaml:"access"`
	Type   TypeInfo `json:"type" yaml:"type"`
}

// RecordInfo holds class and struct data.
type RecordInfo struct {
	Final   bool     `json:"final" yaml:"final"`
	Parents []Parent `json:"parents,omitempty" yaml:"parents,omitempty"`
	// MarkerLine is the source line of the nested body marker. It stays
	// NoMarkerLine until a rule looks the marker up.
	MarkerLine int `json:"marker_line" yaml:"marker_line"`
}

// FieldInfo holds field data.
type FieldInfo struct {
	Type   TypeInfo `json:"type" yaml:"type"`
	Static bool     `json:"static" yaml:"static"`
	Access Access   `json:"access" yaml:"access"`
}

// FunctionInfo holds method and free function data.
type FunctionInfo struct {
	ReturnType TypeInfo `json:"return_type" yaml:"return_type"`
	Prototype  string   `json:"prototype" yaml:"prototype"`
	Static     bool     `json:"static" yaml:"static"`
	Const      bool     `json:"const" yaml:"const"`
	Virtual    bool     `json:"virtual" yaml:"virtual"`
	Access     Access   `json:"access" yaml:"access"`
}

// EnumInfo holds enum data.
type EnumInfo struct {
	Scoped         bool   `json:"scoped" yaml:"scoped"`
	UnderlyingType string `json:"underlying_type,omitempty" yaml:"underlying_type,omitempty"`
}

// EnumValueInfo holds enumerator data.
type EnumValueInfo struct {
	Default string `json:"default,omitempty" yaml:"default,omitempty"`
}

// Entity is a tagged variant: Kind selects which of the variant pointers is set.
// Namespaces carry no variant data.
type Entity struct {
	Info `yaml:",inline"`

	Record    *RecordInfo    `json:"record,omitempty" yaml:"record,omitempty"`
	Field     *FieldInfo     `json:"field,omitempty" yaml:"field,omitempty"`
	Function  *FunctionInfo  `json:"function,omitempty" yaml:"function,omitempty"`
	Enum      *EnumInfo      `json:"enum,omitempty" yaml:"enum,omitempty"`
	EnumValue *EnumValueInfo `json:"enum_value,omitempty" yaml:"enum_value,omitempty"`

	children []Handle
}

// New returns an entity of the given kind with its variant data allocated.
func New(kind Kind, name string) Entity {
	e := Entity{Info: Info{Kind: kind, Name: name, Parent: NoHandle}}
	switch {
	case kind.IsRecord():
		e.Record = &RecordInfo{MarkerLine: NoMarkerLine}
	case kind == KindField:
		e.Field = &FieldInfo{}
	case kind == KindMethod, kind == KindFunction:
		e.Function = &FunctionInfo{}
	case kind == KindEnum:
		e.Enum = &EnumInfo{}
	case kind == KindEnumValue:
		e.EnumValue = &EnumValueInfo{}
	}
	return e
}

// Property returns the first property named name.
func (e *Entity) Property(name string) (property.Property, bool) {
	for _, p := range e.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return property.Property{}, false
}

// HasProperty reports whether the entity carries a property named name.
func (e *Entity) HasProperty(name string) bool {
	_, ok := e.Property(name)
	return ok
}

// Children returns the handles of directly nested entities in declaration order.
func (e *Entity) Children() []Handle {
	return e.children
}

func (e Entity) clone() Entity {
	c := e
	c.Properties = make([]property.Property, len(e.Properties))
	for i, p := range e.Properties {
		c.Properties[i] = p.Clone()
	}
	c.children = append([]Handle(nil), e.children...)
	if e.Record != nil {
		r := *e.Record
		r.Parents = append([]Parent(nil), e.Record.Parents...)
		c.Record = &r
	}
	if e.Field != nil {
		f := *e.Field
		c.Field = &f
	}
	if e.Function != nil {
		f := *e.Function
		c.Function = &f
	}
	if e.Enum != nil {
		en := *e.Enum
		c.Enum = &en
	}
	if e.EnumValue != nil {
		v := *e.EnumValue
		c.EnumValue = &v
	}
	return c
}
