package entity

import (
	"strings"
)

// Descriptor flags one layer of a type spelling.
type Descriptor uint8

const (
	DescConst Descriptor = 1 << iota
	DescValue
	DescPtr
	DescLRef
	DescRRef
)

// TypePart is one layer of a type, innermost (the value) first.
type TypePart struct {
	Descriptor Descriptor `json:"descriptor" yaml:"descriptor"`
}

// TypeInfo describes a field type or a method return type.
type TypeInfo struct {
	// Name is the spelling in east-const form with top-level const removed.
	Name string `json:"name" yaml:"name"`
	// CanonicalName is the fully qualified spelling when the frontend knows it.
	CanonicalName string     `json:"canonical_name" yaml:"canonical_name"`
	Parts         []TypePart `json:"parts,omitempty" yaml:"parts,omitempty"`
	// SizeInBytes is 0 when unknown.
	SizeInBytes int  `json:"size_in_bytes" yaml:"size_in_bytes"`
	IsTemplate  bool `json:"is_template" yaml:"is_template"`
}

// Outermost returns the descriptor of the top-level layer.
func (t TypeInfo) Outermost() Descriptor {
	if len(t.Parts) == 0 {
		return DescValue
	}
	return t.Parts[len(t.Parts)-1].Descriptor
}

// IsConst reports whether the declared object itself is const.
func (t TypeInfo) IsConst() bool {
	return t.Outermost()&DescConst != 0
}

// IsPointer reports whether the top-level layer is a pointer.
func (t TypeInfo) IsPointer() bool {
	return t.Outermost()&DescPtr != 0
}

// IsReference reports whether the top-level layer is an lvalue or rvalue reference.
func (t TypeInfo) IsReference() bool {
	return t.Outermost()&(DescLRef|DescRRef) != 0
}

// IsArray reports whether the declared object is a built-in array.
func (t TypeInfo) IsArray() bool {
	return strings.HasSuffix(t.Base(), "]")
}

// Base returns the value spelling with every qualifier and indirection removed.
func (t TypeInfo) Base() string {
	name := t.Name
	for {
		trimmed := strings.TrimSpace(name)
		switch {
		case strings.HasSuffix(trimmed, "&&"):
			name = trimmed[:len(trimmed)-2]
		case strings.HasSuffix(trimmed, "&"), strings.HasSuffix(trimmed, "*"):
			name = trimmed[:len(trimmed)-1]
		case hasKeywordSuffix(trimmed, "const"):
			name = trimmed[:len(trimmed)-len("const")]
		default:
			return trimmed
		}
	}
}

// TemplateName returns the spelling before the template argument list, or
// the whole base spelling for non-template types.
func (t TypeInfo) TemplateName() string {
	base := t.Base()
	if i := strings.IndexByte(base, '<'); i >= 0 {
		return strings.TrimSpace(base[:i])
	}
	return base
}

// TemplateArgs returns the text between the outermost angle brackets.
func (t TypeInfo) TemplateArgs() string {
	base := t.Base()
	open := strings.IndexByte(base, '<')
	closing := strings.LastIndexByte(base, '>')
	if open < 0 || closing <= open {
		return ""
	}
	return strings.TrimSpace(base[open+1 : closing])
}

// ParseType builds a TypeInfo from a C++ type spelling such as
// "const float*", "std::vector<int> const&" or "Foo* const".
func ParseType(spelling string) TypeInfo {
	s := collapseSpaces(spelling)
	var outer []Descriptor // outermost first
	var pending Descriptor
	for {
		switch {
		case strings.HasSuffix(s, "&&"):
			outer = append(outer, pending|DescRRef)
			pending = 0
			s = strings.TrimSpace(s[:len(s)-2])
			continue
		case strings.HasSuffix(s, "&"):
			outer = append(outer, pending|DescLRef)
			pending = 0
			s = strings.TrimSpace(s[:len(s)-1])
			continue
		case strings.HasSuffix(s, "*"):
			outer = append(outer, pending|DescPtr)
			pending = 0
			s = strings.TrimSpace(s[:len(s)-1])
			continue
		case hasKeywordSuffix(s, "const"):
			pending |= DescConst
			s = strings.TrimSpace(s[:len(s)-len("const")])
			continue
		case hasKeywordSuffix(s, "volatile"):
			s = strings.TrimSpace(s[:len(s)-len("volatile")])
			continue
		}
		break
	}

	for {
		switch {
		case strings.HasPrefix(s, "const "):
			pending |= DescConst
			s = strings.TrimSpace(s[len("const "):])
			continue
		case strings.HasPrefix(s, "volatile "):
			s = strings.TrimSpace(s[len("volatile "):])
			continue
		}
		break
	}

	parts := make([]TypePart, 0, len(outer)+1)
	parts = append(parts, TypePart{Descriptor: DescValue | pending})
	for i := len(outer) - 1; i >= 0; i-- {
		parts = append(parts, TypePart{Descriptor: outer[i]})
	}

	t := TypeInfo{
		Parts:      parts,
		IsTemplate: strings.Contains(s, "<") && strings.HasSuffix(s, ">"),
	}
	t.Name = renderType(s, parts, false)
	t.CanonicalName = t.Name

	switch {
	case t.IsPointer():
		t.SizeInBytes = 8
	case t.IsReference():
		t.SizeInBytes = 0
	default:
		t.SizeInBytes = BuiltinSize(s)
	}
	return t
}

// WithCanonical returns a copy of t with its canonical name set to the
// qualified base spelling, keeping t's qualifiers.
func (t TypeInfo) WithCanonical(qualifiedBase string) TypeInfo {
	t.CanonicalName = renderType(collapseSpaces(qualifiedBase), t.Parts, false)
	return t
}

func renderType(base string, parts []TypePart, keepTopConst bool) string {
	var b strings.Builder
	b.WriteString(base)
	for i, p := range parts {
		top := i == len(parts)-1
		switch {
		case p.Descriptor&DescPtr != 0:
			b.WriteString("*")
		case p.Descriptor&DescLRef != 0:
			b.WriteString("&")
		case p.Descriptor&DescRRef != 0:
			b.WriteString("&&")
		}
		if p.Descriptor&DescConst != 0 && (!top || keepTopConst) {
			b.WriteString(" const")
		}
	}
	return b.String()
}

// Spelling renders t including its top-level const.
func (t TypeInfo) Spelling() string {
	return renderType(t.Base(), t.Parts, true)
}

var builtinSizes = map[string]int{
	"bool":               1,
	"char":               1,
	"signed char":        1,
	"unsigned char":      1,
	"int8_t":             1,
	"uint8_t":            1,
	"std::int8_t":        1,
	"std::uint8_t":       1,
	"std::byte":          1,
	"char8_t":            1,
	"short":              2,
	"short int":          2,
	"unsigned short":     2,
	"unsigned short int": 2,
	"int16_t":            2,
	"uint16_t":           2,
	"std::int16_t":       2,
	"std::uint16_t":      2,
	"char16_t":           2,
	"int":                4,
	"signed":             4,
	"signed int":         4,
	"unsigned":           4,
	"unsigned int":       4,
	"int32_t":            4,
	"uint32_t":           4,
	"std::int32_t":       4,
	"std::uint32_t":      4,
	"char32_t":           4,
	"float":              4,
	"long":               8,
	"unsigned long":      8,
	"long long":          8,
	"unsigned long long": 8,
	"int64_t":            8,
	"uint64_t":           8,
	"std::int64_t":       8,
	"std::uint64_t":      8,
	"size_t":             8,
	"std::size_t":        8,
	"double":             8,
	"long double":        16,
}

// BuiltinSize returns the size of a fundamental type on an LP64 target, or 0.
func BuiltinSize(base string) int {
	return builtinSizes[collapseSpaces(base)]
}

func hasKeywordSuffix(s, kw string) bool {
	if !strings.HasSuffix(s, kw) {
		return false
	}
	if len(s) == len(kw) {
		return true
	}
	c := s[len(s)-len(kw)-1]
	return !isIdentByte(c)
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == ':'
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
