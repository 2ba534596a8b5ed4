// Package rules holds the built-in generation rules: field accessors,
// resource reference wrappers and reflection registration.
package rules

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/teranos/annogen/codegen"
)

// Annotation names handled by the built-in rules.
const (
	AnnotationGet       = "Get"
	AnnotationSet       = "Set"
	AnnotationResource  = "Resource"
	AnnotationSerialize = "Serialize"
	AnnotationAnimate   = "Animate"
)

// ReflectionOrder makes reflection run before the accessor rules on the
// entity it annotates.
const ReflectionOrder = -1

// Module returns a module with every built-in rule.
func Module() *codegen.Module {
	return codegen.NewModule("builtin",
		NewGetter(),
		NewSetter(),
		NewResource(),
		NewRecordReflection(),
		NewEnumReflection(),
	)
}

// StripMember removes a member prefix: "m_" or an "m" followed by an
// upper-case letter.
func StripMember(name string) string {
	if strings.HasPrefix(name, "m_") && len(name) > 2 {
		return name[2:]
	}
	if len(name) > 1 && name[0] == 'm' {
		r, _ := utf8.DecodeRuneInString(name[1:])
		if unicode.IsUpper(r) {
			return name[1:]
		}
	}
	return name
}

// Capitalize upper-cases the first letter of s.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// AccessorName builds prefix + capitalized member name, e.g. GetRange for mRange.
func AccessorName(prefix, field string) string {
	return prefix + Capitalize(StripMember(field))
}

// GetterName is "Is" for bool fields and "Get" otherwise.
func GetterName(field, typeName string) string {
	if typeName == "bool" {
		return AccessorName("Is", field)
	}
	return AccessorName("Get", field)
}

func line(b *strings.Builder, parts ...string) {
	for _, p := range parts {
		b.WriteString(p)
	}
	b.WriteString("\n")
}
