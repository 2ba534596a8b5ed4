package entity

import (
	"strings"

	"github.com/teranos/annogen/errors"
)

// Kind discriminates entity variants. Kinds are bit flags so rules can
// declare a set of kinds they apply to.
type Kind uint16

const (
	KindNamespace Kind = 1 << iota
	KindClass
	KindStruct
	KindField
	KindMethod
	KindFunction
	KindEnum
	KindEnumValue

	KindNone Kind = 0

	// KindRecord matches both classes and structs.
	KindRecord = KindClass | KindStruct
	KindAll    = KindNamespace | KindClass | KindStruct | KindField | KindMethod | KindFunction | KindEnum | KindEnumValue
)

var kindNames = []struct {
	kind Kind
	name string
}{
	{KindNamespace, "namespace"},
	{KindClass, "class"},
	{KindStruct, "struct"},
	{KindField, "field"},
	{KindMethod, "method"},
	{KindFunction, "function"},
	{KindEnum, "enum"},
	{KindEnumValue, "enum_value"},
}

// Has reports whether k shares any flag with other.
func (k Kind) Has(other Kind) bool {
	return k&other != 0
}

// IsRecord reports whether k is a class or struct.
func (k Kind) IsRecord() bool {
	return k != KindNone && k&^KindRecord == 0
}

// String renders a single kind as its name and a mask as names joined by '|'.
func (k Kind) String() string {
	if k == KindNone {
		return "none"
	}
	var parts []string
	for _, kn := range kindNames {
		if k&kn.kind != 0 {
			parts = append(parts, kn.name)
		}
	}
	return strings.Join(parts, "|")
}

// MarshalText implements encoding.TextMarshaler for YAML/JSON dumps.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind parses a kind name or a '|'-separated mask.
func ParseKind(s string) (Kind, error) {
	var k Kind
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(strings.ToLower(part))
		found := false
		for _, kn := range kindNames {
			if kn.name == part {
				k |= kn.kind
				found = true
				break
			}
		}
		if !found {
			return KindNone, errors.Newf("unknown entity kind %q", part)
		}
	}
	return k, nil
}

// Access is a C++ access specifier.
type Access uint8

const (
	AccessNone Access = iota
	AccessPublic
	AccessProtected
	AccessPrivate
)

func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessProtected:
		return "protected"
	case AccessPrivate:
		return "private"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Access) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}
