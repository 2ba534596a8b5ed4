// Package property parses annotation payloads such as
// `Get[const, &], Set[inline], Serialize` into named properties with
// ordered arguments.
package property

import (
	"strings"
)

// Property is one annotation attached to an entity.
type Property struct {
	Name      string   `json:"name" yaml:"name"`
	Arguments []string `json:"arguments,omitempty" yaml:"arguments,omitempty"`
}

// HasArg reports whether arg appears among the arguments.
func (p Property) HasArg(arg string) bool {
	for _, a := range p.Arguments {
		if a == arg {
			return true
		}
	}
	return false
}

// Arg returns the i-th argument or "" when there are fewer arguments.
func (p Property) Arg(i int) string {
	if i < 0 || i >= len(p.Arguments) {
		return ""
	}
	return p.Arguments[i]
}

// Clone returns a copy with its own argument slice.
func (p Property) Clone() Property {
	return Property{Name: p.Name, Arguments: append([]string(nil), p.Arguments...)}
}

func (p Property) String() string {
	if len(p.Arguments) == 0 {
		return p.Name
	}
	return p.Name + "[" + strings.Join(p.Arguments, ", ") + "]"
}

// Lookup returns the arguments of every property named name, in order.
func Lookup(props []Property, name string) [][]string {
	var out [][]string
	for _, p := range props {
		if p.Name == name {
			out = append(out, p.Arguments)
		}
	}
	return out
}
