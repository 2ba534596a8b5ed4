package rules

import (
	"strings"

	"github.com/teranos/annogen/codegen"
	"github.com/teranos/annogen/entity"
)

// Setter generates a write accessor for a non-const field. It accepts one
// optional argument, "inline" or "explicit".
type Setter struct {
	codegen.BaseRule
}

func NewSetter() *Setter {
	return &Setter{BaseRule: codegen.NewBaseRule(AnnotationSet, entity.KindField, 0)}
}

func (s *Setter) Validate(c *codegen.Call) bool {
	if len(c.Property.Arguments) > 1 {
		return c.Fail("Set can't take more than one argument")
	}
	for _, arg := range c.Property.Arguments {
		if arg != "inline" && arg != "explicit" {
			return c.Fail("Set only accepts 'inline' and 'explicit' arguments, got %q", arg)
		}
	}
	if c.Entity.Field.Type.IsConst() {
		return c.Fail("can't generate a setter for %s because it is const qualified", c.FullName())
	}
	if c.Entity.Field.Type.IsArray() {
		return c.Fail("can't generate a setter for %s because it is an array", c.FullName())
	}
	return true
}

// parameterType passes pointers, references and small known types by value
// and everything else by const reference.
func parameterType(t entity.TypeInfo, threshold int) string {
	if t.IsPointer() || t.IsReference() || (t.SizeInBytes > 0 && t.SizeInBytes <= threshold) {
		return t.Name
	}
	return t.Name + " const&"
}

func (s *Setter) signature(c *codegen.Call) string {
	t := c.Entity.Field.Type
	return AccessorName("Set", c.Entity.Name) + "(" + parameterType(t, c.Env.Settings.SmallValueThreshold) + " _v)"
}

func (s *Setter) BodyFooter(c *codegen.Call, out *strings.Builder) codegen.Behaviour {
	inline := c.Property.HasArg("inline")
	pre := ""
	if inline {
		pre = "INLINE "
	}
	if c.Entity.Field.Static {
		pre += "static "
	}

	line(out, "public:")
	if inline {
		line(out, pre, "void ", s.signature(c), " { ", c.Entity.Name, " = _v; }")
	} else {
		line(out, pre, "void ", s.signature(c), ";")
	}
	return codegen.Continue
}

func (s *Setter) SourcePrologue(c *codegen.Call, out *strings.Builder) codegen.Behaviour {
	if c.Property.HasArg("inline") || c.Property.HasArg("explicit") {
		return codegen.Continue
	}
	line(out, "void ", c.OuterName(), "::", s.signature(c), " { ", c.Entity.Name, " = _v; }")
	return codegen.Continue
}
