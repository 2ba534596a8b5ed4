package rules

import (
	"strings"

	"github.com/teranos/annogen/codegen"
	"github.com/teranos/annogen/entity"
)

// Getter generates a read accessor for a field.
//
// Arguments: "const" forces a const return, "&" or "*" return by reference
// or pointer, "inline" defines the getter in the class body and "explicit"
// declares it without generating a definition.
type Getter struct {
	codegen.BaseRule
}

func NewGetter() *Getter {
	return &Getter{BaseRule: codegen.NewBaseRule(AnnotationGet, entity.KindField, 0)}
}

var getterArgs = map[string]bool{"*": true, "&": true, "const": true, "explicit": true, "inline": true}

func (g *Getter) Validate(c *codegen.Call) bool {
	if c.Property.HasArg("*") && c.Property.HasArg("&") {
		return c.Fail("Get can't accept both '*' and '&' at the same time")
	}
	for _, arg := range c.Property.Arguments {
		if !getterArgs[arg] {
			return c.Fail("Get only accepts '*', '&', 'const', 'explicit' and 'inline' arguments, got %q", arg)
		}
	}
	if c.Entity.Field.Type.IsArray() {
		return c.Fail("can't generate a getter for %s because it is an array", c.FullName())
	}
	return true
}

type getterShape struct {
	name       string
	returnType string
	returnExpr string
	qualifier  string
	inline     bool
	explicit   bool
	static     bool
}

func shapeGetter(c *codegen.Call) getterShape {
	f := c.Entity.Field
	s := getterShape{
		name:       GetterName(c.Entity.Name, f.Type.Name),
		returnExpr: c.Entity.Name,
		static:     f.Static,
	}

	isConst := f.Type.IsConst()
	var ref, ptr bool
	for _, arg := range c.Property.Arguments {
		switch arg {
		case "const":
			isConst = true
		case "inline":
			s.inline = true
		case "explicit":
			s.explicit = true
		case "&":
			ref = ref || !ptr
		case "*":
			ptr = ptr || !ref
		}
	}

	ret := f.Type.Name
	switch {
	case ref:
		if isConst {
			ret += " const"
		}
		ret += "&"
	case ptr:
		if isConst {
			ret += " const"
		}
		ret += "*"
		s.returnExpr = "&" + c.Entity.Name
	}
	s.returnType = ret

	// A const field or a by-value getter implies a const method.
	if !f.Static && (isConst || !(ref || ptr)) {
		s.qualifier = " const"
	}
	return s
}

func (g *Getter) BodyFooter(c *codegen.Call, out *strings.Builder) codegen.Behaviour {
	s := shapeGetter(c)
	pre := ""
	if s.inline {
		pre = "INLINE "
	}
	if s.static {
		pre += "static "
	}

	line(out, "public:")
	if s.inline {
		line(out, pre, s.returnType, " ", s.name, "()", s.qualifier, " { return ", s.returnExpr, "; }")
	} else {
		line(out, pre, s.returnType, " ", s.name, "()", s.qualifier, ";")
	}
	return codegen.Continue
}

func (g *Getter) SourcePrologue(c *codegen.Call, out *strings.Builder) codegen.Behaviour {
	s := shapeGetter(c)
	if s.inline || s.explicit {
		return codegen.Continue
	}
	line(out, s.returnType, " ", c.OuterName(), "::", s.name, "()", s.qualifier, " { return ", s.returnExpr, "; }")
	return codegen.Continue
}
