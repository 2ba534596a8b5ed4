package rules

import (
	"strings"

	"github.com/teranos/annogen/codegen"
	"github.com/teranos/annogen/entity"
	"github.com/teranos/annogen/property"
)

// Metadata keys attached to registered properties, in emission order.
const (
	MetaNoSerialize = "NO_SERIALIZE"
	MetaAnimate     = "ANIMATE"
	MetaResource    = "RESOURCE"
)

// RecordReflection registers a class or struct with the reflection library.
//
// Each annotated field becomes a property clause. The rule's own arguments
// declare virtual properties backed by accessors: a leading '!' marks the
// property as not serializable and a leading '?' selects Is-naming for its
// getter, e.g. Serialize[Color, !Cached, ?Enabled].
type RecordReflection struct {
	codegen.BaseRule
}

func NewRecordReflection() *RecordReflection {
	return &RecordReflection{BaseRule: codegen.NewBaseRule(AnnotationSerialize, entity.KindRecord, ReflectionOrder)}
}

type virtualProperty struct {
	name        string
	noSerialize bool
	boolean     bool
}

func parseVirtual(arg string) virtualProperty {
	var v virtualProperty
	for len(arg) > 0 {
		switch arg[0] {
		case '!':
			v.noSerialize = true
		case '?':
			v.boolean = true
		default:
			v.name = strings.TrimSpace(arg)
			return v
		}
		arg = arg[1:]
	}
	return v
}

func (r *RecordReflection) Validate(c *codegen.Call) bool {
	for _, arg := range c.Property.Arguments {
		v := parseVirtual(arg)
		if !isIdentifier(v.name) {
			return c.Fail("invalid virtual property %q", arg)
		}
	}
	return true
}

// Preamble requires the body marker and records its line on the entity.
func (r *RecordReflection) Preamble(c *codegen.Call) bool {
	model := c.Model()
	marker := c.Env.Settings.MarkerName
	if h, ok := model.FindNested(c.Handle, marker, entity.KindRecord); ok {
		c.Entity.Record.MarkerLine = model.Get(h).Line
		return true
	}
	if c.Entity.Kind == entity.KindStruct && c.Env.Settings.StructMarkerExempt {
		return true
	}
	return c.FailStructural("could not find the generated body marker %s in %s %s", marker, c.Entity.Kind, c.FullName())
}

func (r *RecordReflection) BodyFooter(c *codegen.Call, out *strings.Builder) codegen.Behaviour {
	var parents []string
	for _, p := range c.Entity.Record.Parents {
		parents = append(parents, p.Type.CanonicalName)
	}
	line(out, "RTTR_REGISTRATION_FRIEND")
	line(out, "RTTR_ENABLE(", strings.Join(parents, ", "), ")")
	return codegen.Continue
}

func (r *RecordReflection) SourcePrologue(c *codegen.Call, out *strings.Builder) codegen.Behaviour {
	model := c.Model()
	full := c.FullName()

	line(out, "#include <rttr/registration.h>")
	line(out, "RTTR_REGISTRATION_PFX(", codegen.Identifier(full), ")")
	line(out, "{")
	out.WriteString("rttr::registration::class_<" + full + ">(\"" + full + "\")")
	if c.Entity.HasProperty(AnnotationResource) {
		out.WriteString(" (rttr::metadata(\"" + MetaResource + "\", true))")
	}

	for _, fh := range model.ChildrenOf(c.Handle, entity.KindField) {
		writeFieldClause(out, full, model.Get(fh))
	}
	for _, arg := range c.Property.Arguments {
		writeVirtualClause(out, full, parseVirtual(arg))
	}
	out.WriteString(";\n")
	line(out, "}")
	return codegen.Continue
}

func writeFieldClause(out *strings.Builder, owner string, field *entity.Entity) {
	name := StripMember(field.Name)
	isResource := field.HasProperty(AnnotationResource)

	// Read-only properties carry no metadata.
	if field.Field.Type.IsConst() {
		out.WriteString("\n\t.property_readonly(\"" + name + "\", &" + owner + "::" + field.Name + ")")
		return
	}
	switch {
	case isResource:
		out.WriteString("\n\t.property(\"" + name + "\", &" + owner + "::" + uuidGetter(field.Name) + ", &" + owner + "::" + uuidSetter(field.Name) + ")")
	default:
		out.WriteString("\n\t.property(\"" + name + "\", &" + owner + "::" + field.Name + ")")
	}
	writeMetadata(out, fieldMetadata(field.Properties))
}

func writeVirtualClause(out *strings.Builder, owner string, v virtualProperty) {
	getter := AccessorName("Get", v.name)
	if v.boolean {
		getter = AccessorName("Is", v.name)
	}
	setter := AccessorName("Set", v.name)
	out.WriteString("\n\t.property(\"" + StripMember(v.name) + "\", &" + owner + "::" + getter + ", &" + owner + "::" + setter + ")")
	if v.noSerialize {
		writeMetadata(out, []string{MetaNoSerialize})
	}
}

// fieldMetadata returns the independent flags of a field in fixed order.
func fieldMetadata(props []property.Property) []string {
	has := func(name string) bool {
		return len(property.Lookup(props, name)) > 0
	}
	var meta []string
	if !has(AnnotationSerialize) {
		meta = append(meta, MetaNoSerialize)
	}
	if has(AnnotationAnimate) {
		meta = append(meta, MetaAnimate)
	}
	if has(AnnotationResource) {
		meta = append(meta, MetaResource)
	}
	return meta
}

func writeMetadata(out *strings.Builder, keys []string) {
	if len(keys) == 0 {
		return
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = "rttr::metadata(\"" + k + "\", true)"
	}
	out.WriteString(" (" + strings.Join(parts, ", ") + ")")
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

// EnumReflection registers an enum and its values.
type EnumReflection struct {
	codegen.BaseRule
}

func NewEnumReflection() *EnumReflection {
	return &EnumReflection{BaseRule: codegen.NewBaseRule(AnnotationSerialize, entity.KindEnum, ReflectionOrder)}
}

func (r *EnumReflection) Validate(c *codegen.Call) bool {
	if len(c.Model().ChildrenOf(c.Handle, entity.KindEnumValue)) == 0 {
		return c.Fail("enum %s has no values to register", c.FullName())
	}
	return true
}

func (r *EnumReflection) SourcePrologue(c *codegen.Call, out *strings.Builder) codegen.Behaviour {
	model := c.Model()
	full := c.FullName()

	line(out, "#include <rttr/registration.h>")
	line(out, "RTTR_REGISTRATION_PFX(", codegen.Identifier(full), ")")
	line(out, "{")
	line(out, "rttr::registration::enumeration<", full, ">(\"", full, "\")")
	line(out, "(")
	values := model.ChildrenOf(c.Handle, entity.KindEnumValue)
	for i, vh := range values {
		v := model.Get(vh)
		sep := ","
		if i == len(values)-1 {
			sep = ""
		}
		line(out, "\trttr::value(\"", v.Name, "\", ", full, "::", v.Name, ")", sep)
	}
	line(out, ");")
	line(out, "}")
	return codegen.Continue
}
