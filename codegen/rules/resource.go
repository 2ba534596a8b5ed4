package rules

import (
	"strings"

	"github.com/teranos/annogen/codegen"
	"github.com/teranos/annogen/entity"
)

// Resource generates the accessors of a field wrapped in the configured
// resource reference template. The public setter fires the owner's change
// signal, and a private UUID getter/setter pair lets reflection serialize a
// stable identifier instead of the live reference.
//
// Resource[false] suppresses the private _Set helper for owners that
// provide their own.
type Resource struct {
	codegen.BaseRule
}

func NewResource() *Resource {
	return &Resource{BaseRule: codegen.NewBaseRule(AnnotationResource, entity.KindField, 0)}
}

// IsResourceRef reports whether t instantiates the wrapper template named
// wrapper, with or without namespace qualification.
func IsResourceRef(t entity.TypeInfo, wrapper string) bool {
	if !t.IsTemplate || t.IsPointer() || t.IsReference() {
		return false
	}
	want := lastSegment(wrapper)
	for _, name := range []string{t.TemplateName(), templateName(t.CanonicalName)} {
		if name == wrapper || lastSegment(name) == want {
			return true
		}
	}
	return false
}

func templateName(spelling string) string {
	if i := strings.IndexByte(spelling, '<'); i >= 0 {
		return strings.TrimSpace(spelling[:i])
	}
	return spelling
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		return name[i+2:]
	}
	return name
}

func (r *Resource) Validate(c *codegen.Call) bool {
	f := c.Entity.Field
	wrapper := c.Env.Settings.ResourceRefType
	if !IsResourceRef(f.Type, wrapper) {
		return c.Fail("Resource field has to be wrapped in %s (%s of type %s)", wrapper, c.Entity.Name, f.Type.Name)
	}
	if f.Access == entity.AccessNone {
		return c.Fail("Resource field %s has no access specifier", c.FullName())
	}
	if len(c.Property.Arguments) > 1 {
		return c.Fail("Resource can't take more than one argument")
	}
	return true
}

func (r *Resource) BodyFooter(c *codegen.Call, out *strings.Builder) codegen.Behaviour {
	f := c.Entity.Field
	member := c.Entity.Name
	name := Capitalize(StripMember(member))
	elem := f.Type.TemplateArgs()

	line(out, "public:")
	line(out, "INLINE void Set", name, "(D_RESOURCE::ResourceHandle handle)")
	line(out, "{")
	line(out, "\tmChangeSignal();")
	line(out, "\t_Set", name, "(handle);")
	line(out, "}")
	line(out, "INLINE ", elem, " const* Get", name, "() const")
	line(out, "{")
	line(out, "\treturn ", member, ".Get();")
	line(out, "}")

	if c.Property.Arg(0) != "false" {
		line(out, f.Access.String(), ":")
		line(out, "INLINE void _Set", name, "(D_RESOURCE::ResourceHandle handle)")
		line(out, "{")
		line(out, "\t", member, " = D_RESOURCE::GetResource<", elem, ">(handle, *this);")
		line(out, "}")
	}

	line(out, "private:")
	line(out, "INLINE D_CORE::Uuid ", uuidGetter(member), "() const")
	line(out, "{")
	line(out, "\treturn ", member, ".IsValid() ? ", member, "->GetUuid() : D_CORE::Uuid();")
	line(out, "}")
	line(out, "INLINE void ", uuidSetter(member), "(D_CORE::Uuid uuid)")
	line(out, "{")
	line(out, "\t_Set", name, "(*D_RESOURCE::GetResource<", elem, ">(uuid, *GetGameObject()));")
	line(out, "}")
	return codegen.Continue
}

func uuidGetter(member string) string {
	return "__Get" + Capitalize(StripMember(member)) + "_UUID"
}

func uuidSetter(member string) string {
	return "__Set" + Capitalize(StripMember(member)) + "_UUID"
}
