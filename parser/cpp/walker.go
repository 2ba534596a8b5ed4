package cpp

import (
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/teranos/annogen/entity"
	"github.com/teranos/annogen/parser"
)

// walker turns a tree-sitter C++ tree into declaration nodes.
type walker struct {
	src        []byte
	marker     string
	markers    []int
	markerUsed []bool
	// all lists every declaration that can receive an annotation.
	all    []*node
	groups int
}

func (w *walker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(w.src)
}

func (w *walker) newNode(kind entity.Kind, name *sitter.Node, fallback *sitter.Node) *node {
	at := name
	if at == nil {
		at = fallback
	}
	pos := at.StartPosition()
	n := &node{decl: parser.Decl{
		Kind:   kind,
		Name:   collapse(w.text(name)),
		Line:   int(pos.Row) + 1,
		Column: int(pos.Column) + 1,
		Offset: int(at.StartByte()),
	}}
	w.all = append(w.all, n)
	return n
}

// items collects the declarations directly inside a scope.
func (w *walker) items(scope *sitter.Node, inRecord bool, access entity.Access) []*node {
	var out []*node
	for i := uint(0); i < scope.NamedChildCount(); i++ {
		c := scope.NamedChild(i)
		if c == nil {
			continue
		}
		if c.Kind() == "access_specifier" {
			access = parseAccess(w.text(c))
			continue
		}
		out = append(out, w.item(c, inRecord, access)...)
	}
	return out
}

func (w *walker) item(n *sitter.Node, inRecord bool, access entity.Access) []*node {
	switch n.Kind() {
	case "namespace_definition":
		return w.namespace(n)
	case "class_specifier", "struct_specifier":
		return w.record(n, access)
	case "enum_specifier":
		return w.enum(n, access)
	case "field_declaration", "declaration", "function_definition":
		return w.declaration(n, inRecord, access)
	case "template_declaration", "linkage_specification", "declaration_list", "type_definition",
		"preproc_if", "preproc_ifdef", "preproc_else", "preproc_elif", "preproc_elifdef":
		return w.items(n, inRecord, access)
	}
	return nil
}

func (w *walker) namespace(n *sitter.Node) []*node {
	body := n.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	name := n.ChildByFieldName("name")
	children := w.items(body, false, entity.AccessNone)
	if name == nil {
		// Members of an anonymous namespace belong to the enclosing scope.
		return children
	}
	ns := w.newNode(entity.KindNamespace, name, n)
	ns.children = children
	return []*node{ns}
}

func (w *walker) record(n *sitter.Node, access entity.Access) []*node {
	body := n.ChildByFieldName("body")
	if body == nil {
		return nil
	}

	kind, inner := entity.KindClass, entity.AccessPrivate
	if n.Kind() == "struct_specifier" {
		kind, inner = entity.KindStruct, entity.AccessPublic
	}

	r := w.newNode(kind, n.ChildByFieldName("name"), n)
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		switch c.Kind() {
		case "base_class_clause":
			r.decl.Parents = w.bases(c, inner)
		case "virtual_specifier":
			if w.text(c) == "final" {
				r.decl.Final = true
			}
		}
	}

	r.children = w.items(body, true, inner)
	w.attachMarkers(r, int(body.StartByte()), int(body.EndByte()))
	return []*node{r}
}

func (w *walker) bases(clause *sitter.Node, defaultAccess entity.Access) []parser.ParentDecl {
	var parents []parser.ParentDecl
	access := entity.AccessNone
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		c := clause.NamedChild(i)
		switch c.Kind() {
		case "access_specifier":
			access = parseAccess(w.text(c))
		case "virtual", "comment":
		default:
			if access == entity.AccessNone {
				access = defaultAccess
			}
			parents = append(parents, parser.ParentDecl{Access: access, Type: collapse(w.text(c))})
			access = entity.AccessNone
		}
	}
	return parents
}

// attachMarkers turns unclaimed body macros inside [start, end) into marker
// declarations. Nested records run first and claim their own markers.
func (w *walker) attachMarkers(r *node, start, end int) {
	for i, off := range w.markers {
		if w.markerUsed[i] || off < start || off >= end {
			continue
		}
		w.markerUsed[i] = true
		r.children = append(r.children, &node{decl: parser.Decl{
			Kind:      entity.KindClass,
			Name:      w.marker,
			Annotated: true,
			Line:      lineOf(w.src, off),
			Column:    columnOf(w.src, off),
			Offset:    off,
		}})
	}
	sort.SliceStable(r.children, func(i, j int) bool {
		return r.children[i].decl.Offset < r.children[j].decl.Offset
	})
}

func (w *walker) enum(n *sitter.Node, access entity.Access) []*node {
	body := n.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	e := w.newNode(entity.KindEnum, n.ChildByFieldName("name"), n)
	e.decl.Access = access
	e.decl.UnderlyingType = collapse(w.text(n.ChildByFieldName("base")))
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if !c.IsNamed() && (c.Kind() == "class" || c.Kind() == "struct") {
			e.decl.Scoped = true
		}
	}

	for i := uint(0); i < body.NamedChildCount(); i++ {
		c := body.NamedChild(i)
		if c.Kind() != "enumerator" {
			continue
		}
		v := w.newNode(entity.KindEnumValue, c.ChildByFieldName("name"), c)
		v.decl.DefaultValue = collapse(w.text(c.ChildByFieldName("value")))
		e.children = append(e.children, v)
	}
	return []*node{e}
}

type modifiers struct {
	static  bool
	virtual bool
	constT  bool
}

func (w *walker) modifiers(n *sitter.Node) modifiers {
	var m modifiers
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		switch txt := w.text(c); {
		case c.Kind() == "storage_class_specifier" && txt == "static":
			m.static = true
		case c.Kind() == "type_qualifier" && txt == "const":
			m.constT = true
		case txt == "virtual":
			m.virtual = true
		}
	}
	return m
}

var declaratorKinds = map[string]bool{
	"field_identifier":         true,
	"identifier":               true,
	"pointer_declarator":       true,
	"reference_declarator":     true,
	"array_declarator":         true,
	"function_declarator":      true,
	"init_declarator":          true,
	"parenthesized_declarator": true,
	"operator_name":            true,
	"destructor_name":          true,
	"qualified_identifier":     true,
	"template_function":        true,
}

// declaration handles fields, methods and functions, plus records and enums
// defined inline as the declared type.
func (w *walker) declaration(n *sitter.Node, inRecord bool, access entity.Access) []*node {
	var out []*node
	typ := n.ChildByFieldName("type")
	if typ != nil {
		switch typ.Kind() {
		case "class_specifier", "struct_specifier":
			out = append(out, w.record(typ, access)...)
		case "enum_specifier":
			out = append(out, w.enum(typ, access)...)
		}
	}

	mods := w.modifiers(n)
	w.groups++
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if !declaratorKinds[c.Kind()] {
			continue
		}
		if typ != nil && c.StartByte() == typ.StartByte() && c.EndByte() == typ.EndByte() {
			continue
		}
		if d := w.declarator(c, typ, mods, inRecord, access); d != nil {
			d.group = w.groups
			out = append(out, d)
		}
	}
	return out
}

type shape struct {
	name   *sitter.Node
	suffix string
	array  string
	fn     *sitter.Node
}

func (w *walker) unwrap(d *sitter.Node) shape {
	var s shape
	for d != nil {
		switch d.Kind() {
		case "pointer_declarator":
			s.suffix += "*"
			for i := uint(0); i < d.NamedChildCount(); i++ {
				if c := d.NamedChild(i); c.Kind() == "type_qualifier" && w.text(c) == "const" {
					s.suffix += " const"
				}
			}
			d = d.ChildByFieldName("declarator")
		case "reference_declarator":
			if strings.HasPrefix(w.text(d), "&&") {
				s.suffix += "&&"
			} else {
				s.suffix += "&"
			}
			if d.NamedChildCount() == 0 {
				return s
			}
			d = d.NamedChild(d.NamedChildCount() - 1)
		case "array_declarator":
			// Outer extents are visited first: int a[2][3] nests [3] around [2].
			s.array = "[" + collapse(w.text(d.ChildByFieldName("size"))) + "]" + s.array
			d = d.ChildByFieldName("declarator")
		case "init_declarator":
			d = d.ChildByFieldName("declarator")
		case "parenthesized_declarator":
			if d.NamedChildCount() == 0 {
				return s
			}
			d = d.NamedChild(0)
		case "function_declarator":
			if s.fn == nil {
				s.fn = d
			}
			d = d.ChildByFieldName("declarator")
		default:
			s.name = d
			return s
		}
	}
	return s
}

func (w *walker) declarator(d, typ *sitter.Node, mods modifiers, inRecord bool, access entity.Access) *node {
	s := w.unwrap(d)
	// Qualified names define members declared elsewhere.
	if s.name == nil || s.name.Kind() == "qualified_identifier" {
		return nil
	}

	spelling := collapse(w.text(typ))
	if spelling != "" && mods.constT {
		spelling = "const " + spelling
	}
	spelling += s.suffix + s.array

	if s.fn != nil {
		kind := entity.KindFunction
		if inRecord {
			kind = entity.KindMethod
		}
		f := w.newNode(kind, s.name, d)
		f.decl.Type = spelling
		f.decl.Static = mods.static
		f.decl.Virtual = mods.virtual
		if inRecord {
			f.decl.Access = access
		}
		if params := s.fn.ChildByFieldName("parameters"); params != nil {
			f.decl.Prototype = collapse(string(w.src[params.StartByte():s.fn.EndByte()]))
		}
		for i := uint(0); i < s.fn.NamedChildCount(); i++ {
			if c := s.fn.NamedChild(i); c.Kind() == "type_qualifier" && w.text(c) == "const" {
				f.decl.Const = true
			}
		}
		return f
	}

	if !inRecord || typ == nil {
		return nil
	}
	f := w.newNode(entity.KindField, s.name, d)
	f.decl.Type = spelling
	f.decl.Static = mods.static
	f.decl.Access = access
	return f
}

func parseAccess(s string) entity.Access {
	switch strings.TrimSuffix(strings.TrimSpace(s), ":") {
	case "public":
		return entity.AccessPublic
	case "protected":
		return entity.AccessProtected
	case "private":
		return entity.AccessPrivate
	}
	return entity.AccessNone
}
