// Package cpp is the tree-sitter based C++ frontend.
//
// Annotations are written in source as macro invocations placed before the
// declaration they annotate, e.g.
//
//	class DClass(Serialize) Light : public Component
//	{
//	    GENERATED_BODY()
//	    DField(Get, Set) float mRange;
//	};
//
// The frontend blanks those invocations, parses the remaining text with
// tree-sitter and attaches each payload to the first following declaration of
// the macro's kind. Body macros become nested marker declarations.
package cpp

import (
	"context"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	"go.uber.org/zap"

	"github.com/teranos/annogen/entity"
	"github.com/teranos/annogen/errors"
	"github.com/teranos/annogen/logger"
	"github.com/teranos/annogen/parser"
)

var cppLanguage = sitter.NewLanguage(tree_sitter_cpp.Language())

// Options names the macros recognized in source.
type Options struct {
	// Macros maps an annotation macro name to the entity kind it annotates.
	Macros map[string]entity.Kind
	// BodyMacro is rewritten into a nested declaration named MarkerName.
	BodyMacro  string
	MarkerName string
}

// DefaultOptions returns the default macro names.
func DefaultOptions() Options {
	return Options{
		Macros: map[string]entity.Kind{
			"DNamespace": entity.KindNamespace,
			"DClass":     entity.KindClass,
			"DStruct":    entity.KindStruct,
			"DField":     entity.KindField,
			"DMethod":    entity.KindMethod,
			"DFunction":  entity.KindFunction,
			"DEnum":      entity.KindEnum,
			"DEnumVal":   entity.KindEnumValue,
		},
		BodyMacro:  "GENERATED_BODY",
		MarkerName: "__CodeGenIdentifier__",
	}
}

// MacroNames returns the annotation macro names in sorted order.
func (o Options) MacroNames() []string {
	names := make([]string, 0, len(o.Macros))
	for name := range o.Macros {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Frontend implements parser.Frontend for C++ headers. It is safe for
// concurrent use: every Parse call owns its tree-sitter parser.
type Frontend struct {
	opts   Options
	macros map[string]entity.Kind
	logger *zap.SugaredLogger
}

var _ parser.Frontend = (*Frontend)(nil)

// New validates opts and returns a frontend.
func New(opts Options, log *zap.SugaredLogger) (*Frontend, error) {
	if opts.BodyMacro == "" || opts.MarkerName == "" {
		return nil, errors.Mark(errors.New("body macro and marker name are required"), errors.ErrInvalidConfig)
	}
	macros := make(map[string]entity.Kind, len(opts.Macros))
	for name, kind := range opts.Macros {
		if !isIdentifier(name) {
			return nil, errors.Mark(errors.Newf("annotation macro %q is not an identifier", name), errors.ErrInvalidConfig)
		}
		if name == opts.BodyMacro {
			return nil, errors.Mark(errors.Newf("annotation macro %q is also the body macro", name), errors.ErrInvalidConfig)
		}
		// Class and struct annotations are interchangeable.
		if kind.IsRecord() {
			kind = entity.KindRecord
		}
		macros[name] = kind
	}
	return &Frontend{opts: opts, macros: macros, logger: logger.ComponentLogger(log, "cpp")}, nil
}

// Parse implements parser.Frontend.
func (f *Frontend) Parse(ctx context.Context, path string, src []byte) ([]parser.Decl, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s, err := f.preprocess(src)
	if err != nil {
		return nil, err
	}

	p := sitter.NewParser()
	defer p.Close()
	if err := p.SetLanguage(cppLanguage); err != nil {
		return nil, errors.Wrap(err, "load C++ grammar")
	}
	tree := p.Parse(s.src, nil)
	if tree == nil {
		return nil, errors.New("tree-sitter returned no tree")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, errors.New("tree-sitter returned an empty tree")
	}
	if root.HasError() {
		f.logger.Debugw("Source has syntax errors, continuing with partial tree", logger.FieldFile, path)
	}

	w := &walker{
		src:        s.src,
		marker:     f.opts.MarkerName,
		markers:    s.markers,
		markerUsed: make([]bool, len(s.markers)),
	}
	top := w.items(root, false, entity.AccessNone)

	for i, used := range w.markerUsed {
		if !used {
			f.logger.Warnw("Body macro outside of a class or struct body",
				logger.FieldFile, path,
				logger.FieldLine, lineOf(s.src, s.markers[i]))
		}
	}
	f.attach(path, s, w.all)

	return convert(top), nil
}

// attach gives each annotation to the first unannotated declaration of its
// kind whose name starts after the macro. Declarators sharing one declaration
// (float mX, mY;) all receive the payload.
func (f *Frontend) attach(path string, s *scan, all []*node) {
	sort.SliceStable(all, func(i, j int) bool { return all[i].decl.Offset < all[j].decl.Offset })
	for _, a := range s.annotations {
		first := sort.Search(len(all), func(i int) bool { return all[i].decl.Offset >= a.end })
		matched := false
		for i, n := range all[first:] {
			if n.decl.Annotated || !n.decl.Kind.Has(a.kinds) {
				continue
			}
			n.decl.Annotated = true
			n.decl.Payload = a.payload
			matched = true
			if n.group == 0 {
				break
			}
			for _, sib := range all[first+i+1:] {
				if sib.group == n.group && !sib.decl.Annotated && sib.decl.Kind.Has(a.kinds) {
					sib.decl.Annotated = true
					sib.decl.Payload = a.payload
				}
			}
			break
		}
		if !matched {
			f.logger.Warnw("Annotation does not precede a matching declaration",
				logger.FieldFile, path,
				logger.FieldLine, lineOf(s.src, a.start),
				"macro", a.macro)
		}
	}
}

type node struct {
	decl     parser.Decl
	children []*node
	// group is shared by declarators of one declaration; zero means none.
	group int
}

func convert(nodes []*node) []parser.Decl {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]parser.Decl, len(nodes))
	for i, n := range nodes {
		out[i] = n.decl
		out[i].Children = convert(n.children)
	}
	return out
}

func isIdentifier(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentByte(s[i]) {
			return false
		}
	}
	return true
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
