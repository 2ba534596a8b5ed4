package codegen

import (
	"cmp"
	"slices"
	"sync"

	"github.com/teranos/annogen/entity"
)

// Module is a named set of rules registered together.
type Module struct {
	name  string
	rules []Rule
}

// NewModule returns a module holding rules in registration order.
func NewModule(name string, rules ...Rule) *Module {
	return &Module{name: name, rules: rules}
}

// Name returns the module name.
func (m *Module) Name() string {
	return m.name
}

// Add registers r after the module's existing rules.
func (m *Module) Add(r Rule) {
	m.rules = append(m.rules, r)
}

// Rules returns the rules in registration order.
func (m *Module) Rules() []Rule {
	return m.rules
}

// Group holds the modules of a generation unit and resolves which rules
// apply to an entity kind. Registration index runs across modules in the
// order they were added.
type Group struct {
	modules []*Module

	mu     sync.Mutex
	byKind map[entity.Kind][]Rule
}

// NewGroup returns a group of modules.
func NewGroup(modules ...*Module) *Group {
	return &Group{modules: modules}
}

// Add appends a module and drops the cached rule orderings.
func (g *Group) Add(m *Module) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.modules = append(g.modules, m)
	g.byKind = nil
}

// Modules returns the registered modules.
func (g *Group) Modules() []*Module {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*Module(nil), g.modules...)
}

// RulesFor returns the rules accepting kind, stably sorted by order and then
// registration index. Orderings are computed once per kind.
func (g *Group) RulesFor(kind entity.Kind) []Rule {
	g.mu.Lock()
	defer g.mu.Unlock()

	if rules, ok := g.byKind[kind]; ok {
		return rules
	}
	var rules []Rule
	for _, m := range g.modules {
		for _, r := range m.rules {
			if r.Kinds().Has(kind) {
				rules = append(rules, r)
			}
		}
	}
	slices.SortStableFunc(rules, func(a, b Rule) int {
		return cmp.Compare(a.Order(), b.Order())
	})
	if g.byKind == nil {
		g.byKind = make(map[entity.Kind][]Rule)
	}
	g.byKind[kind] = rules
	return rules
}

// Clone returns a group sharing the (stateless) rules with a fresh cache.
func (g *Group) Clone() *Group {
	return NewGroup(g.Modules()...)
}
