package entity

import (
	"strings"

	"github.com/teranos/annogen/errors"
)

// Model is the arena of entities parsed from one file.
type Model struct {
	// File is the path of the parsed source file.
	File string
	// FileID is a stable identifier for File, usable as a C++ identifier.
	FileID string

	entities []Entity
	roots    []Handle
}

// NewModel returns an empty model for file.
func NewModel(file, fileID string) *Model {
	return &Model{File: file, FileID: fileID}
}

// Add appends e as a child of parent (NoHandle for top level) and returns its
// handle. The parent must already exist, so the parent graph stays acyclic.
func (m *Model) Add(parent Handle, e Entity) (Handle, error) {
	if parent != NoHandle && !m.Valid(parent) {
		return NoHandle, errors.Newf("parent handle %d out of range", parent)
	}
	h := Handle(len(m.entities))
	e.Parent = parent
	e.children = nil
	m.entities = append(m.entities, e)
	if parent == NoHandle {
		m.roots = append(m.roots, h)
	} else {
		p := &m.entities[parent]
		p.children = append(p.children, h)
	}
	return h, nil
}

// Valid reports whether h refers to an entity of m.
func (m *Model) Valid(h Handle) bool {
	return h >= 0 && int(h) < len(m.entities)
}

// Get returns the entity for h. The pointer stays valid until the next Add.
func (m *Model) Get(h Handle) *Entity {
	if !m.Valid(h) {
		return nil
	}
	return &m.entities[h]
}

// Len returns the number of entities.
func (m *Model) Len() int {
	return len(m.entities)
}

// Roots returns the top-level entities in declaration order.
func (m *Model) Roots() []Handle {
	return m.roots
}

// Outer returns the lexically enclosing entity of h, or NoHandle.
func (m *Model) Outer(h Handle) Handle {
	if e := m.Get(h); e != nil {
		return e.Parent
	}
	return NoHandle
}

// FullName returns the '::'-joined names of h and its ancestors.
func (m *Model) FullName(h Handle) string {
	var names []string
	for cur := h; m.Valid(cur); cur = m.entities[cur].Parent {
		e := &m.entities[cur]
		// Unscoped enumerators live in the enclosing scope of their enum.
		if e.Kind == KindEnum && e.Enum != nil && !e.Enum.Scoped && cur != h {
			continue
		}
		names = append(names, e.Name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, "::")
}

// ChildrenOf returns the direct children of h whose kind is in kinds.
func (m *Model) ChildrenOf(h Handle, kinds Kind) []Handle {
	e := m.Get(h)
	if e == nil {
		return nil
	}
	var out []Handle
	for _, c := range e.children {
		if m.entities[c].Kind.Has(kinds) {
			out = append(out, c)
		}
	}
	return out
}

// FindNested returns the first direct child of h named name whose kind is in kinds.
func (m *Model) FindNested(h Handle, name string, kinds Kind) (Handle, bool) {
	for _, c := range m.ChildrenOf(h, kinds) {
		if m.entities[c].Name == name {
			return c, true
		}
	}
	return NoHandle, false
}

// EnclosingRecord returns the closest class or struct containing h, or h
// itself when h is a record.
func (m *Model) EnclosingRecord(h Handle) (Handle, bool) {
	for cur := h; m.Valid(cur); cur = m.entities[cur].Parent {
		if m.entities[cur].Kind.IsRecord() {
			return cur, true
		}
	}
	return NoHandle, false
}

// Walk visits every entity depth-first in declaration order. Returning false
// from fn skips the children of the visited entity.
func (m *Model) Walk(fn func(h Handle, depth int) bool) {
	var visit func(hs []Handle, depth int)
	visit = func(hs []Handle, depth int) {
		for _, h := range hs {
			if fn(h, depth) {
				visit(m.entities[h].children, depth+1)
			}
		}
	}
	visit(m.roots, 0)
}

// Clone returns a deep copy of m.
func (m *Model) Clone() *Model {
	c := &Model{
		File:     m.File,
		FileID:   m.FileID,
		entities: make([]Entity, len(m.entities)),
		roots:    append([]Handle(nil), m.roots...),
	}
	for i, e := range m.entities {
		c.entities[i] = e.clone()
	}
	return c
}

// Count returns how many entities have a kind in kinds.
func (m *Model) Count(kinds Kind) int {
	n := 0
	for i := range m.entities {
		if m.entities[i].Kind.Has(kinds) {
			n++
		}
	}
	return n
}

// LookupMarker finds the nested marker declaration named marker inside
// record h and returns its line. It does not modify the model.
func (m *Model) LookupMarker(h Handle, marker string) (int, bool) {
	e := m.Get(h)
	if e == nil || e.Record == nil {
		return NoMarkerLine, false
	}
	if e.Record.MarkerLine != NoMarkerLine {
		return e.Record.MarkerLine, true
	}
	if c, ok := m.FindNested(h, marker, KindRecord); ok {
		return m.entities[c].Line, true
	}
	return NoMarkerLine, false
}

// Node is an entity together with its nested entities. It is the exported
// shape of a model when dumped as YAML or JSON.
type Node struct {
	Entity   `yaml:",inline"`
	FullName string `json:"full_name" yaml:"full_name"`
	Children []Node `json:"children,omitempty" yaml:"children,omitempty"`
}

// Tree returns the top-level entities of m as nested nodes.
func (m *Model) Tree() []Node {
	var build func(hs []Handle) []Node
	build = func(hs []Handle) []Node {
		if len(hs) == 0 {
			return nil
		}
		nodes := make([]Node, 0, len(hs))
		for _, h := range hs {
			e := m.entities[h].clone()
			nodes = append(nodes, Node{
				Entity:   e,
				FullName: m.FullName(h),
				Children: build(m.entities[h].children),
			})
		}
		return nodes
	}
	return build(m.roots)
}
