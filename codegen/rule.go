package codegen

import (
	"strings"

	"github.com/teranos/annogen/entity"
	"github.com/teranos/annogen/errors"
	"github.com/teranos/annogen/property"
)

// Rule turns one annotation on entities of the kinds it accepts into text.
//
// For every matching (entity, property) pair the unit calls Validate, then
// Preamble, the four emission methods in Points order, then Postamble. A false
// Validate skips this rule on this entity only. A false Preamble or Postamble
// aborts the file's whole generation unit.
//
// Rules must be stateless: the same value is shared by concurrent units.
type Rule interface {
	Annotation() string
	Kinds() entity.Kind
	// Order sorts rules applying to the same entity; lower runs first.
	Order() int

	Validate(c *Call) bool
	Preamble(c *Call) bool
	HeaderPrologue(c *Call, out *strings.Builder) Behaviour
	// BodyFooter is only called for classes, structs, fields and methods.
	// The text lands in the body of the enclosing class or struct.
	BodyFooter(c *Call, out *strings.Builder) Behaviour
	HeaderEpilogue(c *Call, out *strings.Builder) Behaviour
	SourcePrologue(c *Call, out *strings.Builder) Behaviour
	Postamble(c *Call) bool
}

// BaseRule implements every Rule method as a no-op. Embed it and override
// what the rule needs.
type BaseRule struct {
	annotation string
	kinds      entity.Kind
	order      int
}

// NewBaseRule returns a BaseRule bound to annotation and kinds.
func NewBaseRule(annotation string, kinds entity.Kind, order int) BaseRule {
	return BaseRule{annotation: annotation, kinds: kinds, order: order}
}

func (r BaseRule) Annotation() string { return r.annotation }
func (r BaseRule) Kinds() entity.Kind { return r.kinds }
func (r BaseRule) Order() int         { return r.order }

func (BaseRule) Validate(*Call) bool                              { return true }
func (BaseRule) Preamble(*Call) bool                              { return true }
func (BaseRule) HeaderPrologue(*Call, *strings.Builder) Behaviour { return Continue }
func (BaseRule) BodyFooter(*Call, *strings.Builder) Behaviour     { return Continue }
func (BaseRule) HeaderEpilogue(*Call, *strings.Builder) Behaviour { return Continue }
func (BaseRule) SourcePrologue(*Call, *strings.Builder) Behaviour { return Continue }
func (BaseRule) Postamble(*Call) bool                             { return true }

// Call is the argument of every rule callback.
type Call struct {
	Env      *Env
	Handle   entity.Handle
	Entity   *entity.Entity
	Property property.Property
	// Index is the position of Property among the entity's properties.
	Index int
}

// Model returns the model being generated.
func (c *Call) Model() *entity.Model {
	return c.Env.Model
}

// FullName returns the qualified name of the entity.
func (c *Call) FullName() string {
	return c.Env.Model.FullName(c.Handle)
}

// OuterName returns the qualified name of the enclosing entity, or "".
func (c *Call) OuterName() string {
	outer := c.Env.Model.Outer(c.Handle)
	if outer == entity.NoHandle {
		return ""
	}
	return c.Env.Model.FullName(outer)
}

// Fail reports a rule validation error for this call and returns false, so
// rules can write `return c.Fail(...)`.
func (c *Call) Fail(format string, args ...interface{}) bool {
	c.Env.Report(c.wrap(errors.Newf(format, args...), errors.ErrRuleValidation))
	return false
}

// FailStructural reports a structural precondition error and returns false.
func (c *Call) FailStructural(format string, args ...interface{}) bool {
	c.Env.Report(c.wrap(errors.Newf(format, args...), errors.ErrStructuralPrecondition))
	return false
}

func (c *Call) wrap(err error, category error) error {
	err = errors.Wrapf(err, "%s:%d: %s on %s %s", c.Env.Model.File, c.Entity.Line, c.Property.Name, c.Entity.Kind, c.FullName())
	return errors.Mark(err, category)
}
