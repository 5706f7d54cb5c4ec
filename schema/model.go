package schema

import (
	"github.com/twinschema/twinschema"
	"github.com/twinschema/twinschema/field"
	"github.com/twinschema/twinschema/typeexpr"
)

// reservedAttrs are hierarchy-level names that model declarations may not
// shadow.
var reservedAttrs = map[string]bool{
	"metadata": true,
	"registry": true,
	"typemap":  true,
}

// attrKind distinguishes what a declared attribute contributes.
type attrKind int

const (
	attrField attrKind = iota
	attrStatic
	attrPrivate
)

// modelAttr is one raw declaration in a model body, before splitting.
type modelAttr struct {
	kind attrKind
	name string
	ann  typeexpr.Expr
	desc *field.Descriptor // nil for bare annotations
	// value holds the static value, the private initial value, or a raw
	// (rejected) storage object bound to the attribute.
	value    any
	hasValue bool
}

// Model accumulates one declarative model definition. Declarations never
// fail immediately; errors accumulate and surface at Compile, which is the
// class-compilation step.
type Model struct {
	name      string
	table     bool
	tableName string

	allowExtra         bool
	validateAssignment bool

	base  *Declared
	attrs []*modelAttr
	errs  []error
}

// ModelOption configures a model declaration.
type ModelOption func(*Model)

// Table marks the model as table-backed.
func Table() ModelOption {
	return func(m *Model) { m.table = true }
}

// TableName overrides the default (snake-cased) table name.
func TableName(name string) ModelOption {
	return func(m *Model) { m.tableName = name }
}

// AllowExtra permits undeclared fields on instances.
func AllowExtra() ModelOption {
	return func(m *Model) { m.allowExtra = true }
}

// NoAssignmentValidation disables re-validation on attribute assignment.
func NoAssignmentValidation() ModelOption {
	return func(m *Model) { m.validateAssignment = false }
}

// Extends inherits the base model's declarations. Extending a table-backed
// model is a declaration error: its storage schema is (or will be) finalized
// and closed to new columns.
func Extends(base *Declared) ModelOption {
	return func(m *Model) { m.base = base }
}

// NewModel starts a model declaration. Assignment validation is on by
// default, matching the hierarchy's validation contract.
func NewModel(name string, opts ...ModelOption) *Model {
	m := &Model{name: name, validateAssignment: true}
	for _, opt := range opts {
		opt(m)
	}
	if m.tableName == "" {
		m.tableName = toSnakeCase(name)
	}
	return m
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Field declares an attribute with a column-style dual field descriptor
// built from opts. With no options the attribute is a bare annotation.
func (m *Model) Field(name string, ann typeexpr.Expr, opts ...field.Option) *Model {
	if len(opts) == 0 {
		return m.addAttr(&modelAttr{kind: attrField, name: name, ann: ann})
	}
	desc, err := field.Column(opts...)
	if err != nil {
		m.errs = append(m.errs, err)
		return m
	}
	return m.addAttr(&modelAttr{kind: attrField, name: name, ann: ann, desc: desc})
}

// Relationship declares an attribute with a relationship-style dual field
// descriptor built from opts.
func (m *Model) Relationship(name string, ann typeexpr.Expr, opts ...field.Option) *Model {
	desc, err := field.Relationship(opts...)
	if err != nil {
		m.errs = append(m.errs, err)
		return m
	}
	return m.addAttr(&modelAttr{kind: attrField, name: name, ann: ann, desc: desc})
}

// FieldDesc declares an attribute with a pre-built descriptor (or a raw
// value; raw storage objects are rejected at compile time).
func (m *Model) FieldDesc(name string, ann typeexpr.Expr, value any) *Model {
	attr := &modelAttr{kind: attrField, name: name, ann: ann}
	if desc, ok := value.(*field.Descriptor); ok {
		attr.desc = desc
	} else if value != nil {
		attr.value = value
		attr.hasValue = true
	}
	return m.addAttr(attr)
}

// Static declares a class-level value copied through to both schema views
// and excluded from field processing.
func (m *Model) Static(name string, value any) *Model {
	return m.addAttr(&modelAttr{kind: attrStatic, name: name, value: value, hasValue: true})
}

// Private declares a per-instance private attribute, excluded from the
// storage view entirely.
func (m *Model) Private(name string, initial any) *Model {
	return m.addAttr(&modelAttr{kind: attrPrivate, name: name, value: initial, hasValue: true})
}

func (m *Model) addAttr(attr *modelAttr) *Model {
	if reservedAttrs[attr.name] {
		m.errs = append(m.errs, twinschema.ConfigErrorf(
			"attribute %s.%s shadows a reserved hierarchy name", m.name, attr.name))
		return m
	}
	for _, existing := range m.attrs {
		if existing.name == attr.name {
			m.errs = append(m.errs, twinschema.ConfigErrorf(
				"model %s declares attribute %s twice", m.name, attr.name))
			return m
		}
	}
	m.attrs = append(m.attrs, attr)
	return m
}

// allAttrs returns the base model's attributes (when extending) followed by
// this model's own, own declarations overriding by name.
func (m *Model) allAttrs() []*modelAttr {
	if m.base == nil {
		return m.attrs
	}
	own := make(map[string]bool, len(m.attrs))
	for _, attr := range m.attrs {
		own[attr.name] = true
	}
	var out []*modelAttr
	for _, attr := range m.base.rawAttrs {
		if !own[attr.name] {
			out = append(out, attr)
		}
	}
	return append(out, m.attrs...)
}

// toSnakeCase converts a model name to its default table name.
func toSnakeCase(s string) string {
	var result []rune
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := runes[i-1]
			if prev >= 'a' && prev <= 'z' {
				result = append(result, '_')
			} else if i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z' && prev >= 'A' && prev <= 'Z' {
				result = append(result, '_')
			}
		}
		if r >= 'A' && r <= 'Z' {
			result = append(result, r+('a'-'A'))
		} else {
			result = append(result, r)
		}
	}
	return string(result)
}
