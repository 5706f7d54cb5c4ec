// Package schema implements the class-compilation pipeline: it turns one
// declarative model definition into two independent schema views (validation,
// storage), resolves declared types to storage column types, and defers
// storage finalization for models with unresolved forward references.
package schema

import (
	"github.com/twinschema/twinschema"
	"github.com/twinschema/twinschema/coltype"
	"github.com/twinschema/twinschema/field"
	"github.com/twinschema/twinschema/typeexpr"
)

// TypeFactory produces a storage column type for a matched type expression.
// The factory receives the original, fully wrapped annotation so that it can
// inspect sibling metadata (a decimal type reads precision and scale hints
// attached via the field descriptor).
type TypeFactory func(ann typeexpr.Expr) coltype.Type

// Static returns a factory that always produces t.
func Static(t coltype.Type) TypeFactory {
	return func(typeexpr.Expr) coltype.Type { return t }
}

// TypedOf returns a factory producing a fresh Typed wrapper around impl per
// call. Typed wrappers are stateful (they record the column's element
// annotation), so they are never shared between columns.
func TypedOf(impl coltype.Type) TypeFactory {
	return func(typeexpr.Expr) coltype.Type { return coltype.NewTyped(impl) }
}

// JSONFallback is the factory for the unbound json-fallback placeholder.
func JSONFallback() TypeFactory {
	return TypedOf(nil)
}

// digitHinter is implemented by metadata values that carry numeric precision
// hints (the dual field descriptor does).
type digitHinter interface {
	DigitHints() (precision, scale *int)
}

func numericFactory(ann typeexpr.Expr) coltype.Type {
	var precision, scale *int
	for _, meta := range typeexpr.AnnotatedMetadata(ann) {
		if h, ok := meta.(digitHinter); ok {
			p, s := h.DigitHints()
			if p != nil {
				precision = p
			}
			if s != nil {
				scale = s
			}
		}
	}
	return coltype.NewTyped(coltype.Numeric{Precision: precision, Scale: scale})
}

// TypeRegistry maps type expressions to storage column type factories. It is
// mutable only during hierarchy setup and read-only (and memoized)
// afterwards.
type TypeRegistry struct {
	direct map[string]TypeFactory
	memo   map[string]*Resolved
}

// newTypeRegistry builds a registry preloaded with the default type map.
func newTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{
		direct: make(map[string]TypeFactory),
		memo:   make(map[string]*Resolved),
	}
	for key, factory := range defaultTypeMap() {
		r.direct[key] = factory
	}
	return r
}

// Register maps a type expression to a column type factory. Registering an
// expression that embeds field-descriptor metadata is rejected: such a key
// would make resolution depend on declaration order.
func (r *TypeRegistry) Register(expr typeexpr.Expr, factory TypeFactory) error {
	var embedded bool
	typeexpr.Walk(expr, func(e typeexpr.Expr) {
		for _, meta := range typeexpr.AnnotatedMetadata(e) {
			if _, ok := meta.(*field.Descriptor); ok {
				embedded = true
			}
		}
	})
	if embedded {
		return twinschema.ConfigErrorf(
			"type map key %s embeds a field descriptor; register the bare type instead", expr)
	}
	r.direct[expr.Key()] = factory
	return nil
}

// lookup returns the direct-table factory for key.
func (r *TypeRegistry) lookup(key string) (TypeFactory, bool) {
	factory, ok := r.direct[key]
	return factory, ok
}

func defaultTypeMap() map[string]TypeFactory {
	return map[string]TypeFactory{
		// Standard scalar types round-trip through the validation schema, so
		// they resolve to Typed wrappers around their storage representation.
		typeexpr.Int.Key():      TypedOf(coltype.Integer{}),
		typeexpr.BigInt.Key():   TypedOf(coltype.BigInt{}),
		typeexpr.Float.Key():    TypedOf(coltype.Float{}),
		typeexpr.Bool.Key():     TypedOf(coltype.Boolean{}),
		typeexpr.String.Key():   TypedOf(coltype.String{}),
		typeexpr.Bytes.Key():    TypedOf(coltype.LargeBinary{}),
		typeexpr.Decimal.Key():  numericFactory,
		typeexpr.UUID.Key():     TypedOf(coltype.UUID{}),
		typeexpr.Time.Key():     TypedOf(coltype.DateTime{}),
		typeexpr.Date.Key():     TypedOf(coltype.Date{}),
		typeexpr.Clock.Key():    TypedOf(coltype.Time{}),
		typeexpr.Duration.Key(): TypedOf(coltype.Interval{}),
		typeexpr.Path.Key():     TypedOf(coltype.String{}),

		// Network types bind and load through their column type directly.
		typeexpr.IPAddr.Key(): Static(coltype.Inet{}),
		typeexpr.IPNet.Key():  Static(coltype.Cidr{}),

		// Containers and Any are always the json fallback.
		typeexpr.Any.Key(): JSONFallback(),
		"list":             JSONFallback(),
		"set":              JSONFallback(),
		"frozenset":        JSONFallback(),
		"map":              JSONFallback(),
		"sequence":         JSONFallback(),
		"deque":            JSONFallback(),
	}
}
