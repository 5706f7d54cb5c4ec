package schema

import (
	"errors"

	"github.com/twinschema/twinschema"
	"github.com/twinschema/twinschema/coltype"
	"github.com/twinschema/twinschema/typeexpr"
)

// Resolved is the outcome of resolving a type expression: the storage column
// type plus the nullability the expression implies (a union with Nil).
type Resolved struct {
	Type     coltype.Type
	Nullable bool
}

// errTypeLookup is the internal type-lookup failure. It is recovered by the
// union fallback policy; only column finalization surfaces it, as a
// configuration error naming the offending attribute.
var errTypeLookup = errors.New("no storage type mapping")

// resolver runs the type resolution cascade against one registry, with the
// hierarchy's model symbols and any extra symbols supplied to ResolvePending.
type resolver struct {
	reg      *TypeRegistry
	hasModel func(name string) bool
	extra    map[string]typeexpr.Expr
	jsonType coltype.Type
}

// resolve is the public-facing entry point: it runs the cascade and then
// binds an unbound json-fallback placeholder to the configured fallback
// implementation. A nil result with a nil error means the expression has no
// storage mapping (a cyclic alias that never bottoms out).
func (rs *resolver) resolve(expr typeexpr.Expr) (*Resolved, error) {
	if memoized, ok := rs.reg.memo[expr.Key()]; ok {
		out := *memoized
		return &out, nil
	}
	res, err := rs.cascade(expr, expr, make(map[string]bool))
	if err != nil {
		if errors.Is(err, errTypeLookup) {
			return nil, errTypeLookup
		}
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	if t, ok := res.Type.(*coltype.Typed); ok {
		if !t.Bound() {
			t.SetImpl(rs.jsonType)
		}
	} else {
		// Typed wrappers are stateful per column and never memoized.
		memoized := *res
		rs.reg.memo[expr.Key()] = &memoized
	}
	return res, nil
}

// cascade reduces expr to a concrete column type, peeling wrapper layers
// recursively. origin is the outermost annotation, made available to
// factories for sibling metadata (numeric precision hints). seen guards
// against self-referential aliases: revisiting an expression yields "no
// mapping" instead of recursing forever.
func (rs *resolver) cascade(expr, origin typeexpr.Expr, seen map[string]bool) (*Resolved, error) {
	if seen[expr.Key()] {
		return nil, nil
	}

	if typeexpr.IsUnion(expr) {
		return rs.resolveUnion(expr, seen)
	}

	if typeexpr.IsGeneric(expr) {
		if factory, ok := rs.reg.lookup(typeexpr.GenericOrigin(expr)); ok {
			return &Resolved{Type: factory(origin)}, nil
		}
	}

	if factory, ok := rs.reg.lookup(expr.Key()); ok {
		return &Resolved{Type: factory(origin)}, nil
	}

	seen[expr.Key()] = true

	switch expr.Kind() {
	case typeexpr.KindAlias:
		return rs.cascade(typeexpr.AliasValue(expr), origin, seen)
	case typeexpr.KindAnnotated:
		// The annotated wrapper becomes the origin so its metadata stays
		// visible to factories; the attached metadata itself is ignored.
		return rs.cascade(typeexpr.AnnotatedInner(expr), expr, seen)
	case typeexpr.KindNewType:
		return rs.cascade(typeexpr.NewTypeSuper(expr), origin, seen)
	case typeexpr.KindGeneric:
		return rs.cascade(typeexpr.Atomic(typeexpr.GenericOrigin(expr)), origin, seen)
	case typeexpr.KindRef:
		name := typeexpr.RefName(expr)
		if rs.hasModel != nil && rs.hasModel(name) {
			// A model-valued column is stored as an opaque validated payload.
			return &Resolved{Type: coltype.NewTyped(nil)}, nil
		}
		if sub, ok := rs.extra[name]; ok {
			return rs.cascade(sub, origin, seen)
		}
		return nil, errTypeLookup
	default:
		return nil, errTypeLookup
	}
}

// resolveUnion applies the union policy: a Nil member marks the result
// nullable; a json-fallback member makes the whole union json-fallback; one
// shared concrete type wins; disagreeing or partially unresolvable members
// fall back to json; a union with no resolvable members is an error.
func (rs *resolver) resolveUnion(u typeexpr.Expr, seen map[string]bool) (*Resolved, error) {
	var (
		nullable     bool
		fallback     bool
		unresolvable int
		resolved     int
		first        *Resolved
		identities   = make(map[string]bool)
	)

	for _, member := range typeexpr.UnionMembers(u) {
		if typeexpr.IsNil(member) {
			nullable = true
			continue
		}
		res, err := rs.cascade(member, member, seen)
		if err != nil {
			if errors.Is(err, errTypeLookup) {
				unresolvable++
				continue
			}
			return nil, err
		}
		if res == nil {
			// Recursive member; ignored.
			continue
		}
		resolved++
		if res.Nullable {
			nullable = true
		}
		if t, ok := res.Type.(*coltype.Typed); ok {
			if !t.Bound() {
				fallback = true
				continue
			}
			identities[t.Impl().Name()] = true
		} else {
			identities[res.Type.Name()] = true
		}
		if first == nil {
			first = res
		}
	}

	if resolved == 0 && !fallback {
		return nil, twinschema.ConfigErrorf("union %s has no resolvable members", u)
	}
	if fallback || unresolvable > 0 || len(identities) > 1 {
		return &Resolved{Type: coltype.NewTyped(nil), Nullable: nullable}, nil
	}
	return &Resolved{Type: first.Type, Nullable: nullable}, nil
}
