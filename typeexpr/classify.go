package typeexpr

// Classifier predicates and accessors. The resolver and the annotation
// splitter only look at expressions through these; they never type-switch on
// the concrete structs.

// IsAtomic reports whether t is an atomic type expression.
func IsAtomic(t Expr) bool { return t != nil && t.Kind() == KindAtomic }

// IsUnion reports whether t is a union.
func IsUnion(t Expr) bool { return t != nil && t.Kind() == KindUnion }

// IsGeneric reports whether t is a parametrized generic.
func IsGeneric(t Expr) bool { return t != nil && t.Kind() == KindGeneric }

// IsAlias reports whether t is a named type alias.
func IsAlias(t Expr) bool { return t != nil && t.Kind() == KindAlias }

// IsAnnotated reports whether t is an annotated wrapper.
func IsAnnotated(t Expr) bool { return t != nil && t.Kind() == KindAnnotated }

// IsRef reports whether t is a forward reference.
func IsRef(t Expr) bool { return t != nil && t.Kind() == KindRef }

// IsNewType reports whether t is a newtype-style wrapper.
func IsNewType(t Expr) bool { return t != nil && t.Kind() == KindNewType }

// IsNil reports whether t is the Nil atom.
func IsNil(t Expr) bool { return t != nil && t.Key() == Nil.Key() }

// UnionMembers returns the member expressions of a union, or nil.
func UnionMembers(t Expr) []Expr {
	if u, ok := t.(*union); ok {
		return u.members
	}
	return nil
}

// GenericOrigin returns the argument-free origin name of a generic, or "".
func GenericOrigin(t Expr) string {
	if g, ok := t.(*generic); ok {
		return g.origin
	}
	return ""
}

// GenericArgs returns the type arguments of a generic, or nil.
func GenericArgs(t Expr) []Expr {
	if g, ok := t.(*generic); ok {
		return g.args
	}
	return nil
}

// AliasName returns the name of an alias, or "".
func AliasName(t Expr) string {
	if a, ok := t.(*alias); ok {
		return a.name
	}
	return ""
}

// AliasValue returns the aliased expression, evaluating it lazily.
func AliasValue(t Expr) Expr {
	if a, ok := t.(*alias); ok {
		return a.value()
	}
	return nil
}

// AnnotatedInner returns the wrapped expression of an annotated wrapper. For
// any other expression it returns the expression itself.
func AnnotatedInner(t Expr) Expr {
	if a, ok := t.(*annotated); ok {
		return a.inner
	}
	return t
}

// AnnotatedMetadata returns the attached metadata of an annotated wrapper.
func AnnotatedMetadata(t Expr) []any {
	if a, ok := t.(*annotated); ok {
		return a.metadata
	}
	return nil
}

// RefName returns the referenced model name of a forward reference, or "".
func RefName(t Expr) string {
	if r, ok := t.(*ref); ok {
		return r.name
	}
	return ""
}

// NewTypeSuper returns the wrapped supertype of a newtype, or nil.
func NewTypeSuper(t Expr) Expr {
	if n, ok := t.(*newType); ok {
		return n.super
	}
	return nil
}

// MappedFlavorOf reports whether t is wrapped in a mapped wrapper and, if so,
// which flavor. Only the first mapped marker in the metadata counts.
func MappedFlavorOf(t Expr) (MappedFlavor, bool) {
	for _, m := range AnnotatedMetadata(t) {
		if f, ok := m.(MappedFlavor); ok {
			return f, true
		}
	}
	return MappedDefault, false
}

// Unwrap peels one wrapper layer: the value of an alias, the inner expression
// of an annotated wrapper, the supertype of a newtype, or the bare origin of
// a generic. It returns t unchanged for atomic, union and ref expressions.
func Unwrap(t Expr) Expr {
	switch t.Kind() {
	case KindAlias:
		return AliasValue(t)
	case KindAnnotated:
		return AnnotatedInner(t)
	case KindNewType:
		return NewTypeSuper(t)
	case KindGeneric:
		return Atomic(GenericOrigin(t))
	default:
		return t
	}
}

// Walk visits t and every nested expression reachable without evaluating
// aliases (alias values may be self-referential). It is used by the registry
// to reject type-map keys that embed foreign schema metadata.
func Walk(t Expr, visit func(Expr)) {
	if t == nil {
		return
	}
	visit(t)
	switch t.Kind() {
	case KindUnion:
		for _, m := range UnionMembers(t) {
			Walk(m, visit)
		}
	case KindGeneric:
		for _, a := range GenericArgs(t) {
			Walk(a, visit)
		}
	case KindAnnotated:
		Walk(AnnotatedInner(t), visit)
	case KindNewType:
		Walk(NewTypeSuper(t), visit)
	}
}
