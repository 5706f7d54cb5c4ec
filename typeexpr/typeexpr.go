// Package typeexpr models declared field types as immutable, analyzable
// expressions. A type expression is what a model declaration writes next to a
// field name: an atomic type, a union, a parametrized generic, a named alias,
// an annotated wrapper carrying extra metadata, a forward reference to a model
// declared later, or a newtype-style distinct wrapper around another type.
package typeexpr

import (
	"fmt"
	"strings"
)

// Kind identifies the shape of a type expression
type Kind int

const (
	KindAtomic Kind = iota
	KindUnion
	KindGeneric
	KindAlias
	KindAnnotated
	KindRef
	KindNewType
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindAtomic:
		return "atomic"
	case KindUnion:
		return "union"
	case KindGeneric:
		return "generic"
	case KindAlias:
		return "alias"
	case KindAnnotated:
		return "annotated"
	case KindRef:
		return "ref"
	case KindNewType:
		return "newtype"
	default:
		return "unknown"
	}
}

// Expr is an immutable type expression.
//
// Key returns a stable identity string used for registry lookup, memoization
// and cycle detection. Two expressions with the same Key resolve identically.
type Expr interface {
	Kind() Kind
	Key() string
	String() string
}

// Atomic expressions

type atomic struct {
	name string
}

func (a *atomic) Kind() Kind     { return KindAtomic }
func (a *atomic) Key() string    { return a.name }
func (a *atomic) String() string { return a.name }

// Atomic returns an atomic type expression with the given name. The
// predeclared atoms below cover the builtin-like types; Atomic exists for
// manually registered application types.
func Atomic(name string) Expr {
	return &atomic{name: name}
}

// Predeclared atomic types. Nil is the "no value" member used inside unions
// to express nullability; it has no storage mapping of its own.
var (
	Int      = Atomic("int")
	BigInt   = Atomic("bigint")
	Float    = Atomic("float")
	Bool     = Atomic("bool")
	String   = Atomic("string")
	Bytes    = Atomic("bytes")
	Decimal  = Atomic("decimal")
	UUID     = Atomic("uuid")
	Time     = Atomic("time")
	Date     = Atomic("date")
	Clock    = Atomic("clock")
	Duration = Atomic("duration")
	IPAddr   = Atomic("ipaddr")
	IPNet    = Atomic("ipnet")
	Path     = Atomic("path")
	Any      = Atomic("any")
	Nil      = Atomic("nil")
)

// Union expressions

type union struct {
	members []Expr
}

func (u *union) Kind() Kind { return KindUnion }

func (u *union) Key() string {
	keys := make([]string, len(u.members))
	for i, m := range u.members {
		keys[i] = m.Key()
	}
	return "union[" + strings.Join(keys, "|") + "]"
}

func (u *union) String() string {
	parts := make([]string, len(u.members))
	for i, m := range u.members {
		parts[i] = m.String()
	}
	return strings.Join(parts, " | ")
}

// Union returns a union of the given member expressions. A union of one
// member is that member itself.
func Union(members ...Expr) Expr {
	if len(members) == 1 {
		return members[0]
	}
	return &union{members: members}
}

// Optional is sugar for Union(inner, Nil).
func Optional(inner Expr) Expr {
	return Union(inner, Nil)
}

// Generic expressions

type generic struct {
	origin string
	args   []Expr
}

func (g *generic) Kind() Kind { return KindGeneric }

func (g *generic) Key() string {
	keys := make([]string, len(g.args))
	for i, a := range g.args {
		keys[i] = a.Key()
	}
	return g.origin + "[" + strings.Join(keys, ",") + "]"
}

func (g *generic) String() string { return g.Key() }

// Generic returns a parametrized generic expression, e.g.
// Generic("list", typeexpr.Int) for a list of ints.
func Generic(origin string, args ...Expr) Expr {
	return &generic{origin: origin, args: args}
}

// List and Map are sugar for the common container generics.
func List(elem Expr) Expr { return Generic("list", elem) }
func Set(elem Expr) Expr  { return Generic("set", elem) }

func Map(key, value Expr) Expr { return Generic("map", key, value) }

// Alias expressions

type alias struct {
	name  string
	value func() Expr
}

func (a *alias) Kind() Kind     { return KindAlias }
func (a *alias) Key() string    { return "alias:" + a.name }
func (a *alias) String() string { return a.name }

// Alias returns a named type alias for value.
func Alias(name string, value Expr) Expr {
	return &alias{name: name, value: func() Expr { return value }}
}

// AliasFunc returns a named type alias whose value is produced lazily. This
// is the declaration form for self-referential aliases, which resolution must
// detect and treat as having no storage mapping.
func AliasFunc(name string, value func() Expr) Expr {
	return &alias{name: name, value: value}
}

// Annotated expressions

type annotated struct {
	inner    Expr
	metadata []any
}

func (a *annotated) Kind() Kind { return KindAnnotated }

func (a *annotated) Key() string {
	metas := make([]string, len(a.metadata))
	for i, m := range a.metadata {
		if s, ok := m.(fmt.Stringer); ok {
			metas[i] = s.String()
		} else {
			// Identity-based; metadata values without a string form are
			// distinguished per instance.
			metas[i] = fmt.Sprintf("%T@%p", m, m)
		}
	}
	return "annotated[" + a.inner.Key() + ";" + strings.Join(metas, ",") + "]"
}

func (a *annotated) String() string { return "annotated[" + a.inner.String() + "]" }

// Annotated wraps inner with attached metadata values. Resolution ignores the
// metadata except where a factory inspects it (numeric precision hints); the
// annotation splitter reads embedded field descriptors and mapped-wrapper
// markers out of it.
func Annotated(inner Expr, metadata ...any) Expr {
	if len(metadata) == 0 {
		return inner
	}
	return &annotated{inner: inner, metadata: metadata}
}

// MappedFlavor records which storage-engine mapped wrapper a declaration
// used. The splitter keeps the flavor for the storage view and unwraps the
// inner expression for the validation view.
type MappedFlavor int

const (
	MappedDefault MappedFlavor = iota
	MappedWriteOnly
	MappedDynamic
)

// String returns the string representation of the mapped flavor
func (f MappedFlavor) String() string {
	switch f {
	case MappedDefault:
		return "mapped"
	case MappedWriteOnly:
		return "write_only_mapped"
	case MappedDynamic:
		return "dynamic_mapped"
	default:
		return "unknown"
	}
}

// Mapped wraps inner in the storage engine's default mapped wrapper.
func Mapped(inner Expr) Expr {
	return Annotated(inner, MappedDefault)
}

// MappedAs wraps inner in a specific mapped wrapper flavor.
func MappedAs(inner Expr, flavor MappedFlavor) Expr {
	return Annotated(inner, flavor)
}

// Forward references

type ref struct {
	name string
}

func (r *ref) Kind() Kind     { return KindRef }
func (r *ref) Key() string    { return "ref:" + r.name }
func (r *ref) String() string { return r.name }

// Ref returns a forward reference to a model by name. A ref is a deferred
// token: it carries no evaluation context and is resolved later against the
// hierarchy's symbol table (or extra symbols supplied to ResolvePending).
func Ref(name string) Expr {
	return &ref{name: name}
}

// NewType expressions

type newType struct {
	name  string
	super Expr
}

func (n *newType) Kind() Kind     { return KindNewType }
func (n *newType) Key() string    { return "newtype:" + n.name }
func (n *newType) String() string { return n.name }

// NewType returns a distinct named wrapper around super. It resolves to
// super's storage type.
func NewType(name string, super Expr) Expr {
	return &newType{name: name, super: super}
}
