package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinschema/twinschema"
	"github.com/twinschema/twinschema/coltype"
	"github.com/twinschema/twinschema/typeexpr"
)

func newTestHierarchy(t *testing.T, opts ...HierarchyOption) *Hierarchy {
	t.Helper()
	h, err := NewHierarchy(opts...)
	require.NoError(t, err)
	return h
}

// impl unwraps the resolved column type to the concrete storage
// implementation, looking through the typed wrapper.
func impl(t *testing.T, res *Resolved) coltype.Type {
	t.Helper()
	if typed, ok := res.Type.(*coltype.Typed); ok {
		require.True(t, typed.Bound())
		return typed.Impl()
	}
	return res.Type
}

func TestResolveScalars(t *testing.T) {
	h := newTestHierarchy(t)

	tests := []struct {
		name string
		expr typeexpr.Expr
		want coltype.Type
	}{
		{"int", typeexpr.Int, coltype.Integer{}},
		{"bigint", typeexpr.BigInt, coltype.BigInt{}},
		{"float", typeexpr.Float, coltype.Float{}},
		{"bool", typeexpr.Bool, coltype.Boolean{}},
		{"string", typeexpr.String, coltype.String{}},
		{"bytes", typeexpr.Bytes, coltype.LargeBinary{}},
		{"uuid", typeexpr.UUID, coltype.UUID{}},
		{"time", typeexpr.Time, coltype.DateTime{}},
		{"date", typeexpr.Date, coltype.Date{}},
		{"duration", typeexpr.Duration, coltype.Interval{}},
		{"ipaddr", typeexpr.IPAddr, coltype.Inet{}},
		{"ipnet", typeexpr.IPNet, coltype.Cidr{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.Resolve(tt.expr)
			require.NoError(t, err)
			assert.False(t, res.Nullable)
			assert.Equal(t, tt.want, impl(t, res))
		})
	}
}

func TestResolveSeesThroughWrappers(t *testing.T) {
	h := newTestHierarchy(t)

	wrappers := []struct {
		name string
		expr typeexpr.Expr
	}{
		{"bare", typeexpr.Int},
		{"alias", typeexpr.Alias("Count", typeexpr.Int)},
		{"annotated", typeexpr.Annotated(typeexpr.Int, "hint")},
		{"newtype", typeexpr.NewType("UserID", typeexpr.Int)},
		{"mapped", typeexpr.Mapped(typeexpr.Int)},
		{"nested", typeexpr.Alias("Outer", typeexpr.NewType("Inner", typeexpr.Int))},
	}

	for _, tt := range wrappers {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.Resolve(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, coltype.Integer{}, impl(t, res))
		})
	}
}

func TestResolveOptionalMarksNullable(t *testing.T) {
	h := newTestHierarchy(t)

	res, err := h.Resolve(typeexpr.Optional(typeexpr.Int))
	require.NoError(t, err)
	assert.True(t, res.Nullable)
	assert.Equal(t, coltype.Integer{}, impl(t, res))
}

func TestResolveUnionPolicy(t *testing.T) {
	tests := []struct {
		name     string
		expr     typeexpr.Expr
		wantImpl coltype.Type
		nullable bool
	}{
		{
			"same identity collapses",
			typeexpr.Union(typeexpr.Int, typeexpr.Int),
			coltype.Integer{},
			false,
		},
		{
			"disagreeing identities fall back to json",
			typeexpr.Union(typeexpr.Int, typeexpr.String),
			coltype.JSON{},
			false,
		},
		{
			"distinct integer widths fall back to json",
			typeexpr.Union(typeexpr.Int, typeexpr.BigInt),
			coltype.JSON{},
			false,
		},
		{
			"nil member marks nullable",
			typeexpr.Union(typeexpr.Int, typeexpr.String, typeexpr.Nil),
			coltype.JSON{},
			true,
		},
		{
			"partially unresolvable falls back to json",
			typeexpr.Union(typeexpr.Int, typeexpr.Atomic("mystery")),
			coltype.JSON{},
			false,
		},
		{
			"container member falls back to json",
			typeexpr.Union(typeexpr.Int, typeexpr.List(typeexpr.Int)),
			coltype.JSON{},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHierarchy(t)
			res, err := h.Resolve(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.nullable, res.Nullable)
			assert.Equal(t, tt.wantImpl, impl(t, res))
		})
	}
}

func TestResolveUnionWithNoResolvableMembers(t *testing.T) {
	h := newTestHierarchy(t)

	_, err := h.Resolve(typeexpr.Union(typeexpr.Atomic("foo"), typeexpr.Atomic("bar")))
	require.Error(t, err)
	assert.True(t, twinschema.IsConfigError(err))
	assert.Contains(t, err.Error(), "no resolvable members")
}

func TestResolveSelfReferentialAliasTerminates(t *testing.T) {
	h := newTestHierarchy(t)

	var loop typeexpr.Expr
	loop = typeexpr.AliasFunc("Loop", func() typeexpr.Expr { return loop })

	_, err := h.Resolve(loop)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "never reduces")
}

func TestResolveContainersAreJSON(t *testing.T) {
	h := newTestHierarchy(t)

	for _, expr := range []typeexpr.Expr{
		typeexpr.List(typeexpr.Int),
		typeexpr.Set(typeexpr.String),
		typeexpr.Map(typeexpr.String, typeexpr.Int),
		typeexpr.Any,
	} {
		res, err := h.Resolve(expr)
		require.NoError(t, err, expr.String())
		assert.Equal(t, coltype.JSON{}, impl(t, res), expr.String())
	}
}

func TestResolveUnknownModelRefFails(t *testing.T) {
	h := newTestHierarchy(t)
	_, err := h.Resolve(typeexpr.Ref("Nowhere"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no storage type mapping")
}

func TestResolveCustomTypeMapWins(t *testing.T) {
	h := newTestHierarchy(t, WithTypeMap(map[typeexpr.Expr]TypeFactory{
		typeexpr.String: Static(coltype.Text{}),
	}))

	res, err := h.Resolve(typeexpr.String)
	require.NoError(t, err)
	assert.Equal(t, coltype.Text{}, res.Type)
}

func TestResolveCustomJSONType(t *testing.T) {
	h := newTestHierarchy(t, WithJSONType(coltype.Text{}))

	res, err := h.Resolve(typeexpr.Union(typeexpr.Int, typeexpr.String))
	require.NoError(t, err)
	assert.Equal(t, coltype.Text{}, impl(t, res))
}

func TestResolveMemoizesOnlySharedTypes(t *testing.T) {
	h := newTestHierarchy(t)

	first, err := h.Resolve(typeexpr.Int)
	require.NoError(t, err)
	second, err := h.Resolve(typeexpr.Int)
	require.NoError(t, err)

	// Typed wrappers are stateful per column and must never be shared.
	assert.NotSame(t, first.Type, second.Type)

	inetFirst, err := h.Resolve(typeexpr.IPAddr)
	require.NoError(t, err)
	inetSecond, err := h.Resolve(typeexpr.IPAddr)
	require.NoError(t, err)
	assert.Equal(t, inetFirst.Type, inetSecond.Type)
}

func TestRegisterRejectsDescriptorBearingKeys(t *testing.T) {
	h := newTestHierarchy(t)

	desc := descriptorWithDigits(t, 10, 2)
	err := h.types.Register(typeexpr.Annotated(typeexpr.Decimal, desc), Static(coltype.Text{}))
	require.Error(t, err)
	assert.True(t, twinschema.IsConfigError(err))
	assert.Contains(t, err.Error(), "field descriptor")
}
