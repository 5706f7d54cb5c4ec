package validate

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinschema/twinschema/field"
	"github.com/twinschema/twinschema/typeexpr"
)

func mustSpec(t *testing.T, name string, typ typeexpr.Expr, opts ...field.Option) *FieldSpec {
	t.Helper()
	desc, err := field.Column(opts...)
	require.NoError(t, err)
	spec, err := SpecFromArgs(name, typ, desc.Validation())
	require.NoError(t, err)
	return spec
}

func mustSchema(t *testing.T, name string, allowExtra bool, specs ...*FieldSpec) *Schema {
	t.Helper()
	s, err := NewSchema(name, specs, allowExtra, true)
	require.NoError(t, err)
	return s
}

func TestSpecRequiredness(t *testing.T) {
	tests := []struct {
		name     string
		spec     *FieldSpec
		required bool
	}{
		{"bare int is required", mustSpec(t, "n", typeexpr.Int), true},
		{"default lifts requiredness", mustSpec(t, "n", typeexpr.Int, field.Default(0)), false},
		{"factory lifts requiredness", mustSpec(t, "n", typeexpr.Int, field.DefaultFactory(func() any { return 1 })), false},
		{"optional is not required", mustSpec(t, "n", typeexpr.Optional(typeexpr.Int)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.required, tt.spec.Required)
		})
	}
}

func TestSpecValidateCoercions(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name    string
		typ     typeexpr.Expr
		input   any
		want    any
		wantErr bool
	}{
		{"int passes", typeexpr.Int, 5, 5, false},
		{"integral float coerces", typeexpr.Int, 5.0, 5, false},
		{"fractional float fails", typeexpr.Int, 5.5, nil, true},
		{"numeric string coerces", typeexpr.Int, "42", 42, false},
		{"int widens to float", typeexpr.Float, 3, 3.0, false},
		{"bool string coerces", typeexpr.Bool, "true", true, false},
		{"string stays", typeexpr.String, "hi", "hi", false},
		{"uuid value passes", typeexpr.UUID, id, id, false},
		{"uuid string parses", typeexpr.UUID, id.String(), id, false},
		{"bad uuid fails", typeexpr.UUID, "not-a-uuid", nil, true},
		{"rfc3339 parses", typeexpr.Time, "2024-06-01T12:00:00Z", time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), false},
		{"date parses", typeexpr.Date, "2024-06-01", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), false},
		{"duration string parses", typeexpr.Duration, "90s", 90 * time.Second, false},
		{"decimal string validated", typeexpr.Decimal, "12.50", "12.50", false},
		{"bad decimal fails", typeexpr.Decimal, "12.5.0", nil, true},
		{"list elements checked", typeexpr.List(typeexpr.Int), []any{1, 2, 3}, []any{1, 2, 3}, false},
		{"list element mismatch fails", typeexpr.List(typeexpr.Int), []any{1, "x"}, nil, true},
		{"map values checked", typeexpr.Map(typeexpr.String, typeexpr.Int), map[string]any{"a": 1}, map[string]any{"a": 1}, false},
		{"union tries members in order", typeexpr.Union(typeexpr.Int, typeexpr.String), "hello", "hello", false},
		{"union mismatch fails", typeexpr.Union(typeexpr.Int, typeexpr.Bool), []any{}, nil, true},
		{"newtype checks the supertype", typeexpr.NewType("UserID", typeexpr.Int), 9, 9, false},
		{"any accepts everything", typeexpr.Any, struct{}{}, struct{}{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := mustSpec(t, "v", tt.typ)
			got, err := spec.Validate(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSpecStrictModeDisablesCoercion(t *testing.T) {
	spec := mustSpec(t, "n", typeexpr.Int, field.Strict())
	_, err := spec.Validate("42")
	require.Error(t, err)

	got, err := spec.Validate(42)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestSpecNilHandling(t *testing.T) {
	nullable := mustSpec(t, "n", typeexpr.Optional(typeexpr.Int))
	got, err := nullable.Validate(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	plain := mustSpec(t, "n", typeexpr.Int)
	_, err = plain.Validate(nil)
	require.Error(t, err)
}

func TestSpecRules(t *testing.T) {
	tests := []struct {
		name    string
		opts    []field.Option
		input   any
		wantErr string
	}{
		{"gt pass", []field.Option{field.Gt(0)}, 5, ""},
		{"gt fail", []field.Option{field.Gt(0)}, 0, "greater than"},
		{"le fail", []field.Option{field.Le(10)}, 11, "less than or equal"},
		{"multiple_of fail", []field.Option{field.MultipleOf(5)}, 7, "multiple of"},
		{"pattern pass", []field.Option{field.Pattern(`^[a-z]+$`)}, "abc", ""},
		{"pattern fail", []field.Option{field.Pattern(`^[a-z]+$`)}, "ABC", "pattern"},
		{"min_length fail", []field.Option{field.MinLength(3)}, "ab", "at least"},
		{"max_length fail", []field.Option{field.MaxLength(3)}, "abcd", "at most"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ := typeexpr.Int
			if _, isStr := tt.input.(string); isStr {
				typ = typeexpr.String
			}
			spec := mustSpec(t, "v", typ, tt.opts...)
			_, err := spec.Validate(tt.input)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSpecRejectsNonFiniteByDefault(t *testing.T) {
	spec := mustSpec(t, "v", typeexpr.Float)
	_, err := spec.Validate(math.Inf(1))
	require.Error(t, err)

	relaxed := mustSpec(t, "v", typeexpr.Float, field.AllowInfNaN())
	got, err := relaxed.Validate(math.Inf(1))
	require.NoError(t, err)
	assert.True(t, math.IsInf(got.(float64), 1))
}

func TestSpecDigitConstraints(t *testing.T) {
	spec := mustSpec(t, "price", typeexpr.Decimal, field.MaxDigits(5), field.DecimalPlaces(2))

	_, err := spec.Validate("123.45")
	require.NoError(t, err)

	_, err = spec.Validate("1234.56")
	require.Error(t, err)

	_, err = spec.Validate("1.234")
	require.Error(t, err)
}

func TestSpecAliasNames(t *testing.T) {
	spec := mustSpec(t, "internal", typeexpr.String, field.Alias("public"))
	assert.Equal(t, "public", spec.InputName())
	assert.Equal(t, "public", spec.OutputName())

	split := mustSpec(t, "internal", typeexpr.String,
		field.ValidationAlias("in"), field.SerializationAlias("out"))
	assert.Equal(t, "in", split.InputName())
	assert.Equal(t, "out", split.OutputName())
}

func TestConstructAppliesDefaultsAndTracksSet(t *testing.T) {
	s := mustSchema(t, "Account", false,
		mustSpec(t, "name", typeexpr.String),
		mustSpec(t, "active", typeexpr.Bool, field.Default(true)),
		mustSpec(t, "note", typeexpr.Optional(typeexpr.String)))

	result, set, extra, err := s.Construct(map[string]any{"name": "ada"})
	require.NoError(t, err)
	assert.Empty(t, extra)

	assert.Equal(t, "ada", result["name"])
	assert.Equal(t, true, result["active"])
	assert.Nil(t, result["note"])

	_, nameSet := set["name"]
	_, activeSet := set["active"]
	assert.True(t, nameSet)
	assert.False(t, activeSet, "defaulted field must not count as explicitly set")
}

func TestConstructValidatesDefaultWhenAsked(t *testing.T) {
	// Defaults are trusted as declared; validate_default opts the field in.
	trusted := mustSchema(t, "Doc", false,
		mustSpec(t, "count", typeexpr.Int, field.Default("7")))
	result, _, _, err := trusted.Construct(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "7", result["count"])

	checked := mustSchema(t, "Doc", false,
		mustSpec(t, "count", typeexpr.Int, field.Default("7"), field.ValidateDefault()))
	result, _, _, err = checked.Construct(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, 7, result["count"])

	bad := mustSchema(t, "Doc", false,
		mustSpec(t, "count", typeexpr.Int, field.Default("seven"), field.ValidateDefault()))
	_, _, _, err = bad.Construct(map[string]any{})
	var errs *Errors
	require.ErrorAs(t, err, &errs)
	assert.Contains(t, errs.Fields["count"], "expected integer, got string")
}

func TestConstructAcceptsAliasOrName(t *testing.T) {
	s := mustSchema(t, "Account", false,
		mustSpec(t, "internal", typeexpr.String, field.Alias("public")))

	for _, key := range []string{"internal", "public"} {
		result, _, _, err := s.Construct(map[string]any{key: "v"})
		require.NoError(t, err, key)
		assert.Equal(t, "v", result["internal"])
	}
}

func TestConstructMissingRequiredField(t *testing.T) {
	s := mustSchema(t, "Account", false, mustSpec(t, "name", typeexpr.String))

	_, _, _, err := s.Construct(nil)
	require.Error(t, err)

	var errs *Errors
	require.ErrorAs(t, err, &errs)
	assert.Contains(t, errs.Fields["name"], "field is required")
}

func TestConstructExtraHandling(t *testing.T) {
	strict := mustSchema(t, "Account", false, mustSpec(t, "name", typeexpr.String))
	_, _, _, err := strict.Construct(map[string]any{"name": "x", "stray": 1})
	require.Error(t, err)

	open := mustSchema(t, "Account", true, mustSpec(t, "name", typeexpr.String))
	_, _, extra, err := open.Construct(map[string]any{"name": "x", "stray": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"stray": 1}, extra)
}

func TestValidateFieldFrozenAndUnknown(t *testing.T) {
	s := mustSchema(t, "Account", false,
		mustSpec(t, "id", typeexpr.Int, field.Frozen()),
		mustSpec(t, "name", typeexpr.String))

	_, err := s.ValidateField("id", 2)
	var fe FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "field is frozen", fe.Message)

	_, err = s.ValidateField("missing", 2)
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "unknown field", fe.Message)

	got, err := s.ValidateField("name", "ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestSchemaRejectsDuplicateFields(t *testing.T) {
	_, err := NewSchema("Account", []*FieldSpec{
		mustSpec(t, "name", typeexpr.String),
		mustSpec(t, "name", typeexpr.String),
	}, false, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "twice")
}

func TestErrorsFormatting(t *testing.T) {
	errs := NewErrors()
	errs.Add("a", "bad")
	assert.Equal(t, "validation failed: a: bad", errs.Error())
	assert.Equal(t, 1, errs.Count())

	errs.Add("b", "worse")
	assert.Contains(t, errs.Error(), "validation failed:\n")
	assert.Equal(t, 2, errs.Count())
}
