package validate

import (
	"fmt"
	"regexp"

	"github.com/twinschema/twinschema"
	"github.com/twinschema/twinschema/field"
	"github.com/twinschema/twinschema/typeexpr"
)

// FieldSpec is the validation view of one declared field. It is built from
// the validation argument bag of a dual field descriptor plus the declared
// type expression, and is immutable after the owning schema is built.
type FieldSpec struct {
	Name               string
	Type               typeexpr.Expr
	Alias              string
	ValidationAlias    string
	SerializationAlias string
	Required           bool
	Frozen             bool
	Strict             bool
	Exclude            bool
	ValidateDefault    bool
	Title              string
	Description        string

	defaultValue   any
	hasDefault     bool
	defaultFactory func() any

	rules []Rule
}

// SpecFromArgs builds a FieldSpec from a validation argument bag.
func SpecFromArgs(name string, t typeexpr.Expr, args *field.Args) (*FieldSpec, error) {
	spec := &FieldSpec{Name: name, Type: t, Required: true}

	if v, ok := args.Keyword("default"); ok {
		spec.defaultValue = v
		spec.hasDefault = true
		spec.Required = false
	}
	if v, ok := args.Keyword("default_factory"); ok {
		factory, ok := v.(func() any)
		if !ok {
			return nil, twinschema.ConfigErrorf("field %s: default_factory must be func() any", name)
		}
		spec.defaultFactory = factory
		spec.Required = false
	}
	if s, ok := stringKeyword(args, "alias"); ok {
		spec.Alias = s
	}
	if s, ok := stringKeyword(args, "validation_alias"); ok {
		spec.ValidationAlias = s
	}
	if s, ok := stringKeyword(args, "serialization_alias"); ok {
		spec.SerializationAlias = s
	}
	if s, ok := stringKeyword(args, "title"); ok {
		spec.Title = s
	}
	if s, ok := stringKeyword(args, "description"); ok {
		spec.Description = s
	}
	if b, ok := boolKeyword(args, "frozen"); ok {
		spec.Frozen = b
	}
	if b, ok := boolKeyword(args, "strict"); ok {
		spec.Strict = b
	}
	if b, ok := boolKeyword(args, "exclude"); ok {
		spec.Exclude = b
	}
	if b, ok := boolKeyword(args, "validate_default"); ok {
		spec.ValidateDefault = b
	}

	// Nullable declarations are not required even without a default.
	if isNullable(t) {
		spec.Required = false
	}

	rules, err := rulesFromArgs(name, args)
	if err != nil {
		return nil, err
	}
	spec.rules = rules
	return spec, nil
}

// InputName returns the name accepted on construction: the validation alias
// if configured, else the field name.
func (f *FieldSpec) InputName() string {
	if f.ValidationAlias != "" {
		return f.ValidationAlias
	}
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// OutputName returns the name used on serialization.
func (f *FieldSpec) OutputName() string {
	if f.SerializationAlias != "" {
		return f.SerializationAlias
	}
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// DefaultValue returns the configured default, calling the default factory
// when present, and whether the field has one.
func (f *FieldSpec) DefaultValue() (any, bool) {
	if f.defaultFactory != nil {
		return f.defaultFactory(), true
	}
	if f.hasDefault {
		return f.defaultValue, true
	}
	return nil, false
}

// Validate type-checks and coerces value, then applies the field's rules.
func (f *FieldSpec) Validate(value any) (any, error) {
	if value == nil {
		if isNullable(f.Type) {
			return nil, nil
		}
		return nil, fmt.Errorf("value is not nullable")
	}
	coerced, err := checkValue(f.Type, value, f.Strict, 0)
	if err != nil {
		return nil, err
	}
	for _, rule := range f.rules {
		if err := rule.Check(coerced); err != nil {
			return nil, err
		}
	}
	return coerced, nil
}

func rulesFromArgs(name string, args *field.Args) ([]Rule, error) {
	var rules []Rule
	bounds := []struct {
		key  string
		kind boundKind
	}{{"gt", boundGt}, {"ge", boundGe}, {"lt", boundLt}, {"le", boundLe}}
	for _, b := range bounds {
		if v, ok := args.Keyword(b.key); ok {
			bound, ok := asFloat(v)
			if !ok {
				return nil, twinschema.ConfigErrorf("field %s: %s must be numeric", name, b.key)
			}
			rules = append(rules, boundRule{kind: b.kind, bound: bound})
		}
	}
	if v, ok := args.Keyword("multiple_of"); ok {
		bound, ok := asFloat(v)
		if !ok {
			return nil, twinschema.ConfigErrorf("field %s: multiple_of must be numeric", name)
		}
		rules = append(rules, multipleOfRule{bound: bound})
	}
	if v, ok := args.Keyword("pattern"); ok {
		expr, ok := v.(string)
		if !ok {
			return nil, twinschema.ConfigErrorf("field %s: pattern must be a string", name)
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, twinschema.ConfigErrorf("field %s: invalid pattern: %v", name, err)
		}
		rules = append(rules, patternRule{re: re})
	}
	var minLen, maxLen *int
	if v, ok := intKeyword(args, "min_length"); ok {
		minLen = &v
	}
	if v, ok := intKeyword(args, "max_length"); ok {
		maxLen = &v
	}
	if minLen != nil || maxLen != nil {
		rules = append(rules, lengthRule{min: minLen, max: maxLen})
	}
	var digits, places *int
	if v, ok := intKeyword(args, "max_digits"); ok {
		digits = &v
	}
	if v, ok := intKeyword(args, "decimal_places"); ok {
		places = &v
	}
	if digits != nil || places != nil {
		rules = append(rules, digitsRule{maxDigits: digits, decimalPlaces: places})
	}
	if b, ok := boolKeyword(args, "allow_inf_nan"); !ok || !b {
		rules = append(rules, infNaNRule{})
	}
	return rules, nil
}

func stringKeyword(args *field.Args, key string) (string, bool) {
	if v, ok := args.Keyword(key); ok {
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	return "", false
}

func boolKeyword(args *field.Args, key string) (bool, bool) {
	if v, ok := args.Keyword(key); ok {
		if b, ok := v.(bool); ok {
			return b, true
		}
	}
	return false, false
}

func intKeyword(args *field.Args, key string) (int, bool) {
	if v, ok := args.Keyword(key); ok {
		if n, ok := v.(int); ok {
			return n, true
		}
	}
	return 0, false
}

func isNullable(t typeexpr.Expr) bool {
	if typeexpr.IsAnnotated(t) {
		return isNullable(typeexpr.AnnotatedInner(t))
	}
	for _, m := range typeexpr.UnionMembers(t) {
		if typeexpr.IsNil(m) {
			return true
		}
	}
	return false
}
