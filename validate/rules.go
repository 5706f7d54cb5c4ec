package validate

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Rule checks one constraint against an already type-checked value.
type Rule interface {
	Check(value any) error
}

type boundKind int

const (
	boundGt boundKind = iota
	boundGe
	boundLt
	boundLe
)

type boundRule struct {
	kind  boundKind
	bound float64
}

func (r boundRule) Check(value any) error {
	n, ok := asFloat(value)
	if !ok {
		return fmt.Errorf("numeric bound applies to numeric values, got %T", value)
	}
	switch r.kind {
	case boundGt:
		if !(n > r.bound) {
			return fmt.Errorf("must be greater than %v", r.bound)
		}
	case boundGe:
		if !(n >= r.bound) {
			return fmt.Errorf("must be greater than or equal to %v", r.bound)
		}
	case boundLt:
		if !(n < r.bound) {
			return fmt.Errorf("must be less than %v", r.bound)
		}
	case boundLe:
		if !(n <= r.bound) {
			return fmt.Errorf("must be less than or equal to %v", r.bound)
		}
	}
	return nil
}

type multipleOfRule struct {
	bound float64
}

func (r multipleOfRule) Check(value any) error {
	n, ok := asFloat(value)
	if !ok {
		return fmt.Errorf("multiple_of applies to numeric values, got %T", value)
	}
	if r.bound == 0 {
		return nil
	}
	q := n / r.bound
	if math.Abs(q-math.Round(q)) > 1e-9 {
		return fmt.Errorf("must be a multiple of %v", r.bound)
	}
	return nil
}

type patternRule struct {
	re *regexp.Regexp
}

func (r patternRule) Check(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("pattern applies to string values, got %T", value)
	}
	if !r.re.MatchString(s) {
		return fmt.Errorf("must match pattern %q", r.re.String())
	}
	return nil
}

type lengthRule struct {
	min *int
	max *int
}

func (r lengthRule) Check(value any) error {
	length, ok := lengthOf(value)
	if !ok {
		return fmt.Errorf("length constraint applies to strings and collections, got %T", value)
	}
	if r.min != nil && length < *r.min {
		return fmt.Errorf("length must be at least %d", *r.min)
	}
	if r.max != nil && length > *r.max {
		return fmt.Errorf("length must be at most %d", *r.max)
	}
	return nil
}

type digitsRule struct {
	maxDigits     *int
	decimalPlaces *int
}

func (r digitsRule) Check(value any) error {
	s, ok := decimalString(value)
	if !ok {
		return fmt.Errorf("digit constraint applies to decimal values, got %T", value)
	}
	digits, places := countDigits(s)
	if r.maxDigits != nil && digits > *r.maxDigits {
		return fmt.Errorf("must have at most %d digits", *r.maxDigits)
	}
	if r.decimalPlaces != nil && places > *r.decimalPlaces {
		return fmt.Errorf("must have at most %d decimal places", *r.decimalPlaces)
	}
	return nil
}

type infNaNRule struct{}

func (infNaNRule) Check(value any) error {
	if n, ok := asFloat(value); ok {
		if math.IsInf(n, 0) || math.IsNaN(n) {
			return fmt.Errorf("non-finite values are not allowed")
		}
	}
	return nil
}

func asFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func lengthOf(value any) (int, bool) {
	switch v := value.(type) {
	case string:
		return len(v), true
	case []any:
		return len(v), true
	case map[string]any:
		return len(v), true
	case []byte:
		return len(v), true
	default:
		return 0, false
	}
}

func decimalString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return "", false
		}
		return v, true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

func countDigits(s string) (digits, places int) {
	s = strings.TrimLeft(s, "+-")
	whole, frac, _ := strings.Cut(s, ".")
	whole = strings.TrimLeft(whole, "0")
	return len(whole) + len(frac), len(frac)
}
