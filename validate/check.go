package validate

import (
	"fmt"
	"net/netip"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/twinschema/twinschema/typeexpr"
)

// maxUnwrapDepth bounds alias unwrapping during value checking, mirroring the
// resolver's cycle guard for declarations that validation alone must handle.
const maxUnwrapDepth = 32

// checkValue type-checks value against the declared type expression and, in
// lax mode, coerces common encodings (numeric strings, RFC 3339 timestamps,
// address strings) into canonical values.
func checkValue(t typeexpr.Expr, value any, strict bool, depth int) (any, error) {
	if depth > maxUnwrapDepth {
		return nil, fmt.Errorf("type %s is too deeply nested to validate", t)
	}
	switch t.Kind() {
	case typeexpr.KindAtomic:
		return checkAtomic(t.Key(), value, strict)
	case typeexpr.KindUnion:
		var firstErr error
		for _, m := range typeexpr.UnionMembers(t) {
			if typeexpr.IsNil(m) {
				continue
			}
			coerced, err := checkValue(m, value, strict, depth+1)
			if err == nil {
				return coerced, nil
			}
			if firstErr == nil {
				firstErr = err
			}
		}
		return nil, fmt.Errorf("no union member matched: %w", firstErr)
	case typeexpr.KindGeneric:
		return checkGeneric(t, value, strict, depth)
	case typeexpr.KindAlias:
		return checkValue(typeexpr.AliasValue(t), value, strict, depth+1)
	case typeexpr.KindAnnotated:
		return checkValue(typeexpr.AnnotatedInner(t), value, strict, depth+1)
	case typeexpr.KindNewType:
		return checkValue(typeexpr.NewTypeSuper(t), value, strict, depth+1)
	case typeexpr.KindRef:
		// Model-valued fields accept any non-nil value here; nested model
		// validation belongs to the referenced model's own schema.
		return value, nil
	default:
		return value, nil
	}
}

func checkAtomic(key string, value any, strict bool) (any, error) {
	switch key {
	case "int", "bigint":
		switch n := value.(type) {
		case int:
			return n, nil
		case int32:
			return int(n), nil
		case int64:
			return n, nil
		case float64:
			if !strict && n == float64(int64(n)) {
				return int(n), nil
			}
		case string:
			if !strict {
				if parsed, err := strconv.Atoi(n); err == nil {
					return parsed, nil
				}
			}
		}
		return nil, fmt.Errorf("expected integer, got %T", value)
	case "float":
		switch n := value.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			if !strict {
				return float64(n), nil
			}
		case int64:
			if !strict {
				return float64(n), nil
			}
		case string:
			if !strict {
				if parsed, err := strconv.ParseFloat(n, 64); err == nil {
					return parsed, nil
				}
			}
		}
		return nil, fmt.Errorf("expected float, got %T", value)
	case "bool":
		if b, ok := value.(bool); ok {
			return b, nil
		}
		if s, ok := value.(string); ok && !strict {
			if parsed, err := strconv.ParseBool(s); err == nil {
				return parsed, nil
			}
		}
		return nil, fmt.Errorf("expected bool, got %T", value)
	case "string", "path":
		if s, ok := value.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("expected string, got %T", value)
	case "bytes":
		switch v := value.(type) {
		case []byte:
			return v, nil
		case string:
			if !strict {
				return []byte(v), nil
			}
		}
		return nil, fmt.Errorf("expected bytes, got %T", value)
	case "decimal":
		switch v := value.(type) {
		case string:
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				return nil, fmt.Errorf("invalid decimal %q", v)
			}
			return v, nil
		case int, int64, float64:
			if !strict {
				return value, nil
			}
		}
		return nil, fmt.Errorf("expected decimal, got %T", value)
	case "uuid":
		switch v := value.(type) {
		case uuid.UUID:
			return v, nil
		case string:
			if !strict {
				parsed, err := uuid.Parse(v)
				if err != nil {
					return nil, fmt.Errorf("invalid uuid %q", v)
				}
				return parsed, nil
			}
		}
		return nil, fmt.Errorf("expected uuid, got %T", value)
	case "time":
		switch v := value.(type) {
		case time.Time:
			return v, nil
		case string:
			if !strict {
				parsed, err := time.Parse(time.RFC3339, v)
				if err != nil {
					return nil, fmt.Errorf("invalid timestamp %q", v)
				}
				return parsed, nil
			}
		}
		return nil, fmt.Errorf("expected timestamp, got %T", value)
	case "date":
		switch v := value.(type) {
		case time.Time:
			return v, nil
		case string:
			if !strict {
				parsed, err := time.Parse("2006-01-02", v)
				if err != nil {
					return nil, fmt.Errorf("invalid date %q", v)
				}
				return parsed, nil
			}
		}
		return nil, fmt.Errorf("expected date, got %T", value)
	case "clock":
		switch v := value.(type) {
		case time.Time:
			return v, nil
		case string:
			if !strict {
				parsed, err := time.Parse("15:04:05", v)
				if err != nil {
					return nil, fmt.Errorf("invalid time of day %q", v)
				}
				return parsed, nil
			}
		}
		return nil, fmt.Errorf("expected time of day, got %T", value)
	case "duration":
		switch v := value.(type) {
		case time.Duration:
			return v, nil
		case int64:
			if !strict {
				return time.Duration(v), nil
			}
		case string:
			if !strict {
				parsed, err := time.ParseDuration(v)
				if err != nil {
					return nil, fmt.Errorf("invalid duration %q", v)
				}
				return parsed, nil
			}
		}
		return nil, fmt.Errorf("expected duration, got %T", value)
	case "ipaddr":
		switch v := value.(type) {
		case netip.Addr:
			return v, nil
		case string:
			if !strict {
				parsed, err := netip.ParseAddr(v)
				if err != nil {
					return nil, fmt.Errorf("invalid address %q", v)
				}
				return parsed, nil
			}
		}
		return nil, fmt.Errorf("expected ip address, got %T", value)
	case "ipnet":
		switch v := value.(type) {
		case netip.Prefix:
			return v, nil
		case string:
			if !strict {
				parsed, err := netip.ParsePrefix(v)
				if err != nil {
					return nil, fmt.Errorf("invalid network %q", v)
				}
				return parsed, nil
			}
		}
		return nil, fmt.Errorf("expected ip network, got %T", value)
	case "any":
		return value, nil
	case "nil":
		return nil, fmt.Errorf("expected nil")
	default:
		// Manually registered application types are opaque to the checker.
		return value, nil
	}
}

func checkGeneric(t typeexpr.Expr, value any, strict bool, depth int) (any, error) {
	args := typeexpr.GenericArgs(t)
	switch typeexpr.GenericOrigin(t) {
	case "list", "set", "sequence":
		items, ok := value.([]any)
		if !ok {
			return nil, fmt.Errorf("expected list, got %T", value)
		}
		if len(args) == 0 {
			return items, nil
		}
		checked := make([]any, len(items))
		for i, item := range items {
			coerced, err := checkValue(args[0], item, strict, depth+1)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			checked[i] = coerced
		}
		return checked, nil
	case "map":
		m, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected map, got %T", value)
		}
		if len(args) < 2 {
			return m, nil
		}
		checked := make(map[string]any, len(m))
		for k, item := range m {
			coerced, err := checkValue(args[1], item, strict, depth+1)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			checked[k] = coerced
		}
		return checked, nil
	default:
		return value, nil
	}
}
