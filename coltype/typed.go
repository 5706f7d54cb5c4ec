package coltype

import (
	"encoding/json"
	"fmt"

	"github.com/twinschema/twinschema/typeexpr"
)

// Typed is the json-fallback column type: an opaque validated payload stored
// through a configurable implementation type and round-tripped through JSON
// (de)serialization. A Typed with a nil Impl is the unbound placeholder that
// union resolution and container types produce; the public resolve step binds
// it to the hierarchy's configured fallback implementation before a column is
// built from it.
//
// The element annotation is postponed: it is provided once, when the owning
// column's declared type is known, and drives round-trip validation by the
// caller. Providing it again is a no-op.
type Typed struct {
	impl      Type
	elem      typeexpr.Expr
	annotated bool
}

// NewTyped returns a Typed backed by impl. A nil impl produces the unbound
// placeholder.
func NewTyped(impl Type) *Typed {
	return &Typed{impl: impl}
}

// Name returns the dialect-independent type name
func (t *Typed) Name() string {
	if t.impl == nil {
		return "typed"
	}
	return "typed:" + t.impl.Name()
}

// SQL renders the implementation type, or JSON for the unbound placeholder
func (t *Typed) SQL(d Dialect) string {
	if t.impl == nil {
		return JSON{}.SQL(d)
	}
	return t.impl.SQL(d)
}

// Impl returns the implementation type, or nil for the placeholder.
func (t *Typed) Impl() Type { return t.impl }

// Bound reports whether an implementation type is configured.
func (t *Typed) Bound() bool { return t.impl != nil }

// SetImpl binds the implementation type. It is only called by the public
// resolve step, on placeholders.
func (t *Typed) SetImpl(impl Type) {
	if t.impl == nil {
		t.impl = impl
	}
}

// ProvideAnnotation records the element annotation the first time it is
// offered.
func (t *Typed) ProvideAnnotation(elem typeexpr.Expr) {
	if !t.annotated {
		t.annotated = true
		t.elem = elem
	}
}

// Annotation returns the recorded element annotation, or nil.
func (t *Typed) Annotation() typeexpr.Expr { return t.elem }

// BindValue serializes a validated value for storage.
func (t *Typed) BindValue(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("typed column bind: %w", err)
	}
	return data, nil
}

// ResultValue deserializes a stored payload back into a raw value. The caller
// re-validates it against the element annotation.
func (t *Typed) ResultValue(data []byte) (any, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("typed column result: %w", err)
	}
	return value, nil
}
