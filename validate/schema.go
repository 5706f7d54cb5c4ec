package validate

import (
	"github.com/twinschema/twinschema"
)

// Schema is the validation view of a compiled model: the ordered field
// specifications plus the model-level validation configuration. It is
// immutable once built.
type Schema struct {
	Name               string
	AllowExtra         bool
	ValidateAssignment bool

	fields  []*FieldSpec
	byName  map[string]*FieldSpec
	byInput map[string]*FieldSpec
}

// NewSchema builds a Schema over fields in declaration order.
func NewSchema(name string, fields []*FieldSpec, allowExtra, validateAssignment bool) (*Schema, error) {
	s := &Schema{
		Name:               name,
		AllowExtra:         allowExtra,
		ValidateAssignment: validateAssignment,
		fields:             fields,
		byName:             make(map[string]*FieldSpec, len(fields)),
		byInput:            make(map[string]*FieldSpec, len(fields)),
	}
	for _, f := range fields {
		if _, dup := s.byName[f.Name]; dup {
			return nil, twinschema.ConfigErrorf("model %s declares field %s twice", name, f.Name)
		}
		s.byName[f.Name] = f
		s.byInput[f.InputName()] = f
	}
	return s, nil
}

// Fields returns the field specifications in declaration order.
func (s *Schema) Fields() []*FieldSpec { return s.fields }

// Field looks a field up by its declared name.
func (s *Schema) Field(name string) (*FieldSpec, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// FieldByInput looks a field up by the name accepted on construction (the
// validation alias when configured, else the declared name).
func (s *Schema) FieldByInput(name string) (*FieldSpec, bool) {
	f, ok := s.byInput[name]
	return f, ok
}

// Has reports whether name is a declared field.
func (s *Schema) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Construct validates raw input values into a complete field-value map. Input
// keys are alias-aware: a field's value may arrive under its public name or
// its configured alias. Fields absent from input receive their default (or
// default-factory product) when one is configured; absent required fields are
// validation errors. Leftover input keys become extra values when the schema
// allows them, and errors otherwise.
//
// The returned set records which fields were explicitly supplied.
func (s *Schema) Construct(values map[string]any) (map[string]any, map[string]struct{}, map[string]any, error) {
	errs := NewErrors()
	result := make(map[string]any, len(s.fields))
	set := make(map[string]struct{}, len(values))
	consumed := make(map[string]struct{}, len(values))

	for _, f := range s.fields {
		raw, ok := values[f.InputName()]
		key := f.InputName()
		if !ok {
			// The public name is always acceptable alongside the alias.
			raw, ok = values[f.Name]
			key = f.Name
		}
		if ok {
			consumed[key] = struct{}{}
			validated, err := f.Validate(raw)
			if err != nil {
				errs.Add(f.Name, err.Error())
				continue
			}
			result[f.Name] = validated
			set[f.Name] = struct{}{}
			continue
		}
		if def, has := f.DefaultValue(); has {
			// Defaults are trusted as declared unless the field asks for
			// validation.
			if f.ValidateDefault {
				validated, err := f.Validate(def)
				if err != nil {
					errs.Add(f.Name, err.Error())
					continue
				}
				def = validated
			}
			result[f.Name] = def
			continue
		}
		if f.Required {
			errs.Add(f.Name, "field is required")
			continue
		}
		result[f.Name] = nil
	}

	var extra map[string]any
	for key, raw := range values {
		if _, ok := consumed[key]; ok {
			continue
		}
		if !s.AllowExtra {
			errs.Add(key, "unexpected field")
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[key] = raw
	}

	if errs.HasErrors() {
		return nil, nil, nil, errs
	}
	return result, set, extra, nil
}

// ValidateField validates a single assignment to a declared field.
func (s *Schema) ValidateField(name string, value any) (any, error) {
	f, ok := s.byName[name]
	if !ok {
		return nil, FieldError{Field: name, Message: "unknown field"}
	}
	if f.Frozen {
		return nil, FieldError{Field: name, Message: "field is frozen"}
	}
	validated, err := f.Validate(value)
	if err != nil {
		return nil, FieldError{Field: name, Message: err.Error()}
	}
	return validated, nil
}
