package field

import (
	"sort"
	"strings"

	"github.com/twinschema/twinschema"
)

// Marker tags a descriptor's storage bag with the storage construct it
// targets. Mixing markers on one attribute is a declaration error.
type Marker int

const (
	MarkerNone Marker = iota
	MarkerColumn
	MarkerRelationship
)

// String returns the string representation of the marker
func (m Marker) String() string {
	switch m {
	case MarkerColumn:
		return "column"
	case MarkerRelationship:
		return "relationship"
	default:
		return "none"
	}
}

// Descriptor is the dual field descriptor: the value a Column or Relationship
// declaration produces. It carries one argument bag per schema subsystem.
type Descriptor struct {
	storage    *Args
	validation *Args
	marker     Marker
}

// EmptyColumn and EmptyRelationship are the shared descriptors produced when
// a declaration supplies no options, comparable by identity.
var (
	EmptyColumn       = &Descriptor{storage: EmptyArgs, validation: EmptyArgs, marker: MarkerColumn}
	EmptyRelationship = &Descriptor{storage: EmptyArgs, validation: EmptyArgs, marker: MarkerRelationship}
)

// Storage returns the storage-schema argument bag.
func (d *Descriptor) Storage() *Args { return d.storage }

// Validation returns the validation-schema argument bag.
func (d *Descriptor) Validation() *Args { return d.validation }

// Marker returns the descriptor's storage construct marker.
func (d *Descriptor) Marker() Marker { return d.marker }

// IsEmpty reports whether both bags are empty.
func (d *Descriptor) IsEmpty() bool {
	return d.storage.IsEmpty() && d.validation.IsEmpty()
}

// String returns the string representation of the descriptor
func (d *Descriptor) String() string {
	if d.marker == MarkerRelationship {
		return "field.Relationship(...)"
	}
	return "field.Column(...)"
}

// DigitHints returns the numeric precision and scale hints carried by the
// validation bag, for parametrizing a decimal column type.
func (d *Descriptor) DigitHints() (precision, scale *int) {
	if v, ok := d.validation.Keyword("max_digits"); ok {
		if n, ok := v.(int); ok {
			precision = &n
		}
	}
	if v, ok := d.validation.Keyword("decimal_places"); ok {
		if n, ok := v.(int); ok {
			scale = &n
		}
	}
	return precision, scale
}

// Merge combines d (the base) with override: the storage positional sequence
// is the override's if non-empty, else the base's; keyword mappings are the
// base's overlaid by the override's, override winning per key. Merging a
// column descriptor with a relationship descriptor is a declaration error
// unless they are literally the same descriptor.
func (d *Descriptor) Merge(override *Descriptor) (*Descriptor, error) {
	marker := d.marker
	if override.marker != MarkerNone {
		if marker != MarkerNone && marker != override.marker && d != override {
			return nil, twinschema.ConfigErrorf(
				"attribute declared with both field.Column and field.Relationship; use exactly one declaration function")
		}
		marker = override.marker
	}
	return &Descriptor{
		storage:    d.storage.merged(override.storage),
		validation: d.validation.merged(override.validation),
		marker:     marker,
	}, nil
}

// Column declares a column-backed field. Supplied options are validated,
// partitioned into the two argument bags per their static destination, and
// the leading positional storage parameters (name, type, extra schema
// arguments) are assembled in order, omitting absent ones.
//
// The call is pure: it either returns a descriptor or a configuration error.
func Column(opts ...Option) (*Descriptor, error) {
	return build(MarkerColumn, opts)
}

// Relationship declares a relationship-backed field. Alias-style options are
// rejected: relationship constructs cannot be renamed through the validation
// schema without desynchronizing the storage side.
func Relationship(opts ...Option) (*Descriptor, error) {
	return build(MarkerRelationship, opts)
}

func build(marker Marker, opts []Option) (*Descriptor, error) {
	if len(opts) == 0 {
		if marker == MarkerRelationship {
			return EmptyRelationship, nil
		}
		return EmptyColumn, nil
	}

	entry := "field.Column"
	wrongScope := scopeRelationship
	if marker == MarkerRelationship {
		entry = "field.Relationship"
		wrongScope = scopeColumn
	}

	var unsupported, misscoped []string
	var name, typ any
	var extras []any
	storageKw := make(map[string]any)
	validationKw := make(map[string]any)

	for _, opt := range opts {
		if opt.dest == destUnsupported || (marker == MarkerRelationship && relationshipRejected[opt.key]) {
			unsupported = append(unsupported, opt.key)
			continue
		}
		if opt.scope == wrongScope {
			misscoped = append(misscoped, opt.key)
			continue
		}
		switch opt.slot {
		case posName:
			name = opt.value
			continue
		case posType:
			typ = opt.value
			continue
		case posExtra:
			extras = append(extras, opt.value)
			continue
		}
		switch opt.dest {
		case destStorage:
			storageKw[opt.key] = opt.value
		case destValidation:
			validationKw[opt.key] = opt.value
		case destBridge:
			storageKw[opt.key] = opt.value
			validationKw[opt.key] = opt.value
		}
	}

	if len(unsupported) > 0 {
		sort.Strings(unsupported)
		return nil, twinschema.ConfigErrorf("%s does not support option(s): %s",
			entry, strings.Join(unsupported, ", "))
	}
	if len(misscoped) > 0 {
		sort.Strings(misscoped)
		other := "field.Relationship"
		if entry == other {
			other = "field.Column"
		}
		return nil, twinschema.ConfigErrorf("%s does not accept option(s) %s; declare them with %s",
			entry, strings.Join(misscoped, ", "), other)
	}
	if err := checkAliases(entry, validationKw); err != nil {
		return nil, err
	}

	var positional []any
	switch {
	case len(extras) > 0:
		positional = append(positional, name, typ)
		positional = append(positional, extras...)
	case typ != nil:
		positional = append(positional, name, typ)
	case name != nil:
		positional = append(positional, name)
	}

	return &Descriptor{
		storage:    NewArgs(positional, storageKw),
		validation: NewArgs(nil, validationKw),
		marker:     marker,
	}, nil
}

// checkAliases validates the shape of the alias-style options and mirrors the
// naming alias into the validation and serialization aliases when those are
// not independently set.
func checkAliases(entry string, validationKw map[string]any) error {
	var alias string
	if v, ok := validationKw["alias"]; ok {
		s, ok := v.(string)
		if !ok || s == "" {
			return twinschema.ConfigErrorf("%s: alias must be a non-empty string", entry)
		}
		alias = s
	}
	for _, key := range []string{"validation_alias", "serialization_alias"} {
		if v, ok := validationKw[key]; ok {
			if s, ok := v.(string); !ok || s == "" {
				return twinschema.ConfigErrorf("%s: %s must be a non-empty string", entry, key)
			}
		} else if alias != "" {
			validationKw[key] = alias
		}
	}
	return nil
}
