package schema

import (
	"strings"

	"github.com/twinschema/twinschema"
	"github.com/twinschema/twinschema/coltype"
	"github.com/twinschema/twinschema/field"
	"github.com/twinschema/twinschema/typeexpr"
)

// attribute is the splitter's per-attribute output: the two annotation views
// plus the merged dual field descriptor.
type attribute struct {
	name string

	// rawAnn is the annotation as declared; validationAnn is the unwrapped
	// form the validation schema sees.
	rawAnn        typeexpr.Expr
	validationAnn typeexpr.Expr

	// mapped records an explicit storage-engine mapped wrapper and which
	// flavor; unmapped annotations are wrapped with the default flavor for
	// the storage view.
	mapped bool
	flavor typeexpr.MappedFlavor

	desc *field.Descriptor // merged descriptor; nil for bare annotations
}

// splitModel runs the annotation splitter over one model body, in
// declaration order. It returns the processed field attributes plus the
// class-level statics and private attribute initials, which are excluded
// from the storage view.
func splitModel(modelName string, attrs []*modelAttr) ([]*attribute, map[string]any, map[string]any, error) {
	var fields []*attribute
	statics := make(map[string]any)
	privates := make(map[string]any)

	for _, attr := range attrs {
		switch attr.kind {
		case attrStatic:
			// Class-level values pass through to both views unchanged.
			statics[attr.name] = attr.value
			continue
		case attrPrivate:
			privates[attr.name] = attr.value
			continue
		}

		if strings.HasPrefix(attr.name, "_") {
			// Private by naming convention; never part of the storage view.
			if attr.hasValue {
				privates[attr.name] = attr.value
			} else {
				privates[attr.name] = nil
			}
			continue
		}

		if attr.hasValue {
			if isRawStorageObject(attr.value) {
				return nil, nil, nil, twinschema.ConfigErrorf(
					"attribute %s.%s binds a raw storage object (%T); declare it with field.Column or field.Relationship so the validation schema stays in sync",
					modelName, attr.name, attr.value)
			}
			return nil, nil, nil, twinschema.ConfigErrorf(
				"attribute %s.%s binds an unexpected value (%T)", modelName, attr.name, attr.value)
		}

		out := &attribute{name: attr.name, rawAnn: attr.ann, validationAnn: attr.ann}
		if flavor, ok := typeexpr.MappedFlavorOf(attr.ann); ok {
			out.mapped = true
			out.flavor = flavor
			out.validationAnn = typeexpr.AnnotatedInner(attr.ann)
		}

		merged, err := mergeDescriptors(modelName, attr.name, out.validationAnn, attr.desc)
		if err != nil {
			return nil, nil, nil, err
		}
		out.desc = merged
		fields = append(fields, out)
	}

	return fields, statics, privates, nil
}

// mergeDescriptors combines descriptors embedded in the annotation metadata
// (in attachment order) with the explicitly declared one, the explicit
// declaration winning per key. Conflicting column/relationship markers are a
// declaration error.
func mergeDescriptors(modelName, attrName string, ann typeexpr.Expr, explicit *field.Descriptor) (*field.Descriptor, error) {
	var merged *field.Descriptor
	seen := make(map[*field.Descriptor]bool)
	for _, meta := range typeexpr.AnnotatedMetadata(ann) {
		desc, ok := meta.(*field.Descriptor)
		if !ok {
			continue
		}
		if seen[desc] {
			// Literally the same descriptor attached twice is not a
			// conflict.
			continue
		}
		seen[desc] = true
		if merged == nil {
			merged = desc
			continue
		}
		next, err := merged.Merge(desc)
		if err != nil {
			return nil, annotateMergeError(err, modelName, attrName)
		}
		merged = next
	}
	if explicit != nil {
		if merged == nil {
			return explicit, nil
		}
		next, err := merged.Merge(explicit)
		if err != nil {
			return nil, annotateMergeError(err, modelName, attrName)
		}
		return next, nil
	}
	return merged, nil
}

func annotateMergeError(err error, modelName, attrName string) error {
	return twinschema.ConfigErrorf("attribute %s.%s: %v", modelName, attrName, err)
}

// isRawStorageObject reports whether a namespace value is a directly
// constructed storage construct, which would bypass validation-schema
// integration.
func isRawStorageObject(value any) bool {
	switch value.(type) {
	case coltype.Type, *ColumnSpec, *RelationshipSpec:
		return true
	default:
		return false
	}
}
