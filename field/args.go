// Package field implements the dual field descriptor: the value produced by
// the Column and Relationship declaration entry points. A descriptor carries
// two independent argument bags, one destined for the validation schema and
// one for the storage schema, and merges deterministically with other
// descriptors attached to the same attribute.
package field

// Args is one argument bag: an ordered positional sequence plus a keyword
// mapping. The empty bag is a shared singleton so that emptiness can be
// compared by identity.
type Args struct {
	Positional []any
	Keywords   map[string]any
}

// EmptyArgs is the shared empty bag.
var EmptyArgs = &Args{}

// NewArgs returns an Args over the given parts, or EmptyArgs when both are
// empty.
func NewArgs(positional []any, keywords map[string]any) *Args {
	if len(positional) == 0 && len(keywords) == 0 {
		return EmptyArgs
	}
	return &Args{Positional: positional, Keywords: keywords}
}

// IsEmpty reports whether the bag carries no arguments.
func (a *Args) IsEmpty() bool {
	return len(a.Positional) == 0 && len(a.Keywords) == 0
}

// Keyword returns a keyword argument and whether it was supplied.
func (a *Args) Keyword(key string) (any, bool) {
	v, ok := a.Keywords[key]
	return v, ok
}

// merged overlays override onto a: the positional sequence is the override's
// if non-empty, else a's; keywords are a's keys overlaid by the override's,
// override winning per key.
func (a *Args) merged(override *Args) *Args {
	positional := a.Positional
	if len(override.Positional) > 0 {
		positional = override.Positional
	}
	var keywords map[string]any
	if len(a.Keywords) > 0 || len(override.Keywords) > 0 {
		keywords = make(map[string]any, len(a.Keywords)+len(override.Keywords))
		for k, v := range a.Keywords {
			keywords[k] = v
		}
		for k, v := range override.Keywords {
			keywords[k] = v
		}
	}
	return NewArgs(positional, keywords)
}
