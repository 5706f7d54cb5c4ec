package schema

import (
	"sync"

	"go.uber.org/zap"

	"github.com/twinschema/twinschema"
	"github.com/twinschema/twinschema/coltype"
	"github.com/twinschema/twinschema/typeexpr"
)

// Hierarchy is the declarative base: it owns the type registry, the shared
// table metadata, the compiled model symbols, and the set of models whose
// storage finalization is deferred on unresolved forward references.
type Hierarchy struct {
	mu       sync.RWMutex
	types    *TypeRegistry
	metadata *Metadata
	jsonType coltype.Type
	log      *zap.Logger

	symbols map[string]*Declared
	pending map[string]*Declared
}

// HierarchyOption configures a hierarchy at construction.
type HierarchyOption func(*Hierarchy) error

// WithTypeMap registers additional type-expression to column-type mappings,
// overriding defaults where keys collide.
func WithTypeMap(entries map[typeexpr.Expr]TypeFactory) HierarchyOption {
	return func(h *Hierarchy) error {
		for expr, factory := range entries {
			if err := h.types.Register(expr, factory); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithMetadata shares an existing table collection between hierarchies.
func WithMetadata(m *Metadata) HierarchyOption {
	return func(h *Hierarchy) error {
		h.metadata = m
		return nil
	}
}

// WithJSONType overrides the column implementation backing json-fallback
// placeholders.
func WithJSONType(t coltype.Type) HierarchyOption {
	return func(h *Hierarchy) error {
		h.jsonType = t
		return nil
	}
}

// WithLogger attaches a logger; the default discards everything.
func WithLogger(log *zap.Logger) HierarchyOption {
	return func(h *Hierarchy) error {
		h.log = log
		return nil
	}
}

// NewHierarchy creates a declarative base with the default type map.
func NewHierarchy(opts ...HierarchyOption) (*Hierarchy, error) {
	h := &Hierarchy{
		types:    newTypeRegistry(),
		jsonType: coltype.JSON{},
		log:      zap.NewNop(),
		symbols:  make(map[string]*Declared),
		pending:  make(map[string]*Declared),
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	if h.metadata == nil {
		h.metadata = NewMetadata()
	}
	return h, nil
}

// Metadata returns the hierarchy's table collection.
func (h *Hierarchy) Metadata() *Metadata { return h.metadata }

// Model returns the compiled model registered under name.
func (h *Hierarchy) Model(name string) (*Declared, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	d, ok := h.symbols[name]
	return d, ok
}

// Resolve maps a type expression to its storage column type using the
// hierarchy's registry and model symbols.
func (h *Hierarchy) Resolve(expr typeexpr.Expr) (*Resolved, error) {
	// Resolution memoizes into the registry, so it takes the write lock.
	h.mu.Lock()
	defer h.mu.Unlock()
	res, err := h.newResolver(nil).resolve(expr)
	if err != nil {
		if err == errTypeLookup {
			return nil, twinschema.ConfigErrorf("no storage type mapping for %s", expr)
		}
		return nil, err
	}
	if res == nil {
		return nil, twinschema.ConfigErrorf("type %s never reduces to a storage type", expr)
	}
	return res, nil
}

// newResolver builds a resolver bound to the hierarchy's symbols plus any
// extra types supplied during pending resolution. Callers hold h.mu.
func (h *Hierarchy) newResolver(extra map[string]typeexpr.Expr) *resolver {
	return &resolver{
		reg: h.types,
		hasModel: func(name string) bool {
			_, ok := h.symbols[name]
			return ok
		},
		extra:    extra,
		jsonType: h.jsonType,
	}
}
