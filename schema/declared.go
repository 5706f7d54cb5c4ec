package schema

import (
	"fmt"
	"sync"

	"github.com/twinschema/twinschema"
	"github.com/twinschema/twinschema/coltype"
	"github.com/twinschema/twinschema/typeexpr"
	"github.com/twinschema/twinschema/validate"
)

// State tracks a declared model through the completion pipeline.
type State int

const (
	StateCompiling State = iota
	StateIncomplete
	StateComplete
	StateFinalized
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateCompiling:
		return "compiling"
	case StateIncomplete:
		return "incomplete"
	case StateComplete:
		return "complete"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// ColumnSpec is one finalized storage column.
type ColumnSpec struct {
	Field         string // declared field name
	Name          string // database column name
	Type          coltype.Type
	Nullable      bool
	PrimaryKey    bool
	Unique        bool
	Index         bool
	System        bool
	ForeignKey    string
	Default       any
	HasDefault    bool
	ServerDefault string
	Autoincrement string
	Comment       string
}

// RelationshipSpec is one finalized storage relationship.
type RelationshipSpec struct {
	Field         string
	Target        string
	Uselist       bool
	Nullable      bool
	BackPopulates string
	Backref       string
	Secondary     string
	Cascade       string
	OrderBy       string
	Lazy          string
	ViewOnly      bool
	Flavor        typeexpr.MappedFlavor
}

// Declared is the record of one compiled model: the validation view, the
// storage view, and the completion state. It is created by Hierarchy.Compile
// and becomes immutable once finalized.
type Declared struct {
	Name      string
	TableName string
	Table     bool

	// Validation is the validation-schema view, available from compile time.
	Validation *validate.Schema

	// Storage view; nil/empty until the model is finalized.
	Columns       map[string]*ColumnSpec
	ColumnOrder   []string
	Relationships map[string]*RelationshipSpec

	// Statics are class-level values copied through to both views.
	Statics map[string]any

	// Privates holds initial values for private attributes, which are
	// excluded from the storage view.
	Privates map[string]any

	state     State
	hierarchy *Hierarchy
	attrs     []*attribute

	// rawAttrs keeps the pre-split declarations so models extending this
	// one can inherit and override them.
	rawAttrs []*modelAttr
}

// State returns the model's completion state.
func (d *Declared) State() State { return d.state }

// Finalized reports whether the storage schema is bound.
func (d *Declared) Finalized() bool { return d.state == StateFinalized }

// Hierarchy returns the owning hierarchy.
func (d *Declared) Hierarchy() *Hierarchy { return d.hierarchy }

// Column returns the finalized column for a declared field name.
func (d *Declared) Column(fieldName string) (*ColumnSpec, bool) {
	c, ok := d.Columns[fieldName]
	return c, ok
}

// Relationship returns the finalized relationship for a declared field name.
func (d *Declared) Relationship(fieldName string) (*RelationshipSpec, bool) {
	r, ok := d.Relationships[fieldName]
	return r, ok
}

// RequireStorage returns an error unless the model is table-backed and
// finalized. It is the misuse guard for storage operations attempted on
// models that never completed.
func (d *Declared) RequireStorage() error {
	if !d.Table {
		return twinschema.ConfigErrorf("model %s is not table-backed", d.Name)
	}
	if d.state != StateFinalized {
		return twinschema.ConfigErrorf(
			"model %s has no usable storage schema (state %s); call ResolvePending after declaring referenced models",
			d.Name, d.state)
	}
	return nil
}

// String returns the string representation of the declared model
func (d *Declared) String() string {
	return fmt.Sprintf("Declared(%s, table=%v, state=%s)", d.Name, d.Table, d.state)
}

// Metadata is the table collection shared by one declarative hierarchy.
type Metadata struct {
	mu     sync.RWMutex
	tables map[string]*Declared
	order  []string
}

// NewMetadata creates an empty table collection
func NewMetadata() *Metadata {
	return &Metadata{tables: make(map[string]*Declared)}
}

// addTable registers a finalized table-backed model.
func (m *Metadata) addTable(d *Declared) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.tables[d.TableName]; ok && existing != d {
		return twinschema.ConfigErrorf("table %q is already declared by model %s", d.TableName, existing.Name)
	}
	if _, ok := m.tables[d.TableName]; !ok {
		m.order = append(m.order, d.TableName)
	}
	m.tables[d.TableName] = d
	return nil
}

// Table returns the model backing a table name.
func (m *Metadata) Table(name string) (*Declared, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.tables[name]
	return d, ok
}

// Tables returns the finalized table-backed models in declaration order.
func (m *Metadata) Tables() []*Declared {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Declared, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.tables[name])
	}
	return out
}
