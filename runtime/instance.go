package runtime

import (
	"strings"

	"github.com/twinschema/twinschema"
	"github.com/twinschema/twinschema/schema"
	"github.com/twinschema/twinschema/validate"
)

// Host is the storage-engine side of an instance: declared-field values live
// behind it so the engine observes every read, write, and delete. Extra and
// private attributes never pass through a Host.
type Host interface {
	SetAttribute(name string, value any)
	GetAttribute(name string) (any, bool)
	DeleteAttribute(name string)
}

// mapHost is the plain Host used by instances no engine is watching.
type mapHost map[string]any

func (h mapHost) SetAttribute(name string, value any)  { h[name] = value }
func (h mapHost) GetAttribute(name string) (any, bool) { v, ok := h[name]; return v, ok }
func (h mapHost) DeleteAttribute(name string)          { delete(h, name) }

// TrackedHost is a Host that records every declared-field write against a
// construction snapshot.
type TrackedHost struct {
	values  mapHost
	tracker *Tracker
}

// NewTrackedHost creates a tracked host with an empty snapshot; the snapshot
// is adopted once construction finishes.
func NewTrackedHost() *TrackedHost {
	return &TrackedHost{values: make(mapHost), tracker: NewTracker(nil)}
}

func (h *TrackedHost) SetAttribute(name string, value any) {
	h.values.SetAttribute(name, value)
	h.tracker.Record(name, value)
}

func (h *TrackedHost) GetAttribute(name string) (any, bool) {
	return h.values.GetAttribute(name)
}

func (h *TrackedHost) DeleteAttribute(name string) {
	h.values.DeleteAttribute(name)
	h.tracker.Remove(name)
}

// Tracker exposes the change record.
func (h *TrackedHost) Tracker() *Tracker { return h.tracker }

// Instance is one live value of a declared model. Declared fields route
// through the host; extra and private attributes live beside it.
type Instance struct {
	decl      *schema.Declared
	host      Host
	fieldsSet map[string]struct{}
	extra     map[string]any
	private   map[string]any
}

// InstanceOption configures instance construction.
type InstanceOption func(*Instance)

// WithHost routes declared-field storage through a caller-supplied host.
func WithHost(h Host) InstanceOption {
	return func(i *Instance) { i.host = h }
}

// New constructs a validated instance of a declared model. Table-backed
// models must be finalized first; by default they get a tracked host so the
// change record is available for persistence.
func New(decl *schema.Declared, values map[string]any, opts ...InstanceOption) (*Instance, error) {
	if decl.Table {
		if err := decl.RequireStorage(); err != nil {
			return nil, err
		}
	} else if decl.State() == schema.StateIncomplete {
		return nil, twinschema.ConfigErrorf(
			"model %s has unresolved forward references; call ResolvePending before instantiating", decl.Name)
	}

	inst := &Instance{
		decl:    decl,
		extra:   make(map[string]any),
		private: make(map[string]any),
	}
	for _, opt := range opts {
		opt(inst)
	}
	if inst.host == nil {
		if decl.Table {
			inst.host = NewTrackedHost()
		} else {
			inst.host = make(mapHost)
		}
	}

	fields, set, extra, err := decl.Validation.Construct(values)
	if err != nil {
		return nil, err
	}
	inst.fieldsSet = set
	for k, v := range extra {
		inst.extra[k] = v
	}
	for _, spec := range decl.Validation.Fields() {
		if v, ok := fields[spec.Name]; ok {
			inst.host.SetAttribute(spec.Name, v)
		}
	}
	for k, v := range decl.Privates {
		inst.private[k] = v
	}

	// Construction writes are the baseline, not changes.
	if th, ok := inst.host.(*TrackedHost); ok {
		th.Tracker().Reset()
	}
	return inst, nil
}

// Model returns the declared model backing this instance.
func (i *Instance) Model() *schema.Declared { return i.decl }

// Tracker returns the change record, or nil when the host is untracked.
func (i *Instance) Tracker() *Tracker {
	if th, ok := i.host.(*TrackedHost); ok {
		return th.Tracker()
	}
	return nil
}

// Set assigns an attribute. Declared fields validate first when the model
// validates assignments, and always count as explicitly set afterwards;
// private and extra attributes are stored directly.
func (i *Instance) Set(name string, value any) error {
	if i.decl.Validation.Has(name) {
		if i.decl.Validation.ValidateAssignment {
			validated, err := i.decl.Validation.ValidateField(name, value)
			if err != nil {
				return err
			}
			value = validated
		} else if spec, ok := i.decl.Validation.Field(name); ok && spec.Frozen {
			return &validate.FieldError{Field: name, Message: "field is frozen"}
		}
		i.host.SetAttribute(name, value)
		i.fieldsSet[name] = struct{}{}
		return nil
	}
	if strings.HasPrefix(name, "_") {
		i.private[name] = value
		return nil
	}
	if i.decl.Validation.AllowExtra {
		i.extra[name] = value
		return nil
	}
	return &validate.FieldError{Field: name, Message: "unknown field"}
}

// Get reads an attribute: declared fields from the host, then extras,
// privates, and class-level statics.
func (i *Instance) Get(name string) (any, bool) {
	if i.decl.Validation.Has(name) {
		return i.host.GetAttribute(name)
	}
	if v, ok := i.extra[name]; ok {
		return v, true
	}
	if v, ok := i.private[name]; ok {
		return v, true
	}
	if v, ok := i.decl.Statics[name]; ok {
		return v, true
	}
	return nil, false
}

// Delete removes an attribute. Deleting a declared field also clears its
// explicitly-set mark, so a later dump treats it as absent.
func (i *Instance) Delete(name string) error {
	if i.decl.Validation.Has(name) {
		i.host.DeleteAttribute(name)
		delete(i.fieldsSet, name)
		return nil
	}
	if _, ok := i.extra[name]; ok {
		delete(i.extra, name)
		return nil
	}
	if _, ok := i.private[name]; ok {
		delete(i.private, name)
		return nil
	}
	return &validate.FieldError{Field: name, Message: "unknown field"}
}

// FieldsSet returns the declared fields that were explicitly supplied or
// assigned, in declaration order.
func (i *Instance) FieldsSet() []string {
	var out []string
	for _, spec := range i.decl.Validation.Fields() {
		if _, ok := i.fieldsSet[spec.Name]; ok {
			out = append(out, spec.Name)
		}
	}
	return out
}

// Extra returns a copy of the extra attributes.
func (i *Instance) Extra() map[string]any {
	out := make(map[string]any, len(i.extra))
	for k, v := range i.extra {
		out[k] = v
	}
	return out
}

// Dump serializes the instance's declared fields under their output names,
// skipping excluded fields, then overlays extras.
func (i *Instance) Dump() map[string]any {
	out := make(map[string]any)
	for _, spec := range i.decl.Validation.Fields() {
		if spec.Exclude {
			continue
		}
		if v, ok := i.host.GetAttribute(spec.Name); ok {
			out[spec.OutputName()] = v
		}
	}
	for k, v := range i.extra {
		out[k] = v
	}
	return out
}

// StorageValues returns the current column values keyed by database column
// name, the shape an INSERT wants. Unset columns are omitted.
func (i *Instance) StorageValues() (map[string]any, error) {
	if err := i.decl.RequireStorage(); err != nil {
		return nil, err
	}
	out := make(map[string]any)
	for _, fieldName := range i.decl.ColumnOrder {
		col := i.decl.Columns[fieldName]
		if v, ok := i.host.GetAttribute(fieldName); ok {
			out[col.Name] = v
		}
	}
	return out, nil
}
