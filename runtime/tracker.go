// Package runtime provides the live instance layer: constructing validated
// instances of declared models and routing attribute access through a
// storage-engine host, with change tracking for efficient persistence.
package runtime

import (
	"reflect"
	"sync"
)

// Change records one attribute modification on an instance.
type Change struct {
	Attribute string
	OldValue  any
	NewValue  any
}

// Tracker tracks attribute changes on one instance: the snapshot the
// instance was constructed (or last saved) with against its current values.
type Tracker struct {
	mu       sync.RWMutex
	original map[string]any
	current  map[string]any
	changes  map[string]*Change
}

// NewTracker creates a tracker seeded with the construction snapshot.
func NewTracker(original map[string]any) *Tracker {
	return &Tracker{
		original: copyValues(original),
		current:  copyValues(original),
		changes:  make(map[string]*Change),
	}
}

func copyValues(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = copyValue(v)
	}
	return result
}

// copyValue copies container values so later in-place mutation of a slice or
// map does not silently rewrite the snapshot.
func copyValue(v any) any {
	if v == nil {
		return nil
	}
	val := reflect.ValueOf(v)
	switch val.Kind() {
	case reflect.Slice:
		out := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			out[i] = copyValue(val.Index(i).Interface())
		}
		return out
	case reflect.Map:
		out := make(map[any]any, val.Len())
		for _, key := range val.MapKeys() {
			out[copyValue(key.Interface())] = copyValue(val.MapIndex(key).Interface())
		}
		return out
	default:
		return v
	}
}

func sameValue(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// Record updates an attribute and recomputes its change status. An attribute
// written back to its original value drops out of the change set.
func (t *Tracker) Record(attr string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current[attr] = value
	old, had := t.original[attr]
	if !had || !sameValue(old, value) {
		t.changes[attr] = &Change{Attribute: attr, OldValue: old, NewValue: value}
		return
	}
	delete(t.changes, attr)
}

// Remove marks an attribute deleted.
func (t *Tracker) Remove(attr string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.current, attr)
	if old, had := t.original[attr]; had {
		t.changes[attr] = &Change{Attribute: attr, OldValue: old, NewValue: nil}
	} else {
		delete(t.changes, attr)
	}
}

// Changed reports whether the attribute differs from the snapshot.
func (t *Tracker) Changed(attr string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.changes[attr]
	return ok
}

// ChangedAttrs returns the attributes that differ from the snapshot.
func (t *Tracker) ChangedAttrs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	attrs := make([]string, 0, len(t.changes))
	for attr := range t.changes {
		attrs = append(attrs, attr)
	}
	return attrs
}

// PreviousValue returns the snapshot value of an attribute.
func (t *Tracker) PreviousValue(attr string) any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.original[attr]
}

// HasChanges reports whether anything differs from the snapshot.
func (t *Tracker) HasChanges() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.changes) > 0
}

// ChangedValues returns only the changed attributes with their new values,
// the shape an UPDATE statement wants.
func (t *Tracker) ChangedValues() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]any, len(t.changes))
	for attr, change := range t.changes {
		out[attr] = change.NewValue
	}
	return out
}

// Reset adopts the current values as the new snapshot, clearing all tracked
// changes. Call it after a successful save.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.original = copyValues(t.current)
	t.changes = make(map[string]*Change)
}
