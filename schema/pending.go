package schema

import (
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/twinschema/twinschema"
	"github.com/twinschema/twinschema/coltype"
	"github.com/twinschema/twinschema/field"
	"github.com/twinschema/twinschema/typeexpr"
	"github.com/twinschema/twinschema/validate"
)

// Compile turns a model definition into a Declared record. The validation
// view is always built here; the storage view is built immediately when
// every referenced model is already known, and deferred otherwise, leaving
// the model in the incomplete state until ResolvePending.
func (h *Hierarchy) Compile(m *Model) (*Declared, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(m.errs) > 0 {
		return nil, errors.Join(m.errs...)
	}
	if _, exists := h.symbols[m.name]; exists {
		return nil, twinschema.ConfigErrorf("model %s is already declared in this hierarchy", m.name)
	}
	if m.base != nil && m.base.Table {
		return nil, twinschema.ConfigErrorf(
			"model %s cannot extend table-backed model %s; its table is already bound", m.name, m.base.Name)
	}

	rawAttrs := m.allAttrs()
	attrs, statics, privates, err := splitModel(m.name, rawAttrs)
	if err != nil {
		return nil, err
	}

	specs := make([]*validate.FieldSpec, 0, len(attrs))
	for _, attr := range attrs {
		args := field.EmptyArgs
		if attr.desc != nil {
			args = attr.desc.Validation()
		}
		spec, err := validate.SpecFromArgs(attr.name, attr.validationAnn, args)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	vschema, err := validate.NewSchema(m.name, specs, m.allowExtra, m.validateAssignment)
	if err != nil {
		return nil, err
	}

	d := &Declared{
		Name:       m.name,
		TableName:  m.tableName,
		Table:      m.table,
		Validation: vschema,
		Statics:    statics,
		Privates:   privates,
		state:      StateCompiling,
		hierarchy:  h,
		attrs:      attrs,
		rawAttrs:   rawAttrs,
	}
	h.symbols[m.name] = d

	if h.refsResolvable(d, nil) {
		if err := h.finalize(d, nil); err != nil {
			delete(h.symbols, m.name)
			return nil, err
		}
	} else {
		d.state = StateIncomplete
		h.pending[m.name] = d
		h.log.Debug("model deferred on forward references",
			zap.String("model", m.name),
			zap.Strings("unresolved", h.unresolvedRefs(d, nil)))
	}

	return d, nil
}

// PendingCount reports how many compiled models still await storage
// finalization.
func (h *Hierarchy) PendingCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.pending)
}

type resolveConfig struct {
	strict bool
	extra  map[string]typeexpr.Expr
}

// ResolveOption configures ResolvePending.
type ResolveOption func(*resolveConfig)

// Strict makes ResolvePending fail when any model remains incomplete
// afterwards.
func Strict() ResolveOption {
	return func(c *resolveConfig) { c.strict = true }
}

// WithTypes supplies additional named types visible only during this
// resolution pass, standing in for names not declared as models.
func WithTypes(types map[string]typeexpr.Expr) ResolveOption {
	return func(c *resolveConfig) { c.extra = types }
}

// ResolvePending finalizes the storage view of every incomplete model whose
// forward references are now resolvable. Models that still reference unknown
// names stay pending unless Strict is set.
func (h *Hierarchy) ResolvePending(opts ...ResolveOption) error {
	var cfg resolveConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	names := make([]string, 0, len(h.pending))
	for name := range h.pending {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		d := h.pending[name]
		if !h.refsResolvable(d, cfg.extra) {
			continue
		}
		if err := h.finalize(d, cfg.extra); err != nil {
			return err
		}
		delete(h.pending, name)
	}

	if cfg.strict && len(h.pending) > 0 {
		remaining := make([]string, 0, len(h.pending))
		for name := range h.pending {
			remaining = append(remaining, name)
		}
		sort.Strings(remaining)
		return twinschema.ConfigErrorf(
			"unresolved forward references remain in: %s", strings.Join(remaining, ", "))
	}
	h.log.Info("pending models resolved", zap.Int("remaining", len(h.pending)))
	return nil
}

// finalize builds the storage view for one model. Callers hold h.mu and have
// already checked that every forward reference is resolvable.
func (h *Hierarchy) finalize(d *Declared, extra map[string]typeexpr.Expr) error {
	if !d.Table {
		d.state = StateComplete
		h.log.Debug("model complete", zap.String("model", d.Name))
		return nil
	}

	rs := h.newResolver(extra)
	columns := make(map[string]*ColumnSpec)
	relationships := make(map[string]*RelationshipSpec)
	var order []string

	for _, attr := range d.attrs {
		if attr.desc != nil && attr.desc.Marker() == field.MarkerRelationship {
			rel, err := h.buildRelationship(d, attr)
			if err != nil {
				return err
			}
			relationships[attr.name] = rel
			continue
		}
		col, err := h.buildColumn(d, attr, rs)
		if err != nil {
			return err
		}
		columns[attr.name] = col
		order = append(order, attr.name)
	}

	var hasPK bool
	for _, col := range columns {
		if col.PrimaryKey {
			hasPK = true
			break
		}
	}
	if !hasPK {
		return twinschema.ConfigErrorf("table-backed model %s declares no primary key column", d.Name)
	}

	d.Columns = columns
	d.ColumnOrder = order
	d.Relationships = relationships
	if err := h.metadata.addTable(d); err != nil {
		return err
	}
	d.state = StateFinalized
	h.log.Debug("model finalized",
		zap.String("model", d.Name),
		zap.String("table", d.TableName),
		zap.Int("columns", len(order)))
	return nil
}

// buildColumn finalizes one column-backed field: explicit column type or
// resolved annotation, storage keywords applied on top.
func (h *Hierarchy) buildColumn(d *Declared, attr *attribute, rs *resolver) (*ColumnSpec, error) {
	col := &ColumnSpec{Field: attr.name, Name: attr.name}

	var explicitType coltype.Type
	var storage *field.Args = field.EmptyArgs
	if attr.desc != nil {
		storage = attr.desc.Storage()
		for _, pos := range storage.Positional {
			switch v := pos.(type) {
			case nil:
			case string:
				col.Name = v
			case coltype.Type:
				explicitType = v
			case field.ForeignKeyRef:
				col.ForeignKey = v.Ref
			}
		}
	}

	if explicitType != nil {
		col.Type = explicitType
		col.Nullable = isOptional(attr.validationAnn)
	} else {
		ann := attr.validationAnn
		if attr.desc != nil && !attr.desc.IsEmpty() {
			// Reattach the descriptor so type factories see its hints.
			ann = typeexpr.Annotated(attr.validationAnn, attr.desc)
		}
		res, err := rs.resolve(ann)
		if err != nil {
			if errors.Is(err, errTypeLookup) {
				return nil, twinschema.ConfigErrorf(
					"model %s attribute %s: no storage type mapping for %s", d.Name, attr.name, attr.validationAnn)
			}
			return nil, twinschema.ConfigErrorf("model %s attribute %s: %v", d.Name, attr.name, err)
		}
		if res == nil {
			return nil, twinschema.ConfigErrorf(
				"model %s attribute %s: type %s never reduces to a storage type", d.Name, attr.name, attr.validationAnn)
		}
		col.Type = res.Type
		col.Nullable = res.Nullable
	}

	if t, ok := col.Type.(*coltype.Typed); ok {
		t.ProvideAnnotation(attr.validationAnn)
	}

	if v, ok := boolKeyword(storage, "nullable"); ok {
		col.Nullable = v
	}
	if v, ok := boolKeyword(storage, "primary_key"); ok && v {
		col.PrimaryKey = true
		if _, explicit := boolKeyword(storage, "nullable"); !explicit {
			col.Nullable = false
		}
	}
	if v, ok := boolKeyword(storage, "unique"); ok {
		col.Unique = v
	}
	if v, ok := boolKeyword(storage, "index"); ok {
		col.Index = v
	}
	if v, ok := boolKeyword(storage, "system"); ok {
		col.System = v
	}
	if v, ok := stringKeyword(storage, "autoincrement"); ok {
		col.Autoincrement = v
	}
	if v, ok := stringKeyword(storage, "comment"); ok {
		col.Comment = v
	}
	if v, ok := stringKeyword(storage, "server_default"); ok {
		col.ServerDefault = v
	}
	if v, ok := storage.Keyword("default"); ok {
		col.Default = v
		col.HasDefault = true
	} else if v, ok := storage.Keyword("default_factory"); ok {
		if factory, isFactory := v.(func() any); isFactory {
			col.Default = factory()
			col.HasDefault = true
		}
	}
	return col, nil
}

// buildRelationship finalizes one relationship-backed field. The target
// model comes from the positional argument or is inferred from the
// annotation's reference.
func (h *Hierarchy) buildRelationship(d *Declared, attr *attribute) (*RelationshipSpec, error) {
	rel := &RelationshipSpec{
		Field:    attr.name,
		Uselist:  isCollection(attr.validationAnn),
		Nullable: isOptional(attr.validationAnn),
		Flavor:   attr.flavor,
	}

	storage := attr.desc.Storage()
	var positionalStrings []string
	for _, pos := range storage.Positional {
		if s, ok := pos.(string); ok {
			positionalStrings = append(positionalStrings, s)
		}
	}
	if len(positionalStrings) > 0 {
		rel.Target = positionalStrings[0]
	}
	if len(positionalStrings) > 1 {
		rel.Secondary = positionalStrings[1]
	}
	if rel.Target == "" {
		if refs := collectRefs(attr.validationAnn); len(refs) > 0 {
			rel.Target = refs[0]
		}
	}
	if rel.Target == "" {
		return nil, twinschema.ConfigErrorf(
			"model %s attribute %s: relationship target is neither declared nor inferable", d.Name, attr.name)
	}

	if v, ok := stringKeyword(storage, "back_populates"); ok {
		rel.BackPopulates = v
	}
	if v, ok := stringKeyword(storage, "backref"); ok {
		rel.Backref = v
	}
	if v, ok := stringKeyword(storage, "secondary"); ok {
		rel.Secondary = v
	}
	if v, ok := stringKeyword(storage, "cascade"); ok {
		rel.Cascade = v
	}
	if v, ok := stringKeyword(storage, "order_by"); ok {
		rel.OrderBy = v
	}
	if v, ok := stringKeyword(storage, "lazy"); ok {
		rel.Lazy = v
	}
	if v, ok := boolKeyword(storage, "viewonly"); ok {
		rel.ViewOnly = v
	}
	if v, ok := boolKeyword(storage, "uselist"); ok {
		rel.Uselist = v
	}
	return rel, nil
}

// refsResolvable reports whether every deferred reference in the model's
// annotations names a known model or an extra type.
func (h *Hierarchy) refsResolvable(d *Declared, extra map[string]typeexpr.Expr) bool {
	return len(h.unresolvedRefs(d, extra)) == 0
}

func (h *Hierarchy) unresolvedRefs(d *Declared, extra map[string]typeexpr.Expr) []string {
	var missing []string
	seen := make(map[string]bool)
	for _, attr := range d.attrs {
		for _, name := range collectRefs(attr.rawAnn) {
			if seen[name] {
				continue
			}
			seen[name] = true
			if _, ok := h.symbols[name]; ok {
				continue
			}
			if _, ok := extra[name]; ok {
				continue
			}
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// collectRefs gathers the deferred reference names inside an expression,
// evaluating lazy aliases with a cycle guard.
func collectRefs(expr typeexpr.Expr) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(e typeexpr.Expr)
	walk = func(e typeexpr.Expr) {
		if e == nil || seen[e.Key()] {
			return
		}
		seen[e.Key()] = true
		switch e.Kind() {
		case typeexpr.KindRef:
			out = append(out, typeexpr.RefName(e))
		case typeexpr.KindUnion:
			for _, m := range typeexpr.UnionMembers(e) {
				walk(m)
			}
		case typeexpr.KindGeneric:
			for _, a := range typeexpr.GenericArgs(e) {
				walk(a)
			}
		case typeexpr.KindAnnotated:
			walk(typeexpr.AnnotatedInner(e))
		case typeexpr.KindAlias:
			walk(typeexpr.AliasValue(e))
		case typeexpr.KindNewType:
			walk(typeexpr.NewTypeSuper(e))
		}
	}
	walk(expr)
	return out
}

// isOptional reports whether the annotation admits nil, unwrapping non-union
// layers first.
func isOptional(expr typeexpr.Expr) bool {
	seen := make(map[string]bool)
	for expr != nil && !seen[expr.Key()] {
		seen[expr.Key()] = true
		switch expr.Kind() {
		case typeexpr.KindAnnotated:
			expr = typeexpr.AnnotatedInner(expr)
		case typeexpr.KindAlias:
			expr = typeexpr.AliasValue(expr)
		case typeexpr.KindUnion:
			for _, m := range typeexpr.UnionMembers(expr) {
				if typeexpr.IsNil(m) {
					return true
				}
			}
			return false
		default:
			return false
		}
	}
	return false
}

// isCollection reports whether the annotation's outermost shape is a
// sequence container, which makes a relationship many-valued.
func isCollection(expr typeexpr.Expr) bool {
	seen := make(map[string]bool)
	for expr != nil && !seen[expr.Key()] {
		seen[expr.Key()] = true
		switch expr.Kind() {
		case typeexpr.KindAnnotated:
			expr = typeexpr.AnnotatedInner(expr)
		case typeexpr.KindAlias:
			expr = typeexpr.AliasValue(expr)
		case typeexpr.KindUnion:
			for _, m := range typeexpr.UnionMembers(expr) {
				if !typeexpr.IsNil(m) && isCollection(m) {
					return true
				}
			}
			return false
		case typeexpr.KindGeneric:
			switch typeexpr.GenericOrigin(expr) {
			case "list", "set", "frozenset", "sequence", "deque":
				return true
			}
			return false
		default:
			return false
		}
	}
	return false
}

func stringKeyword(args *field.Args, key string) (string, bool) {
	v, ok := args.Keyword(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func boolKeyword(args *field.Args, key string) (bool, bool) {
	v, ok := args.Keyword(key)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}
