package field

import (
	"github.com/twinschema/twinschema/coltype"
)

// destination tags an option with the schema its value feeds. The two keyword
// namespaces are disjoint; bridge options are the only keys mirrored into
// both bags (default value, default factory, naming alias).
type destination int

const (
	destStorage destination = iota
	destValidation
	destBridge
	destUnsupported
)

// scope restricts an option to one of the two declaration entry points.
type scope int

const (
	scopeBoth scope = iota
	scopeColumn
	scopeRelationship
)

// posSlot places a storage option into the leading positional parameters of
// the storage constructor instead of its keyword mapping.
type posSlot int

const (
	posNone posSlot = iota
	posName
	posType
	posExtra
)

// Option is one named declaration option, tagged with its destination.
type Option struct {
	key   string
	value any
	dest  destination
	scope scope
	slot  posSlot
}

// Key returns the option's keyword name.
func (o Option) Key() string { return o.key }

func storageOpt(key string, value any, sc scope) Option {
	return Option{key: key, value: value, dest: destStorage, scope: sc}
}

func validationOpt(key string, value any) Option {
	return Option{key: key, value: value, dest: destValidation}
}

func bridgeOpt(key string, value any) Option {
	return Option{key: key, value: value, dest: destBridge}
}

// ForeignKeyRef is the positional storage argument produced by ForeignKey. It
// names the referenced column as "table.column".
type ForeignKeyRef struct {
	Ref string
}

// String returns the string representation of the reference
func (f ForeignKeyRef) String() string { return "ForeignKey(" + f.Ref + ")" }

// Positional column options.

// ColumnName overrides the database column name (first positional storage
// argument).
func ColumnName(name string) Option {
	return Option{key: "name", value: name, dest: destStorage, scope: scopeColumn, slot: posName}
}

// ColumnType overrides the storage column type, bypassing type resolution
// (second positional storage argument).
func ColumnType(t coltype.Type) Option {
	return Option{key: "type", value: t, dest: destStorage, scope: scopeColumn, slot: posType}
}

// ForeignKey adds a foreign-key constraint referencing "table.column" (extra
// positional storage argument).
func ForeignKey(ref string) Option {
	return Option{key: "foreign_key", value: ForeignKeyRef{Ref: ref}, dest: destStorage, scope: scopeColumn, slot: posExtra}
}

// SchemaArg appends an opaque extra positional storage argument.
func SchemaArg(value any) Option {
	return Option{key: "schema_arg", value: value, dest: destStorage, scope: scopeColumn, slot: posExtra}
}

// Keyword column options (storage destination).

// PrimaryKey marks the column as part of the primary key.
func PrimaryKey() Option { return storageOpt("primary_key", true, scopeColumn) }

// Nullable overrides nullability inferred from the declared type.
func Nullable(nullable bool) Option { return storageOpt("nullable", nullable, scopeColumn) }

// Unique adds a unique constraint.
func Unique() Option { return storageOpt("unique", true, scopeColumn) }

// Index creates an index on the column.
func Index() Option { return storageOpt("index", true, scopeColumn) }

// Autoincrement sets the autoincrement mode ("auto", "always", "ignore").
func Autoincrement(mode string) Option { return storageOpt("autoincrement", mode, scopeColumn) }

// Comment attaches a comment to the column definition.
func Comment(comment string) Option { return storageOpt("comment", comment, scopeColumn) }

// Doc attaches documentation to the storage construct.
func Doc(doc string) Option { return storageOpt("doc", doc, scopeBoth) }

// ServerDefault sets a server-side default expression.
func ServerDefault(expr string) Option { return storageOpt("server_default", expr, scopeColumn) }

// ServerOnUpdate sets a server-side on-update expression.
func ServerOnUpdate(expr string) Option { return storageOpt("server_onupdate", expr, scopeColumn) }

// OnUpdate sets a client-side on-update value or callable.
func OnUpdate(value any) Option { return storageOpt("onupdate", value, scopeColumn) }

// InsertDefault sets the storage-side insert default, independent of the
// validation-side default.
func InsertDefault(value any) Option { return storageOpt("insert_default", value, scopeColumn) }

// ActiveHistory makes the attribute load its previous value on change.
func ActiveHistory() Option { return storageOpt("active_history", true, scopeBoth) }

// System marks a system column excluded from CREATE TABLE.
func System() Option { return storageOpt("system", true, scopeColumn) }

// Quote forces quoting of the column name.
func Quote(quote bool) Option { return storageOpt("quote", quote, scopeColumn) }

// SortOrder adjusts the column's position in the rendered table.
func SortOrder(order int) Option { return storageOpt("sort_order", order, scopeColumn) }

// Deferred defers loading of the column until first access.
func Deferred() Option { return storageOpt("deferred", true, scopeColumn) }

// DeferredGroup names the deferred load group.
func DeferredGroup(group string) Option { return storageOpt("deferred_group", group, scopeColumn) }

// UseExistingColumn reuses a column already present on a mapped superclass.
func UseExistingColumn() Option { return storageOpt("use_existing_column", true, scopeColumn) }

// Info attaches arbitrary metadata to the storage construct.
func Info(info map[string]any) Option { return storageOpt("info", info, scopeBoth) }

// Positional relationship options.

// Target names the related model (first positional storage argument of the
// relationship constructor). Usually redundant with the declared annotation.
func Target(model string) Option {
	return Option{key: "argument", value: model, dest: destStorage, scope: scopeRelationship, slot: posName}
}

// Secondary names the association table for many-to-many relationships
// (second positional storage argument).
func Secondary(table string) Option {
	return Option{key: "secondary", value: table, dest: destStorage, scope: scopeRelationship, slot: posType}
}

// Keyword relationship options (storage destination).

// BackPopulates names the complementing relationship attribute on the target.
func BackPopulates(attr string) Option { return storageOpt("back_populates", attr, scopeRelationship) }

// Backref declares the complementing relationship implicitly on the target.
func Backref(attr string) Option { return storageOpt("backref", attr, scopeRelationship) }

// Lazy sets the relationship load strategy.
func Lazy(strategy string) Option { return storageOpt("lazy", strategy, scopeRelationship) }

// Cascade sets the cascade rule set.
func Cascade(rules string) Option { return storageOpt("cascade", rules, scopeRelationship) }

// OrderBy orders collection loads.
func OrderBy(clause string) Option { return storageOpt("order_by", clause, scopeRelationship) }

// ViewOnly excludes the relationship from flush.
func ViewOnly() Option { return storageOpt("viewonly", true, scopeRelationship) }

// Uselist forces scalar or collection loading.
func Uselist(uselist bool) Option { return storageOpt("uselist", uselist, scopeRelationship) }

// JoinDepth bounds eager self-referential join depth.
func JoinDepth(depth int) Option { return storageOpt("join_depth", depth, scopeRelationship) }

// InnerJoin uses an inner join for eager loads.
func InnerJoin() Option { return storageOpt("innerjoin", true, scopeRelationship) }

// PostUpdate updates the foreign key in a second UPDATE statement.
func PostUpdate() Option { return storageOpt("post_update", true, scopeRelationship) }

// RemoteSide marks the remote side of a self-referential relationship.
func RemoteSide(columns ...string) Option {
	return storageOpt("remote_side", columns, scopeRelationship)
}

// ForeignKeys restricts which columns are considered foreign.
func ForeignKeys(columns ...string) Option {
	return storageOpt("foreign_keys", columns, scopeRelationship)
}

// Overlaps silences overlap warnings against the named relationships.
func Overlaps(names string) Option { return storageOpt("overlaps", names, scopeRelationship) }

// SyncBackref enables or disables back-reference synchronization.
func SyncBackref(sync bool) Option { return storageOpt("sync_backref", sync, scopeRelationship) }

// Bridging options (mirrored into both bags).

// Default sets the validation-side default value, mirrored as the storage
// insert default.
func Default(value any) Option { return bridgeOpt("default", value) }

// DefaultFactory sets a callable producing the default value per instance.
func DefaultFactory(factory func() any) Option { return bridgeOpt("default_factory", factory) }

// Alias sets the public field alias accepted on construction and emitted on
// serialization. Not accepted by Relationship.
func Alias(alias string) Option { return bridgeOpt("alias", alias) }

// Keyword validation options.

// ValidationAlias sets the construction-time alias independently of Alias.
// Not accepted by Relationship.
func ValidationAlias(alias string) Option { return validationOpt("validation_alias", alias) }

// SerializationAlias sets the serialization alias independently of Alias.
// Not accepted by Relationship.
func SerializationAlias(alias string) Option { return validationOpt("serialization_alias", alias) }

// Title sets the human-readable field title.
func Title(title string) Option { return validationOpt("title", title) }

// Description sets the field description.
func Description(description string) Option { return validationOpt("description", description) }

// Examples attaches example values.
func Examples(examples ...any) Option { return validationOpt("examples", examples) }

// Exclude omits the field from serialized output.
func Exclude() Option { return validationOpt("exclude", true) }

// Discriminator names the discriminator field for tagged unions.
func Discriminator(field string) Option { return validationOpt("discriminator", field) }

// Frozen rejects assignment after construction.
func Frozen() Option { return validationOpt("frozen", true) }

// ValidateDefault validates the default value instead of trusting it.
func ValidateDefault() Option { return validationOpt("validate_default", true) }

// Strict disables lenient coercion for the field.
func Strict() Option { return validationOpt("strict", true) }

// Pattern constrains string values to the regular expression.
func Pattern(expr string) Option { return validationOpt("pattern", expr) }

// Gt constrains numeric values to be greater than the bound.
func Gt(bound float64) Option { return validationOpt("gt", bound) }

// Ge constrains numeric values to be greater than or equal to the bound.
func Ge(bound float64) Option { return validationOpt("ge", bound) }

// Lt constrains numeric values to be less than the bound.
func Lt(bound float64) Option { return validationOpt("lt", bound) }

// Le constrains numeric values to be less than or equal to the bound.
func Le(bound float64) Option { return validationOpt("le", bound) }

// MultipleOf constrains numeric values to multiples of the bound.
func MultipleOf(bound float64) Option { return validationOpt("multiple_of", bound) }

// AllowInfNaN permits non-finite float values.
func AllowInfNaN() Option { return validationOpt("allow_inf_nan", true) }

// MaxDigits bounds the total number of decimal digits. Also read by the type
// resolver as the numeric precision hint.
func MaxDigits(digits int) Option { return validationOpt("max_digits", digits) }

// DecimalPlaces bounds digits after the decimal point. Also read by the type
// resolver as the numeric scale hint.
func DecimalPlaces(places int) Option { return validationOpt("decimal_places", places) }

// MinLength bounds the minimum length of strings and collections.
func MinLength(length int) Option { return validationOpt("min_length", length) }

// MaxLength bounds the maximum length of strings and collections.
func MaxLength(length int) Option { return validationOpt("max_length", length) }

// UnionMode selects the union validation strategy ("smart",
// "left_to_right").
func UnionMode(mode string) Option { return validationOpt("union_mode", mode) }

// Unsupported options. These exist so that declarations carrying them fail
// with a descriptive error instead of being silently ignored.

// AliasPriority is not supported in the declarative style.
func AliasPriority(priority int) Option {
	return Option{key: "alias_priority", value: priority, dest: destUnsupported}
}

// relationshipRejected lists option keys the Relationship entry point must
// reject: aliased fields cannot be mixed with relationship constructs.
var relationshipRejected = map[string]bool{
	"alias":               true,
	"validation_alias":    true,
	"serialization_alias": true,
}
