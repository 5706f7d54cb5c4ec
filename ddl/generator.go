// Package ddl emits CREATE TABLE and CREATE INDEX statements from finalized
// storage schemas and applies them transactionally.
package ddl

import (
	"fmt"
	"strings"

	"github.com/twinschema/twinschema/coltype"
	"github.com/twinschema/twinschema/schema"
)

// Generator renders DDL for one dialect.
type Generator struct {
	dialect coltype.Dialect
}

// NewGenerator creates a DDL generator for the given dialect.
func NewGenerator(dialect coltype.Dialect) *Generator {
	return &Generator{dialect: dialect}
}

// CreateTable renders the CREATE TABLE statement for a finalized model.
func (g *Generator) CreateTable(d *schema.Declared) (string, error) {
	if err := d.RequireStorage(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n", quoteIdentifier(d.TableName)))

	defs := make([]string, 0, len(d.ColumnOrder)+1)
	var pkCols []string
	for _, fieldName := range d.ColumnOrder {
		col := d.Columns[fieldName]
		def, err := g.columnDefinition(col)
		if err != nil {
			return "", fmt.Errorf("table %s column %s: %w", d.TableName, col.Name, err)
		}
		defs = append(defs, def)
		if col.PrimaryKey {
			pkCols = append(pkCols, quoteIdentifier(col.Name))
		}
	}
	if len(pkCols) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pkCols, ", ")))
	}

	for i, def := range defs {
		b.WriteString("  ")
		b.WriteString(def)
		if i < len(defs)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(");")
	return b.String(), nil
}

func (g *Generator) columnDefinition(col *schema.ColumnSpec) (string, error) {
	if col.Type == nil {
		return "", fmt.Errorf("column has no storage type")
	}

	parts := []string{quoteIdentifier(col.Name), col.Type.SQL(g.dialect)}
	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if col.Unique {
		parts = append(parts, "UNIQUE")
	}
	if col.ServerDefault != "" {
		parts = append(parts, "DEFAULT "+col.ServerDefault)
	}
	if col.ForeignKey != "" {
		ref, err := referencesClause(col.ForeignKey)
		if err != nil {
			return "", err
		}
		parts = append(parts, ref)
	}
	return strings.Join(parts, " "), nil
}

// referencesClause turns a "table.column" reference into a REFERENCES
// clause.
func referencesClause(ref string) (string, error) {
	table, column, ok := strings.Cut(ref, ".")
	if !ok || table == "" || column == "" {
		return "", fmt.Errorf("foreign key reference %q is not of the form table.column", ref)
	}
	return fmt.Sprintf("REFERENCES %s (%s)", quoteIdentifier(table), quoteIdentifier(column)), nil
}

// CreateIndexes renders CREATE INDEX statements for the model's indexed
// columns.
func (g *Generator) CreateIndexes(d *schema.Declared) ([]string, error) {
	if err := d.RequireStorage(); err != nil {
		return nil, err
	}
	var stmts []string
	for _, fieldName := range d.ColumnOrder {
		col := d.Columns[fieldName]
		if !col.Index {
			continue
		}
		name := fmt.Sprintf("idx_%s_%s", d.TableName, col.Name)
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s);",
			quoteIdentifier(name), quoteIdentifier(d.TableName), quoteIdentifier(col.Name)))
	}
	return stmts, nil
}

// GenerateAll renders tables then indexes for every finalized table.
// Tables are ordered so that a foreign key target is created before any
// table that references it.
func (g *Generator) GenerateAll(meta *schema.Metadata) ([]string, error) {
	var stmts []string
	tables := sortByDependency(meta.Tables())
	for _, d := range tables {
		stmt, err := g.CreateTable(d)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	for _, d := range tables {
		indexes, err := g.CreateIndexes(d)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, indexes...)
	}
	return stmts, nil
}

// sortByDependency orders tables so foreign key targets precede the tables
// referencing them. Ties keep the incoming order; self-references and
// references to tables outside the set impose no ordering.
func sortByDependency(tables []*schema.Declared) []*schema.Declared {
	byName := make(map[string]*schema.Declared, len(tables))
	for _, d := range tables {
		byName[d.TableName] = d
	}

	sorted := make([]*schema.Declared, 0, len(tables))
	visited := make(map[string]bool, len(tables))

	var visit func(d *schema.Declared)
	visit = func(d *schema.Declared) {
		if visited[d.TableName] {
			return
		}
		visited[d.TableName] = true
		for _, fieldName := range d.ColumnOrder {
			col := d.Columns[fieldName]
			if col.ForeignKey == "" {
				continue
			}
			target, _, ok := strings.Cut(col.ForeignKey, ".")
			if !ok || target == d.TableName {
				continue
			}
			if dep, known := byName[target]; known {
				visit(dep)
			}
		}
		sorted = append(sorted, d)
	}
	for _, d := range tables {
		visit(d)
	}
	return sorted
}

// quoteIdentifier double-quotes an identifier, escaping embedded quotes.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
