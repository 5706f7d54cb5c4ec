package ddl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinschema/twinschema/coltype"
	"github.com/twinschema/twinschema/field"
	"github.com/twinschema/twinschema/schema"
	"github.com/twinschema/twinschema/typeexpr"
)

func blogSchema(t *testing.T) *schema.Hierarchy {
	t.Helper()
	h, err := schema.NewHierarchy()
	require.NoError(t, err)

	_, err = h.Compile(schema.NewModel("Author", schema.Table()).
		Field("id", typeexpr.Int, field.PrimaryKey()).
		Field("name", typeexpr.String).
		Field("email", typeexpr.String, field.Unique()).
		Field("joined", typeexpr.Optional(typeexpr.Time)))
	require.NoError(t, err)

	_, err = h.Compile(schema.NewModel("Post", schema.Table()).
		Field("id", typeexpr.Int, field.PrimaryKey()).
		Field("author_id", typeexpr.Int, field.ForeignKey("author.id"), field.Index()).
		Field("title", typeexpr.String).
		Field("draft", typeexpr.Bool, field.ServerDefault("true")))
	require.NoError(t, err)

	require.NoError(t, h.ResolvePending(schema.Strict()))
	return h
}

func TestCreateTablePostgres(t *testing.T) {
	h := blogSchema(t)
	g := NewGenerator(coltype.Postgres)

	author, ok := h.Model("Author")
	require.True(t, ok)

	sql, err := g.CreateTable(author)
	require.NoError(t, err)

	want := `CREATE TABLE IF NOT EXISTS "author" (
  "id" INTEGER NOT NULL,
  "name" VARCHAR NOT NULL,
  "email" VARCHAR NOT NULL UNIQUE,
  "joined" TIMESTAMP WITH TIME ZONE,
  PRIMARY KEY ("id")
);`
	assert.Equal(t, want, sql)
}

func TestCreateTableRendersForeignKeysAndDefaults(t *testing.T) {
	h := blogSchema(t)
	g := NewGenerator(coltype.SQLite)

	post, ok := h.Model("Post")
	require.True(t, ok)

	sql, err := g.CreateTable(post)
	require.NoError(t, err)

	assert.Contains(t, sql, `"author_id" INTEGER NOT NULL REFERENCES "author" ("id")`)
	assert.Contains(t, sql, `"draft" BOOLEAN NOT NULL DEFAULT true`)
}

func TestCreateIndexes(t *testing.T) {
	h := blogSchema(t)
	g := NewGenerator(coltype.Postgres)

	post, ok := h.Model("Post")
	require.True(t, ok)

	stmts, err := g.CreateIndexes(post)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, `CREATE INDEX IF NOT EXISTS "idx_post_author_id" ON "post" ("author_id");`, stmts[0])
}

func TestGenerateAllOrdersTablesBeforeIndexes(t *testing.T) {
	h := blogSchema(t)
	g := NewGenerator(coltype.SQLite)

	stmts, err := g.GenerateAll(h.Metadata())
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[0], `CREATE TABLE IF NOT EXISTS "author"`)
	assert.Contains(t, stmts[1], `CREATE TABLE IF NOT EXISTS "post"`)
	assert.Contains(t, stmts[2], "CREATE INDEX")
}

func TestGenerateAllOrdersForeignKeyTargetsFirst(t *testing.T) {
	h, err := schema.NewHierarchy()
	require.NoError(t, err)

	// Parent waits on a forward reference, so the FK-bearing child
	// finalizes (and registers its table) first.
	_, err = h.Compile(schema.NewModel("Parent", schema.Table()).
		Field("id", typeexpr.Int, field.PrimaryKey()).
		Relationship("children", typeexpr.List(typeexpr.Ref("Child"))))
	require.NoError(t, err)

	_, err = h.Compile(schema.NewModel("Child", schema.Table()).
		Field("id", typeexpr.Int, field.PrimaryKey()).
		Field("parent_id", typeexpr.Int, field.ForeignKey("parent.id")))
	require.NoError(t, err)
	require.NoError(t, h.ResolvePending(schema.Strict()))

	stmts, err := NewGenerator(coltype.Postgres).GenerateAll(h.Metadata())
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], `CREATE TABLE IF NOT EXISTS "parent"`)
	assert.Contains(t, stmts[1], `CREATE TABLE IF NOT EXISTS "child"`)
	assert.Contains(t, stmts[1], `REFERENCES "parent" ("id")`)
}

func TestCreateTableRequiresFinalizedModel(t *testing.T) {
	h, err := schema.NewHierarchy()
	require.NoError(t, err)

	d, err := h.Compile(schema.NewModel("Waiting", schema.Table()).
		Field("id", typeexpr.Int, field.PrimaryKey()).
		Field("other", typeexpr.Ref("Missing")))
	require.NoError(t, err)

	_, err = NewGenerator(coltype.Postgres).CreateTable(d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ResolvePending")
}

func TestBadForeignKeyReference(t *testing.T) {
	h, err := schema.NewHierarchy()
	require.NoError(t, err)

	d, err := h.Compile(schema.NewModel("Broken", schema.Table()).
		Field("id", typeexpr.Int, field.PrimaryKey()).
		Field("ref", typeexpr.Int, field.ForeignKey("no_dot")))
	require.NoError(t, err)

	_, err = NewGenerator(coltype.Postgres).CreateTable(d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table.column")
}
