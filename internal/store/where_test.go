package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhereClause_ToSQL(t *testing.T) {
	w := &WhereClause{}
	w.Add("status", OpEq, "published")
	w.Add("views", OpGte, 100)

	counter := 1
	var args []any
	sql, err := w.ToSQL(PostgresDialect{}, &counter, &args)
	require.NoError(t, err)

	assert.Equal(t, `"status" = $1 AND "views" >= $2`, sql)
	assert.Equal(t, []any{"published", 100}, args)
	assert.Equal(t, 3, counter)
}

func TestWhereClause_In(t *testing.T) {
	w := &WhereClause{}
	w.Add("id", OpIn, []any{"1", "2", "3"})

	counter := 1
	var args []any
	sql, err := w.ToSQL(PostgresDialect{}, &counter, &args)
	require.NoError(t, err)

	assert.Equal(t, `"id" IN ($1, $2, $3)`, sql)
	assert.Len(t, args, 3)
}

func TestWhereClause_InEmpty(t *testing.T) {
	w := &WhereClause{}
	w.Add("id", OpIn, []any{})

	counter := 1
	var args []any
	sql, err := w.ToSQL(PostgresDialect{}, &counter, &args)
	require.NoError(t, err)

	assert.Equal(t, "FALSE", sql)
	assert.Empty(t, args)
}

func TestWhereClause_SQLiteDialect(t *testing.T) {
	w := &WhereClause{}
	w.Add("title", OpLike, "%go%")

	counter := 1
	var args []any
	sql, err := w.ToSQL(SQLiteDialect{}, &counter, &args)
	require.NoError(t, err)

	assert.Equal(t, `"title" LIKE ?`, sql)
}

func TestWhereClause_Empty(t *testing.T) {
	var w *WhereClause
	assert.True(t, w.Empty())

	counter := 1
	var args []any
	sql, err := w.ToSQL(PostgresDialect{}, &counter, &args)
	require.NoError(t, err)
	assert.Empty(t, sql)
}
