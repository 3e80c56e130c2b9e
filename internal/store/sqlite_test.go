package store

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openSQLite creates an in-memory database with the test schema
func openSQLite(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema := []string{
		`CREATE TABLE "users" (
			"id" INTEGER PRIMARY KEY AUTOINCREMENT,
			"name" TEXT NOT NULL,
			"email" TEXT
		)`,
		`CREATE TABLE "posts" (
			"id" INTEGER PRIMARY KEY AUTOINCREMENT,
			"title" TEXT NOT NULL,
			"userId" INTEGER
		)`,
	}
	for _, stmt := range schema {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return db
}

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	return NewSQLStore(openSQLite(t), testRegistry(t), SQLiteDialect{})
}

func TestSQLiteStore_CreateAndFind(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "User", map[string]any{
		"name":  "Ada",
		"email": "ada@example.com",
	})
	require.NoError(t, err)
	require.NotNil(t, created.Get("id"))

	found, err := s.FindByID(ctx, "User", "1", nil)
	require.NoError(t, err)
	assert.Equal(t, "Ada", found.Get("name"))
	assert.Equal(t, "ada@example.com", found.Get("email"))
}

func TestSQLiteStore_RelationshipReplacement(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "User", map[string]any{"name": "Ada"})
	require.NoError(t, err)

	for _, title := range []string{"one", "two", "three"} {
		_, err := s.Create(ctx, "Post", map[string]any{"title": title, "userId": int64(1)})
		require.NoError(t, err)
	}

	// Full replacement: clear every current reference, then set the new set
	require.NoError(t, s.ClearForeignKey(ctx, "Post", "userId", int64(1)))
	require.NoError(t, s.UpdateForeignKey(ctx, "Post", "2", "userId", int64(1)))

	where := &WhereClause{}
	where.Add("userId", OpEq, int64(1))
	rows, err := s.FindAll(ctx, "Post", where, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "two", rows[0].Get("title"))
}

func TestSQLiteStore_IncludeLoading(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "User", map[string]any{"name": "Ada"})
	require.NoError(t, err)
	_, err = s.Create(ctx, "Post", map[string]any{"title": "hello", "userId": int64(1)})
	require.NoError(t, err)

	user, err := s.FindByID(ctx, "User", "1", []string{"posts"})
	require.NoError(t, err)
	require.True(t, user.Loaded("posts"))
	require.Len(t, user.Related("posts"), 1)

	post, err := s.FindByID(ctx, "Post", "1", []string{"user"})
	require.NoError(t, err)
	loaded, ok := post.RelatedOne("user")
	require.True(t, ok)
	assert.Equal(t, "Ada", loaded.Get("name"))
}

func TestSQLiteStore_DeleteRemovesRow(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	row, err := s.Create(ctx, "User", map[string]any{"name": "Ada"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "User", row))

	_, err = s.FindByID(ctx, "User", "1", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
