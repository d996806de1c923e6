package metadata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func put(t *testing.T, r *SQLiteRepository, key string, value []byte) {
	t.Helper()
	require.NoError(t, r.SetMany(context.Background(), map[string][]byte{key: value}))
}

func TestSetAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	put(t, r, "k1", []byte{0x01, 0x02})

	v, err := r.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, v)
}

func TestGet_Missing(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	v, err := r.Get(context.Background(), "absent")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestGet_EmptyValueIsNotMissing(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	put(t, r, "empty", nil)

	v, err := r.Get(ctx, "empty")
	require.NoError(t, err)
	require.NotNil(t, v)
	require.Empty(t, v)
}

func TestSet_Upsert(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	put(t, r, "k", []byte("old"))
	put(t, r, "k", []byte("new"))

	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("new"), v)
}

func TestSetMany(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	put(t, r, "ns/token_type", []byte("old"))
	require.NoError(t, r.SetMany(ctx, map[string][]byte{
		"ns/token_type":   []byte("Bearer"),
		"ns/access_token": []byte("abc"),
		"ns/expires_in":   []byte("3600"),
	}))

	m, err := r.List(ctx, "ns/")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{
		"ns/token_type":   []byte("Bearer"),
		"ns/access_token": []byte("abc"),
		"ns/expires_in":   []byte("3600"),
	}, m)

	require.NoError(t, r.SetMany(ctx, nil))
}

func TestSetMany_IsAtomic(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	put(t, r, "a", []byte("1"))

	// reject writes to "b" so the second statement of the batch fails
	_, err := db.Exec(`
CREATE TRIGGER reject_b BEFORE INSERT ON metadata
WHEN NEW.key = 'b'
BEGIN SELECT RAISE(ABORT, 'b is read-only'); END;`)
	require.NoError(t, err)

	err = r.SetMany(ctx, map[string][]byte{"a": []byte("2"), "b": []byte("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set metadata[b]")

	v, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)
}

func TestList_FiltersByPrefix(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	put(t, r, "one/a", []byte{0xAA})
	put(t, r, "one/b", []byte{0xBB, 0xCC})
	put(t, r, "two/a", []byte{0x01})

	m, err := r.List(ctx, "one/")
	require.NoError(t, err)
	assert.Len(t, m, 2)
	assert.Equal(t, []byte{0xAA}, m["one/a"])
	assert.Equal(t, []byte{0xBB, 0xCC}, m["one/b"])

	all, err := r.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDelete_Idempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	put(t, r, "x", []byte{0x01})
	require.NoError(t, r.Delete(ctx, "x"))

	v, err := r.Get(ctx, "x")
	require.NoError(t, err)
	require.Nil(t, v)

	require.NoError(t, r.Delete(ctx, "x"))
}

func TestClosedDatabaseErrorsAreWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	tests := []struct {
		name string
		call func() error
		want string
	}{
		{"get", func() error { _, err := r.Get(ctx, "k"); return err }, "failed to get metadata[k]"},
		{"set many", func() error { return r.SetMany(ctx, map[string][]byte{"k": nil}) }, "failed to begin transaction"},
		{"delete", func() error { return r.Delete(ctx, "k") }, "failed to delete metadata[k]"},
		{"list", func() error { _, err := r.List(ctx, ""); return err }, "failed to list metadata"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}
