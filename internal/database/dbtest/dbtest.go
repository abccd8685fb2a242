// Package dbtest opens an in-memory SQLite database with the schema applied.
package dbtest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-membership/internal/database"
)

// New returns a schema-initialized database that is closed with the test.
// The pool is pinned to one connection so every goroutine sees the same
// in-memory database and transactions serialize.
func New(t testing.TB) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.CreateSchema(context.Background(), db))
	return db
}

// Seeded is New plus the demo members and event.
func Seeded(t testing.TB) *bun.DB {
	t.Helper()
	db := New(t)
	require.NoError(t, database.Seed(context.Background(), db))
	return db
}
