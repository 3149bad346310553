package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectSQLiteMigratesIdempotently(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "app.db")

	db, dialect, err := Connect(ctx, Config{Driver: "sqlite", SQLitePath: path})
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, SQLite, dialect)

	require.NoError(t, Migrate(ctx, db, dialect))

	for _, table := range []string{"users", "refresh_tokens", "events", "bookings"} {
		var name string
		err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, _, err := Connect(context.Background(), Config{Driver: "postgres"})
	assert.ErrorContains(t, err, "unsupported DB_DRIVER")
}

func TestDialectClauses(t *testing.T) {
	assert.Equal(t, " FOR UPDATE", MySQL.ForUpdate())
	assert.Empty(t, SQLite.ForUpdate())
	assert.NotNil(t, MySQL.TxOptions())
	assert.Nil(t, SQLite.TxOptions())
}
