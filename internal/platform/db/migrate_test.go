package db

import (
	"context"
	"database/sql"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestMigrate_SQLiteCreatesTables(t *testing.T) {
	conn, err := sql.Open("sqlite", "file:migrate_tests?mode=memory&cache=shared")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, Migrate(context.Background(), conn, SQLite))
	// 2回目は何もしない
	require.NoError(t, Migrate(context.Background(), conn, SQLite))

	for _, table := range []string{"clock_records", "auth_accounts"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestDialect(t *testing.T) {
	tests := []struct {
		in        string
		driver    string
		goose     string
		returning bool
		ph        sq.PlaceholderFormat
	}{
		{in: "mysql", driver: "mysql", goose: "mysql", ph: sq.Question},
		{in: "postgres", driver: "pgx", goose: "postgres", returning: true, ph: sq.Dollar},
		{in: "sqlite", driver: "sqlite", goose: "sqlite3", ph: sq.Question},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseDialect(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.driver, d.DriverName())
			assert.Equal(t, tt.goose, d.GooseDialect())
			assert.Equal(t, tt.returning, d.SupportsReturning())
			assert.Equal(t, tt.ph, d.Placeholder())
		})
	}

	_, err := ParseDialect("oracle")
	require.Error(t, err)
}

func TestDialect_BuilderPlaceholders(t *testing.T) {
	q, _, err := Postgres.Builder().Select("id").From("clock_records").Where(sq.Eq{"id": 1}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM clock_records WHERE id = $1", q)

	q, _, err = MySQL.Builder().Select("id").From("clock_records").Where(sq.Eq{"id": 1}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM clock_records WHERE id = ?", q)
}
