// Package dbtest はテスト用のマイグレーション済みインメモリ SQLite を提供する。
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"workclock-backend/internal/platform/db"
)

// NewSQLite: テストごとに独立した DB。goose がグローバル状態を持つので t.Parallel と併用しないこと
func NewSQLite(t testing.TB) *sql.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, db.Migrate(context.Background(), conn, db.SQLite))
	return conn
}
