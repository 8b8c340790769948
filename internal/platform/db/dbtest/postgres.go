//go:build integration

package dbtest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"workclock-backend/internal/platform/db"
)

// NewPostgres: 使い捨ての Postgres コンテナを起動してマイグレーションまで済ませる
func NewPostgres(t testing.TB) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("worker_clock"),
		tcpostgres.WithUsername("clock"),
		tcpostgres.WithPassword("clock"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	conn, err := sql.Open(db.Postgres.DriverName(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	require.NoError(t, conn.PingContext(pingCtx))

	require.NoError(t, db.Migrate(ctx, conn, db.Postgres))
	return conn
}
