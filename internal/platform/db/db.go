package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"workclock-backend/internal/platform/config"
)

// Connect: 設定のドライバで接続し、Ping まで確認する
func Connect(ctx context.Context, c config.DatabaseConfig) (*sql.DB, Dialect, error) {
	d, err := ParseDialect(c.Driver)
	if err != nil {
		return nil, "", err
	}

	dsn := c.DSN
	if dsn == "" {
		dsn = defaultDSN(d, c)
	}

	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, "", fmt.Errorf("接続準備に失敗: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("DB接続に失敗: %w", err)
	}

	configurePool(db, d)
	return db, d, nil
}

func defaultDSN(d Dialect, c config.DatabaseConfig) string {
	switch d {
	case MySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=false&timeout=3s&readTimeout=5s&writeTimeout=5s&loc=UTC",
			c.Username, c.Password, c.Host, c.Port, c.DBName)
	case Postgres:
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
			c.Username, c.Password, c.Host, c.Port, c.DBName)
	default:
		return c.DBName + ".db"
	}
}

func configurePool(db *sql.DB, d Dialect) {
	if d == SQLite {
		// SQLite は書き込みが1本なので接続を絞る
		db.SetMaxOpenConns(1)
		return
	}
	// 接続プール（合算がサーバの max_connections を超えないよう配分する）
	db.SetMaxOpenConns(80)
	db.SetMaxIdleConns(20)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
}
