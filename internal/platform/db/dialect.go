package db

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Dialect: バックエンドDBの種類。プレースホルダ形式の差はここで吸収する
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func ParseDialect(s string) (Dialect, error) {
	switch Dialect(s) {
	case MySQL, Postgres, SQLite:
		return Dialect(s), nil
	}
	return "", fmt.Errorf("unsupported database driver %q", s)
}

// DriverName: database/sql に登録されているドライバ名
func (d Dialect) DriverName() string {
	switch d {
	case Postgres:
		return "pgx"
	case SQLite:
		return "sqlite"
	default:
		return "mysql"
	}
}

func (d Dialect) GooseDialect() string {
	if d == SQLite {
		return "sqlite3"
	}
	return string(d)
}

func (d Dialect) Placeholder() sq.PlaceholderFormat {
	if d == Postgres {
		return sq.Dollar
	}
	return sq.Question
}

func (d Dialect) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.Placeholder())
}

// SupportsReturning: INSERT ... RETURNING でIDを受け取るか（それ以外は LastInsertId）
func (d Dialect) SupportsReturning() bool {
	return d == Postgres
}
