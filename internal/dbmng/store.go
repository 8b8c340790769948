package dbmng

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"time"
	"unicode/utf8"

	"workclock-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

// Select: 最大 maxRows 行。超過分は読まずに truncated=true
func (s *Store) Select(ctx context.Context, query string, maxRows int) (cols []string, out []map[string]any, truncated bool, err error) {
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		rows, err := tx.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		cols, err = rows.Columns()
		if err != nil {
			return err
		}
		cols = uniqueColumns(cols)

		out = make([]map[string]any, 0, 64)
		for rows.Next() {
			if len(out) >= maxRows {
				truncated = true
				break
			}
			vals := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return err
			}
			m := make(map[string]any, len(cols))
			for i, c := range cols {
				m[c] = normalizeValue(vals[i])
			}
			out = append(out, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, false, err
	}
	return cols, out, truncated, nil
}

// uniqueColumns: 同名列（SELECT a.id, b.id など）は id, id_2, id_3 … に付け替える
func uniqueColumns(cols []string) []string {
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		seen[c] = struct{}{}
	}
	out := make([]string, len(cols))
	used := make(map[string]struct{}, len(cols))
	for i, c := range cols {
		name := c
		if _, dup := used[name]; dup {
			for n := 2; ; n++ {
				name = fmt.Sprintf("%s_%d", c, n)
				_, taken := seen[name]
				_, already := used[name]
				if !taken && !already {
					break
				}
			}
		}
		used[name] = struct{}{}
		out[i] = name
	}
	return out
}

// Exec: 更新系。fn が成功すれば COMMIT
func (s *Store) Exec(ctx context.Context, query string) (int64, error) {
	var affected int64
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		res, err := tx.ExecContext(ctx, query)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// normalizeValue: JSON にそのまま載らない型は文字列化する
func normalizeValue(v any) any {
	switch t := v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return t
	case []byte:
		if utf8.Valid(t) {
			return string(t)
		}
		return base64.StdEncoding.EncodeToString(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
