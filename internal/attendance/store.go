package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	"workclock-backend/internal/platform/db"
)

var ErrRecordNotFound = errors.New("clock record not found")

const table = "clock_records"

var recordColumns = []string{
	"id", "worker_name", "action", "timestamp",
	"latitude", "longitude", "accuracy",
	"face_data", "encrypted_image", "created_at",
}

// SQLStore: mysql / postgres / sqlite 共通。プレースホルダ差は squirrel に任せる
type SQLStore struct {
	db      db.DBTX
	dialect db.Dialect
	sb      sq.StatementBuilderType
	now     func() time.Time
}

func NewSQLStore(conn db.DBTX, d db.Dialect) *SQLStore {
	return &SQLStore{db: conn, dialect: d, sb: d.Builder(), now: time.Now}
}

// timeArg: sqlite の TEXT 列には固定長の UTC 文字列で入れる
func (s *SQLStore) timeArg(t time.Time) any {
	if s.dialect == db.SQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t
}

// Insert: 採番された id を返す（postgres は RETURNING、他は LastInsertId）
func (s *SQLStore) Insert(ctx context.Context, r ClockRecord) (int64, error) {
	created := r.CreatedAt
	if created.IsZero() {
		created = s.now().UTC()
	}
	q := s.sb.Insert(table).
		Columns("worker_name", "action", "timestamp", "latitude", "longitude", "accuracy", "face_data", "encrypted_image", "created_at").
		Values(r.WorkerName, r.Action, r.Timestamp,
			nullable(r.Latitude), nullable(r.Longitude), nullable(r.Accuracy),
			nullable(r.FaceData), nullable(r.EncryptedImage), s.timeArg(created))

	if s.dialect.SupportsReturning() {
		query, args, err := q.Suffix("RETURNING id").ToSql()
		if err != nil {
			return 0, err
		}
		var id int64
		if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	query, args, err := q.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLStore) Get(ctx context.Context, id int64) (ClockRecord, error) {
	query, args, err := s.sb.Select(recordColumns...).From(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return ClockRecord{}, err
	}
	var row clockRow
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(row.scanTargets()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ClockRecord{}, ErrRecordNotFound
		}
		return ClockRecord{}, err
	}
	return row.toModel()
}

// List: 新しい順
func (s *SQLStore) List(ctx context.Context, f ListFilter) ([]ClockRecord, error) {
	b := s.sb.Select(recordColumns...).From(table).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(f.Limit))
	if f.WorkerName != "" {
		b = b.Where(sq.Eq{"worker_name": f.WorkerName})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ClockRecord, 0, f.Limit)
	for rows.Next() {
		var r clockRow
		if err := rows.Scan(r.scanTargets()...); err != nil {
			return nil, err
		}
		m, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete: 物理削除。対象が無ければ false
func (s *SQLStore) Delete(ctx context.Context, id int64) (bool, error) {
	query, args, err := s.sb.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLStore) Stats(ctx context.Context, workerName string) (Stats, error) {
	b := s.sb.Select(
		"COUNT(*)",
		"COALESCE(SUM(CASE WHEN action = 'check-in' THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN action = 'check-out' THEN 1 ELSE 0 END), 0)",
	).From(table)
	if workerName != "" {
		b = b.Where(sq.Eq{"worker_name": workerName})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&st.TotalRecords, &st.CheckIns, &st.CheckOuts); err != nil {
		return Stats{}, err
	}
	return st, nil
}

// nullable: nil ポインタは NULL、それ以外は値で渡す（ドライバ差を避ける）
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
