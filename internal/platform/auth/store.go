package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	"workclock-backend/internal/platform/db"
)

type Account struct {
	ID           string
	PasswordHash string
	Role         string
	IsDisabled   bool
	CreatedAt    string
}

type AccountStore interface {
	GetByID(ctx context.Context, id string) (*Account, error)
	Create(ctx context.Context, a *Account) error
	Delete(ctx context.Context, id string) (int64, error)
	UpdateID(ctx context.Context, oldID, newID string) (int64, error)
}

const accountsTable = "auth_accounts"

type Store struct {
	db db.DBTX
	sb sq.StatementBuilderType
}

func NewStore(conn db.DBTX, d db.Dialect) AccountStore {
	return &Store{db: conn, sb: d.Builder()}
}

// GetByID: 見つからなければ nil, nil
func (s *Store) GetByID(ctx context.Context, id string) (*Account, error) {
	q, args, err := s.sb.
		Select("id", "password_hash", "role", "is_disabled", "created_at").
		From(accountsTable).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var a Account
	err = s.db.QueryRowContext(ctx, q, args...).Scan(
		&a.ID,
		&a.PasswordHash,
		&a.Role,
		&a.IsDisabled, // postgres は BOOLEAN、mysql/sqlite は 0/1
		&a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create: created_at は DB 関数に頼らずアプリ側で入れる（方言差を避ける）
func (s *Store) Create(ctx context.Context, a *Account) error {
	q, args, err := s.sb.
		Insert(accountsTable).
		Columns("id", "password_hash", "role", "is_disabled", "created_at").
		Values(a.ID, a.PasswordHash, a.Role, a.IsDisabled, time.Now().UTC()).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, q, args...)
	return err
}

func (s *Store) Delete(ctx context.Context, id string) (int64, error) {
	q, args, err := s.sb.Delete(accountsTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) UpdateID(ctx context.Context, oldID, newID string) (int64, error) {
	q, args, err := s.sb.Update(accountsTable).Set("id", newID).Where(sq.Eq{"id": oldID}).ToSql()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
