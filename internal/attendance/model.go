package attendance

import (
	"database/sql"
	"fmt"
	"time"
)

const (
	ActionCheckIn  = "check-in"
	ActionCheckOut = "check-out"

	DefaultListLimit = 100
	MaxListLimit     = 1000
	MaxBulkDelete    = 1000
)

// ClockRecord: 打刻 1 件。住所は保存しない
type ClockRecord struct {
	ID             int64
	WorkerName     string
	Action         string
	Timestamp      string // クライアント申告の時刻（検証しない）
	Latitude       *float64
	Longitude      *float64
	Accuracy       *float64
	FaceData       *string
	EncryptedImage *string
	CreatedAt      time.Time
}

func (r ClockRecord) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

type ListFilter struct {
	WorkerName string
	Limit      int
}

type Stats struct {
	TotalRecords int64
	CheckIns     int64
	CheckOuts    int64
}

// DB行に対応（スキャン用）
type clockRow struct {
	ID             int64
	WorkerName     string
	Action         string
	Timestamp      string
	Latitude       sql.NullFloat64
	Longitude      sql.NullFloat64
	Accuracy       sql.NullFloat64
	FaceData       sql.NullString
	EncryptedImage sql.NullString
	CreatedAt      any // sqlite は TEXT、mysql/postgres は time.Time
}

func (r *clockRow) scanTargets() []any {
	return []any{
		&r.ID, &r.WorkerName, &r.Action, &r.Timestamp,
		&r.Latitude, &r.Longitude, &r.Accuracy,
		&r.FaceData, &r.EncryptedImage, &r.CreatedAt,
	}
}

func (r clockRow) toModel() (ClockRecord, error) {
	at, err := parseDBTime(r.CreatedAt)
	if err != nil {
		return ClockRecord{}, err
	}
	return ClockRecord{
		ID:             r.ID,
		WorkerName:     r.WorkerName,
		Action:         r.Action,
		Timestamp:      r.Timestamp,
		Latitude:       floatPtr(r.Latitude),
		Longitude:      floatPtr(r.Longitude),
		Accuracy:       floatPtr(r.Accuracy),
		FaceData:       stringPtr(r.FaceData),
		EncryptedImage: stringPtr(r.EncryptedImage),
		CreatedAt:      at.UTC(),
	}, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// sqliteTimeLayout: マイクロ秒固定長。created_at の並び順が文字列比較でも崩れない
const sqliteTimeLayout = "2006-01-02T15:04:05.000000Z07:00"

var dbTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST", // time.Time.String()。以前の sqlite 行
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

func parseDBTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case nil:
		return time.Time{}, nil
	case []byte:
		return parseDBTime(string(t))
	case string:
		for _, layout := range dbTimeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized created_at %q", t)
	default:
		return time.Time{}, fmt.Errorf("unsupported created_at type %T", v)
	}
}
