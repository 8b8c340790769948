package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workclock-backend/internal/platform/db"
	"workclock-backend/internal/platform/db/dbtest"
)

func f64(v float64) *float64 { return &v }
func str(s string) *string    { return &s }

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	return NewSQLStore(dbtest.NewSQLite(t), db.SQLite)
}

func TestSQLStore_InsertGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Insert(ctx, ClockRecord{
		WorkerName:     "taro",
		Action:         ActionCheckIn,
		Timestamp:      "2026-10-16T09:00:00+09:00",
		Latitude:       f64(35.6812),
		Longitude:      f64(139.7671),
		Accuracy:       f64(12.5),
		EncryptedImage: str("token"),
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "taro", got.WorkerName)
	assert.Equal(t, ActionCheckIn, got.Action)
	assert.Equal(t, 35.6812, *got.Latitude)
	assert.Equal(t, 12.5, *got.Accuracy)
	assert.Nil(t, got.FaceData)
	assert.Equal(t, "token", *got.EncryptedImage)
	assert.WithinDuration(t, time.Now(), got.CreatedAt, time.Minute)
	assert.True(t, got.HasCoordinates())
}

func TestSQLStore_GetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestSQLStore_ListOrderFilterLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	for i, w := range []string{"taro", "hanako", "taro", "taro"} {
		_, err := s.Insert(ctx, ClockRecord{
			WorkerName: w, Action: ActionCheckIn, Timestamp: "t",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	all, err := s.List(ctx, ListFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt), "newest first")
	assert.True(t, base.Add(3*time.Hour).Equal(all[0].CreatedAt), all[0].CreatedAt)

	taro, err := s.List(ctx, ListFilter{WorkerName: "taro", Limit: 2})
	require.NoError(t, err)
	require.Len(t, taro, 2)
	for _, r := range taro {
		assert.Equal(t, "taro", r.WorkerName)
	}
}

func TestSQLStore_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Insert(ctx, ClockRecord{WorkerName: "a", Action: ActionCheckOut, Timestamp: "t"})
	require.NoError(t, err)

	ok, err := s.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLStore_Stats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	st, err := s.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, Stats{}, st)

	for _, r := range []ClockRecord{
		{WorkerName: "taro", Action: ActionCheckIn, Timestamp: "t"},
		{WorkerName: "taro", Action: ActionCheckOut, Timestamp: "t"},
		{WorkerName: "hanako", Action: ActionCheckIn, Timestamp: "t"},
	} {
		_, err := s.Insert(ctx, r)
		require.NoError(t, err)
	}

	st, err = s.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, Stats{TotalRecords: 3, CheckIns: 2, CheckOuts: 1}, st)

	st, err = s.Stats(ctx, "hanako")
	require.NoError(t, err)
	assert.Equal(t, Stats{TotalRecords: 1, CheckIns: 1}, st)
}

func TestParseDBTime(t *testing.T) {
	want := time.Date(2026, 10, 16, 1, 2, 3, 0, time.UTC)
	for _, v := range []any{
		want,
		"2026-10-16 01:02:03+00:00",
		"2026-10-16T01:02:03Z",
		"2026-10-16T01:02:03.000000Z",
		"2026-10-16 01:02:03 +0000 UTC",
		[]byte("2026-10-16 01:02:03"),
	} {
		got, err := parseDBTime(v)
		require.NoError(t, err, v)
		assert.True(t, want.Equal(got), "%v -> %v", v, got)
	}
	_, err := parseDBTime("yesterday")
	assert.Error(t, err)
}

// sqlite の created_at は固定長テキストで保存され、そのまま読み戻せる
func TestSQLStore_SQLiteCreatedAtRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, at := range []time.Time{
		{},
		time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 10, 1, 12, 0, 0, 500_000_000, time.UTC),
		time.Date(2026, 10, 1, 21, 0, 0, 123_456_000, time.FixedZone("JST", 9*60*60)),
	} {
		id, err := s.Insert(ctx, ClockRecord{WorkerName: "taro", Action: ActionCheckIn, Timestamp: "t", CreatedAt: at})
		require.NoError(t, err)

		var raw string
		require.NoError(t, s.db.QueryRowContext(ctx, "SELECT created_at FROM clock_records WHERE id = ?", id).Scan(&raw))
		assert.Len(t, raw, len("2026-10-01T12:00:00.000000Z"), raw)
		assert.NotContains(t, raw, "UTC")

		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		if at.IsZero() {
			assert.WithinDuration(t, time.Now(), got.CreatedAt, time.Minute)
		} else {
			assert.True(t, at.Equal(got.CreatedAt), "%v -> %v", at, got.CreatedAt)
		}
	}
}

// 端数なし/ありが混在しても新しい順に並ぶ
func TestSQLStore_SQLiteOrderWithFractionalSeconds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	older, err := s.Insert(ctx, ClockRecord{WorkerName: "a", Action: ActionCheckIn, Timestamp: "t", CreatedAt: base})
	require.NoError(t, err)
	newer, err := s.Insert(ctx, ClockRecord{WorkerName: "a", Action: ActionCheckOut, Timestamp: "t", CreatedAt: base.Add(500 * time.Millisecond)})
	require.NoError(t, err)

	list, err := s.List(ctx, ListFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer, list[0].ID)
	assert.Equal(t, older, list[1].ID)
}

// time.Time をそのまま入れていた頃の行も読める
func TestSQLStore_ReadsLegacyTimeStringRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO clock_records (worker_name, action, timestamp, created_at) VALUES (?, ?, ?, ?)",
		"taro", ActionCheckIn, "t", "2026-10-01 12:00:00 +0000 UTC")
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC).Equal(got.CreatedAt), got.CreatedAt)
}
