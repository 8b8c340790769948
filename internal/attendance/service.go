package attendance

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,AddressResolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"workclock-backend/internal/geocode"
	"workclock-backend/internal/photocipher"
	"workclock-backend/internal/platform/metrics"
)

// ===== Error model (dbmng と同型) =====
type Code string

const (
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeNotFound         Code = "NOT_FOUND"
	CodeConflict         Code = "CONFLICT"
	CodeEncryptionFailed Code = "ENCRYPTION_FAILED"
	CodeDecryptionFailed Code = "DECRYPTION_FAILED"
	CodeInternal         Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string        { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError    { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError   { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError   { return &APIError{Code: CodeConflict, Message: msg} }
func ErrEncryption(msg string) *APIError { return &APIError{Code: CodeEncryptionFailed, Message: msg} }
func ErrDecryption(msg string) *APIError { return &APIError{Code: CodeDecryptionFailed, Message: msg} }
func ErrInternal(msg string) *APIError   { return &APIError{Code: CodeInternal, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument, CodeEncryptionFailed:
			return 400
		case CodeNotFound:
			return 404
		case CodeConflict:
			return 409
		default:
			return 500
		}
	}
	return 500
}

// ===== Dependencies =====

// Store: 打刻の永続化
type Store interface {
	Insert(ctx context.Context, r ClockRecord) (int64, error)
	Get(ctx context.Context, id int64) (ClockRecord, error)
	List(ctx context.Context, f ListFilter) ([]ClockRecord, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Stats(ctx context.Context, workerName string) (Stats, error)
}

// AddressResolver: 座標 → 住所。失敗してもエラーは返さない
type AddressResolver interface {
	Resolve(ctx context.Context, lat, lon float64) geocode.Result
}

// PhotoCipher: 写真ペイロードの暗号化
type PhotoCipher interface {
	EncryptPayload(payload string) (string, error)
	Open(token string) ([]byte, error)
}

// ===== Service =====

type Service struct {
	store       Store
	cipher      PhotoCipher
	resolver    AddressResolver
	metrics     *metrics.Metrics
	log         *slog.Logger
	concurrency int
	now         func() time.Time
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithClock: created_at の時刻源（テスト用）
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithListConcurrency: 一覧での住所解決の同時実行数
func WithListConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func NewService(store Store, cipher PhotoCipher, resolver AddressResolver, opts ...Option) *Service {
	s := &Service{
		store:       store,
		cipher:      cipher,
		resolver:    resolver,
		log:         slog.Default(),
		concurrency: 4,
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("component", "attendance")
	return s
}

// POST /clock
// 写真を暗号化 → 保存 → 住所解決（レスポンスのみ。保存しない）
// 保存に成功したらエラーは返さない。応答は保存した値から組み立てる（読み戻しなし）
func (s *Service) Create(ctx context.Context, in CreateClockRequest) (ClockRecordResponse, error) {
	rec, err := validateCreate(in)
	if err != nil {
		return ClockRecordResponse{}, err
	}

	if in.ImageData != nil && strings.TrimSpace(*in.ImageData) != "" {
		token, err := s.cipher.EncryptPayload(*in.ImageData)
		if err != nil {
			return ClockRecordResponse{}, ErrEncryption("image encryption failed: " + err.Error())
		}
		rec.EncryptedImage = &token
	}

	// DB 側の精度（マイクロ秒）に揃えておく
	rec.CreatedAt = s.now().UTC().Truncate(time.Microsecond)

	id, err := s.store.Insert(ctx, rec)
	if err != nil {
		s.log.ErrorContext(ctx, "insert clock record", slog.String("error", err.Error()))
		return ClockRecordResponse{}, ErrInternal("failed to create clock record")
	}
	rec.ID = id
	s.metrics.IncRecordsCreated(rec.Action)

	resp := rec.toDTO()
	if rec.HasCoordinates() {
		resp.Address = s.resolver.Resolve(ctx, *rec.Latitude, *rec.Longitude).Address
	}
	return resp, nil
}

func validateCreate(in CreateClockRequest) (ClockRecord, error) {
	name := strings.TrimSpace(in.WorkerName)
	if name == "" {
		return ClockRecord{}, ErrInvalid("worker_name is required")
	}
	if in.Action != ActionCheckIn && in.Action != ActionCheckOut {
		return ClockRecord{}, ErrInvalid("action must be 'check-in' or 'check-out'")
	}
	if strings.TrimSpace(in.Timestamp) == "" {
		return ClockRecord{}, ErrInvalid("timestamp is required")
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return ClockRecord{}, ErrInvalid("latitude and longitude must be given together")
	}
	if in.Latitude != nil {
		if !finite(*in.Latitude) || math.Abs(*in.Latitude) > 90 {
			return ClockRecord{}, ErrInvalid("latitude out of range")
		}
		if !finite(*in.Longitude) || math.Abs(*in.Longitude) > 180 {
			return ClockRecord{}, ErrInvalid("longitude out of range")
		}
	}
	if in.Accuracy != nil && (!finite(*in.Accuracy) || *in.Accuracy < 0) {
		return ClockRecord{}, ErrInvalid("accuracy must be >= 0")
	}
	return ClockRecord{
		WorkerName: name,
		Action:     in.Action,
		Timestamp:  in.Timestamp,
		Latitude:   in.Latitude,
		Longitude:  in.Longitude,
		Accuracy:   in.Accuracy,
		FaceData:   in.FaceData,
	}, nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// GET /clock
// include_address 指定時は座標のある行ごとに 1 回住所解決する（行同士は独立なので並行）
func (s *Service) List(ctx context.Context, q ListQuery) ([]ClockRecordResponse, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultListLimit
	}
	if q.Limit > MaxListLimit {
		q.Limit = MaxListLimit
	}

	rows, err := s.store.List(ctx, ListFilter{WorkerName: strings.TrimSpace(q.WorkerName), Limit: q.Limit})
	if err != nil {
		s.log.ErrorContext(ctx, "list clock records", slog.String("error", err.Error()))
		return nil, ErrInternal("failed to list clock records")
	}

	out := make([]ClockRecordResponse, len(rows))
	for i := range rows {
		out[i] = rows[i].toDTO()
	}
	if !q.IncludeAddress {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range rows {
		i := i
		if !rows[i].HasCoordinates() {
			continue
		}
		lat, lon := *rows[i].Latitude, *rows[i].Longitude
		g.Go(func() error {
			out[i].Address = s.resolver.Resolve(gctx, lat, lon).Address
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

// GET /clock/:id
func (s *Service) Get(ctx context.Context, id int64, includeAddress bool) (ClockRecordResponse, error) {
	rec, err := s.get(ctx, id)
	if err != nil {
		return ClockRecordResponse{}, err
	}
	resp := rec.toDTO()
	if includeAddress && rec.HasCoordinates() {
		resp.Address = s.resolver.Resolve(ctx, *rec.Latitude, *rec.Longitude).Address
	}
	return resp, nil
}

func (s *Service) get(ctx context.Context, id int64) (ClockRecord, error) {
	if id <= 0 {
		return ClockRecord{}, ErrInvalid("invalid id")
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return ClockRecord{}, ErrNotFound("record not found")
		}
		s.log.ErrorContext(ctx, "get clock record", slog.Int64("id", id), slog.String("error", err.Error()))
		return ClockRecord{}, ErrInternal("failed to get clock record")
	}
	return rec, nil
}

// GET /clock/:id/image
// レコード無し・画像無しは NOT_FOUND、復号失敗はサーバ側エラー
func (s *Service) Image(ctx context.Context, id int64) (ImageResponse, error) {
	rec, err := s.get(ctx, id)
	if err != nil {
		return ImageResponse{}, err
	}
	if rec.EncryptedImage == nil || *rec.EncryptedImage == "" {
		return ImageResponse{}, ErrNotFound("image not found")
	}
	img, err := s.cipher.Open(*rec.EncryptedImage)
	if err != nil {
		s.log.ErrorContext(ctx, "decrypt image", slog.Int64("id", id), slog.String("error", err.Error()))
		return ImageResponse{}, ErrDecryption("decryption failed")
	}
	return ImageResponse{Image: photocipher.DataURL(photocipher.DefaultMIME, img), RecordID: id}, nil
}

// DELETE /clock/:id
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalid("invalid id")
	}
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		s.log.ErrorContext(ctx, "delete clock record", slog.Int64("id", id), slog.String("error", err.Error()))
		return ErrInternal("failed to delete clock record")
	}
	if !ok {
		return ErrNotFound("record not found")
	}
	s.metrics.AddRecordsDeleted(1)
	return nil
}

// POST /clock/bulk-delete
// 1 件ずつ削除し、失敗しても残りは続ける。deleted_count は実際に消えた件数のみ
func (s *Service) BulkDelete(ctx context.Context, ids []int64) (BulkDeleteResponse, error) {
	if len(ids) == 0 {
		return BulkDeleteResponse{}, ErrInvalid("ids is required")
	}
	if len(ids) > MaxBulkDelete {
		return BulkDeleteResponse{}, ErrInvalid(fmt.Sprintf("at most %d ids per request", MaxBulkDelete))
	}

	resp := BulkDeleteResponse{Requested: len(ids), FailedIDs: []int64{}}
	for _, id := range ids {
		if ctx.Err() != nil {
			resp.FailedIDs = append(resp.FailedIDs, id)
			continue
		}
		if id <= 0 {
			resp.FailedIDs = append(resp.FailedIDs, id)
			continue
		}
		ok, err := s.store.Delete(ctx, id)
		if err != nil {
			s.log.WarnContext(ctx, "bulk delete item failed", slog.Int64("id", id), slog.String("error", err.Error()))
			resp.FailedIDs = append(resp.FailedIDs, id)
			continue
		}
		if !ok {
			resp.FailedIDs = append(resp.FailedIDs, id)
			continue
		}
		resp.DeletedCount++
	}
	s.metrics.AddRecordsDeleted(resp.DeletedCount)
	s.log.InfoContext(ctx, "bulk delete done",
		slog.Int("requested", resp.Requested),
		slog.Int("deleted", resp.DeletedCount),
	)
	return resp, nil
}

// GET /clock/stats
func (s *Service) Stats(ctx context.Context, workerName string) (StatsResponse, error) {
	workerName = strings.TrimSpace(workerName)
	st, err := s.store.Stats(ctx, workerName)
	if err != nil {
		s.log.ErrorContext(ctx, "clock stats", slog.String("error", err.Error()))
		return StatsResponse{}, ErrInternal("failed to get stats")
	}
	resp := StatsResponse{TotalRecords: st.TotalRecords, CheckIns: st.CheckIns, CheckOuts: st.CheckOuts}
	if workerName != "" {
		resp.WorkerName = &workerName
	}
	return resp, nil
}
