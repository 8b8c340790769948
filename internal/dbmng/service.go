package dbmng

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"workclock-backend/internal/platform/metrics"
)

// ===== Error model =====
type Code string

const (
	CodeInvalidQuery         Code = "INVALID_QUERY"
	CodeForbiddenOperation   Code = "FORBIDDEN_OPERATION"
	CodeQueryExecutionFailed Code = "QUERY_EXECUTION_FAILED"
	CodeInternal             Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string            { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalidQuery(msg string) *APIError   { return &APIError{Code: CodeInvalidQuery, Message: msg} }
func ErrForbidden(msg string) *APIError      { return &APIError{Code: CodeForbiddenOperation, Message: msg} }
func ErrQueryExecution(msg string) *APIError { return &APIError{Code: CodeQueryExecutionFailed, Message: msg} }
func ErrInternal(msg string) *APIError       { return &APIError{Code: CodeInternal, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidQuery, CodeQueryExecutionFailed:
			return 400
		case CodeForbiddenOperation:
			return 403
		default:
			return 500
		}
	}
	return 500
}

// ===== Service =====

type Service struct {
	store   *Store
	maxRows int
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewService(conn *sql.DB, maxRows int, m *metrics.Metrics, logger *slog.Logger) *Service {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: NewStore(conn), maxRows: maxRows, metrics: m, log: logger.With("component", "dbmng")}
}

// Execute: 運用者向けの任意クエリ。キーワード検査は誤操作防止であってセキュリティ境界ではない
func (s *Service) Execute(ctx context.Context, query string, allowWrite bool) (*QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidQuery("query is required")
	}
	if err := checkPolicy(query, allowWrite); err != nil {
		s.log.WarnContext(ctx, "admin query rejected", slog.String("reason", err.Error()))
		return nil, err
	}

	res := &QueryResult{QueryID: ulid.Make().String()}
	start := time.Now()

	var err error
	if isProjection(query) {
		res.QueryType = QueryTypeSelect
		var truncated bool
		res.Columns, res.Rows, truncated, err = s.store.Select(ctx, query, s.maxRows)
		if err == nil {
			res.RowCount = len(res.Rows)
			if truncated {
				w := fmt.Sprintf("result truncated to %d rows", s.maxRows)
				res.Warning = &w
			}
		}
	} else {
		res.QueryType = QueryTypeModify
		var n int64
		n, err = s.store.Exec(ctx, query)
		if err == nil {
			res.AffectedRows = &n
			res.RowCount = int(n)
		}
	}

	elapsed := time.Since(start)
	res.ExecutionTimeMS = float64(elapsed.Microseconds()) / 1000.0

	if err != nil {
		s.metrics.ObserveQuery(res.QueryType, "error", elapsed)
		s.log.ErrorContext(ctx, "admin query failed",
			slog.String("query_id", res.QueryID),
			slog.String("error", err.Error()),
		)
		return nil, ErrQueryExecution(err.Error())
	}

	s.metrics.ObserveQuery(res.QueryType, "ok", elapsed)
	s.log.InfoContext(ctx, "admin query executed",
		slog.String("query_id", res.QueryID),
		slog.String("type", res.QueryType),
		slog.Int("row_count", res.RowCount),
		slog.Float64("elapsed_ms", res.ExecutionTimeMS),
	)
	return res, nil
}
