package dbmng

const (
	QueryTypeSelect = "SELECT"
	QueryTypeModify = "MODIFY"

	DefaultMaxRows = 1000
)

type QueryRequest struct {
	Query      string `json:"query" binding:"required"`
	AllowWrite bool   `json:"allow_write"`
}

// QueryResult: SELECT なら Columns/Rows、それ以外は AffectedRows
type QueryResult struct {
	QueryID         string           `json:"query_id"`
	QueryType       string           `json:"query_type"`
	Columns         []string         `json:"columns,omitempty"`
	Rows            []map[string]any `json:"rows,omitempty"`
	RowCount        int              `json:"row_count"`
	AffectedRows    *int64           `json:"affected_rows,omitempty"`
	Warning         *string          `json:"warning,omitempty"`
	ExecutionTimeMS float64          `json:"execution_time_ms"`
}
