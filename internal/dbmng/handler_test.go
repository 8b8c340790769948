package dbmng

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group("/api/admin"), newService(newSQLite(t)))
	return r
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/query", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_Execute(t *testing.T) {
	r := newRouter(t)

	w := post(r, `{"query": "SELECT COUNT(*) AS n FROM records"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res QueryResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, QueryTypeSelect, res.QueryType)
	assert.Equal(t, []string{"n"}, res.Columns)
	assert.EqualValues(t, 0, res.Rows[0]["n"])
}

func TestHandler_Errors(t *testing.T) {
	r := newRouter(t)

	tests := []struct {
		body string
		code int
		err  Code
	}{
		{`{`, http.StatusBadRequest, CodeInvalidQuery},
		{`{"query": "DELETE FROM records"}`, http.StatusForbidden, CodeForbiddenOperation},
		{`{"query": "DROP TABLE records", "allow_write": true}`, http.StatusForbidden, CodeForbiddenOperation},
		{`{"query": "SELEC 1"}`, http.StatusBadRequest, CodeQueryExecutionFailed},
	}
	for _, tt := range tests {
		w := post(r, tt.body)
		assert.Equal(t, tt.code, w.Code, tt.body)

		var body errorDTO
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tt.err, body.Error.Code, tt.body)
	}
}
