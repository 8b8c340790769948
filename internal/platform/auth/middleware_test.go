package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workclock-backend/internal/platform/requestid"
)

func signed(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, key any) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func guardedRouter(disabled bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestid.Middleware())
	g := r.Group("/admin", Guard(testSecret, disabled, RoleAdmin)...)
	g.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CtxUserIDKey)) })
	return r
}

func call(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGuard(t *testing.T) {
	r := guardedRouter(false)
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"garbage", "abc.def.ghi", http.StatusUnauthorized},
		{"wrong secret", signed(t, jwt.MapClaims{"sub": "a", "role": RoleAdmin, "exp": exp}, jwt.SigningMethodHS256, []byte("other")), http.StatusUnauthorized},
		{"expired", signed(t, jwt.MapClaims{"sub": "a", "role": RoleAdmin, "exp": time.Now().Add(-time.Minute).Unix()}, jwt.SigningMethodHS256, testSecret), http.StatusUnauthorized},
		{"no exp", signed(t, jwt.MapClaims{"sub": "a", "role": RoleAdmin}, jwt.SigningMethodHS256, testSecret), http.StatusUnauthorized},
		{"wrong alg", signed(t, jwt.MapClaims{"sub": "a", "role": RoleAdmin, "exp": exp}, jwt.SigningMethodHS512, testSecret), http.StatusUnauthorized},
		{"no sub", signed(t, jwt.MapClaims{"role": RoleAdmin, "exp": exp}, jwt.SigningMethodHS256, testSecret), http.StatusUnauthorized},
		{"no role", signed(t, jwt.MapClaims{"sub": "a", "exp": exp}, jwt.SigningMethodHS256, testSecret), http.StatusForbidden},
		{"user role", signed(t, jwt.MapClaims{"sub": "a", "role": RoleUser, "exp": exp}, jwt.SigningMethodHS256, testSecret), http.StatusForbidden},
		{"admin", signed(t, jwt.MapClaims{"sub": "a", "role": RoleAdmin, "exp": exp}, jwt.SigningMethodHS256, testSecret), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(r, tt.token)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestGuard_Disabled(t *testing.T) {
	w := call(guardedRouter(true), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGuard_DenialIsLoggedWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	exp := time.Now().Add(time.Hour).Unix()
	token := signed(t, jwt.MapClaims{"sub": "clerk", "role": RoleUser, "exp": exp}, jwt.SigningMethodHS256, testSecret)

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(requestid.Header, "req-42")
	w := httptest.NewRecorder()
	guardedRouter(false).ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	assert.Equal(t, "access denied", entry["msg"])
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "clerk", entry["operator"])
	assert.Equal(t, RoleUser, entry["role"])
	assert.Equal(t, "/admin/ping", entry["path"])
	assert.EqualValues(t, http.StatusForbidden, entry["status"])
}

func TestGuard_TokenFromLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, "boss", "long-enough", RoleAdmin))
	token, err := svc.Login(ctx, "boss", "long-enough")
	require.NoError(t, err)

	w := call(guardedRouter(false), token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "boss", w.Body.String())
}
