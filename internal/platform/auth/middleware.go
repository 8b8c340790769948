package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"workclock-backend/internal/platform/requestid"
)

const (
	CtxUserIDKey = "user_id"
	CtxRoleKey   = "role"
)

// OperatorClaims: ログイン時に発行する JWT の中身
type OperatorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RequireAuth: Authorization: Bearer <token> を検証して context に sub/role を詰める
func RequireAuth(secret []byte) gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), // alg 固定（none 含め他は拒否）
		jwt.WithExpirationRequired(),
	)
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(c *gin.Context) {
		tokenStr, reason := bearerToken(c.GetHeader("Authorization"))
		if reason != "" {
			deny(c, http.StatusUnauthorized, "UNAUTHENTICATED", reason)
			return
		}

		var claims OperatorClaims
		token, err := parser.ParseWithClaims(tokenStr, &claims, keyFunc)
		if err != nil || !token.Valid {
			deny(c, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid token")
			return
		}
		if claims.Subject == "" {
			deny(c, http.StatusUnauthorized, "UNAUTHENTICATED", "missing sub")
			return
		}

		c.Set(CtxUserIDKey, claims.Subject)
		c.Set(CtxRoleKey, claims.Role)
		c.Next()
	}
}

// bearerToken: 失敗時は理由を返す
func bearerToken(h string) (string, string) {
	if h == "" {
		return "", "missing Authorization header"
	}
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid Authorization header"
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return "", "empty token"
	}
	return tok, ""
}

// RequireRole: 例) 打刻の削除・管理クエリは admin のみ
func RequireRole(roles ...string) gin.HandlerFunc {
	roleSet := make(map[string]struct{})
	for _, r := range roles {
		if r == "" {
			continue
		}
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		_, role := Operator(c)
		if role == "" {
			deny(c, http.StatusForbidden, "FORBIDDEN", "missing role")
			return
		}
		if _, allowed := roleSet[role]; !allowed {
			deny(c, http.StatusForbidden, "FORBIDDEN", "forbidden")
			return
		}
		c.Next()
	}
}

// Operator: 認証済みオペレーターの id と role（未認証なら空文字）
func Operator(c *gin.Context) (id, role string) {
	return c.GetString(CtxUserIDKey), c.GetString(CtxRoleKey)
}

// deny: 拒否は request_id 付きで WARN に残す
func deny(c *gin.Context, status int, code, reason string) {
	id, role := Operator(c)
	slog.Default().WarnContext(c.Request.Context(), "access denied",
		slog.String("component", "auth"),
		slog.String("request_id", requestid.From(c)),
		slog.String("method", c.Request.Method),
		slog.String("path", c.FullPath()),
		slog.Int("status", status),
		slog.String("reason", reason),
		slog.String("operator", id),
		slog.String("role", role),
	)
	c.AbortWithStatusJSON(status, errorBody(code, reason))
}

// Guard: 管理系ルート用のミドルウェア列。disabled=true なら素通し（ローカル開発用）
func Guard(secret []byte, disabled bool, roles ...string) []gin.HandlerFunc {
	if disabled {
		return []gin.HandlerFunc{func(c *gin.Context) { c.Next() }}
	}
	return []gin.HandlerFunc{RequireAuth(secret), RequireRole(roles...)}
}
