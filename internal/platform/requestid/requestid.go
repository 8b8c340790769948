package requestid

import (
	"crypto/rand"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

const (
	Header = "X-Request-ID"
	CtxKey = "request_id"
)

// New: ULID を発行する
func New() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), entropy)
	if err != nil {
		return ulid.Make().String()
	}
	return id.String()
}

// Middleware: 受け取った X-Request-ID を引き継ぎ、無ければ発行してレスポンスにも付与する
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" || len(id) > 64 {
			id = New()
		}
		c.Set(CtxKey, id)
		c.Header(Header, id)
		c.Next()
	}
}

// From: gin.Context から取り出す（未設定なら空文字）
func From(c *gin.Context) string {
	return c.GetString(CtxKey)
}
