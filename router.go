package main

import (
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"workclock-backend/internal/attendance"
	"workclock-backend/internal/dbmng"
	"workclock-backend/internal/platform/auth"
	"workclock-backend/internal/platform/config"
	"workclock-backend/internal/platform/requestid"
)

type services struct {
	attendance *attendance.Service
	dbmng      *dbmng.Service
	auth       *auth.Service
	jwtSecret  []byte
	metrics    http.Handler
}

func newRouter(cfg *config.Config, svc services, static fs.FS) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(requestid.Middleware(), gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.Server.AllowOrigins,
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", requestid.Header},
			ExposeHeaders:    []string{"Content-Length", requestid.Header},
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	if svc.metrics == nil {
		svc.metrics = promhttp.Handler()
	}
	r.GET("/metrics", gin.WrapH(svc.metrics))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/openapi.yaml")))

	guard := auth.Guard(svc.jwtSecret, cfg.Auth.DisableGuard, auth.RoleAdmin)

	api := r.Group("/api")
	admin := api.Group("/admin", guard...)

	attendance.RegisterRoutes(api, svc.attendance)
	attendance.RegisterAdminRoutes(api.Group("", guard...), svc.attendance)
	auth.RegisterRoutes(api, admin, svc.auth)
	dbmng.RegisterRoutes(admin, svc.dbmng)

	r.NoRoute(staticFallback(http.FS(static)))
	return r
}

// staticFallback: 埋め込みフロントを返す。無いパスは index.html（SPA）
func staticFallback(fileFS http.FileSystem) gin.HandlerFunc {
	return func(c *gin.Context) {
		// API は対象外
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "no such endpoint"}})
			return
		}

		reqPath := strings.TrimPrefix(c.Request.URL.Path, "/")
		if reqPath == "" {
			reqPath = "index.html"
		}

		// 実ファイルがあるならそれを返す（Content-Type を推測、キャッシュ付与）
		if f, err := fileFS.Open(reqPath); err == nil {
			defer f.Close()
			fileInfo, err := f.Stat()
			if err == nil && !fileInfo.IsDir() {
				if ct := mime.TypeByExtension(path.Ext(reqPath)); ct != "" {
					c.Header("Content-Type", ct)
				}
				if !strings.HasSuffix(reqPath, "index.html") {
					c.Header("Cache-Control", "public, max-age=86400, immutable")
				}
				http.ServeContent(c.Writer, c.Request, reqPath, fileInfo.ModTime(), f)
				return
			}
		}

		// なければ index.html にフォールバック
		if idx, err := fileFS.Open("index.html"); err == nil {
			defer idx.Close()
			c.Header("Content-Type", "text/html; charset=utf-8")
			if fileInfo, err := idx.Stat(); err == nil {
				http.ServeContent(c.Writer, c.Request, "index.html", fileInfo.ModTime(), idx)
			} else {
				c.Status(http.StatusInternalServerError)
			}
			return
		}

		c.Status(http.StatusNotFound)
	}
}
