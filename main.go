package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"workclock-backend/internal/attendance"
	"workclock-backend/internal/dbmng"
	"workclock-backend/internal/geocode"
	"workclock-backend/internal/photocipher"
	"workclock-backend/internal/platform/auth"
	"workclock-backend/internal/platform/config"
	"workclock-backend/internal/platform/db"
	"workclock-backend/internal/platform/logger"
	"workclock-backend/internal/platform/metrics"
)

// フロントのビルド出力と OpenAPI 定義を埋め込む
// "//go:embed public" ← これはビルドに必要なので消さないこと
//
//go:embed public
var embedded embed.FS

func main() {
	// .env は任意
	_ = godotenv.Load()

	// 設定読み込み
	cfg, err := config.LoadConfig(config.DefaultPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.New(cfg.Mode, cfg.Log)
	log.Info("starting", "mode", cfg.Mode, "version", cfg.Version)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, dialect, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Info("connected to DB", "driver", dialect.DriverName())

	if err := db.Migrate(ctx, conn, dialect); err != nil {
		return err
	}

	m := metrics.New()

	cipher, err := newCipher(cfg.Crypto, log)
	if err != nil {
		return err
	}

	resolver := newResolver(cfg.Geocode, m, log)

	records := attendance.NewService(
		attendance.NewSQLStore(conn, dialect),
		cipher,
		resolver,
		attendance.WithLogger(log),
		attendance.WithMetrics(m),
		attendance.WithListConcurrency(cfg.Geocode.ListConcurrency),
	)
	gateway := dbmng.NewService(conn, cfg.Gateway.MaxRows, m, log)

	secret, err := jwtSecret(cfg.Auth, log)
	if err != nil {
		return err
	}
	accounts := auth.NewService(auth.NewStore(conn, dialect), secret, cfg.Auth.TokenTTL)
	if cfg.Auth.BootstrapID != "" && cfg.Auth.BootstrapPass != "" {
		if err := accounts.EnsureAccount(ctx, cfg.Auth.BootstrapID, cfg.Auth.BootstrapPass, auth.RoleAdmin, log); err != nil {
			return err
		}
	}
	if cfg.Auth.DisableGuard {
		log.Warn("admin guard disabled")
	}

	static, err := fs.Sub(embedded, "public")
	if err != nil {
		return err
	}

	r := newRouter(cfg, services{
		attendance: records,
		dbmng:      gateway,
		auth:       accounts,
		jwtSecret:  secret,
	}, static)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.Certificate.Cert != "" && cfg.Certificate.Key != "" {
			certFile := fmt.Sprintf("config/tls/%s/%s", cfg.Mode, cfg.Certificate.Cert)
			keyFile := fmt.Sprintf("config/tls/%s/%s", cfg.Mode, cfg.Certificate.Key)
			log.Info("listening", "addr", cfg.Server.Addr, "tls", true)
			err = srv.ListenAndServeTLS(certFile, keyFile)
		} else {
			log.Info("listening", "addr", cfg.Server.Addr, "tls", false)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown
	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newCipher: キー未設定なら一時キーを生成（再起動で過去の写真は復号できなくなる）
func newCipher(c config.CryptoConfig, log *slog.Logger) (*photocipher.Cipher, error) {
	if c.EncryptionKey != "" {
		return photocipher.New(c.EncryptionKey)
	}
	cipher, _, err := photocipher.Generate()
	if err != nil {
		return nil, err
	}
	log.Warn("ENCRYPTION_KEY not set; using an ephemeral key, stored images will be unreadable after restart")
	return cipher, nil
}

func newResolver(c config.GeocodeConfig, m *metrics.Metrics, log *slog.Logger) *geocode.Resolver {
	client := &http.Client{Timeout: c.Timeout}
	primary := geocode.NewNominatimProvider(c.PrimaryBaseURL, c.UserAgent, client, log)

	// キーが無ければ二次は使わない（nil interface のまま渡す）
	var secondary geocode.Provider
	if c.SecondaryAPIKey != "" {
		secondary = geocode.NewGoogleProvider(c.SecondaryBaseURL, c.SecondaryAPIKey, client, log)
	} else {
		log.Info("secondary geocoder disabled: no API key")
	}

	return geocode.NewResolver(primary, secondary, geocode.Options{
		Timeout:                   c.Timeout,
		SecondaryOverridesAddress: c.SecondaryOverrides(),
		Metrics:                   m,
		Logger:                    log,
	})
}

func jwtSecret(c config.AuthConfig, log *slog.Logger) ([]byte, error) {
	if c.JWTSecret != "" {
		return []byte(c.JWTSecret), nil
	}
	log.Warn("AUTH_JWT_SECRET not set; generating an ephemeral secret, tokens will not survive restart")
	return auth.GenerateSecret()
}
