package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

type DatabaseConfig struct {
	Driver   string `yaml:"driver"   env:"DATABASE_DRIVER"   env-default:"sqlite"`
	URL      string `yaml:"url"      env:"DATABASE_URL"`
	DSN      string `yaml:"dsn"      env:"DATABASE_DSN"`
	Host     string `yaml:"host"     env:"DATABASE_HOST"     env-default:"127.0.0.1"`
	Port     int    `yaml:"port"     env:"DATABASE_PORT"     env-default:"3306"`
	Username string `yaml:"user"     env:"DATABASE_USER"`
	Password string `yaml:"password" env:"DATABASE_PASSWORD"`
	DBName   string `yaml:"dbname"   env:"DATABASE_NAME"     env-default:"worker_clock"`
}

type Certs struct {
	Cert string `yaml:"cert" env:"TLS_CERT"`
	Key  string `yaml:"key"  env:"TLS_KEY"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"             env:"SERVER_ADDR"             env-default:":8000"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	AllowOrigins    []string      `yaml:"allow_origins"    env:"CORS_ALLOW_ORIGINS"      env-default:"http://localhost:3000"`
}

// CryptoConfig: 写真暗号化キー。空なら起動時に一時キーを生成する
type CryptoConfig struct {
	EncryptionKey string `yaml:"encryption_key" env:"ENCRYPTION_KEY"`
}

type GeocodeConfig struct {
	PrimaryBaseURL      string        `yaml:"primary_base_url"            env:"GEOCODE_PRIMARY_URL"        env-default:"https://nominatim.openstreetmap.org"`
	UserAgent           string        `yaml:"user_agent"                  env:"GEOCODE_USER_AGENT"         env-default:"WorkersClockApp/1.0"`
	SecondaryBaseURL    string        `yaml:"secondary_base_url"          env:"GEOCODE_SECONDARY_URL"      env-default:"https://maps.googleapis.com"`
	SecondaryAPIKey     string        `yaml:"secondary_api_key"           env:"GOOGLE_MAPS_API_KEY"`
	Timeout             time.Duration `yaml:"timeout"                     env:"GEOCODE_TIMEOUT"            env-default:"5s"`
	SecondaryPrecedence string        `yaml:"secondary_precedence"        env:"GEOCODE_SECONDARY_PRECEDENCE" env-default:"override"`
	ListConcurrency     int           `yaml:"list_concurrency"            env:"GEOCODE_LIST_CONCURRENCY"   env-default:"4"`
}

// SecondaryOverrides: "override"（既定）なら二次プロバイダの整形済み住所で置き換える。"splice" なら郵便番号だけ差し込む
func (g GeocodeConfig) SecondaryOverrides() bool {
	return g.SecondaryPrecedence != "splice"
}

type GatewayConfig struct {
	MaxRows int `yaml:"max_rows" env:"QUERY_MAX_ROWS" env-default:"1000"`
}

type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"     env:"AUTH_JWT_SECRET"`
	TokenTTL      time.Duration `yaml:"token_ttl"      env:"AUTH_TOKEN_TTL"          env-default:"24h"`
	BootstrapID   string        `yaml:"bootstrap_id"   env:"AUTH_BOOTSTRAP_ID"`
	BootstrapPass string        `yaml:"bootstrap_pass" env:"AUTH_BOOTSTRAP_PASSWORD"`
	DisableGuard  bool          `yaml:"disable_guard"  env:"AUTH_DISABLE_GUARD"`
}

type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

type Config struct {
	Version     string         `yaml:"version"`
	Mode        string         `yaml:"mode"        env:"APP_MODE" env-default:"dev"`
	Server      ServerConfig   `yaml:"server"`
	DB          DatabaseConfig `yaml:"database"`
	Certificate Certs          `yaml:"certificate"`
	Crypto      CryptoConfig   `yaml:"crypto"`
	Geocode     GeocodeConfig  `yaml:"geocode"`
	Gateway     GatewayConfig  `yaml:"gateway"`
	Auth        AuthConfig     `yaml:"auth"`
	Log         LogConfig      `yaml:"log"`
}

// LoadConfig: YAML → ENV の順で上書き。CONFIG_PATH が明示されていてファイルが無い場合のみエラー
func LoadConfig(path string) (*Config, error) {
	explicit := os.Getenv("CONFIG_PATH")
	if explicit != "" {
		path = explicit
	}

	var cfg Config
	buf, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return nil, fmt.Errorf("設定ファイルのパース失敗: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && explicit == "":
		// ファイルなし: ENV + デフォルトのみ
	default:
		return nil, fmt.Errorf("設定ファイルの読み込み失敗: %w", err)
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("環境変数の読み込み失敗: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Mode != "dev" && c.Mode != "release" {
		return fmt.Errorf("mode must be dev or release, got %q", c.Mode)
	}
	if c.DB.URL != "" {
		driver, dsn, err := ParseDatabaseURL(c.DB.URL)
		if err != nil {
			return err
		}
		c.DB.Driver, c.DB.DSN = driver, dsn
	}
	switch c.DB.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.DB.Driver)
	}
	if c.Gateway.MaxRows <= 0 {
		return errors.New("gateway.max_rows must be > 0")
	}
	switch c.Geocode.SecondaryPrecedence {
	case "override", "splice":
	default:
		return fmt.Errorf("geocode.secondary_precedence must be override or splice, got %q", c.Geocode.SecondaryPrecedence)
	}
	if c.Geocode.Timeout <= 0 {
		return errors.New("geocode.timeout must be > 0")
	}
	return nil
}

// ParseDatabaseURL: DATABASE_URL 形式 (sqlite:///file.db, postgres://..., mysql://...) をドライバ名とDSNに分解
func ParseDatabaseURL(raw string) (driver string, dsn string, err error) {
	switch {
	case strings.HasPrefix(raw, "sqlite://"):
		p := strings.TrimPrefix(raw, "sqlite://")
		// sqlite:///worker_clock.db → worker_clock.db, sqlite:////abs/x.db → /abs/x.db
		p = strings.TrimPrefix(p, "/")
		if p == "" {
			return "", "", errors.New("sqlite url has no path")
		}
		return "sqlite", p, nil
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return "postgres", raw, nil
	case strings.HasPrefix(raw, "mysql://"):
		u, err := url.Parse(raw)
		if err != nil {
			return "", "", fmt.Errorf("invalid mysql url: %w", err)
		}
		mc := mysql.NewConfig()
		mc.Net = "tcp"
		mc.Addr = u.Host
		mc.DBName = strings.TrimPrefix(u.Path, "/")
		if u.User != nil {
			mc.User = u.User.Username()
			mc.Passwd, _ = u.User.Password()
		}
		mc.ParseTime = true
		mc.Loc = time.UTC
		return "mysql", mc.FormatDSN(), nil
	}
	return "", "", fmt.Errorf("unsupported database url scheme: %q", raw)
}
