package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env       string        // 运行环境：dev 或 prod
	Addr      string        // 服务绑定地址，例如 :3001
	JWTSecret string        // 游客 token 签名密钥
	JWTExpire time.Duration // 游客 token 有效期

	// 数据库：postgres 或 sqlite
	DBDriver   string
	SQLitePath string
	PGUser     string
	PGPass     string
	PGDB       string
	PGHost     string
	PGPort     string

	// 学习记录后端，留空则只在本地保存
	BackendURL     string
	BackendToken   string
	BackendRetries int

	MinSessionSec int64    // 少于这个秒数的会话不允许提交
	AllowOrigins  []string // CORS 白名单
}

// Load 从 .env 文件和环境变量读取配置
// 优先级：环境变量 > .env 文件 > 默认值
func Load() (*Config, error) {
	_ = godotenv.Load()

	c := &Config{
		Env:            get("ENV", "dev"),
		Addr:           get("ADDR", ":3001"),
		JWTSecret:      get("JWT_SECRET", "dev-guest-secret"),
		JWTExpire:      getDuration("JWT_EXPIRE", 7*24*time.Hour),
		DBDriver:       get("DB_DRIVER", "sqlite"),
		SQLitePath:     get("SQLITE_PATH", "./data/studytimer.db"),
		PGUser:         get("PGUSER", "app"),
		PGPass:         get("PGPASSWORD", "app"),
		PGDB:           get("PGDATABASE", "appdb"),
		PGHost:         get("PGHOST", "localhost"),
		PGPort:         get("PGPORT", "5432"),
		BackendURL:     strings.TrimRight(get("BACKEND_URL", ""), "/"),
		BackendToken:   get("BACKEND_TOKEN", ""),
		BackendRetries: getInt("BACKEND_RETRIES", 3),
		MinSessionSec:  int64(getInt("MIN_SESSION_SEC", 1)),
		AllowOrigins: splitCSV(get("ALLOW_ORIGINS",
			"http://localhost:3000,http://127.0.0.1:3000,http://localhost:5173,http://127.0.0.1:5173")),
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

// Validate 检查取值是否合法
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("ADDR cannot be empty")
	}
	switch c.DBDriver {
	case "postgres":
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH cannot be empty")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	if c.Env != "dev" && c.JWTSecret == "dev-guest-secret" {
		return fmt.Errorf("JWT_SECRET must be set outside dev")
	}
	if c.JWTExpire <= 0 {
		return fmt.Errorf("JWT_EXPIRE must be > 0")
	}
	if c.BackendRetries < 0 {
		return fmt.Errorf("BACKEND_RETRIES must be >= 0")
	}
	if c.MinSessionSec < 1 {
		return fmt.Errorf("MIN_SESSION_SEC must be >= 1")
	}
	return nil
}

// IsDev 开发环境
func (c *Config) IsDev() bool { return c.Env == "dev" }

func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLitePath
	}
	// sslmode=disable 用于开发环境（生产环境应改为 require）
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.PGHost, c.PGUser, c.PGPass, c.PGDB, c.PGPort,
	)
}

// get 从环境变量获取值，如果为空则返回默认值
func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

func getDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return d
}

// splitCSV 按逗号切分并去掉首尾空白，忽略空项
func splitCSV(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
