package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/timer"
)

// Config 命令行客户端的本地配置
type Config struct {
	Env      string
	StateDir string // 计时状态文件目录
	StateKey string
}

// Load 读取 .env（如果存在）并加载环境变量
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := os.Getenv("ENV")
	if env == "" {
		env = "dev"
	}
	dir := os.Getenv("STUDYTIMER_HOME")
	if dir == "" {
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("resolve home dir: %w", err)
			}
			base = filepath.Join(home, ".config")
		}
		dir = filepath.Join(base, "studytimer")
	}
	key := os.Getenv("STUDYTIMER_KEY")
	if key == "" {
		key = timer.DefaultKey
	}
	return &Config{Env: env, StateDir: dir, StateKey: key}, nil
}
