// Package app 负责把配置、存储、服务和路由组装成一个 gin.Engine
package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/app/backend"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/app/handler"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/app/repository"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/app/service"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/config"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/handlers"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/pkg/logger"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/pkg/middleware"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/timer"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/pkg/mypubliclib/util"
)

// 每个游客每秒 5 次，突发 10 次
const (
	rateRPS   = 5
	rateBurst = 10
)

type Deps struct {
	Config *config.Config
	Log    *logger.Logger
	DB     *gorm.DB
	Clock  timer.Clock // 为空时使用系统时间
}

// NewRouter 构建完整的 HTTP 路由
func NewRouter(d Deps) (*gin.Engine, error) {
	cfg := d.Config

	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, err
	}
	hs := service.NewHealthService(sqlDB)
	ts := service.NewTimerService(
		repository.NewTimerRepository(d.DB),
		repository.NewRecordRepository(d.DB),
		backend.New(cfg.BackendURL, cfg.BackendToken, cfg.BackendRetries),
		service.Options{Clock: d.Clock, Log: d.Log, MinSeconds: cfg.MinSessionSec},
	)

	r := gin.New()
	r.Use(gin.Recovery())              // 捕获 panic 并返回 500
	r.Use(middleware.RequestID())      // X-Request-ID
	r.Use(util.Cors(cfg.AllowOrigins)) // CORS 跨域支持
	r.Use(middleware.AccessLog(d.Log)) // 访问日志
	r.Use(middleware.JWTAuth(cfg.JWTSecret))
	r.Use(middleware.Visitor()) // 为游客分配/识别 ID

	v1 := r.Group("/api/v1")
	// 健康检查端点不限流，给负载均衡器探测用
	v1.GET("/healthz", handler.NewHealthHandler(hs).Healthz)

	limited := v1.Group("", middleware.RateLimit(rateRPS, rateBurst))
	limited.POST("/guest-login", handler.GuestLogin(cfg.JWTSecret, cfg.JWTExpire))
	handlers.NewTimer(ts).Register(limited)

	return r, nil
}
