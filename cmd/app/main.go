package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/app"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/config"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/database"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.Init(cfg.Env)
	defer func() { _ = log.Sync() }()

	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化数据库连接并运行迁移（AutoMigrate 会自动创建表及索引）
	db, err := database.InitGorm(cfg)
	if err != nil {
		log.Fatal("db init failed", "driver", cfg.DBDriver, "error", err)
	}

	r, err := app.NewRouter(app.Deps{Config: cfg, Log: log, DB: db})
	if err != nil {
		log.Fatal("router init failed", "error", err)
	}
	if cfg.BackendURL == "" {
		log.Warn("BACKEND_URL not set, records are only kept locally")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 启动服务器
	go func() {
		log.Info("starting server", "addr", cfg.Addr, "env", cfg.Env, "db", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server stopped")
}
