package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"

	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/cli"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/pkg/config"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	// 日志写到 stderr，不干扰命令输出
	log := logger.New(os.Stderr, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(&cli.Env{
		Fs:  afero.NewOsFs(),
		Dir: cfg.StateDir,
		Key: cfg.StateKey,
		Log: log,
	})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
