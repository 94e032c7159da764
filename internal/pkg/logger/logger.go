package logger

import (
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Logger 对 charmbracelet/log 的一层包装，保留项目里用到的方法
type Logger struct {
	l *charmlog.Logger
}

// Init 按环境创建日志器：dev 输出文本并打开 debug，其余输出 JSON
func Init(env string) *Logger {
	return New(os.Stdout, env)
}

// New 可以指定输出位置，测试里用
func New(w io.Writer, env string) *Logger {
	opts := charmlog.Options{
		ReportTimestamp: true,
		Level:           charmlog.InfoLevel,
		Formatter:       charmlog.JSONFormatter,
	}
	if env == "dev" {
		opts.Level = charmlog.DebugLevel
		opts.Formatter = charmlog.TextFormatter
	}
	return &Logger{l: charmlog.NewWithOptions(w, opts)}
}

func (l *Logger) Info(msg string, kvs ...interface{}) {
	l.l.Info(msg, kvs...)
}

func (l *Logger) Debug(msg string, kvs ...interface{}) {
	l.l.Debug(msg, kvs...)
}

func (l *Logger) Warn(msg string, kvs ...interface{}) {
	l.l.Warn(msg, kvs...)
}

func (l *Logger) Error(msg string, kvs ...interface{}) {
	l.l.Error(msg, kvs...)
}

func (l *Logger) Fatal(msg string, kvs ...interface{}) {
	l.l.Error(msg, kvs...)
	os.Exit(1)
}

// With 返回带固定字段的子日志器
func (l *Logger) With(kvs ...interface{}) *Logger {
	return &Logger{l: l.l.With(kvs...)}
}

func (l *Logger) Sync() error { return nil }
