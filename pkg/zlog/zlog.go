package zlog

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

func init() {
	logger = zap.New(zapcore.NewCore(encoder(), zapcore.AddSync(os.Stdout), zapcore.InfoLevel), zap.AddCaller(), zap.AddCallerSkip(1))
}

// Options 日志初始化参数
type Options struct {
	LogPath    string // 日志文件路径，为空时仅输出到控制台
	Level      string // debug/info/warn/error
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Init 按配置重建全局 logger：控制台 + lumberjack 滚动文件
func Init(opt Options) {
	level := parseLevel(opt.Level)
	cores := []zapcore.Core{
		zapcore.NewCore(encoder(), zapcore.AddSync(os.Stdout), level),
	}

	if path := strings.TrimSpace(opt.LogPath); path != "" {
		_ = os.MkdirAll(filepath.Dir(path), 0o755)
		if opt.MaxSizeMB <= 0 {
			opt.MaxSizeMB = 100
		}
		if opt.MaxBackups <= 0 {
			opt.MaxBackups = 10
		}
		if opt.MaxAgeDays <= 0 {
			opt.MaxAgeDays = 30
		}
		writer := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    opt.MaxSizeMB,
			MaxBackups: opt.MaxBackups,
			MaxAge:     opt.MaxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(writer), level))
	}

	logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
}

// Sync 刷新缓冲
func Sync() {
	_ = logger.Sync()
}

func Debug(msg string, fields ...zap.Field) {
	logger.Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	logger.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	logger.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	logger.Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	logger.Fatal(msg, fields...)
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func encoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(encoderConfig())
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
