// Package logger ตั้งค่า slog กลางของ process พร้อม rotation ผ่าน lumberjack
// และดึง request_id / video_id จาก context มาใส่ทุก log line
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"course-video-service/pkg/config"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	VideoIDKey   contextKey = "video_id"
	AttemptKey   contextKey = "attempt"
)

var (
	defaultLogger *slog.Logger
	fileWriter    *lumberjack.Logger
)

// Init สร้าง logger จาก config, service = "api" หรือ "worker"
func Init(cfg config.LogConfig, service string) error {
	var writers []io.Writer

	output := strings.ToLower(cfg.Output)
	if output == "" || output == "stdout" || output == "both" {
		writers = append(writers, os.Stdout)
	}

	if output == "file" || output == "both" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return err
		}
		fileWriter = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		writers = append(writers, fileWriter)
	}

	defaultLogger = slog.New(newHandler(io.MultiWriter(writers...), cfg)).With("service", service)
	slog.SetDefault(defaultLogger)
	return nil
}

func newHandler(w io.Writer, cfg config.LogConfig) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: parseLevel(cfg.Level) == slog.LevelDebug,
	}
	if strings.ToLower(cfg.Format) == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// Close flush/close log file (ถ้าเขียนลงไฟล์)
func Close() error {
	if fileWriter == nil {
		return nil
	}
	return fileWriter.Close()
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetLogger fallback เป็น slog.Default ถ้ายังไม่ได้ Init (เช่นใน tests)
func GetLogger() *slog.Logger {
	if defaultLogger == nil {
		return slog.Default()
	}
	return defaultLogger
}

// FromContext logger ที่มี attribute จาก context แล้ว
func FromContext(ctx context.Context) *slog.Logger {
	l := GetLogger()
	if ctx == nil {
		return l
	}
	if v, ok := ctx.Value(RequestIDKey).(string); ok && v != "" {
		l = l.With("request_id", v)
	}
	if v, ok := ctx.Value(VideoIDKey).(string); ok && v != "" {
		l = l.With("video_id", v)
	}
	if v, ok := ctx.Value(AttemptKey).(int); ok && v > 0 {
		l = l.With("attempt", v)
	}
	return l
}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// ContextWithJob ใช้ฝั่ง worker ให้ log ทุกบรรทัดของ job มี video_id และ attempt
func ContextWithJob(ctx context.Context, videoID string, attempt int) context.Context {
	ctx = context.WithValue(ctx, VideoIDKey, videoID)
	return context.WithValue(ctx, AttemptKey, attempt)
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

func Debug(msg string, args ...any) { GetLogger().Debug(msg, args...) }
func Info(msg string, args ...any)  { GetLogger().Info(msg, args...) }
func Warn(msg string, args ...any)  { GetLogger().Warn(msg, args...) }
func Error(msg string, args ...any) { GetLogger().Error(msg, args...) }

func DebugContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).DebugContext(ctx, msg, args...)
}

func InfoContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).InfoContext(ctx, msg, args...)
}

func WarnContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).WarnContext(ctx, msg, args...)
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).ErrorContext(ctx, msg, args...)
}
