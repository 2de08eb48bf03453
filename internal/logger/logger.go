package logger

import (
	"context"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	pkgctx "github.com/baechuer/taskflow/internal/pkg/context"
)

var Logger zerolog.Logger

// Init logs to stdout and, when LOG_FILE is set, also to a rotated file.
func Init() {
	var w io.Writer = os.Stdout
	if path := os.Getenv("LOG_FILE"); path != "" {
		w = io.MultiWriter(os.Stdout, fileWriter(path))
	}
	InitWithWriter(w)
}

func InitWithWriter(w io.Writer) {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	format := os.Getenv("LOG_FORMAT") // "json" or "console"
	if format == "" {
		format = "console"
	}

	if format == "json" {
		Logger = zerolog.New(w).With().Timestamp().Logger().Level(level)
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger().Level(level)
	}

	// set global
	zlog.Logger = Logger
}

func fileWriter(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    envInt("LOG_FILE_MAX_MB", 100),
		MaxBackups: envInt("LOG_FILE_MAX_BACKUPS", 5),
		MaxAge:     envInt("LOG_FILE_MAX_AGE_DAYS", 28),
		Compress:   true,
	}
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// WithCtx returns the global logger enriched with the request id and the
// caller's user id, if any.
func WithCtx(ctx context.Context) *zerolog.Logger {
	l := Logger
	if rid := pkgctx.GetRequestID(ctx); rid != "" {
		l = l.With().Str("request_id", rid).Logger()
	}
	if p, ok := pkgctx.PrincipalFrom(ctx); ok {
		l = l.With().Str("user_id", p.UserID).Logger()
	}
	return &l
}
