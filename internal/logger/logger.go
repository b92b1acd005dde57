package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	appCtx "github.com/omnisphere/auth-service/internal/pkg/context"
)

// Logger is the process-wide logger, configured once at startup by Init.
var Logger zerolog.Logger

func Init() {
	InitWithWriter(os.Stdout)
}

// InitWithWriter configures the logger from LOG_LEVEL and LOG_FORMAT
// ("json" or "console"). Unknown levels fall back to info.
func InitWithWriter(w io.Writer) {
	level, err := zerolog.ParseLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}

	out := w
	if envOr("LOG_FORMAT", "console") != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	Logger = zerolog.New(out).With().Timestamp().Logger().Level(level)
	zlog.Logger = Logger
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// WithCtx returns the logger annotated with the request id, when present.
func WithCtx(ctx context.Context) *zerolog.Logger {
	if id := appCtx.GetRequestID(ctx); id != "" {
		l := Logger.With().Str("request_id", id).Logger()
		return &l
	}
	return &Logger
}
