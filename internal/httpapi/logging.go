package httpapi

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is the structured logger of the HTTP layer.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = l }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// defaultLogLevel is read once from the environment and may be replaced by
// SetDefaultLogLevel.
var defaultLogLevel = parseLevel(os.Getenv("MODELBRIDGE_HTTP_LOG_LEVEL"))

// SetDefaultLogLevel sets the level used when a request carries no override.
func SetDefaultLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// logStart records the start of a request at info level.
func logStart(r *http.Request, lvl LogLevel, op string) {
	if lvl < LevelInfo {
		return
	}
	z := zlog.Info().Str("path", r.URL.Path).Str("op", op)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	z.Msg("request start")
}

// logEnd records the outcome of a request. Failures are logged from
// LevelError up, successes from LevelInfo.
func logEnd(r *http.Request, lvl LogLevel, op string, status int, start time.Time, err error) {
	var z *zerolog.Event
	switch {
	case err != nil && lvl >= LevelError:
		z = zlog.Error().Err(err)
	case err == nil && lvl >= LevelInfo:
		z = zlog.Info()
	default:
		return
	}
	z = z.Str("op", op).Int("status", status).Dur("dur", time.Since(start))
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	z.Msg("request end")
}

// logToken traces streamed tokens at debug level.
func logToken(r *http.Request, lvl LogLevel, line string) {
	if lvl < LevelDebug {
		return
	}
	z := zlog.Debug().Str("line", line)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	z.Msg("stream>")
}
