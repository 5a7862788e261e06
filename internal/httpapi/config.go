package httpapi

import (
	"context"
	"time"
)

const defaultMaxBodyBytes int64 = 1 << 20

// Options tunes the HTTP surface. Zero values select the defaults.
type Options struct {
	// BaseContext is canceled at process shutdown. Handler contexts end with
	// it or with the request, whichever comes first.
	BaseContext context.Context
	// MaxBodyBytes caps JSON request bodies (default 1MiB).
	MaxBodyBytes int64
	// CompleteTimeout bounds one /v1/complete call; zero disables it.
	CompleteTimeout time.Duration
	// LogLevel is the per-request level used when the request carries no
	// override: off, error, info or debug. Empty keeps the current level.
	LogLevel string
	CORS     CORSOptions
}

// CORSOptions is opt-in; with Enabled false no CORS middleware is mounted.
type CORSOptions struct {
	Enabled bool
	Origins []string
	Methods []string
	Headers []string
}

var settings = Options{}.normalized()

// Configure replaces the HTTP settings. Call it before NewMux.
func Configure(o Options) {
	settings = o.normalized()
	if o.LogLevel != "" {
		SetDefaultLogLevel(o.LogLevel)
	}
}

func (o Options) normalized() Options {
	if o.BaseContext == nil {
		o.BaseContext = context.Background()
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = defaultMaxBodyBytes
	}
	if o.CompleteTimeout < 0 {
		o.CompleteTimeout = 0
	}
	o.CORS.Origins = append([]string(nil), o.CORS.Origins...)
	o.CORS.Methods = append([]string(nil), o.CORS.Methods...)
	o.CORS.Headers = append([]string(nil), o.CORS.Headers...)
	return o
}
