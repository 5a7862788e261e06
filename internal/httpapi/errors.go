package httpapi

import (
	"net/http"

	"modelbridge/internal/envelope"
	"modelbridge/internal/session"
	"modelbridge/internal/wire"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps well-known session and parser errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case wire.IsMalformedPayload(err):
		return http.StatusBadRequest
	case session.IsModelNotDownloaded(err):
		return http.StatusNotFound
	case session.IsAlreadyGenerating(err):
		IncrementBusy("generating")
		return http.StatusConflict
	case session.IsAlreadyDownloading(err):
		IncrementBusy("downloading")
		return http.StatusConflict
	case session.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable
	case session.IsNativeEngineFailure(err):
		return http.StatusBadGateway
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// writeErrorEnvelope writes the sanitized error envelope.
func writeErrorEnvelope(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(envelope.RenderError(msg) + "\n"))
}
