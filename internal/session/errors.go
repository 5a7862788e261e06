package session

import (
	"errors"
	"strings"
	"unicode"
)

// alreadyDownloadingError signals a second Download while one is in flight.
type alreadyDownloadingError struct{ modelID string }

func (e alreadyDownloadingError) Error() string { return "download already in progress: " + e.modelID }

// ErrAlreadyDownloading constructs an alreadyDownloadingError.
func ErrAlreadyDownloading(modelID string) error { return alreadyDownloadingError{modelID: modelID} }

// IsAlreadyDownloading reports whether err indicates a concurrent download (return 409).
func IsAlreadyDownloading(err error) bool {
	var e alreadyDownloadingError
	return errors.As(err, &e)
}

// alreadyGeneratingError signals a completion or embedding while another is in flight.
type alreadyGeneratingError struct{}

func (alreadyGeneratingError) Error() string { return "generation already in progress" }

func ErrAlreadyGenerating() error { return alreadyGeneratingError{} }

// IsAlreadyGenerating reports whether err indicates a concurrent generation (return 409).
func IsAlreadyGenerating(err error) bool {
	var e alreadyGeneratingError
	return errors.As(err, &e)
}

// modelNotDownloadedError is returned by Init when the model file is absent locally.
type modelNotDownloadedError struct{ id string }

func (e modelNotDownloadedError) Error() string { return "model not downloaded: " + e.id }

func ErrModelNotDownloaded(id string) error { return modelNotDownloadedError{id: id} }

// IsModelNotDownloaded reports whether the error indicates a missing local model.
func IsModelNotDownloaded(err error) bool {
	var e modelNotDownloadedError
	return errors.As(err, &e)
}

// nativeEngineFailureError wraps an opaque engine error. The message is
// sanitized; the cause stays reachable through Unwrap.
type nativeEngineFailureError struct {
	op    string
	msg   string
	cause error
}

func (e nativeEngineFailureError) Error() string {
	return "native engine failure (" + e.op + "): " + e.msg
}

func (e nativeEngineFailureError) Unwrap() error { return e.cause }

// ErrNativeEngineFailure wraps cause as a failure of the native operation op.
func ErrNativeEngineFailure(op string, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = sanitize(cause.Error())
	}
	return nativeEngineFailureError{op: op, msg: msg, cause: cause}
}

// IsNativeEngineFailure reports whether err came from the native engine (return 502).
func IsNativeEngineFailure(err error) bool {
	var e nativeEngineFailureError
	return errors.As(err, &e)
}

// dependencyUnavailableError signals a missing external dependency (e.g., llama.cpp)
// so the HTTP layer can return 503 Service Unavailable instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var e dependencyUnavailableError
	return errors.As(err, &e)
}

const maxErrorMessage = 512

// sanitize collapses control characters to spaces and bounds the length.
func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if len(s) > maxErrorMessage {
		s = s[:maxErrorMessage] + "..."
	}
	if s == "" {
		return "unknown error"
	}
	return s
}
