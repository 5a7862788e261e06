package httpapi

import (
	"io"
	"net/http"
)

// ndjsonWriter emits one JSON document per line. The 200 status and content
// type are committed with the first line, so errors raised before any line
// can still use a proper status code.
type ndjsonWriter struct {
	w       http.ResponseWriter
	op      string
	flush   func()
	started bool
}

func newNDJSON(w http.ResponseWriter, op string) *ndjsonWriter {
	nw := &ndjsonWriter{w: w, op: op, flush: func() {}}
	if f, ok := w.(http.Flusher); ok {
		nw.flush = f.Flush
	}
	return nw
}

func (nw *ndjsonWriter) line(s string) {
	if !nw.started {
		nw.w.Header().Set("Content-Type", "application/x-ndjson")
		nw.w.WriteHeader(http.StatusOK)
		nw.started = true
	}
	_, _ = io.WriteString(nw.w, s+"\n")
	nw.flush()
	streamedLines.WithLabelValues(nw.op).Inc()
}
