package session

import (
	"strings"
	"time"
)

// tokenStream delivers tokens in order to the accumulator and, when set,
// the caller callback. It holds nothing beyond the current token.
type tokenStream struct {
	buf     strings.Builder
	onToken func(string)
	stopped func() bool
	count   int
	first   time.Time
}

func newTokenStream(capacity int, onToken func(string), stopped func() bool) *tokenStream {
	s := &tokenStream{onToken: onToken, stopped: stopped}
	if capacity > 0 {
		s.buf.Grow(capacity)
	}
	if s.stopped == nil {
		s.stopped = func() bool { return false }
	}
	return s
}

// deliver is the engine's token callback. It reports whether generation
// should continue.
func (s *tokenStream) deliver(tok string) bool {
	if s.count == 0 {
		s.first = time.Now()
	}
	s.count++
	s.buf.WriteString(tok)
	if s.onToken != nil {
		s.onToken(tok)
	}
	return !s.stopped()
}

func (s *tokenStream) Text() string { return s.buf.String() }

func (s *tokenStream) Count() int { return s.count }

// FirstTokenAt is zero when no token was delivered.
func (s *tokenStream) FirstTokenAt() time.Time { return s.first }
