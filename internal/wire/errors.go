package wire

import "errors"

// malformedPayloadError reports a missing required marker or an unusable
// value. Field names the smallest unit that failed.
type malformedPayloadError struct {
	field  string
	reason string
}

func (e malformedPayloadError) Error() string {
	return "malformed payload: " + e.field + ": " + e.reason
}

// ErrMalformedPayload constructs a field-scoped malformed payload error.
func ErrMalformedPayload(field, reason string) error {
	return malformedPayloadError{field: field, reason: reason}
}

// IsMalformedPayload reports whether err (or anything it wraps or joins)
// is a malformed payload error.
func IsMalformedPayload(err error) bool {
	var m malformedPayloadError
	return errors.As(err, &m)
}

// MalformedFields lists the fields named by every malformed payload error
// joined into err, in order.
func MalformedFields(err error) []string {
	if err == nil {
		return nil
	}
	if m, ok := err.(malformedPayloadError); ok {
		return []string{m.field}
	}
	var out []string
	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range x.Unwrap() {
			out = append(out, MalformedFields(e)...)
		}
	case interface{ Unwrap() error }:
		out = append(out, MalformedFields(x.Unwrap())...)
	}
	return out
}
