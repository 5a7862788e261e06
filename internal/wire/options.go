package wire

import (
	"errors"
	"strconv"
	"strings"

	"modelbridge/pkg/types"
)

// ParseOptions reads generation options. Each recognised key is located on
// its own; absent keys keep their sentinel defaults. A value that cannot be
// parsed leaves only that field at its default and is reported through the
// returned error, which joins one MalformedPayload per failed field. The
// options are always usable, even when err is non-nil.
func ParseOptions(text string) (types.GenerationOptions, error) {
	opts := types.NewGenerationOptions()
	if strings.TrimSpace(text) == "" {
		return opts, nil
	}
	var errs []error

	if v, ok, err := floatField(text, "temperature"); err != nil {
		errs = append(errs, err)
	} else if ok {
		opts.Temperature = v
	}
	if v, ok, err := floatField(text, "top_p"); err != nil {
		errs = append(errs, err)
	} else if ok {
		opts.TopP = v
	}
	if v, ok, err := intField(text, "top_k"); err != nil {
		errs = append(errs, err)
	} else if ok {
		opts.TopK = v
	}
	if v, ok, err := intField(text, "max_tokens"); err != nil {
		errs = append(errs, err)
	} else if ok {
		if v <= 0 {
			errs = append(errs, ErrMalformedPayload("max_tokens", "must be positive"))
		} else {
			opts.MaxTokens = v
		}
	}
	if v, ok, err := stringList(text, "stop_sequences"); err != nil {
		errs = append(errs, err)
	} else if ok {
		opts.StopSequences = v
	}
	return opts, errors.Join(errs...)
}

// numberToken returns the numeric literal following key, or ok=false when the
// key is absent or its value is null.
func numberToken(s, key string) (tok string, ok bool, err error) {
	keyEnd := keyAt(s, key, 0)
	if keyEnd < 0 {
		return "", false, nil
	}
	i := valueStart(s, keyEnd)
	if strings.HasPrefix(s[i:], "null") {
		return "", false, nil
	}
	j := i
	for j < len(s) && strings.IndexByte("+-0123456789.eE", s[j]) >= 0 {
		j++
	}
	if j == i {
		return "", false, ErrMalformedPayload(key, "expected number")
	}
	return s[i:j], true, nil
}

func floatField(s, key string) (float32, bool, error) {
	tok, ok, err := numberToken(s, key)
	if !ok || err != nil {
		return 0, false, err
	}
	f, perr := strconv.ParseFloat(tok, 32)
	if perr != nil {
		return 0, false, ErrMalformedPayload(key, "invalid number "+strconv.Quote(tok))
	}
	return float32(f), true, nil
}

// intField accepts an unsigned integer; a fractional part is truncated.
func intField(s, key string) (int, bool, error) {
	tok, ok, err := numberToken(s, key)
	if !ok || err != nil {
		return 0, false, err
	}
	digits := tok
	if dot := strings.IndexByte(digits, '.'); dot >= 0 {
		digits = digits[:dot]
	}
	n, perr := strconv.ParseUint(strings.TrimPrefix(digits, "+"), 10, 31)
	if perr != nil {
		return 0, false, ErrMalformedPayload(key, "invalid unsigned integer "+strconv.Quote(tok))
	}
	return int(n), true, nil
}

// stringList reads a bracket-delimited list of quoted strings.
func stringList(s, key string) ([]string, bool, error) {
	keyEnd := keyAt(s, key, 0)
	if keyEnd < 0 {
		return nil, false, nil
	}
	i := valueStart(s, keyEnd)
	if strings.HasPrefix(s[i:], "null") {
		return nil, false, nil
	}
	if i >= len(s) || s[i] != '[' {
		return nil, false, ErrMalformedPayload(key, "expected list")
	}
	out := []string{}
	for j := i + 1; j < len(s); {
		switch s[j] {
		case ']':
			return out, true, nil
		case '"':
			raw, closeIdx, _ := escapedString(s, j)
			if closeIdx >= len(s) {
				return nil, false, ErrMalformedPayload(key, "unterminated string")
			}
			out = append(out, unescape(raw))
			j = closeIdx + 1
		default:
			j++
		}
	}
	return nil, false, ErrMalformedPayload(key, "unterminated list")
}
