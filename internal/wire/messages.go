package wire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"modelbridge/pkg/types"
)

// ParseMessages extracts chat turns from a turns array.
//
// For each turn the scanner looks for a "role" key and then, independently,
// for the next "content" key. Keys in any other order within one turn are not
// supported. Scanning stops at the first turn missing either key and the
// turns found so far are returned. A turn with an unsupported role is skipped
// and reported as a field-scoped MalformedPayload joined into the returned
// error, so callers still see the valid turns. A missing '[' is a hard failure.
func ParseMessages(text string) ([]types.ChatTurn, error) {
	pos := strings.IndexByte(text, '[')
	if pos < 0 {
		return nil, ErrMalformedPayload("messages", "expected array")
	}
	var (
		turns []types.ChatTurn
		errs  []error
	)
	for idx := 0; ; idx++ {
		roleEnd := keyAt(text, "role", pos)
		if roleEnd < 0 {
			break
		}
		role, roleClose, ok := plainString(text, roleEnd)
		if !ok {
			break
		}
		contentEnd := keyAt(text, "content", roleClose+1)
		if contentEnd < 0 {
			break
		}
		raw, closeIdx, ok := escapedString(text, contentEnd)
		if !ok {
			break
		}
		pos = closeIdx + 1

		r := types.Role(strings.TrimSpace(role))
		if !r.Valid() {
			errs = append(errs, ErrMalformedPayload(
				fmt.Sprintf("messages[%d].role", idx),
				"unsupported role "+strconv.Quote(role),
			))
			continue
		}
		turns = append(turns, types.ChatTurn{Role: r, Content: unescape(raw)})
	}
	return turns, errors.Join(errs...)
}
