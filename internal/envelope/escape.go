package envelope

import (
	"math"
	"strconv"
	"strings"
)

const hexDigits = "0123456789abcdef"

// writeEscaped writes s as the body of a quoted string in one forward pass.
// Besides the five reserved characters, remaining control bytes are written
// as \u00XX so the output always decodes.
func writeEscaped(b *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 {
				b.WriteString(`\u00`)
				b.WriteByte(hexDigits[c>>4])
				b.WriteByte(hexDigits[c&0xf])
				continue
			}
			b.WriteByte(c)
		}
	}
}

// fixed2 formats v with two decimals; non-finite values render as 0.00.
func fixed2(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
