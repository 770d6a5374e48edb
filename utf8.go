package postparam

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// encodeUTF8 frames text as UTF-8 bytes after folding "\r\n" into "\n".
func encodeUTF8(text string) []byte {
	text = normalizeNewlines(text)
	out := make([]byte, 0, len(text))
	for _, cp := range text {
		switch {
		case cp < 0x80:
			out = append(out, byte(cp))
		case cp < 0x800:
			out = append(out,
				0xC0|byte(cp>>6),
				0x80|byte(cp&0x3F))
		case cp < 0x10000:
			out = append(out,
				0xE0|byte(cp>>12),
				0x80|byte((cp>>6)&0x3F),
				0x80|byte(cp&0x3F))
		default:
			out = append(out,
				0xF0|byte(cp>>18),
				0x80|byte((cp>>12)&0x3F),
				0x80|byte((cp>>6)&0x3F),
				0x80|byte(cp&0x3F))
		}
	}
	return out
}

// decodeUTF8 rebuilds text from bytes produced by encodeUTF8. Overlong forms
// are accepted; anything else that is not UTF-8 fails with ErrMalformedUTF8.
func decodeUTF8(b []byte) (string, error) {
	var sb strings.Builder
	sb.Grow(len(b))

	for i := 0; i < len(b); {
		lead := b[i]
		var cp rune
		var n int
		switch {
		case lead < 0x80:
			sb.WriteByte(lead)
			i++
			continue
		case lead&0xE0 == 0xC0:
			cp, n = rune(lead&0x1F), 2
		case lead&0xF0 == 0xE0:
			cp, n = rune(lead&0x0F), 3
		case lead&0xF8 == 0xF0:
			cp, n = rune(lead&0x07), 4
		default:
			return "", fmt.Errorf("%w: unexpected byte 0x%02x at offset %d", ErrMalformedUTF8, lead, i)
		}

		if i+n > len(b) {
			return "", fmt.Errorf("%w: truncated %d-byte sequence at offset %d", ErrMalformedUTF8, n, i)
		}
		for j := 1; j < n; j++ {
			cont := b[i+j]
			if cont&0xC0 != 0x80 {
				return "", fmt.Errorf("%w: bad continuation byte 0x%02x at offset %d", ErrMalformedUTF8, cont, i+j)
			}
			cp = cp<<6 | rune(cont&0x3F)
		}
		if !utf8.ValidRune(cp) {
			return "", fmt.Errorf("%w: code point U+%04X at offset %d is not a valid scalar value", ErrMalformedUTF8, cp, i)
		}

		sb.WriteRune(cp)
		i += n
	}
	return sb.String(), nil
}
