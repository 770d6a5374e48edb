package postparam

import "fmt"

const (
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	padding  = '='
)

// decodeMap maps an input byte to its alphabet index, or -1. It is filled
// once at package initialisation and only read afterwards.
var decodeMap = func() [256]int8 {
	var m [256]int8
	for i := range m {
		m[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		m[alphabet[i]] = int8(i)
	}
	return m
}()

// Encode returns the Base64 form of text's UTF-8 bytes. Line endings are
// normalised first, so "\r\n" and "\n" encode identically.
func Encode(text string) string {
	return encodeBytes(encodeUTF8(text))
}

// Decode reverses Encode. Characters outside the Base64 alphabet and the
// padding symbol are ignored, which lets callers pass values that picked up
// whitespace or line breaks in transit.
func Decode(encoded string) (string, error) {
	raw, err := decodeBytes(encoded)
	if err != nil {
		return "", err
	}
	return decodeUTF8(raw)
}

func encodeBytes(src []byte) string {
	if len(src) == 0 {
		return ""
	}

	out := make([]byte, 0, (len(src)+2)/3*4)
	for i := 0; i < len(src); i += 3 {
		b1 := src[i]
		switch len(src) - i {
		case 1:
			out = append(out,
				alphabet[b1>>2],
				alphabet[(b1&3)<<4],
				padding,
				padding)
		case 2:
			b2 := src[i+1]
			out = append(out,
				alphabet[b1>>2],
				alphabet[(b1&3)<<4|b2>>4],
				alphabet[(b2&15)<<2],
				padding)
		default:
			b2, b3 := src[i+1], src[i+2]
			out = append(out,
				alphabet[b1>>2],
				alphabet[(b1&3)<<4|b2>>4],
				alphabet[(b2&15)<<2|b3>>6],
				alphabet[b3&63])
		}
	}
	return string(out)
}

func decodeBytes(encoded string) ([]byte, error) {
	symbols := make([]byte, 0, len(encoded))
	for i := 0; i < len(encoded); i++ {
		if c := encoded[i]; c == padding || decodeMap[c] >= 0 {
			symbols = append(symbols, c)
		}
	}
	if len(symbols)%4 != 0 {
		return nil, fmt.Errorf("%w: %d symbols is not a multiple of 4", ErrInvalidEncoding, len(symbols))
	}

	out := make([]byte, 0, len(symbols)/4*3)
	for i := 0; i < len(symbols); i += 4 {
		group := symbols[i : i+4]

		var idx [4]byte
		padded := false
		for j, c := range group {
			if c == padding {
				if j < 2 {
					return nil, fmt.Errorf("%w: padding at symbol %d", ErrInvalidEncoding, i+j)
				}
				padded = true
				continue
			}
			if padded {
				return nil, fmt.Errorf("%w: symbol %q at %d follows padding", ErrInvalidEncoding, c, i+j)
			}
			idx[j] = byte(decodeMap[c])
		}
		if padded && i+4 != len(symbols) {
			return nil, fmt.Errorf("%w: padded group at symbol %d is not the last", ErrInvalidEncoding, i)
		}

		out = append(out, idx[0]<<2|idx[1]>>4)
		if group[2] != padding {
			out = append(out, (idx[1]&15)<<4|idx[2]>>2)
		}
		if group[3] != padding {
			out = append(out, (idx[2]&3)<<6|idx[3])
		}
	}
	return out, nil
}
