package postparam

import "golang.org/x/text/transform"

// crlfToLF rewrites every "\r\n" pair as "\n". A lone '\r' is kept.
type crlfToLF struct{ transform.NopResetter }

func (crlfToLF) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		c := src[nSrc]
		if c == '\r' {
			if nSrc+1 == len(src) && !atEOF {
				return nDst, nSrc, transform.ErrShortSrc
			}
			if nSrc+1 < len(src) && src[nSrc+1] == '\n' {
				nSrc++
				continue
			}
		}
		if nDst == len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		dst[nDst] = c
		nDst++
		nSrc++
	}
	return nDst, nSrc, nil
}

func normalizeNewlines(s string) string {
	out, _, err := transform.String(crlfToLF{}, s)
	if err != nil {
		// crlfToLF never fails on complete input.
		return s
	}
	return out
}
