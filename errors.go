package postparam

import "errors"

// Errors returned by Decode and DecodePostParam. Concrete failures wrap one of
// these with the position of the offending symbol or byte, so callers should
// match with errors.Is.
var (
	// ErrInvalidEncoding reports Base64 input that, after stripping
	// characters outside the alphabet, is not a well-formed sequence of
	// 4-symbol groups.
	ErrInvalidEncoding = errors.New("postparam: invalid base64 encoding")

	// ErrMalformedUTF8 reports decoded bytes that are not valid UTF-8.
	ErrMalformedUTF8 = errors.New("postparam: malformed utf-8 sequence")
)
