// Package postparam encodes text as Base64 over explicit UTF-8 framing and
// offers a reversible rearrangement of that output for use in request
// parameters.
//
// # Encoding
//
// Encode and Decode follow the standard Base64 alphabet (A-Z, a-z, 0-9, '+',
// '/') with '=' padding:
//
//	s := postparam.Encode("Man")   // "TWFu"
//	t, err := postparam.Decode(s)  // "Man", nil
//
// Text is framed as UTF-8 before encoding, including code points outside the
// Basic Multilingual Plane. "\r\n" is folded into "\n" first, so such text
// does not survive a round trip byte for byte.
//
// Decode drops every character that is neither an alphabet symbol nor '='
// before decoding. What remains must be whole 4-symbol groups with padding
// only at the end; anything else fails with ErrInvalidEncoding. Decoded bytes
// that are not UTF-8 fail with ErrMalformedUTF8. No partial result is ever
// returned.
//
// # Post parameters
//
// EncodePostParam reverses the Base64 string and then swaps the characters at
// positions (1,2), (3,4), ...; DecodePostParam applies the same two steps in
// the opposite order before decoding:
//
//	p := postparam.EncodePostParam("hello")   // "=G8sbGVa"
//	t, err := postparam.DecodePostParam(p)    // "hello", nil
//
// This is obfuscation, not encryption. It keeps payloads from matching
// simple Base64 detectors and nothing more.
//
// # Concurrency
//
// All functions are pure and safe for concurrent use.
package postparam
