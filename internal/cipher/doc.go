// Package cipher exposes the post-param codec as named, chainable
// operations, detects which encoding a captured value uses, and keeps a
// library of saved pipelines (recipes).
//
// # Operations
//
// The built-in operations are looked up by name:
//
//	op, _ := cipher.GetOperation("postparam_encode")
//	out, _ := op.Execute(ctx, []byte("hello"))
//	// out: []byte("=G8sbGVa")
//
// Available operations:
//   - base64_encode/decode - Base64 over UTF-8 framed text
//   - postparam_encode/decode - Base64 plus reversal and pair exchange
//   - reverse - reverse characters (self-inverse)
//   - exchange - swap characters (1,2), (3,4), ... (self-inverse)
//   - url_encode/decode - URL encoding (percent encoding)
//   - hex_encode/decode - Hexadecimal encoding
//
// A Registry built with NewRegistry resolves other operation sets.
//
// # Pipelines
//
// The post-param encoding is itself a pipeline, and reversing it yields the
// decoder with the steps in the opposite order:
//
//	p := &cipher.Pipeline{
//	    Steps:      []string{"base64_encode", "reverse", "exchange"},
//	    Reversible: true,
//	}
//	encoded, _ := p.Execute(ctx, []byte("hello"))
//	inverse, _ := p.Reverse() // exchange, reverse, base64_decode
//	decoded, _ := inverse.Execute(ctx, encoded)
//
// # Detection
//
// SmartDetector reports base64, postparam, url-encoded and hex candidates
// with a confidence between 0 and 1. LooksLikeBase64 is the naive filter rule
// that post-param values are built to avoid.
//
// # Recipes
//
// RecipeManager stores pipelines by name, optionally persisting them as YAML
// files in a directory. BuiltinRecipes describes the post-param encodings.
//
// # Thread Safety
//
// Registry and RecipeManager use internal locking. Operations are stateless
// and safe for concurrent use.
package cipher
