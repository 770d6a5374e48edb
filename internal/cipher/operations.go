package cipher

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/RowanDark/postparam"
	"github.com/RowanDark/postparam/internal/permute"
)

// textOp adapts a text function to Operation.
type textOp struct {
	name    string
	inverse string
	apply   func(string) (string, error)
}

func (o textOp) Name() string    { return o.name }
func (o textOp) Inverse() string { return o.inverse }

func (o textOp) Execute(ctx context.Context, input []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := o.apply(string(input))
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func total(fn func(string) string) func(string) (string, error) {
	return func(s string) (string, error) { return fn(s), nil }
}

func labelled(label string, fn func(string) (string, error)) func(string) (string, error) {
	return func(s string) (string, error) {
		out, err := fn(s)
		if err != nil {
			return "", fmt.Errorf("%s failed: %w", label, err)
		}
		return out, nil
	}
}

// decodeHex accepts an optional 0x prefix and space, colon or dash
// separators between bytes.
func decodeHex(s string) (string, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.NewReplacer(" ", "", ":", "", "-", "").Replace(s)
	raw, err := hex.DecodeString(s)
	return string(raw), err
}

func encodeHex(s string) string {
	return hex.EncodeToString([]byte(s))
}

// builtinOperations are the codec operations paired with their inverses.
// reverse and exchange undo themselves.
func builtinOperations() []Operation {
	return []Operation{
		textOp{"base64_encode", "base64_decode", total(postparam.Encode)},
		textOp{"base64_decode", "base64_encode", labelled("base64 decode", postparam.Decode)},
		textOp{"postparam_encode", "postparam_decode", total(postparam.EncodePostParam)},
		textOp{"postparam_decode", "postparam_encode", labelled("post-param decode", postparam.DecodePostParam)},
		textOp{"reverse", "reverse", total(permute.Reverse)},
		textOp{"exchange", "exchange", total(permute.Exchange)},
		textOp{"url_encode", "url_decode", total(url.QueryEscape)},
		textOp{"url_decode", "url_encode", labelled("url decode", url.QueryUnescape)},
		textOp{"hex_encode", "hex_decode", total(encodeHex)},
		textOp{"hex_decode", "hex_encode", labelled("hex decode", decodeHex)},
	}
}

var builtin = mustRegistry(builtinOperations()...)

func mustRegistry(ops ...Operation) *Registry {
	r, err := NewRegistry(ops...)
	if err != nil {
		panic(err)
	}
	return r
}
