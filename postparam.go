package postparam

import "github.com/RowanDark/postparam/internal/permute"

// EncodePostParam encodes text with Encode, reverses the result and swaps
// each adjacent pair after the first character. The output no longer looks
// like Base64 to a pattern filter; it must only be decoded with
// DecodePostParam.
func EncodePostParam(text string) string {
	return permute.Exchange(permute.Reverse(Encode(text)))
}

// DecodePostParam undoes EncodePostParam: swap pairs back, reverse, decode.
func DecodePostParam(obfuscated string) (string, error) {
	return Decode(permute.Reverse(permute.Exchange(obfuscated)))
}
