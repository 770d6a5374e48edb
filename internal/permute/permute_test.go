package permute

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExchange(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "single", input: "a", want: "a"},
		{name: "pair keeps first", input: "ab", want: "ab"},
		{name: "odd length", input: "abc", want: "acb"},
		{name: "even length leaves tail", input: "abcd", want: "acbd"},
		{name: "longer", input: "abcdefgh", want: "acbedgfh"},
		{name: "padding participates", input: "=8GbsVGa", want: "=G8sbGVa"},
		{name: "multibyte runes", input: "αβγδ", want: "αγβδ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Exchange(tt.input))
		})
	}
}

func TestExchangeIsSelfInverse(t *testing.T) {
	for _, s := range []string{"", "x", "xy", "xyz", "TWFuTWFu", "=A=YgJ+8", "héllo wörld"} {
		assert.Equal(t, s, Exchange(Exchange(s)), "input %q", s)
	}
}

func TestReverse(t *testing.T) {
	assert.Equal(t, "", Reverse(""))
	assert.Equal(t, "a", Reverse("a"))
	assert.Equal(t, "=8GbsVGa", Reverse("aGVsbG8="))
	assert.Equal(t, "界世", Reverse("世界"))
	assert.Equal(t, "héllo", Reverse(Reverse("héllo")))
}

func TestExchangeAndReverseOrder(t *testing.T) {
	// Odd lengths expose the composition order.
	assert.Equal(t, "ecdab", Exchange(Reverse("abcde")))
	assert.Equal(t, "debca", Reverse(Exchange("abcde")))

	// Even lengths, which every Base64 string has, do not.
	s := "aGVsbG8="
	assert.Equal(t, Exchange(Reverse(s)), Reverse(Exchange(s)))
}
