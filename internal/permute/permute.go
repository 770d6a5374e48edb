// Package permute holds the character rearrangements used to disguise
// Base64 payloads. Both transforms are their own inverse.
package permute

// Exchange swaps every adjacent pair of runes starting at index 1: positions
// (1,2), (3,4), ... are exchanged while index 0 and a trailing unpaired rune
// stay where they are.
func Exchange(s string) string {
	runes := []rune(s)
	for i := 2; i < len(runes); i += 2 {
		runes[i-1], runes[i] = runes[i], runes[i-1]
	}
	return string(runes)
}

// Reverse returns s with its runes in reverse order.
func Reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
