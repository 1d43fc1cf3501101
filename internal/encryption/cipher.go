package encryption

import "strings"

// transMap is the carrier's fixed substitution alphabet. Digits and
// lowercase letters map pairwise; uppercase input uses the lowercase
// mapping. Characters outside the table pass through unchanged.
var transMap = map[rune]rune{
	'0': 'c', '1': 'a', '2': 'b', '3': 'f', '4': 'd',
	'5': 'e', '6': 'i', '7': 'g', '8': 'h', '9': 'l',
	'a': '1', 'b': '2', 'c': '0', 'd': '4', 'e': '5',
	'f': '3', 'g': '7', 'h': '8', 'i': '6', 'j': 'n',
	'k': 'o', 'l': '9', 'm': 'r', 'n': 'j', 'o': 'k',
	'p': 's', 'q': 't', 'r': 'm', 's': 'p', 't': 'q',
	'u': 'v', 'v': 'u', 'w': 'z', 'x': 'y', 'y': 'x',
	'z': 'w',
}

// Transform applies the substitution table to s. Deterministic and
// stateless; the carrier applies the same table before RSA encryption.
func Transform(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			r = r + ('a' - 'A')
		}
		if out, ok := transMap[r]; ok {
			b.WriteRune(out)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
