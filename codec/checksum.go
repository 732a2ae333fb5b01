package codec

import "github.com/zeebo/xxh3"

// Checksum returns the 16-bit checksum of a canonical signature string.
// Both sides compute it from the same text at build time.
func Checksum(signature string) uint16 {
	return uint16(xxh3.HashString(signature))
}

// Signature renders a canonical function signature from its parameter and
// result schemas. A nil result means the function returns nothing.
func Signature(name string, params []*Type, result *Type) string {
	s := name + "("
	for i, p := range params {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	s += ")"
	if result != nil {
		s += " -> " + result.String()
	}
	return s
}
