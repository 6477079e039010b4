package entity

import "strings"

// Address is a case-normalized account identifier
type Address = string

// NormalizeAddress folds an address to its canonical form
func NormalizeAddress(address string) Address {
	return strings.ToLower(strings.TrimSpace(address))
}

// SameAddress reports whether two addresses refer to the same entity
func SameAddress(a, b string) bool {
	return NormalizeAddress(a) == NormalizeAddress(b)
}
