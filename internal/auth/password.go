package auth

import (
	"crypto/sha256"
	"crypto/subtle"
)

// CheckPassword compares in constant time. An empty expected password never
// matches.
func CheckPassword(expected, given string) bool {
	if expected == "" {
		return false
	}
	// hashing first keeps the comparison length-independent
	e := sha256.Sum256([]byte(expected))
	g := sha256.Sum256([]byte(given))
	return subtle.ConstantTimeCompare(e[:], g[:]) == 1
}
