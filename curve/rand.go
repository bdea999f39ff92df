package curve

import "crypto/rand"

// cryptoRandRead is split out so tests can substitute a deterministic
// reader without touching the sampling logic in curve.go.
func cryptoRandRead(b []byte) (int, error) {
	return rand.Read(b)
}
