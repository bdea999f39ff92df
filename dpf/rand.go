package dpf

import "crypto/rand"

// cryptoRandRead is split out so tests can substitute a deterministic
// reader without touching the key-generation logic in dpf.go.
func cryptoRandRead(b []byte) (int, error) {
	return rand.Read(b)
}
