// Package prg implements the length-doubling pseudorandom generator used
// to expand distributed point function seeds. It is built on a
// fixed-key stream cipher (ChaCha20, keyed with a compile-time constant)
// rather than on a secret key, so expansion is a deterministic, public
// function of the seed alone, exactly as required by the DPF tree
// construction.
//
// [BGI16]
//
//	Boyle E., Gilboa N., Ishai Y., "Function Secret Sharing: Improvements
//	and Extensions" <https://eprint.iacr.org/2018/707.pdf>
package prg

import (
	"crypto/sha256"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/chacha20"

	"github.com/anon-splitting/psplit/field"
)

// SeedSize is the byte length of a DPF seed.
const SeedSize = 16

// Seed is a DPF tree seed.
type Seed [SeedSize]byte

// fixedKey is a public, compile-time constant key. It provides domain
// separation for the PRG without being a secret: the security of the
// DPF construction relies only on the unpredictability of the seed, not
// of this key.
var fixedKey = sha256.Sum256([]byte("anon-splitting/psplit DPF PRG fixed key v1"))

// cipherFor builds a deterministic ChaCha20 keystream generator for the
// given seed. The seed supplies both the nonce and the initial block
// counter, so distinct seeds never reuse the same keystream position.
func cipherFor(seed Seed) *chacha20.Cipher {
	nonce := make([]byte, chacha20.NonceSize)
	copy(nonce, seed[:chacha20.NonceSize])

	c, err := chacha20.NewUnauthenticatedCipher(fixedKey[:], nonce)
	if err != nil {
		// fixedKey and NonceSize are both constant-length; this can only
		// fail on a programming error.
		panic(err)
	}
	counter := binary.LittleEndian.Uint32(seed[SeedSize-4:])
	c.SetCounter(counter)
	return c
}

func keystream(seed Seed, n int) []byte {
	out := make([]byte, n)
	cipherFor(seed).XORKeyStream(out, out)
	return out
}

// Expand is G(seed) -> (seedL, bitL, seedR, bitR): the two child seeds
// and their associated correction bits used at each level of the DPF
// tree.
func Expand(seed Seed) (seedL Seed, bitL byte, seedR Seed, bitR byte) {
	out := keystream(seed, 2*SeedSize+2)

	copy(seedL[:], out[:SeedSize])
	bitL = out[SeedSize] & 1
	copy(seedR[:], out[SeedSize+1:2*SeedSize+1])
	bitR = out[2*SeedSize+1] & 1
	return
}

// Convert rehashes a seed into a fresh seed plus a field element, used at
// the DPF's payload level to turn the final seed into the output group's
// correction value.
func Convert(seed Seed) (Seed, field.Element) {
	out := keystream(seed, 2*SeedSize)

	var next Seed
	copy(next[:], out[:SeedSize])
	elem := field.FromBytes(append(make([]byte, 32-SeedSize), out[SeedSize:2*SeedSize]...))
	return next, elem
}

// ToRNG returns an indefinite pseudorandom byte stream derived from seed,
// for callers that need more than a fixed-size expansion (e.g. sampling a
// field vector of runtime-determined length).
func ToRNG(seed Seed) io.Reader {
	return &rngReader{c: cipherFor(seed)}
}

type rngReader struct {
	c *chacha20.Cipher
}

func (r *rngReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	r.c.XORKeyStream(p, p)
	return len(p), nil
}
