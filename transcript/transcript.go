// Package transcript implements the tagged-hash-to-scalar pattern the
// credential, token, and transaction NIZKs all build their Fiat-Shamir
// challenges from: a domain-separation label plus an ordered list of
// curve points and scalars, hashed down to one field element.
package transcript

import (
	"crypto/sha256"

	"github.com/anon-splitting/psplit/curve"
	"github.com/anon-splitting/psplit/field"
)

func taggedHash(tag string, msg []byte) [32]byte {
	tagHash := sha256.Sum256([]byte(tag))
	h := sha256.New()
	h.Write(tagHash[:])
	h.Write(tagHash[:])
	h.Write(msg)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// T accumulates the statement being proven (points, scalars, and
// auxiliary labels) before a single Challenge call closes it out. Every
// NIZK in this repository opens a fresh T per proof; statements are
// never shared across proofs.
type T struct {
	label string
	buf   []byte
}

// New starts a transcript for the named statement, e.g. "userblinding",
// "blindissue", "show", "transaction", "token".
func New(label string) *T {
	return &T{label: label}
}

// WritePoint appends a curve point to the transcript.
func (t *T) WritePoint(p curve.Point) *T {
	t.buf = append(t.buf, p.Bytes()...)
	return t
}

// WriteScalar appends a field element to the transcript.
func (t *T) WriteScalar(e field.Element) *T {
	t.buf = append(t.buf, e.Bytes()...)
	return t
}

// WriteBytes appends raw bytes, e.g. a uid or a constant, to the
// transcript.
func (t *T) WriteBytes(b []byte) *T {
	t.buf = append(t.buf, b...)
	return t
}

// Challenge derives the Fiat-Shamir challenge scalar for everything
// written so far, tagged with the transcript's label.
func (t *T) Challenge() field.Element {
	h := taggedHash(t.label, t.buf)
	return field.FromBytes(h[:])
}

// Challenge is a one-shot helper for proofs that build their whole
// statement in one call: it writes every point in order and returns the
// resulting challenge, tagged by label.
func Challenge(label string, points ...curve.Point) field.Element {
	tr := New(label)
	for _, p := range points {
		tr.WritePoint(p)
	}
	return tr.Challenge()
}
