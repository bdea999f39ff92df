// Package prf implements the per-group settle-round masking PRF of
// spec.md §4.8: the construction both servers use to blind their share
// of a group's balances before the commit-open barrier, and that a
// client holding both servers' key halves (via
// token.GroupTokenPriv) replicates to peel the masks back off.
// Keeping this in one shared package (rather than duplicating it
// privately inside server and inventing a second copy client-side) is
// what makes settle reconstruction (spec.md Testable Property 6,
// Scenarios A/B/E) possible at all: both sides must derive byte-for-byte
// the same mask from the same raw 16-byte key and round nonce.
package prf

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"

	"github.com/anon-splitting/psplit/field"
)

// keyInfo domain-separates the reduction of a client-distributed
// 16-byte group PRF key (spec.md §6's GroupSetupRequest body) into the
// field element Mask is keyed on.
var keyInfo = []byte("psplit settle prf key v1")

// DeriveGroupKey reduces the 16-byte key a client hands a server at
// group setup to the field element the settle-round masking PRF is
// keyed on. Both the server that received raw and the client that
// generated it call this to arrive at the same key.
func DeriveGroupKey(raw [16]byte) field.Element {
	h := hmac.New(sha256.New, keyInfo)
	h.Write(raw[:])
	return field.FromBytes(h.Sum(nil))
}

// Mask computes one server's share of the settle-round mask for slot
// index i within a group, under that server's half of the group's key
// and the round's fresh public nonce rSeed (spec.md §4.8 step 2:
// "mask_ij = PRF(key_j, R || counter_i_within_group)"). A client that
// holds both servers' raw 16-byte keys derives both halves with
// DeriveGroupKey and calls Mask with each to recover the combined mask
// spec.md §4.8 step 5 says it must subtract off.
func Mask(key field.Element, rSeed [16]byte, i int) field.Element {
	h := hmac.New(sha256.New, key.Bytes())
	h.Write(rSeed[:])
	var counter [8]byte
	binary.BigEndian.PutUint64(counter[:], uint64(i))
	h.Write(counter[:])
	return field.FromBytes(h.Sum(nil))
}

// Unmask subtracts both servers' masks for slot i from a reconstructed
// (summed) settle response, recovering the cleartext balance share
// (spec.md §4.8 step 5: "subtracts its own knowledge of both PRF keys'
// mask stream for group g").
func Unmask(combined field.Element, key1, key2 field.Element, rSeed [16]byte, i int) field.Element {
	return combined.Sub(Mask(key1, rSeed, i)).Sub(Mask(key2, rSeed, i))
}
