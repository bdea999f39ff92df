// Package token implements group tokens: the per-group-membership MAC
// that a server issues once a holder has shown a valid credential for
// a given group, and that the holder then attaches to every
// transaction and settle request for that group so both servers can
// cheaply confirm membership without re-running the full credential
// show protocol each time.
package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/anon-splitting/psplit/curve"
	"github.com/anon-splitting/psplit/field"
)

// macKeyInfo domain-separates the boot-time HKDF expansion that derives
// the process-wide group-token HMAC key from the rest of any key
// material the process might derive from the same entropy pool.
var macKeyInfo = []byte("psplit group-token mac key v1")

// MACKeySize is the HMAC-SHA256 key length.
const MACKeySize = 32

// NewMACKey derives a fresh, process-wide HMAC key at boot via
// HKDF (extract then expand) over fresh crypto/rand entropy, per spec.md's "generated
// at boot" requirement.
func NewMACKey() ([MACKeySize]byte, error) {
	var key [MACKeySize]byte

	secret := make([]byte, MACKeySize)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return key, err
	}

	kdf := hkdf.New(sha256.New, secret, nil, macKeyInfo)
	if _, err := io.ReadFull(kdf, key[:]); err != nil {
		return key, err
	}
	return key, nil
}

// GroupToken is the wire-visible half of a group membership token:
// P is the credential tag this token was issued against, UID
// identifies the holder's slot within the group, CmAID commits the
// holder's account index (carried over unchanged from the
// credential's Cm3), and MAC authenticates the triple under the
// server's boot-time key.
type GroupToken struct {
	P     curve.Point
	UID   field.Element
	CmAID curve.Point
	MAC   [32]byte
}

// GroupTokenPriv holds the state a group member keeps alongside its
// GroupToken, never placed on the wire (spec.md §3: "Held only by the
// member; never transmitted"): the showing's blinding scalar that opens
// CmAID, the group's two settle PRF key halves (one per server, handed
// to both servers by this holder at group setup, per spec.md §6's
// GroupSetupRequest), and the holder's own account-index scalar. The
// two PRF keys are what let the holder alone, not either server,
// recombine a settle response into cleartext balances (spec.md §4.8
// step 5; see prf.Unmask).
type GroupTokenPriv struct {
	Token     GroupToken
	Z3        field.Element
	PRFKey1   field.Element
	PRFKey2   field.Element
	AccountID field.Element
}

// NewGroupTokenPriv bundles a freshly issued GroupToken with the
// holder-only material a member must retain alongside it: the opening
// scalar for the token's CmAID commitment, the two settle PRF key
// halves generated at this group's setup (field.FromBytes-reduced the
// same way prf.DeriveGroupKey reduces them server-side), and the
// member's own account-id scalar.
func NewGroupTokenPriv(tok GroupToken, z3 field.Element, prfKey1, prfKey2 field.Element, accountID field.Element) GroupTokenPriv {
	return GroupTokenPriv{Token: tok, Z3: z3, PRFKey1: prfKey1, PRFKey2: prfKey2, AccountID: accountID}
}

func macInput(p curve.Point, uid field.Element, cmAID curve.Point) []byte {
	buf := make([]byte, 0, len(p.Bytes())+len(uid.Bytes())+len(cmAID.Bytes()))
	buf = append(buf, p.Bytes()...)
	buf = append(buf, uid.Bytes()...)
	buf = append(buf, cmAID.Bytes()...)
	return buf
}

// Issue computes a fresh GroupToken's MAC under key.
func Issue(key [MACKeySize]byte, p curve.Point, uid field.Element, cmAID curve.Point) GroupToken {
	h := hmac.New(sha256.New, key[:])
	h.Write(macInput(p, uid, cmAID))

	var mac [32]byte
	copy(mac[:], h.Sum(nil))
	return GroupToken{P: p, UID: uid, CmAID: cmAID, MAC: mac}
}

// Verify reports whether tok's MAC is valid under key. Per Open
// Question (a) this must be called independently by both servers
// before either one honors a token — a single server's verification is
// not sufficient to protect the other server's balance state.
func Verify(key [MACKeySize]byte, tok GroupToken) error {
	h := hmac.New(sha256.New, key[:])
	h.Write(macInput(tok.P, tok.UID, tok.CmAID))
	want := h.Sum(nil)

	if !hmac.Equal(want, tok.MAC[:]) {
		return errors.New("token: group token MAC verification failed")
	}
	return nil
}
