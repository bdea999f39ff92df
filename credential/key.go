// Package credential implements the CMZ-style keyed-verification
// anonymous credential scheme: blinded issuance over a subset of five
// attributes and blinded showing of the remainder, all proven with
// compact Fiat-Shamir Schnorr-family proofs over a single transcript
// type, following the teacher's tagged-challenge Schnorr idiom
// generalized from one statement (BIP-340) to many.
//
// [CMZ14]
//
//	Chase M., Meiklejohn S., Zaverucha G.,
//	"Algebraic MACs and Keyed-Verification Anonymous Credentials"
//	<https://eprint.iacr.org/2013/516.pdf>
package credential

import (
	"github.com/anon-splitting/psplit/curve"
	"github.com/anon-splitting/psplit/field"
)

// NumAttributes is n in the data model: attributes 1..5, with index 0
// reserved as the (always-zero) padding slot spec.md's m[0]=0 refers to.
const NumAttributes = 5

// A and B are the two independent generators the credential scheme
// builds on: A is the tag generator (P, Q, and every per-attribute
// public-key point are expressed as scalar multiples of A); B is used
// only to build a hiding Pedersen-style commitment to the issuer's x0
// component inside the public key, and as the ElGamal base point during
// blind issuance.
func A() curve.Point { return curve.G() }
func B() curve.Point { return curve.H() }

// IssuerPrivKey is the server's credential signing key: a blinding
// scalar x0_tilde and the six attribute scalars X[0..5] (X[0] is the
// free term, X[1..5] key the five attributes).
type IssuerPrivKey struct {
	X0Tilde field.Element
	X       [NumAttributes + 1]field.Element
}

// IssuerPubKey is published to clients at group setup. X0 hides X[0]
// behind the blinding scalar X0Tilde (a Pedersen commitment); Xi[i] for
// i in 1..5 is the bare point X[i]*A, used directly in the tag formula
// and in blind issuance's proof of correct key use.
type IssuerPubKey struct {
	X0 curve.Point
	Xi [NumAttributes + 1]curve.Point
}

// NewIssuerKey samples a fresh IssuerPrivKey/IssuerPubKey pair.
func NewIssuerKey() (*IssuerPrivKey, *IssuerPubKey, error) {
	var priv IssuerPrivKey
	var pub IssuerPubKey

	x0Tilde, err := field.Random()
	if err != nil {
		return nil, nil, err
	}
	priv.X0Tilde = x0Tilde

	for i := range priv.X {
		x, err := field.Random()
		if err != nil {
			return nil, nil, err
		}
		priv.X[i] = x
	}

	pub.X0 = A().Mul(priv.X0Tilde.Scalar()).Add(B().Mul(priv.X[0].Scalar()))
	for i := 1; i <= NumAttributes; i++ {
		pub.Xi[i] = A().Mul(priv.X[i].Scalar())
	}
	return &priv, &pub, nil
}

// tagCoefficient computes X[0] + sum_{i=1}^{5} X[i]*m[i], the scalar
// multiplier of P that the credential's Q must equal, given the full
// attribute vector m (m[0] is ignored/expected zero).
func tagCoefficient(priv *IssuerPrivKey, m [NumAttributes + 1]field.Element) field.Element {
	acc := priv.X[0]
	for i := 1; i <= NumAttributes; i++ {
		acc = acc.Add(priv.X[i].Mul(m[i]))
	}
	return acc
}
