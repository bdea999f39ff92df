package credential

import (
	"errors"

	"github.com/anon-splitting/psplit/curve"
	"github.com/anon-splitting/psplit/field"
	"github.com/anon-splitting/psplit/transcript"
)

// ShowProof proves that a rerandomized tag (P, Q) is consistent with
// the hidden attributes M2, M3, M4, and M5, and that Cm3 commits to the
// same M3, without revealing any of the four. Write
//
//	Residual = Q - (X0 + X1*M1)*P
//
// for the verifier's share of the tag equation once the one revealed
// attribute's contribution is subtracted out. Since P = e*A for the
// (secret) rerandomized nonce exponent e and Xi[i] = Xi*A is public,
// correctness requires Residual = e*(X2*M2 + X3*M3 + X4*M4 + X5*M5).
// Writing wi = Mi*e turns this into a single linear combination of
// public points, Residual = w2*Xi[2] + w3*Xi[3] + w4*Xi[4] + w5*Xi[5],
// provable with a generalized (multi-secret) Schnorr proof in exactly
// the way a Pedersen vector commitment is opened. Cm3 = M3*P + z3*A
// reduces to (w3+z3)*A for the same w3, so a single shared response for
// w3 ties the commitment to the attribute the residual equation
// certifies. Soundness of this representation-style proof rests on the
// holder not knowing the issuer's private attribute scalars X2..X5 —
// the same assumption any keyed-verification MAC already makes of its
// holders.
type ShowProof struct {
	TE, TCm, TRes                  curve.Point
	Se, Sw2, Sw3, Sw4, Sw5, Sz3     field.Element
}

// ShowMessage is what a holder sends a server to spend one showing of a
// credential.
type ShowMessage struct {
	P, Q  curve.Point
	M1    field.Element
	Cm3   curve.Point
	Proof ShowProof
}

func showChallenge(msg *ShowMessage, xi2, xi3, xi4, xi5 curve.Point) field.Element {
	tr := transcript.New("show")
	tr.WritePoint(msg.P).WritePoint(msg.Q).WriteScalar(msg.M1).WritePoint(msg.Cm3)
	tr.WritePoint(xi2).WritePoint(xi3).WritePoint(xi4).WritePoint(xi5)
	p := &msg.Proof
	tr.WritePoint(p.TE).WritePoint(p.TCm).WritePoint(p.TRes)
	return tr.Challenge()
}

// ShowBlind345_5 rerandomizes cred, commits M3 as Cm3, and proves the
// hidden attributes M2, M3, M4, and M5 are correctly bound into the
// result, revealing only M1 and Cm3.
func ShowBlind345_5(cred *Credential, pub *IssuerPubKey) (*ShowMessage, error) {
	t, err := field.Random()
	if err != nil {
		return nil, err
	}
	if t.IsZero() {
		return nil, errors.New("credential: zero rerandomization factor")
	}

	p := cred.P.Mul(t.Scalar())
	q := cred.Q.Mul(t.Scalar())
	e := t.Mul(cred.B)

	z3, err := field.Random()
	if err != nil {
		return nil, err
	}
	cm3 := p.Mul(cred.M3.Scalar()).Add(A().Mul(z3.Scalar()))

	w2 := cred.M2.Mul(e)
	w3 := cred.M3.Mul(e)
	w4 := cred.M4.Mul(e)
	w5 := cred.M5.Mul(e)

	nonces, err := randomN(6)
	if err != nil {
		return nil, err
	}
	nonceE, nonceW2, nonceW3, nonceW4, nonceW5, nonceZ3 := nonces[0], nonces[1], nonces[2], nonces[3], nonces[4], nonces[5]

	msg := &ShowMessage{P: p, Q: q, M1: cred.M1, Cm3: cm3}
	msg.Proof.TE = A().Mul(nonceE.Scalar())
	msg.Proof.TCm = A().Mul(nonceW3.Add(nonceZ3).Scalar())
	msg.Proof.TRes = pub.Xi[2].Mul(nonceW2.Scalar()).
		Add(pub.Xi[3].Mul(nonceW3.Scalar())).
		Add(pub.Xi[4].Mul(nonceW4.Scalar())).
		Add(pub.Xi[5].Mul(nonceW5.Scalar()))

	c := showChallenge(msg, pub.Xi[2], pub.Xi[3], pub.Xi[4], pub.Xi[5])
	msg.Proof.Se = nonceE.Add(c.Mul(e))
	msg.Proof.Sw2 = nonceW2.Add(c.Mul(w2))
	msg.Proof.Sw3 = nonceW3.Add(c.Mul(w3))
	msg.Proof.Sw4 = nonceW4.Add(c.Mul(w4))
	msg.Proof.Sw5 = nonceW5.Add(c.Mul(w5))
	msg.Proof.Sz3 = nonceZ3.Add(c.Mul(z3))

	return msg, nil
}

func randomN(n int) ([]field.Element, error) {
	out := make([]field.Element, n)
	for i := range out {
		e, err := field.Random()
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// VerifiedCredential is what a server learns after VerifyShow accepts a
// showing.
type VerifiedCredential struct {
	M1  field.Element
	Cm3 curve.Point
}

// VerifyShow checks a ShowMessage against the issuer's key pair and
// returns the revealed attribute and the attribute-3 commitment on
// success.
func VerifyShow(priv *IssuerPrivKey, pub *IssuerPubKey, msg *ShowMessage) (*VerifiedCredential, error) {
	revealedCoeff := priv.X[0].Add(priv.X[1].Mul(msg.M1))
	residual := msg.Q.Sub(msg.P.Mul(revealedCoeff.Scalar()))

	c := showChallenge(msg, pub.Xi[2], pub.Xi[3], pub.Xi[4], pub.Xi[5])
	p := &msg.Proof

	lhsE := A().Mul(p.Se.Scalar())
	rhsE := p.TE.Add(msg.P.Mul(c.Scalar()))
	if !lhsE.Equal(rhsE) {
		return nil, errors.New("credential: show proof fails on rerandomized nonce")
	}

	lhsCm := A().Mul(p.Sw3.Add(p.Sz3).Scalar())
	rhsCm := p.TCm.Add(msg.Cm3.Mul(c.Scalar()))
	if !lhsCm.Equal(rhsCm) {
		return nil, errors.New("credential: show proof fails on attribute-3 commitment")
	}

	lhsRes := pub.Xi[2].Mul(p.Sw2.Scalar()).
		Add(pub.Xi[3].Mul(p.Sw3.Scalar())).
		Add(pub.Xi[4].Mul(p.Sw4.Scalar())).
		Add(pub.Xi[5].Mul(p.Sw5.Scalar()))
	rhsRes := p.TRes.Add(residual.Mul(c.Scalar()))
	if !lhsRes.Equal(rhsRes) {
		return nil, errors.New("credential: show proof fails on hidden attribute binding")
	}

	return &VerifiedCredential{M1: msg.M1, Cm3: msg.Cm3}, nil
}
