package credential

import (
	"errors"
	"fmt"

	"github.com/anon-splitting/psplit/curve"
	"github.com/anon-splitting/psplit/field"
	"github.com/anon-splitting/psplit/transcript"
)

// Ciphertext is an ElGamal ciphertext over the curve, used to blind
// attributes 1, 2, and 4 from the issuer during credential issuance.
// Encryption is additively homomorphic under a fixed recipient key: for
// any scalar s, (s*C1, s*C2) decrypts to s*m under the same private key,
// which is what lets the issuer fold its MAC key into a ciphertext it
// never decrypts.
type Ciphertext struct {
	C1, C2 curve.Point
}

// ClientBlindingKey is the holder's one-time ElGamal key pair used to
// blind the hidden attributes of a single credential request.
type ClientBlindingKey struct {
	D curve.Point
	d field.Element
}

// NewClientBlindingKey samples a fresh blinding key pair.
func NewClientBlindingKey() (*ClientBlindingKey, error) {
	d, err := field.Random()
	if err != nil {
		return nil, err
	}
	return &ClientBlindingKey{D: B().Mul(d.Scalar()), d: d}, nil
}

func elgamalEncrypt(pubD curve.Point, m field.Element) (Ciphertext, field.Element, error) {
	r, err := field.Random()
	if err != nil {
		return Ciphertext{}, field.Element{}, err
	}
	c1 := B().Mul(r.Scalar())
	c2 := A().Mul(m.Scalar()).Add(pubD.Mul(r.Scalar()))
	return Ciphertext{C1: c1, C2: c2}, r, nil
}

func elgamalDecrypt(ck *ClientBlindingKey, ct Ciphertext) curve.Point {
	return ct.C2.Sub(ct.C1.Mul(ck.d.Scalar()))
}

// UserBlindingProof proves, without revealing d, r1, m1, r2, m2, r4, or
// m4, that D, E1, E2, and E4 of the enclosing CredentialRequest are
// well-formed: D=d*B and each Ei is an ElGamal encryption of mi under D.
// All seven relations are linear in their secrets, so a single compound
// Schnorr statement with one challenge and one response per secret
// suffices.
type UserBlindingProof struct {
	TD             curve.Point
	TE1C1, TE1C2   curve.Point
	TE2C1, TE2C2   curve.Point
	TE4C1, TE4C2   curve.Point
	Sd             field.Element
	Sr1, Sm1       field.Element
	Sr2, Sm2       field.Element
	Sr4, Sm4       field.Element
}

// CredentialRequest is the holder's blinded request for a fresh
// credential over the attribute vector (m1..m5): m1, m2, and m4 travel
// encrypted under the holder's one-time key; m3 and m5 travel in the
// clear, since the issuer is trusted with them at issuance regardless
// (at show time m3 is only committed to and m5 stays hidden).
type CredentialRequest struct {
	D          curve.Point
	E1, E2, E4 Ciphertext
	M3, M5     field.Element
	Proof      UserBlindingProof
}

func userBlindingChallenge(req *CredentialRequest) field.Element {
	tr := transcript.New("userblinding")
	tr.WritePoint(req.D).WritePoint(req.E1.C1).WritePoint(req.E1.C2)
	tr.WritePoint(req.E2.C1).WritePoint(req.E2.C2)
	tr.WritePoint(req.E4.C1).WritePoint(req.E4.C2)
	tr.WriteScalar(req.M3).WriteScalar(req.M5)
	p := &req.Proof
	tr.WritePoint(p.TD)
	tr.WritePoint(p.TE1C1).WritePoint(p.TE1C2)
	tr.WritePoint(p.TE2C1).WritePoint(p.TE2C2)
	tr.WritePoint(p.TE4C1).WritePoint(p.TE4C2)
	return tr.Challenge()
}

// BuildCredentialRequest blinds m1, m2, and m4 under a fresh blinding
// key and produces the accompanying UserBlindingProof. The caller must
// hold onto the returned ClientBlindingKey to finish issuance.
func BuildCredentialRequest(m1, m2, m3, m4, m5 field.Element) (*CredentialRequest, *ClientBlindingKey, error) {
	ck, err := NewClientBlindingKey()
	if err != nil {
		return nil, nil, err
	}

	e1, r1, err := elgamalEncrypt(ck.D, m1)
	if err != nil {
		return nil, nil, err
	}
	e2, r2, err := elgamalEncrypt(ck.D, m2)
	if err != nil {
		return nil, nil, err
	}
	e4, r4, err := elgamalEncrypt(ck.D, m4)
	if err != nil {
		return nil, nil, err
	}

	td, tr1, tm1, tr2, tm2, tr4, tm4, err := randomSeven()
	if err != nil {
		return nil, nil, err
	}

	req := &CredentialRequest{D: ck.D, E1: e1, E2: e2, E4: e4, M3: m3, M5: m5}
	req.Proof.TD = B().Mul(td.Scalar())
	req.Proof.TE1C1 = B().Mul(tr1.Scalar())
	req.Proof.TE1C2 = A().Mul(tm1.Scalar()).Add(ck.D.Mul(tr1.Scalar()))
	req.Proof.TE2C1 = B().Mul(tr2.Scalar())
	req.Proof.TE2C2 = A().Mul(tm2.Scalar()).Add(ck.D.Mul(tr2.Scalar()))
	req.Proof.TE4C1 = B().Mul(tr4.Scalar())
	req.Proof.TE4C2 = A().Mul(tm4.Scalar()).Add(ck.D.Mul(tr4.Scalar()))

	c := userBlindingChallenge(req)
	req.Proof.Sd = td.Add(c.Mul(ck.d))
	req.Proof.Sr1 = tr1.Add(c.Mul(r1))
	req.Proof.Sm1 = tm1.Add(c.Mul(m1))
	req.Proof.Sr2 = tr2.Add(c.Mul(r2))
	req.Proof.Sm2 = tm2.Add(c.Mul(m2))
	req.Proof.Sr4 = tr4.Add(c.Mul(r4))
	req.Proof.Sm4 = tm4.Add(c.Mul(m4))

	return req, ck, nil
}

func randomSeven() (a, b, c, d, e, f, g field.Element, err error) {
	vals := make([]field.Element, 7)
	for i := range vals {
		vals[i], err = field.Random()
		if err != nil {
			return
		}
	}
	return vals[0], vals[1], vals[2], vals[3], vals[4], vals[5], vals[6], nil
}

// VerifyUserBlindingProof checks req's UserBlindingProof.
func VerifyUserBlindingProof(req *CredentialRequest) error {
	c := userBlindingChallenge(req)
	p := &req.Proof

	lhs := B().Mul(p.Sd.Scalar())
	rhs := p.TD.Add(req.D.Mul(c.Scalar()))
	if !lhs.Equal(rhs) {
		return errors.New("credential: user blinding proof fails on D")
	}

	check := func(sr, sm field.Element, t1, t2, e1, e2 curve.Point) bool {
		l1 := B().Mul(sr.Scalar())
		r1 := t1.Add(e1.Mul(c.Scalar()))
		l2 := A().Mul(sm.Scalar()).Add(req.D.Mul(sr.Scalar()))
		r2 := t2.Add(e2.Mul(c.Scalar()))
		return l1.Equal(r1) && l2.Equal(r2)
	}
	if !check(p.Sr1, p.Sm1, p.TE1C1, p.TE1C2, req.E1.C1, req.E1.C2) {
		return errors.New("credential: user blinding proof fails on attribute 1")
	}
	if !check(p.Sr2, p.Sm2, p.TE2C1, p.TE2C2, req.E2.C1, req.E2.C2) {
		return errors.New("credential: user blinding proof fails on attribute 2")
	}
	if !check(p.Sr4, p.Sm4, p.TE4C1, p.TE4C2, req.E4.C1, req.E4.C2) {
		return errors.New("credential: user blinding proof fails on attribute 4")
	}
	return nil
}

// BlindIssueProof proves, for a single nonce b, that P=b*A and that
// T1, T2, and T4 are that same b applied to the issuer's public-key
// points for attributes 1, 2, and 4 — binding the homomorphic
// combination in CredentialResponse to the key the issuer actually
// holds, via a Chaum-Pedersen-style equality-of-discrete-log proof.
type BlindIssueProof struct {
	TP, TT1, TT2, TT4 curve.Point
	Sb                field.Element
}

func blindIssueChallenge(resp *CredentialResponse) field.Element {
	tr := transcript.New("blindissue")
	tr.WritePoint(resp.P).WritePoint(resp.T1).WritePoint(resp.T2).WritePoint(resp.T4)
	p := &resp.Proof
	tr.WritePoint(p.TP).WritePoint(p.TT1).WritePoint(p.TT2).WritePoint(p.TT4)
	return tr.Challenge()
}

// CredentialResponse is the issuer's answer to a CredentialRequest: a
// fresh nonce-derived tag P, an ElGamal ciphertext EncQ encrypting the
// blinded-attribute contribution to the MAC tag Q under the holder's
// key, the public cleartext contribution ClearTerm, and a proof that P,
// T1, T2, and T4 all share the same nonce b (which is also revealed in
// the clear: it carries no attribute information and is rerandomized
// away at show time, so revealing it costs nothing).
type CredentialResponse struct {
	P              curve.Point
	T1, T2, T4     curve.Point
	EncQ           Ciphertext
	ClearTerm      curve.Point
	Proof          BlindIssueProof
	B              field.Element
}

// IssueBlind124_5 issues a credential over a blinded request, folding in
// the issuer's private key X0, X1, X2, X3, X4, X5 without ever learning
// m1, m2, or m4.
func IssueBlind124_5(priv *IssuerPrivKey, pub *IssuerPubKey, req *CredentialRequest) (*CredentialResponse, error) {
	if err := VerifyUserBlindingProof(req); err != nil {
		return nil, fmt.Errorf("credential: issuance rejected: %w", err)
	}

	b, err := field.Random()
	if err != nil {
		return nil, err
	}

	resp := &CredentialResponse{B: b}
	resp.P = A().Mul(b.Scalar())
	resp.T1 = pub.Xi[1].Mul(b.Scalar())
	resp.T2 = pub.Xi[2].Mul(b.Scalar())
	resp.T4 = pub.Xi[4].Mul(b.Scalar())

	bx1 := b.Mul(priv.X[1])
	bx2 := b.Mul(priv.X[2])
	bx4 := b.Mul(priv.X[4])

	resp.EncQ.C1 = req.E1.C1.Mul(bx1.Scalar()).Add(req.E2.C1.Mul(bx2.Scalar())).Add(req.E4.C1.Mul(bx4.Scalar()))
	resp.EncQ.C2 = req.E1.C2.Mul(bx1.Scalar()).Add(req.E2.C2.Mul(bx2.Scalar())).Add(req.E4.C2.Mul(bx4.Scalar()))

	clearCoeff := priv.X[0].Add(priv.X[3].Mul(req.M3)).Add(priv.X[5].Mul(req.M5))
	resp.ClearTerm = resp.P.Mul(clearCoeff.Scalar())

	tb, err := field.Random()
	if err != nil {
		return nil, err
	}
	resp.Proof.TP = A().Mul(tb.Scalar())
	resp.Proof.TT1 = pub.Xi[1].Mul(tb.Scalar())
	resp.Proof.TT2 = pub.Xi[2].Mul(tb.Scalar())
	resp.Proof.TT4 = pub.Xi[4].Mul(tb.Scalar())

	c := blindIssueChallenge(resp)
	resp.Proof.Sb = tb.Add(c.Mul(b))

	return resp, nil
}

// VerifyBlindIssueProof checks resp's BlindIssueProof against pub.
func VerifyBlindIssueProof(pub *IssuerPubKey, resp *CredentialResponse) error {
	c := blindIssueChallenge(resp)
	p := &resp.Proof

	check := func(base, t, pt curve.Point) bool {
		lhs := base.Mul(p.Sb.Scalar())
		rhs := t.Add(pt.Mul(c.Scalar()))
		return lhs.Equal(rhs)
	}
	if !check(A(), p.TP, resp.P) {
		return errors.New("credential: blind issue proof fails on P")
	}
	if !check(pub.Xi[1], p.TT1, resp.T1) {
		return errors.New("credential: blind issue proof fails on T1")
	}
	if !check(pub.Xi[2], p.TT2, resp.T2) {
		return errors.New("credential: blind issue proof fails on T2")
	}
	if !check(pub.Xi[4], p.TT4, resp.T4) {
		return errors.New("credential: blind issue proof fails on T4")
	}
	return nil
}

// Credential is the finished, holder-held anonymous credential: a
// randomizable MAC tag (P, Q) over the attribute vector M1..M5, plus
// the issuance nonce B needed to rerandomize the tag at show time.
type Credential struct {
	P, Q                   curve.Point
	B                      field.Element
	M1, M2, M3, M4, M5     field.Element
}

// FinishIssuance verifies the issuer's BlindIssueProof, decrypts EncQ
// under the holder's blinding key, and assembles the finished
// Credential.
func FinishIssuance(ck *ClientBlindingKey, pub *IssuerPubKey, resp *CredentialResponse, m1, m2, m3, m4, m5 field.Element) (*Credential, error) {
	if err := VerifyBlindIssueProof(pub, resp); err != nil {
		return nil, fmt.Errorf("credential: issuance response rejected: %w", err)
	}
	if !A().Mul(resp.B.Scalar()).Equal(resp.P) {
		return nil, errors.New("credential: issuer-revealed nonce does not match P")
	}

	blindedPart := elgamalDecrypt(ck, resp.EncQ)
	q := resp.ClearTerm.Add(blindedPart)

	return &Credential{
		P: resp.P, Q: q, B: resp.B,
		M1: m1, M2: m2, M3: m3, M4: m4, M5: m5,
	}, nil
}
