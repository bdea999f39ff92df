package txproof

import (
	"errors"

	"github.com/anon-splitting/psplit/curve"
	"github.com/anon-splitting/psplit/field"
	"github.com/anon-splitting/psplit/transcript"
)

// TokenProof proves that a group token's account-id commitment CmAID
// (spec.md §4.6, CmAID = a*P + z3*A) and the transaction's source-index
// commitment E1 (= a*G + r1*H) open to the same scalar a, without
// revealing a, z3, or r1. The two commitments use entirely different
// generator pairs (P, A versus G, H), so the link is a standard
// equality-of-committed-value representation proof: the same response
// for a appears in both verification equations.
type TokenProof struct {
	T1, T2       curve.Point
	Sa, Sz3, Sr1 field.Element
}

// TokenStatement is the public input to the token NIZK.
type TokenStatement struct {
	P     curve.Point // the shown credential's rerandomized tag point
	CmAID curve.Point // the group token's account-id commitment
	E1    curve.Point // the transaction's source-index commitment
}

func tokenChallenge(st TokenStatement, p *TokenProof) field.Element {
	tr := transcript.New("token")
	tr.WritePoint(st.P).WritePoint(st.CmAID).WritePoint(st.E1)
	tr.WritePoint(p.T1).WritePoint(p.T2)
	return tr.Challenge()
}

// ProveToken builds a TokenProof for the witness (a, z3, r1): a is the
// account index common to both commitments, z3 opens CmAID, r1 opens
// E1.
func ProveToken(st TokenStatement, a, z3, r1 field.Element) (*TokenProof, error) {
	ta, err := field.Random()
	if err != nil {
		return nil, err
	}
	tz3, err := field.Random()
	if err != nil {
		return nil, err
	}
	tr1, err := field.Random()
	if err != nil {
		return nil, err
	}

	p := &TokenProof{
		T1: st.P.Mul(ta.Scalar()).Add(curve.G().Mul(tz3.Scalar())),
		T2: curve.G().Mul(ta.Scalar()).Add(curve.H().Mul(tr1.Scalar())),
	}

	c := tokenChallenge(st, p)
	p.Sa = ta.Add(c.Mul(a))
	p.Sz3 = tz3.Add(c.Mul(z3))
	p.Sr1 = tr1.Add(c.Mul(r1))
	return p, nil
}

// VerifyToken checks a TokenProof against its public statement.
func VerifyToken(st TokenStatement, p *TokenProof) error {
	c := tokenChallenge(st, p)

	lhs1 := st.P.Mul(p.Sa.Scalar()).Add(curve.G().Mul(p.Sz3.Scalar()))
	rhs1 := p.T1.Add(st.CmAID.Mul(c.Scalar()))
	if !lhs1.Equal(rhs1) {
		return errors.New("txproof: token proof fails on account-id commitment")
	}

	lhs2 := curve.G().Mul(p.Sa.Scalar()).Add(curve.H().Mul(p.Sr1.Scalar()))
	rhs2 := p.T2.Add(st.E1.Mul(c.Scalar()))
	if !lhs2.Equal(rhs2) {
		return errors.New("txproof: token proof fails on source-index commitment")
	}
	return nil
}
