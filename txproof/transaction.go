package txproof

import (
	"errors"

	"github.com/anon-splitting/psplit/curve"
	"github.com/anon-splitting/psplit/field"
	"github.com/anon-splitting/psplit/transcript"
)

// TransactionProof proves knowledge of a committed-multiplication
// triple: that E1 commits the source index a, E2 commits the amount x
// (both already public, produced by Commit), and NE3 is the negation of
// a commitment to the product a*x. The statement also binds V1, V2,
// and V3 (the client's published r1*G, r2*G, r3*G, sent whole to both
// servers as part of the statement) into the transcript so
// a proof cannot be replayed against a different share split of the
// same transaction, even though those three points carry no separate
// verification equation of their own.
//
// The multiplication is proven without a dedicated product gadget by
// reusing E2 itself as a base point: since E2 = x*G + r2*H is already
// public, a*E2 = (a*x)*G + (a*r2)*H is *linear* in the single secret a,
// exactly like a*G. Binding the same response for a across both
//
//	E1  = a*G + r1*H
//	-NE3 = a*E2 + s*H      (s := r3 - a*r2, a prover-local helper value)
//
// forces any accepting (a, r1, s) to make -NE3 open to (a*x, a*r2+s)
// under the SAME a that opens E1 to (a, r1) — i.e. -NE3 (equivalently
// E3) commits a*x for some valid randomness, which is the only property
// the two-server protocol needs from this proof. This is the standard
// representation-proof template for a Pedersen-commitment product (per
// spec.md Open Question (c): the constraint ties the negated product
// commitment to the committed source index via the shared response,
// rather than the vacuous self-referential statement in the source).
type TransactionProof struct {
	T1, T2      curve.Point
	Sa, Sr1, Ss field.Element
}

// TransactionStatement is the public input to the transaction NIZK: the
// six points spec.md §4.7 names (v1, v2, v3, e1, e2, -e3).
type TransactionStatement struct {
	V1, V2, V3 curve.Point
	E1, E2     curve.Point
	NE3        curve.Point // -e3
}

func transactionChallenge(st TransactionStatement, p *TransactionProof) field.Element {
	tr := transcript.New("transaction")
	tr.WritePoint(st.V1).WritePoint(st.V2).WritePoint(st.V3)
	tr.WritePoint(st.E1).WritePoint(st.E2).WritePoint(st.NE3)
	tr.WritePoint(p.T1).WritePoint(p.T2)
	return tr.Challenge()
}

// ProveTransaction builds a TransactionProof for the witness (a, r1,
// r2, r3) underlying st. The amount x committed inside st.E2 is not an
// input: the proof equations use E2 itself as a base point.
func ProveTransaction(st TransactionStatement, a, r1, r2, r3 field.Element) (*TransactionProof, error) {
	s := r3.Sub(a.Mul(r2))

	ta, err := field.Random()
	if err != nil {
		return nil, err
	}
	tr1, err := field.Random()
	if err != nil {
		return nil, err
	}
	ts, err := field.Random()
	if err != nil {
		return nil, err
	}

	p := &TransactionProof{
		T1: curve.G().Mul(ta.Scalar()).Add(curve.H().Mul(tr1.Scalar())),
		T2: st.E2.Mul(ta.Scalar()).Add(curve.H().Mul(ts.Scalar())),
	}

	c := transactionChallenge(st, p)
	p.Sa = ta.Add(c.Mul(a))
	p.Sr1 = tr1.Add(c.Mul(r1))
	p.Ss = ts.Add(c.Mul(s))
	return p, nil
}

// VerifyTransaction checks a TransactionProof against its public
// statement.
func VerifyTransaction(st TransactionStatement, p *TransactionProof) error {
	c := transactionChallenge(st, p)

	lhs1 := curve.G().Mul(p.Sa.Scalar()).Add(curve.H().Mul(p.Sr1.Scalar()))
	rhs1 := p.T1.Add(st.E1.Mul(c.Scalar()))
	if !lhs1.Equal(rhs1) {
		return errors.New("txproof: transaction proof fails on source-index commitment")
	}

	lhs2 := st.E2.Mul(p.Sa.Scalar()).Add(curve.H().Mul(p.Ss.Scalar()))
	rhs2 := p.T2.Add(st.NE3.Neg().Mul(c.Scalar()))
	if !lhs2.Equal(rhs2) {
		return errors.New("txproof: transaction proof fails on product commitment")
	}
	return nil
}
