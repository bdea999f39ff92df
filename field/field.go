// Package field wraps curve.Scalar with the additive-sharing and vector
// operations the DPF sketching layer and the transaction NIZKs need on
// top of plain scalar arithmetic.
package field

import (
	"github.com/anon-splitting/psplit/curve"
)

// Element is a field element, i.e. a scalar of the group order used as a
// plain value rather than a discrete-log exponent.
type Element struct {
	s curve.Scalar
}

// FromInt builds an Element from a small integer.
func FromInt(i int64) Element { return Element{curve.ScalarFromInt(i)} }

// FromScalar wraps an existing curve.Scalar.
func FromScalar(s curve.Scalar) Element { return Element{s} }

// Zero is the additive identity.
func Zero() Element { return Element{curve.Zero()} }

// One is the multiplicative identity.
func One() Element { return Element{curve.One()} }

// Random samples a uniform field element.
func Random() (Element, error) {
	s, err := curve.RandomScalar()
	if err != nil {
		return Element{}, err
	}
	return Element{s}, nil
}

// FromBytes decodes the canonical 32-byte encoding.
func FromBytes(b []byte) Element { return Element{curve.ScalarFromBytes(b)} }

// Bytes returns the canonical 32-byte encoding.
func (e Element) Bytes() []byte { return e.s.Bytes() }

// Scalar exposes the underlying curve.Scalar, e.g. to commit to e as an
// exponent.
func (e Element) Scalar() curve.Scalar { return e.s }

func (e Element) Add(o Element) Element { return Element{e.s.Add(o.s)} }
func (e Element) Sub(o Element) Element { return Element{e.s.Sub(o.s)} }
func (e Element) Mul(o Element) Element { return Element{e.s.Mul(o.s)} }
func (e Element) Neg() Element          { return Element{e.s.Neg()} }
func (e Element) Equal(o Element) bool  { return e.s.Equal(o.s) }
func (e Element) IsZero() bool          { return e.s.IsZero() }

// Square returns e*e.
func (e Element) Square() Element { return e.Mul(e) }

// Share2 splits e into two additive shares such that Reconstruct2 of the
// result returns e.
func Share2(e Element) (Element, Element, error) {
	r, err := Random()
	if err != nil {
		return Element{}, Element{}, err
	}
	return r, e.Sub(r), nil
}

// Reconstruct2 sums two additive shares.
func Reconstruct2(a, b Element) Element {
	return a.Add(b)
}

// Vector is a fixed-length slice of field elements supporting the inner
// products used by the DPF sketching MPC.
type Vector []Element

// NewVector builds a zero vector of length n.
func NewVector(n int) Vector {
	v := make(Vector, n)
	for i := range v {
		v[i] = Zero()
	}
	return v
}

// InnerProduct computes sum_i a[i]*b[i]. Panics if lengths differ.
func (a Vector) InnerProduct(b Vector) Element {
	if len(a) != len(b) {
		panic("field: inner product of mismatched-length vectors")
	}
	acc := Zero()
	for i := range a {
		acc = acc.Add(a[i].Mul(b[i]))
	}
	return acc
}

// Hadamard returns the element-wise product of a and b.
func (a Vector) Hadamard(b Vector) Vector {
	if len(a) != len(b) {
		panic("field: hadamard product of mismatched-length vectors")
	}
	out := make(Vector, len(a))
	for i := range a {
		out[i] = a[i].Mul(b[i])
	}
	return out
}

// Add returns the element-wise sum of a and b.
func (a Vector) Add(b Vector) Vector {
	if len(a) != len(b) {
		panic("field: addition of mismatched-length vectors")
	}
	out := make(Vector, len(a))
	for i := range a {
		out[i] = a[i].Add(b[i])
	}
	return out
}

// Scale multiplies every element by s.
func (a Vector) Scale(s Element) Vector {
	out := make(Vector, len(a))
	for i := range a {
		out[i] = a[i].Mul(s)
	}
	return out
}

// RandomVector samples n independent uniform elements.
func RandomVector(n int) (Vector, error) {
	v := make(Vector, n)
	for i := range v {
		e, err := Random()
		if err != nil {
			return nil, err
		}
		v[i] = e
	}
	return v, nil
}

// PowersOf returns [r^0, r^1, ..., r^(n-1)]. The sketching layer does
// not use it: dpf.ChallengeVector derives r from a PRG stream and
// squares and cubes it entry by entry.
func PowersOf(r Element, n int) Vector {
	out := make(Vector, n)
	acc := One()
	for i := 0; i < n; i++ {
		out[i] = acc
		acc = acc.Mul(r)
	}
	return out
}

// BeaverTriple is a pre-shared multiplication triple (a, b, c=a*b) used to
// evaluate one multiplication gate in the sketching MPC.
type BeaverTriple struct {
	A, B, C Element
}

// GenBeaverTriple samples a fresh, correct Beaver triple. In a two-party
// deployment the caller is responsible for secret-sharing the result
// between the two DPF key halves before it is used.
func GenBeaverTriple() (BeaverTriple, error) {
	a, err := Random()
	if err != nil {
		return BeaverTriple{}, err
	}
	b, err := Random()
	if err != nil {
		return BeaverTriple{}, err
	}
	return BeaverTriple{A: a, B: b, C: a.Mul(b)}, nil
}
