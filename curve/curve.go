// Package curve implements the prime-order group arithmetic the rest of
// this repository is built on: a secp256k1 elliptic-curve point type and
// a scalar type for its associated field, plus the two independent
// generators G and H required by the credential and transaction NIZKs.
//
// [CMZ14]
//
//	Chase M., Meiklejohn S., Zaverucha G.,
//	"Algebraic MACs and Keyed-Verification Anonymous Credentials"
//	<https://eprint.iacr.org/2013/516.pdf>
package curve

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec"
)

var group = btcec.S256()

// Order returns the order of the scalar field, q in spec terms.
func Order() *big.Int {
	return group.N
}

// Scalar is an element of the field modulo the group order. The zero
// value is not a valid scalar; use Zero, One, or Random.
type Scalar struct {
	v *big.Int
}

// ScalarFromInt builds a Scalar from a small integer, used for participant
// indices and test fixtures.
func ScalarFromInt(i int64) Scalar {
	return Scalar{new(big.Int).Mod(big.NewInt(i), group.N)}
}

// ScalarFromBigInt reduces an arbitrary big.Int into the scalar field.
func ScalarFromBigInt(x *big.Int) Scalar {
	return Scalar{new(big.Int).Mod(x, group.N)}
}

// Zero is the additive identity scalar.
func Zero() Scalar { return Scalar{big.NewInt(0)} }

// One is the multiplicative identity scalar.
func One() Scalar { return Scalar{big.NewInt(1)} }

// RandomScalar samples a uniform scalar using a cryptographically secure
// source: a random value wider than q is reduced mod q, and a zero
// result is re-sampled.
func RandomScalar() (Scalar, error) {
	k, err := randFieldElement(group.N)
	if err != nil {
		return Scalar{}, err
	}
	return Scalar{k}, nil
}

// Add returns a+b mod q.
func (a Scalar) Add(b Scalar) Scalar {
	return Scalar{new(big.Int).Mod(new(big.Int).Add(a.v, b.v), group.N)}
}

// Sub returns a-b mod q.
func (a Scalar) Sub(b Scalar) Scalar {
	return Scalar{new(big.Int).Mod(new(big.Int).Sub(a.v, b.v), group.N)}
}

// Mul returns a*b mod q.
func (a Scalar) Mul(b Scalar) Scalar {
	return Scalar{new(big.Int).Mod(new(big.Int).Mul(a.v, b.v), group.N)}
}

// Neg returns -a mod q.
func (a Scalar) Neg() Scalar {
	return Scalar{new(big.Int).Mod(new(big.Int).Neg(a.v), group.N)}
}

// Invert returns a^-1 mod q. Panics if a is zero.
func (a Scalar) Invert() Scalar {
	if a.IsZero() {
		panic("curve: invert of zero scalar")
	}
	return Scalar{new(big.Int).ModInverse(a.v, group.N)}
}

// IsZero reports whether a is the additive identity.
func (a Scalar) IsZero() bool {
	return subtle.ConstantTimeCompare(a.Bytes(), Zero().Bytes()) == 1
}

// Equal reports whether a and b represent the same field element. The
// comparison runs in constant time since scalars frequently carry secret
// material (account indices, amounts, blinding factors).
func (a Scalar) Equal(b Scalar) bool {
	return subtle.ConstantTimeCompare(a.Bytes(), b.Bytes()) == 1
}

// Bytes returns the canonical big-endian 32-byte encoding of a.
func (a Scalar) Bytes() []byte {
	b := make([]byte, 32)
	v := a.v
	if v == nil {
		v = big.NewInt(0)
	}
	v.FillBytes(b)
	return b
}

// Int exposes the underlying big.Int. Callers must not mutate the result.
func (a Scalar) Int() *big.Int {
	if a.v == nil {
		return big.NewInt(0)
	}
	return a.v
}

// ScalarFromBytes decodes a canonical 32-byte big-endian scalar, reducing
// it modulo q if it exceeds the field.
func ScalarFromBytes(b []byte) Scalar {
	return Scalar{new(big.Int).Mod(new(big.Int).SetBytes(b), group.N)}
}

// Point is a point on the secp256k1 curve used both as a source of
// Pedersen commitments and as the credential scheme's algebraic MAC
// basepoints.
type Point struct {
	X, Y *big.Int
}

// Identity returns the point at infinity.
func Identity() Point {
	return Point{big.NewInt(0), big.NewInt(0)}
}

// IsIdentity reports whether P is the point at infinity.
func (p Point) IsIdentity() bool {
	return p.X.Sign() == 0 && p.Y.Sign() == 0
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	if p.IsIdentity() {
		return q
	}
	if q.IsIdentity() {
		return p
	}
	x, y := group.Add(p.X, p.Y, q.X, q.Y)
	return Point{x, y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return p.Add(q.Neg())
}

// Neg returns -p.
func (p Point) Neg() Point {
	if p.IsIdentity() {
		return p
	}
	y := new(big.Int).Sub(group.P, p.Y)
	return Point{new(big.Int).Set(p.X), y}
}

// Mul returns s*p.
func (p Point) Mul(s Scalar) Point {
	if p.IsIdentity() || s.IsZero() {
		return Identity()
	}
	x, y := group.ScalarMult(p.X, p.Y, s.Bytes())
	return Point{x, y}
}

// Equal reports whether p and q are the same point. This is not used on
// secret data, so a simple coordinate comparison suffices.
func (p Point) Equal(q Point) bool {
	if p.IsIdentity() || q.IsIdentity() {
		return p.IsIdentity() == q.IsIdentity()
	}
	return p.X.Cmp(q.X) == 0 && p.Y.Cmp(q.Y) == 0
}

// Bytes returns the uncompressed 64-byte X||Y encoding.
func (p Point) Bytes() []byte {
	x := make([]byte, 32)
	y := make([]byte, 32)
	if p.X != nil {
		p.X.FillBytes(x)
	}
	if p.Y != nil {
		p.Y.FillBytes(y)
	}
	return append(x, y...)
}

// Compress returns the SEC1 compressed encoding: a parity-prefixed
// 33-byte form, used on the wire where point size matters.
func (p Point) Compress() []byte {
	out := make([]byte, 33)
	if p.Y.Bit(0) == 0 {
		out[0] = 0x02
	} else {
		out[0] = 0x03
	}
	p.X.FillBytes(out[1:])
	return out
}

// PointFromBytes decodes the 64-byte uncompressed encoding produced by
// Bytes.
func PointFromBytes(b []byte) (Point, error) {
	if len(b) != 64 {
		return Point{}, fmt.Errorf("curve: point encoding must be 64 bytes, got %d", len(b))
	}
	x := new(big.Int).SetBytes(b[:32])
	y := new(big.Int).SetBytes(b[32:])
	return Point{x, y}, nil
}

// Decompress inverts Compress.
func Decompress(b []byte) (Point, error) {
	if len(b) != 33 {
		return Point{}, fmt.Errorf("curve: compressed point must be 33 bytes, got %d", len(b))
	}
	x := new(big.Int).SetBytes(b[1:])
	ySq := new(big.Int).Exp(x, big.NewInt(3), group.P)
	ySq.Add(ySq, big.NewInt(7))
	ySq.Mod(ySq, group.P)
	y := new(big.Int).ModSqrt(ySq, group.P)
	if y == nil {
		return Point{}, fmt.Errorf("curve: invalid compressed point")
	}
	wantOdd := b[0] == 0x03
	if (y.Bit(0) == 1) != wantOdd {
		y.Sub(group.P, y)
	}
	return Point{x, y}, nil
}

// BaseMul returns s*H, the standard generator multiplication.
func BaseMul(s Scalar) Point {
	x, y := group.ScalarBaseMult(s.Bytes())
	return Point{x, y}
}

// H is the curve's standard basepoint, reused as one of the two Pedersen
// generators required by the credential scheme.
func H() Point {
	return Point{new(big.Int).Set(group.Gx), new(big.Int).Set(group.Gy)}
}

// gLabel domain-separates the hash-to-curve used to derive G so that no
// discrete-log relation between G and H is known to anyone.
var gLabel = []byte("CMZ Generator A")

var cachedG *Point

// G is a second generator, independent of H, derived by hash-to-curve
// (try-and-increment on the curve equation) of a fixed domain label. It
// is computed once and cached.
func G() Point {
	if cachedG != nil {
		return *cachedG
	}
	p := hashToCurve(gLabel)
	cachedG = &p
	return p
}

// hashToCurve implements a simple try-and-increment hash-to-curve: hash
// the label with an incrementing counter until the digest is a valid
// x-coordinate, mirroring the teacher's BIP-340 LiftX logic.
func hashToCurve(label []byte) Point {
	for counter := uint32(0); ; counter++ {
		ctr := []byte{byte(counter >> 24), byte(counter >> 16), byte(counter >> 8), byte(counter)}
		h := sha256.Sum256(append(append([]byte{}, label...), ctr...))
		x := new(big.Int).SetBytes(h[:])
		x.Mod(x, group.P)

		rhs := new(big.Int).Exp(x, big.NewInt(3), group.P)
		rhs.Add(rhs, big.NewInt(7))
		rhs.Mod(rhs, group.P)

		y := new(big.Int).ModSqrt(rhs, group.P)
		if y == nil {
			continue
		}
		return Point{x, y}
	}
}

func randFieldElement(n *big.Int) (*big.Int, error) {
	b := make([]byte, (n.BitLen()+7)/8+8)
	for {
		if _, err := cryptoRandRead(b); err != nil {
			return nil, err
		}
		k := new(big.Int).SetBytes(b)
		k.Mod(k, n)
		if k.Sign() != 0 {
			return k, nil
		}
	}
}
