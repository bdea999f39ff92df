// Package txproof implements Pedersen commitment helpers and the two
// NIZKs the transaction pipeline needs: the `transaction` proof of a
// committed multiplication triple (spec.md §4.7) and the `token` proof
// linking a group token's account-id commitment to the committed
// transaction source index (spec.md §4.6/§4.7). Both reuse the
// transcript package's tagged Fiat-Shamir challenge, in the same style
// as the compound Schnorr proofs in package credential.
package txproof

import (
	"github.com/anon-splitting/psplit/curve"
	"github.com/anon-splitting/psplit/field"
)

// Commit returns value*G + randomness*H, the Pedersen commitment used
// throughout the transaction pipeline.
func Commit(value, randomness field.Element) curve.Point {
	return curve.G().Mul(value.Scalar()).Add(curve.H().Mul(randomness.Scalar()))
}
