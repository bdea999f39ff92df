// Package dpf implements a two-party distributed point function over the
// secp256k1 scalar field with full-domain evaluation and, in sketch.go, a
// malicious-secure sketching/verification sub-protocol run between the
// two servers.
//
// The tree construction follows the standard GGM/correction-word DPF of
// [BGI16] widened, per level, with a field-element correction word (not
// only at the leaf) so that a single-path evaluation (Eval) yields a
// value share at every level along that path. Full-domain evaluation
// (EvalAll) returns only the leaf level, and sketch.go's
// malicious-security sub-protocol works on those leaf shares.
//
// [BGI16]
//
//	Boyle E., Gilboa N., Ishai Y., "Function Secret Sharing: Improvements
//	and Extensions" <https://eprint.iacr.org/2018/707.pdf>
package dpf

import (
	"fmt"

	"github.com/anon-splitting/psplit/field"
	"github.com/anon-splitting/psplit/prg"
)

// Transaction-protocol and settle-protocol domain sizes, per the wire
// protocol's fixed constants.
const (
	DomainTransaction = 10 // DPF_DOMAIN
	DomainSettle      = 8  // SETTLE_DOMAIN
)

// LevelCW is the correction word attached to a single level of the DPF
// tree: a seed correction plus the two control-bit corrections, and a
// field-element correction used to realign the prefix-sum value share at
// this level.
type LevelCW struct {
	SeedCW  prg.Seed
	BitL    byte
	BitR    byte
	ValueCW field.Element
}

// Key is one party's half of a DPF key pair.
type Key struct {
	Party    byte // 0 or 1
	RootSeed prg.Seed
	RootBit  byte
	Levels   []LevelCW // one entry per tree level
}

// Domain reports the depth (number of bits) of the domain this key was
// generated for.
func (k *Key) Domain() int { return len(k.Levels) }

func xorSeed(a, b prg.Seed) prg.Seed {
	var out prg.Seed
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return out
}

func randomSeed() (prg.Seed, error) {
	var s prg.Seed
	if _, err := cryptoRandRead(s[:]); err != nil {
		return s, err
	}
	return s, nil
}

// Gen produces a DPF key pair for a hidden index encoded as alphaBits
// (most-significant bit first) together with a value for every internal
// level (betas, one per level but the last) and a value for the leaf
// (betaLast). The full-domain evaluation of the summed keys is zero
// everywhere except at alpha, where it equals betaLast; the per-level
// betas are realized by the level shares Eval returns along alpha's
// path.
//
// len(alphaBits) must equal len(betas)+1.
func Gen(alphaBits []bool, betas []field.Element, betaLast field.Element) (*Key, *Key, error) {
	d := len(alphaBits)
	if d == 0 {
		return nil, nil, fmt.Errorf("dpf: alphaBits must not be empty")
	}
	if len(betas) != d-1 {
		return nil, nil, fmt.Errorf("dpf: len(alphaBits)=%d must equal len(betas)+1=%d", d, len(betas)+1)
	}

	rootSeed0, err := randomSeed()
	if err != nil {
		return nil, nil, err
	}
	rootSeed1, err := randomSeed()
	if err != nil {
		return nil, nil, err
	}

	curSeed0, curSeed1 := rootSeed0, rootSeed1
	curBit0, curBit1 := byte(0), byte(1)

	levels := make([]LevelCW, d)

	for i := 0; i < d; i++ {
		s0L, b0L, s0R, b0R := prg.Expand(curSeed0)
		s1L, b1L, s1R, b1R := prg.Expand(curSeed1)

		alphaBit := alphaBits[i]

		var cw LevelCW
		var s0Keep, s1Keep prg.Seed
		var tCWKeep byte
		var keepBit0, keepBit1 byte

		if alphaBit {
			// Keep = Right, Lose = Left.
			cw.SeedCW = xorSeed(s0L, s1L)
			cw.BitL = b0L ^ b1L
			cw.BitR = b0R ^ b1R ^ 1
			tCWKeep = cw.BitR
			s0Keep, s1Keep = s0R, s1R
			keepBit0, keepBit1 = b0R, b1R
		} else {
			// Keep = Left, Lose = Right.
			cw.SeedCW = xorSeed(s0R, s1R)
			cw.BitL = b0L ^ b1L ^ 1
			cw.BitR = b0R ^ b1R
			tCWKeep = cw.BitL
			s0Keep, s1Keep = s0L, s1L
			keepBit0, keepBit1 = b0L, b1L
		}

		// Propagate each party's seed/bit state to the level this
		// correction word is about to describe. The value correction
		// below must be derived from this post-correction state (not
		// the raw pre-correction keep seeds), since that is exactly the
		// state Eval/EvalAll reconstruct when they consume ValueCW.
		nextSeed0 := s0Keep
		if curBit0 == 1 {
			nextSeed0 = xorSeed(nextSeed0, cw.SeedCW)
		}
		nextSeed1 := s1Keep
		if curBit1 == 1 {
			nextSeed1 = xorSeed(nextSeed1, cw.SeedCW)
		}
		nextBit0 := keepBit0
		if curBit0 == 1 {
			nextBit0 ^= tCWKeep
		}
		nextBit1 := keepBit1
		if curBit1 == 1 {
			nextBit1 ^= tCWKeep
		}

		// This level's target value: an intermediate beta for every
		// level but the last, which instead realizes betaLast.
		beta := betaLast
		if i < d-1 {
			beta = betas[i]
		}
		_, e0 := prg.Convert(nextSeed0)
		_, e1 := prg.Convert(nextSeed1)
		vcw := beta.Sub(e0).Add(e1)
		if nextBit1 == 1 {
			vcw = vcw.Neg()
		}
		cw.ValueCW = vcw

		levels[i] = cw

		curSeed0, curBit0 = nextSeed0, nextBit0
		curSeed1, curBit1 = nextSeed1, nextBit1
	}

	key0 := &Key{Party: 0, RootSeed: rootSeed0, RootBit: 0, Levels: levels}
	key1 := &Key{Party: 1, RootSeed: rootSeed1, RootBit: 1, Levels: levels}
	return key0, key1, nil
}

// Eval walks the tree along the path given by idxBits (one bit per
// level, most-significant first) and returns the per-level prefix-sum
// shares plus the final leaf share.
func (k *Key) Eval(idxBits []bool) (levelShares []field.Element, leaf field.Element, err error) {
	if len(idxBits) != len(k.Levels) {
		return nil, field.Element{}, fmt.Errorf("dpf: idxBits length %d does not match key domain %d", len(idxBits), len(k.Levels))
	}

	s := k.RootSeed
	t := k.RootBit
	levelShares = make([]field.Element, len(k.Levels))

	for i, bit := range idxBits {
		cw := k.Levels[i]
		sL, bL, sR, bR := prg.Expand(s)
		if t == 1 {
			sL = xorSeed(sL, cw.SeedCW)
			bL ^= cw.BitL
			sR = xorSeed(sR, cw.SeedCW)
			bR ^= cw.BitR
		}

		var nextSeed prg.Seed
		var nextBit byte
		if bit {
			nextSeed, nextBit = sR, bR
		} else {
			nextSeed, nextBit = sL, bL
		}

		_, elem := prg.Convert(nextSeed)
		value := elem
		if nextBit == 1 {
			value = value.Add(cw.ValueCW)
		}
		if k.Party == 1 {
			value = value.Neg()
		}
		levelShares[i] = value

		s, t = nextSeed, nextBit
	}

	return levelShares, levelShares[len(levelShares)-1], nil
}

// node is the tree-expansion state carried between levels of a
// full-domain evaluation.
type node struct {
	seed prg.Seed
	bit  byte
}

// EvalAll performs a full-domain evaluation of the key, in O(2^domain)
// PRG calls, and returns the leaf-level field share for every point in
// [0, 2^domain).
func (k *Key) EvalAll(domain int) ([]field.Element, error) {
	if domain != len(k.Levels) {
		return nil, fmt.Errorf("dpf: requested domain %d does not match key domain %d", domain, len(k.Levels))
	}

	frontier := []node{{k.RootSeed, k.RootBit}}

	for i := 0; i < domain; i++ {
		cw := k.Levels[i]
		next := make([]node, 0, len(frontier)*2)
		for _, n := range frontier {
			sL, bL, sR, bR := prg.Expand(n.seed)
			if n.bit == 1 {
				sL = xorSeed(sL, cw.SeedCW)
				bL ^= cw.BitL
				sR = xorSeed(sR, cw.SeedCW)
				bR ^= cw.BitR
			}
			next = append(next, node{sL, bL}, node{sR, bR})
		}
		frontier = next
	}

	out := make([]field.Element, len(frontier))
	finalCW := k.Levels[domain-1].ValueCW
	for i, n := range frontier {
		_, elem := prg.Convert(n.seed)
		value := elem
		if n.bit == 1 {
			value = value.Add(finalCW)
		}
		if k.Party == 1 {
			value = value.Neg()
		}
		out[i] = value
	}
	return out, nil
}

// EvalAllSettle is EvalAll parameterized on the settle-protocol domain
// size; it is the same algorithm as EvalAll, not a distinct code path.
func (k *Key) EvalAllSettle() ([]field.Element, error) {
	return k.EvalAll(DomainSettle)
}

// IndexBits encodes idx as a big-endian bit slice of the given domain
// size, the representation Gen and Eval expect for alpha/x.
func IndexBits(idx uint64, domain int) []bool {
	bits := make([]bool, domain)
	for i := 0; i < domain; i++ {
		shift := domain - 1 - i
		bits[i] = (idx>>uint(shift))&1 == 1
	}
	return bits
}
