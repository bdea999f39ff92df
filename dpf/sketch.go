package dpf

import (
	"crypto/sha256"
	"io"

	"github.com/anon-splitting/psplit/field"
	"github.com/anon-splitting/psplit/prg"
)

// numGates is the number of Beaver-triple multiplication gates the
// sketching MPC evaluates per run: the three direct consistency checks
// (spec checks 2-4), plus two product gates that compute r2_x*beta and
// r3_x*beta so the two remaining checks (spec checks 1 and 5, which each
// compare a product of two sketch values against a third) can be
// expressed as a verify-gate against an already-shared quantity.
const numGates = 7

const (
	gateKxK       = 0 // k * k                 (checked against k^2)
	gateKxRX      = 1 // k * r_x               (checked against r_kx)
	gateBetaxBeta = 2 // beta * beta           (checked against beta^2)
	gateR2XxBeta  = 3 // r2_x * beta           (product, feeds gateRXxRX)
	gateRXxRX     = 4 // r_x * r_x             (checked against gateR2XxBeta's product)
	gateR3XxBeta  = 5 // r3_x * beta           (product, feeds gateRXxR2X)
	gateRXxR2X    = 6 // r_x * r2_x            (checked against gateR3XxBeta's product)
)

// SketchKey attaches the MAC-key share, value shares, and Beaver-triple
// batch of [spec §4.4] to one party's half of a DPF key, enabling the
// malicious-secure sketching verification the two servers run after a
// full-domain evaluation.
type SketchKey struct {
	*Key
	K       field.Element // MAC key share
	K2      field.Element // share of k*k
	Beta    field.Element // share of the claimed point value
	Beta2   field.Element // share of beta*beta
	Triples [numGates]field.BeaverTriple
}

func shareTriple(t field.BeaverTriple) (field.BeaverTriple, field.BeaverTriple, error) {
	a0, a1, err := field.Share2(t.A)
	if err != nil {
		return field.BeaverTriple{}, field.BeaverTriple{}, err
	}
	b0, b1, err := field.Share2(t.B)
	if err != nil {
		return field.BeaverTriple{}, field.BeaverTriple{}, err
	}
	c0, c1, err := field.Share2(t.C)
	if err != nil {
		return field.BeaverTriple{}, field.BeaverTriple{}, err
	}
	return field.BeaverTriple{A: a0, B: b0, C: c0}, field.BeaverTriple{A: a1, B: b1, C: c1}, nil
}

// GenSketchKeys generates a DPF key pair exactly as Gen does and attaches
// the auxiliary sketching material: a shared MAC key, the shared value
// beta (and its square), and a batch of pre-shared Beaver triples.
func GenSketchKeys(alphaBits []bool, betas []field.Element, betaLast field.Element) (*SketchKey, *SketchKey, error) {
	k0, k1, err := Gen(alphaBits, betas, betaLast)
	if err != nil {
		return nil, nil, err
	}

	macKey, err := field.Random()
	if err != nil {
		return nil, nil, err
	}
	k0Share, k1Share, err := field.Share2(macKey)
	if err != nil {
		return nil, nil, err
	}
	k0Sq, k1Sq, err := field.Share2(macKey.Square())
	if err != nil {
		return nil, nil, err
	}
	beta0, beta1, err := field.Share2(betaLast)
	if err != nil {
		return nil, nil, err
	}
	beta2_0, beta2_1, err := field.Share2(betaLast.Square())
	if err != nil {
		return nil, nil, err
	}

	var triples0, triples1 [numGates]field.BeaverTriple
	for i := 0; i < numGates; i++ {
		t, err := field.GenBeaverTriple()
		if err != nil {
			return nil, nil, err
		}
		t0, t1, err := shareTriple(t)
		if err != nil {
			return nil, nil, err
		}
		triples0[i], triples1[i] = t0, t1
	}

	sk0 := &SketchKey{Key: k0, K: k0Share, K2: k0Sq, Beta: beta0, Beta2: beta2_0, Triples: triples0}
	sk1 := &SketchKey{Key: k1, K: k1Share, K2: k1Sq, Beta: beta1, Beta2: beta2_1, Triples: triples1}
	return sk0, sk1, nil
}

// ChallengeVector derives the per-slot pseudorandom challenge vector r
// from a transcript both servers compute identically, e.g. a hash of the
// transaction or settle-round identifier. This is the "common
// pseudorandom challenge r ... drawn by both servers from a common
// transcript" of spec §4.4; r^2 and r^3 are derived from it
// element-wise.
func ChallengeVector(transcript []byte, n int) (field.Vector, error) {
	digest := sha256.Sum256(transcript)
	var seed prg.Seed
	copy(seed[:], digest[:prg.SeedSize])

	stream := prg.ToRNG(seed)
	out := make(field.Vector, n)
	buf := make([]byte, 32)
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(stream, buf); err != nil {
			return nil, err
		}
		out[i] = field.FromBytes(buf)
	}
	return out, nil
}

func squareVec(r field.Vector) field.Vector {
	out := make(field.Vector, len(r))
	for i, v := range r {
		out[i] = v.Square()
	}
	return out
}

func cubeVec(r field.Vector) field.Vector {
	out := make(field.Vector, len(r))
	for i, v := range r {
		out[i] = v.Square().Mul(v)
	}
	return out
}

// SketchState holds the four inner products a server derives from its
// share of the full-domain evaluation vector and the common challenge.
type SketchState struct {
	RX, R2X, R3X, RKX field.Element
}

// SketchAt computes a server's SketchState, per spec §4.4, from its
// share x of the full-domain DPF evaluation and the common challenge
// vector r. If X is a weight-one vector with value beta at position i,
// RX = r_i*beta, R2X = r_i^2*beta, R3X = r_i^3*beta; any other shape of
// X will, with overwhelming probability over r, fail the identities
// Round3/VerifySketch check.
func (sk *SketchKey) SketchAt(x field.Vector, r field.Vector) SketchState {
	r2 := squareVec(r)
	r3 := cubeVec(r)
	kx := x.Scale(sk.K)

	return SketchState{
		RX:  r.InnerProduct(x),
		R2X: r2.InnerProduct(x),
		R3X: r3.InnerProduct(x),
		RKX: r.InnerProduct(kx),
	}
}

func gateOperands(st SketchState, sk *SketchKey) [numGates][2]field.Element {
	return [numGates][2]field.Element{
		gateKxK:       {sk.K, sk.K},
		gateKxRX:      {sk.K, st.RX},
		gateBetaxBeta: {sk.Beta, sk.Beta},
		gateR2XxBeta:  {st.R2X, sk.Beta},
		gateRXxRX:     {st.RX, st.RX},
		gateR3XxBeta:  {st.R3X, sk.Beta},
		gateRXxR2X:    {st.RX, st.R2X},
	}
}

// Round1Message is the "CorShare" the sketching MPC's first round
// publishes to the peer via the rendezvous.
type Round1Message struct {
	D [numGates]field.Element
	E [numGates]field.Element
}

// Round1 computes this server's CorShare for every gate.
func (sk *SketchKey) Round1(st SketchState) Round1Message {
	ops := gateOperands(st, sk)
	var msg Round1Message
	for i := 0; i < numGates; i++ {
		msg.D[i] = ops[i][0].Sub(sk.Triples[i].A)
		msg.E[i] = ops[i][1].Sub(sk.Triples[i].B)
	}
	return msg
}

// CorMessage is the reconstructed "Cor" of spec §4.4 round (ii): the sum
// of both servers' CorShares.
type CorMessage struct {
	D [numGates]field.Element
	E [numGates]field.Element
}

// Combine reconstructs Cor from this server's Round1Message and the
// peer's.
func Combine(mine, theirs Round1Message) CorMessage {
	var cor CorMessage
	for i := 0; i < numGates; i++ {
		cor.D[i] = mine.D[i].Add(theirs.D[i])
		cor.E[i] = mine.E[i].Add(theirs.E[i])
	}
	return cor
}

func mulShare(partyIdx int, t field.BeaverTriple, d, e field.Element) field.Element {
	z := d.Mul(t.B).Add(e.Mul(t.A)).Add(t.C)
	if partyIdx == 1 {
		z = z.Add(d.Mul(e))
	}
	return z
}

// SketchOutput is a server's final-round share of the five verification
// checks of spec §4.4, output in round (iii):
//
//	1. k*k    =? k^2
//	2. k*r_x  =? r_kx
//	3. beta*beta =? beta^2
//	4. r_x^2  =? (r2_x)*beta
//	5. r_x*r2_x =? (r3_x)*beta
type SketchOutput struct {
	Z [5]field.Element
}

// Round3 computes this server's share of each of the five checks. It
// must be called with the same partyIdx as the key's Party and the
// CorMessage produced by Combine.
func (sk *SketchKey) Round3(partyIdx int, st SketchState, cor CorMessage) SketchOutput {
	productR2XBeta := mulShare(partyIdx, sk.Triples[gateR2XxBeta], cor.D[gateR2XxBeta], cor.E[gateR2XxBeta])
	productR3XBeta := mulShare(partyIdx, sk.Triples[gateR3XxBeta], cor.D[gateR3XxBeta], cor.E[gateR3XxBeta])

	var out SketchOutput
	out.Z[0] = mulShare(partyIdx, sk.Triples[gateKxK], cor.D[gateKxK], cor.E[gateKxK]).Sub(sk.K2)
	out.Z[1] = mulShare(partyIdx, sk.Triples[gateKxRX], cor.D[gateKxRX], cor.E[gateKxRX]).Sub(st.RKX)
	out.Z[2] = mulShare(partyIdx, sk.Triples[gateBetaxBeta], cor.D[gateBetaxBeta], cor.E[gateBetaxBeta]).Sub(sk.Beta2)
	out.Z[3] = mulShare(partyIdx, sk.Triples[gateRXxRX], cor.D[gateRXxRX], cor.E[gateRXxRX]).Sub(productR2XBeta)
	out.Z[4] = mulShare(partyIdx, sk.Triples[gateRXxR2X], cor.D[gateRXxR2X], cor.E[gateRXxR2X]).Sub(productR3XBeta)
	return out
}

// VerifySketch checks that the two servers' SketchOutputs sum to zero on
// every one of the five checks, i.e. that the full-domain evaluation was
// well-formed and the claimed value consistent with the MAC key.
func VerifySketch(out0, out1 SketchOutput) bool {
	for i := range out0.Z {
		if !out0.Z[i].Add(out1.Z[i]).IsZero() {
			return false
		}
	}
	return true
}
