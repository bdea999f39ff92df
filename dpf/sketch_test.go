package dpf

import (
	"testing"

	"github.com/anon-splitting/psplit/field"
)

func runSketch(t *testing.T, sk0, sk1 *SketchKey, x0, x1 field.Vector, r field.Vector) (SketchOutput, SketchOutput) {
	t.Helper()

	st0 := sk0.SketchAt(x0, r)
	st1 := sk1.SketchAt(x1, r)

	msg0 := sk0.Round1(st0)
	msg1 := sk1.Round1(st1)

	cor0 := Combine(msg0, msg1)
	cor1 := Combine(msg1, msg0)

	out0 := sk0.Round3(0, st0, cor0)
	out1 := sk1.Round3(1, st1, cor1)
	return out0, out1
}

func TestSketchVerifiesHonestEvaluation(t *testing.T) {
	const domain = 6
	alpha := uint64(19)
	beta := field.FromInt(7)

	betas := make([]field.Element, domain-1)
	for i := range betas {
		betas[i] = field.FromInt(int64(i + 1))
	}

	sk0, sk1, err := GenSketchKeys(IndexBits(alpha, domain), betas, beta)
	if err != nil {
		t.Fatalf("GenSketchKeys: %v", err)
	}

	x0, err := sk0.EvalAll(domain)
	if err != nil {
		t.Fatalf("sk0.EvalAll: %v", err)
	}
	x1, err := sk1.EvalAll(domain)
	if err != nil {
		t.Fatalf("sk1.EvalAll: %v", err)
	}

	r, err := ChallengeVector([]byte("test-transcript"), 1<<domain)
	if err != nil {
		t.Fatalf("ChallengeVector: %v", err)
	}

	out0, out1 := runSketch(t, sk0, sk1, x0, x1, r)
	if !VerifySketch(out0, out1) {
		t.Fatalf("honest evaluation failed to verify")
	}
}

func TestSketchRejectsTamperedEvaluation(t *testing.T) {
	const domain = 6
	alpha := uint64(19)
	beta := field.FromInt(7)

	betas := make([]field.Element, domain-1)
	for i := range betas {
		betas[i] = field.FromInt(int64(i + 1))
	}

	sk0, sk1, err := GenSketchKeys(IndexBits(alpha, domain), betas, beta)
	if err != nil {
		t.Fatalf("GenSketchKeys: %v", err)
	}

	x0, err := sk0.EvalAll(domain)
	if err != nil {
		t.Fatalf("sk0.EvalAll: %v", err)
	}
	x1, err := sk1.EvalAll(domain)
	if err != nil {
		t.Fatalf("sk1.EvalAll: %v", err)
	}

	// A malicious party tampers with a single share after evaluation.
	tamper, err := field.Random()
	if err != nil {
		t.Fatalf("field.Random: %v", err)
	}
	x0[0] = x0[0].Add(tamper)

	r, err := ChallengeVector([]byte("test-transcript"), 1<<domain)
	if err != nil {
		t.Fatalf("ChallengeVector: %v", err)
	}

	out0, out1 := runSketch(t, sk0, sk1, x0, x1, r)
	if VerifySketch(out0, out1) {
		t.Fatalf("tampered evaluation unexpectedly verified")
	}
}

func TestChallengeVectorIsDeterministic(t *testing.T) {
	r1, err := ChallengeVector([]byte("abc"), 8)
	if err != nil {
		t.Fatalf("ChallengeVector: %v", err)
	}
	r2, err := ChallengeVector([]byte("abc"), 8)
	if err != nil {
		t.Fatalf("ChallengeVector: %v", err)
	}
	for i := range r1 {
		if !r1[i].Equal(r2[i]) {
			t.Fatalf("ChallengeVector is not deterministic at index %d", i)
		}
	}
}
