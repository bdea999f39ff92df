package wire

import (
	"testing"

	"github.com/anon-splitting/psplit/credential"
	"github.com/anon-splitting/psplit/curve"
	"github.com/anon-splitting/psplit/dpf"
	"github.com/anon-splitting/psplit/field"
	"github.com/anon-splitting/psplit/token"
)

func TestMarshalIsDeterministic(t *testing.T) {
	tok := token.GroupToken{
		P:     curve.G(),
		UID:   field.FromInt(3),
		CmAID: curve.H(),
		MAC:   [32]byte{1, 2, 3},
	}
	dto := GroupTokenToWire(tok)

	a, err := Marshal(dto)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	b, err := Marshal(dto)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(a) != string(b) {
		t.Fatal("Marshal of the same value produced different bytes")
	}
}

func TestGroupTokenRoundTrip(t *testing.T) {
	want := token.GroupToken{
		P:     curve.G(),
		UID:   field.FromInt(7),
		CmAID: curve.H(),
		MAC:   [32]byte{9, 9, 9},
	}
	dto := GroupTokenToWire(want)

	data, err := Marshal(dto)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got GroupTokenDTO
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	back, err := GroupTokenFromWire(got)
	if err != nil {
		t.Fatalf("GroupTokenFromWire: %v", err)
	}
	if !back.P.Equal(want.P) || !back.CmAID.Equal(want.CmAID) || !back.UID.Equal(want.UID) || back.MAC != want.MAC {
		t.Fatalf("round trip mismatch: got %+v, want %+v", back, want)
	}
}

func TestShowMessageRoundTrip(t *testing.T) {
	priv, pub, err := credential.NewIssuerKey()
	if err != nil {
		t.Fatalf("NewIssuerKey: %v", err)
	}
	m1, m2, m3, m4, m5 := field.FromInt(1), field.FromInt(2), field.FromInt(3), field.FromInt(4), field.FromInt(5)
	req, ck, err := credential.BuildCredentialRequest(m1, m2, m3, m4, m5)
	if err != nil {
		t.Fatalf("BuildCredentialRequest: %v", err)
	}
	resp, err := credential.IssueBlind124_5(priv, pub, req)
	if err != nil {
		t.Fatalf("IssueBlind124_5: %v", err)
	}
	cred, err := credential.FinishIssuance(ck, pub, resp, m1, m2, m3, m4, m5)
	if err != nil {
		t.Fatalf("FinishIssuance: %v", err)
	}
	show, err := credential.ShowBlind345_5(cred, pub)
	if err != nil {
		t.Fatalf("ShowBlind345_5: %v", err)
	}

	dto := ShowMessageToWire(show)
	data, err := Marshal(dto)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var gotDTO ShowMessageDTO
	if err := Unmarshal(data, &gotDTO); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	back, err := ShowMessageFromWire(gotDTO)
	if err != nil {
		t.Fatalf("ShowMessageFromWire: %v", err)
	}

	if _, err := credential.VerifyShow(priv, pub, back); err != nil {
		t.Fatalf("VerifyShow on round-tripped message: %v", err)
	}
}

func TestSketchKeyRoundTrip(t *testing.T) {
	betas, err := field.RandomVector(dpf.DomainTransaction - 1)
	if err != nil {
		t.Fatalf("RandomVector: %v", err)
	}
	betaLast := field.FromInt(20)
	alphaBits := dpf.IndexBits(2, dpf.DomainTransaction)

	sk0, _, err := dpf.GenSketchKeys(alphaBits, betas, betaLast)
	if err != nil {
		t.Fatalf("GenSketchKeys: %v", err)
	}

	dto := SketchKeyToWire(sk0)
	data, err := Marshal(dto)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var gotDTO SketchKeyDTO
	if err := Unmarshal(data, &gotDTO); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	back, err := SketchKeyFromWire(gotDTO)
	if err != nil {
		t.Fatalf("SketchKeyFromWire: %v", err)
	}

	if back.Party != sk0.Party || back.RootBit != sk0.RootBit {
		t.Fatal("sketch key round trip lost basic key fields")
	}
	if !back.K.Equal(sk0.K) || !back.Beta.Equal(sk0.Beta) {
		t.Fatal("sketch key round trip lost auxiliary shares")
	}
}
